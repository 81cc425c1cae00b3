package di

import (
	"github.com/phonoteca/go-query-cache/cache"
	"github.com/phonoteca/go-query-cache/library"
	"github.com/phonoteca/go-query-cache/querycache"
)

// Container provides dependency injection for cache related components.
// It manages singleton instances of the store, key builder, and tag table,
// and provides factory methods for building cached services on top of them.
type Container struct {
	store  cache.Store
	keys   cache.KeyBuilder
	tags   *cache.TagTable
	cache  *querycache.Cache
	config cache.Config
}

// NewContainer creates a new DI container with the provided store configuration.
// It wires the tag-aware store, the default key builder, and an empty tag
// table into a ready-to-use query cache. Register operations on TagTable
// before caching queries, or use a factory such as NewLibraryManager which
// registers a policy's tag templates itself.
func NewContainer(config cache.Config, opts ...querycache.Option) (*Container, error) {
	store, err := cache.NewStore(config)
	if err != nil {
		return nil, err
	}

	keys := cache.NewKeyBuilder()
	tags := cache.NewTagTable()

	return &Container{
		store:  store,
		keys:   keys,
		tags:   tags,
		cache:  querycache.New(store, keys, tags, opts...),
		config: config,
	}, nil
}

// NewContainerWithDefaults creates a new DI container using default configuration.
// This is a convenience constructor for typical use cases where custom configuration
// is not required.
func NewContainerWithDefaults(opts ...querycache.Option) (*Container, error) {
	return NewContainer(cache.DefaultConfig(), opts...)
}

// Store returns the singleton store instance.
// This allows access to the underlying store for advanced use cases.
func (c *Container) Store() cache.Store {
	return c.store
}

// KeyBuilder returns the singleton key builder instance.
// This allows access to the key builder for custom caching implementations.
func (c *Container) KeyBuilder() cache.KeyBuilder {
	return c.keys
}

// TagTable returns the singleton tag table. Operations registered here are
// visible to every query cached through the container.
func (c *Container) TagTable() *cache.TagTable {
	return c.tags
}

// Cache returns the singleton query cache built over the container's store,
// key builder, and tag table.
func (c *Container) Cache() *querycache.Cache {
	return c.cache
}

// Config returns a copy of the store configuration used by this container.
// This is useful for debugging and monitoring purposes.
func (c *Container) Config() cache.Config {
	return c.config
}

// Close releases the container's background resources. It stops the store's
// sweeper when one was configured; the container remains usable afterwards.
func (c *Container) Close() {
	c.cache.Close()
}

// NewLibraryManager creates a track library manager whose reads are cached
// through the container. It validates the policy, registers its tag
// templates on the container's tag table, and applies its TTLs to every
// cached read.
//
// Example: NewLibraryManager(container, repo, library.DefaultPolicy())
func NewLibraryManager(container *Container, store library.TrackStore, policy library.Policy, opts ...library.ManagerOption) (*library.Manager, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	policy.RegisterTags(container.tags)

	managerOpts := append([]library.ManagerOption{library.WithPolicy(policy)}, opts...)
	return library.NewManager(store, container.cache, managerOpts...), nil
}
