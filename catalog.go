/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package recordstore

import (
	stderrors "errors"
	"io"
	"log/slog"
	"sync"

	"github.com/suparena/recordstore/datastore"
	"github.com/suparena/recordstore/executor"
	"github.com/suparena/recordstore/identifier"
	"github.com/suparena/recordstore/planner"
	"github.com/suparena/recordstore/registry"
	"github.com/suparena/recordstore/schema"
)

// Options configures a Catalog. Every field is optional.
type Options struct {
	// Registry holds the model schemas and key layouts. Backends with
	// composite keys should be given the same registry.
	Registry *registry.Registry
	Executor executor.Options
	// DefaultLimit caps finds that request no limit. Zero selects
	// planner.DefaultLimit; a negative value leaves them unbounded.
	DefaultLimit int
	// Generator synthesizes identifiers. Defaults to random UUIDs.
	Generator identifier.Generator
}

// Catalog is the entry point of a record store: it owns the data store
// connection and hands out one Repository per defined model.
// It is safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	registry *registry.Registry
	exec     *executor.Executor
	compiler *planner.Compiler
	ids      *identifier.Manager
	logger   *slog.Logger
	repos    map[string]*Repository
	closers  []io.Closer
}

// NewCatalog creates a Catalog over store.
func NewCatalog(store datastore.DataStore, opts Options) *Catalog {
	if opts.Registry == nil {
		opts.Registry = registry.New()
	}
	if opts.DefaultLimit == 0 {
		opts.DefaultLimit = planner.DefaultLimit
	}
	if opts.Executor.Logger == nil {
		opts.Executor.Logger = slog.Default()
	}
	return &Catalog{
		registry: opts.Registry,
		exec:     executor.New(store, opts.Executor),
		compiler: planner.NewCompiler(opts.DefaultLimit),
		ids:      identifier.NewManager(opts.Generator),
		logger:   opts.Executor.Logger,
		repos:    make(map[string]*Repository),
	}
}

// Define registers a model and returns its Repository. Defining a name
// twice is an error.
func (c *Catalog) Define(s *schema.Schema) (*Repository, error) {
	if err := c.registry.Register(s); err != nil {
		return nil, err
	}
	c.logger.Debug("model defined", "collection", s.Name, "id", s.IDField())
	return c.repository(s), nil
}

// Model returns the Repository of a model defined in the catalog or
// registered directly in its registry.
func (c *Catalog) Model(name string) (*Repository, error) {
	c.mu.RLock()
	repo, ok := c.repos[name]
	c.mu.RUnlock()
	if ok {
		return repo, nil
	}

	s, err := c.registry.Schema(name)
	if err != nil {
		return nil, err
	}
	return c.repository(s), nil
}

func (c *Catalog) repository(s *schema.Schema) *Repository {
	c.mu.Lock()
	defer c.mu.Unlock()

	if repo, ok := c.repos[s.Name]; ok {
		return repo
	}
	repo := &Repository{
		schema:   s,
		ids:      c.ids,
		compiler: c.compiler,
		exec:     c.exec,
		logger:   c.logger,
	}
	c.repos[s.Name] = repo
	return repo
}

// Models returns the defined model names, sorted.
func (c *Catalog) Models() []string {
	return c.registry.Names()
}

// IndexMap returns the key layout of a model in stores with composite keys.
func (c *Catalog) IndexMap(name string) map[string]string {
	return c.registry.IndexMap(name)
}

// Executor returns the executor shared by every repository.
func (c *Catalog) Executor() *executor.Executor {
	return c.exec
}

// Close releases the connections opened for the catalog.
func (c *Catalog) Close() error {
	c.mu.Lock()
	closers := c.closers
	c.closers = nil
	c.mu.Unlock()

	var errs []error
	for _, cl := range closers {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
