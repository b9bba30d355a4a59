package engine

import (
	"context"
	"io"
	"log/slog"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/canonical"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/identity"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/instance"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/ir"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/scene"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/xform"
)

// Journal persists publish records. Implemented by *store.Store.
type Journal interface {
	Record(ctx context.Context, pub ir.Publish, props []ir.Propagation) error
}

// Sequencer hands out journal seq numbers. Implemented by *Clock and by
// testutil.DeterministicClock.
type Sequencer interface {
	Next() int64
	Current() int64
}

// Engine runs publish operations against one scene.
type Engine struct {
	host    scene.Host
	tags    identity.Tagger
	store   *canonical.Store
	factory *instance.Factory

	journal Journal
	clock   Sequencer
	tokens  TokenGenerator
	logger  *slog.Logger

	rootName  string
	attr      string
	atomic    bool
	tolerance float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithJournal records every successful publish in j.
func WithJournal(j Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithClock sets the logical clock, e.g. one resumed from the journal.
func WithClock(c Sequencer) Option {
	return func(e *Engine) { e.clock = c }
}

// WithTokens sets the publish token generator.
func WithTokens(g TokenGenerator) Option {
	return func(e *Engine) { e.tokens = g }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithStoreRoot names the canonical root group (default "Originals").
func WithStoreRoot(name string) Option {
	return func(e *Engine) { e.rootName = name }
}

// WithIdentifierAttr names the identifier attribute (default "identifier").
func WithIdentifierAttr(attr string) Option {
	return func(e *Engine) { e.attr = attr }
}

// WithAtomicUpdate makes PublishUpdate undo all of its scene edits when it
// fails. Without it a failed update leaves the scene as the failure found
// it.
func WithAtomicUpdate(atomic bool) Option {
	return func(e *Engine) { e.atomic = atomic }
}

// WithTolerance sets the tolerance used to verify applied poses.
func WithTolerance(tol float64) Option {
	return func(e *Engine) { e.tolerance = tol }
}

// New creates an Engine over host.
func New(host scene.Host, opts ...Option) *Engine {
	e := &Engine{
		host:      host,
		clock:     NewClock(),
		tokens:    UUIDv7Generator{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		tolerance: xform.DefaultTolerance,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.tags = identity.New(e.attr)
	e.store = canonical.New(host, e.tags, e.rootName)
	e.factory = instance.NewFactory(host, e.store, e.tags, e.logger)
	return e
}

// Store returns the canonical store the engine publishes into.
func (e *Engine) Store() *canonical.Store {
	return e.store
}

// Factory returns the instance factory.
func (e *Engine) Factory() *instance.Factory {
	return e.factory
}

// Tags returns the identifier tagger.
func (e *Engine) Tags() identity.Tagger {
	return e.tags
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() Sequencer {
	return e.clock
}
