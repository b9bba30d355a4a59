// Package instance creates unlocked working copies of canonical entities.
package instance

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/canonical"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/identity"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/scene"
)

// ErrSelection means the selection does not hold exactly one canonical
// entity.
var ErrSelection = errors.New("instance: select exactly one canonical entity")

// Factory duplicates canonical entities into the scene.
type Factory struct {
	host   scene.Host
	store  *canonical.Store
	tags   identity.Tagger
	logger *slog.Logger
}

// NewFactory returns a factory over store. A nil logger discards output.
func NewFactory(h scene.Host, store *canonical.Store, tags identity.Tagger, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Factory{host: h, store: store, tags: tags, logger: logger}
}

// Instantiate duplicates entity (frame and identifier included), unlocks the
// copy and moves it to the top of the hierarchy. The work runs in one undo
// chunk; on failure the chunk is closed and undone before the error is
// returned.
func (f *Factory) Instantiate(entity scene.NodeID) (scene.NodeID, error) {
	f.host.OpenChunk("instantiate")

	inst, err := f.instantiate(entity)
	if err != nil {
		f.rollback(err)
		return "", err
	}
	if err := f.host.CloseChunk(); err != nil {
		return "", fmt.Errorf("instantiate: %w", err)
	}
	return inst, nil
}

func (f *Factory) instantiate(entity scene.NodeID) (scene.NodeID, error) {
	dup, err := f.host.Duplicate(entity)
	if err != nil {
		return "", fmt.Errorf("instantiate: duplicate: %w", err)
	}
	if err := canonical.UnlockTransform(f.host, dup); err != nil {
		return "", fmt.Errorf("instantiate: unlock: %w", err)
	}
	if _, err := f.host.Reparent(dup, scene.Root); err != nil {
		return "", fmt.Errorf("instantiate: reparent: %w", err)
	}
	return dup, nil
}

// rollback closes the open chunk and undoes it. Undo is refused while an
// enclosing chunk is still open; the enclosing operation then owns recovery.
func (f *Factory) rollback(cause error) {
	if err := f.host.CloseChunk(); err != nil {
		f.logger.Warn("instantiate: close chunk failed", "error", err)
		return
	}
	if err := f.host.Undo(); err != nil {
		f.logger.Warn("instantiate: undo failed", "cause", cause, "error", err)
	}
}

// InstantiateSelected instantiates the single selected canonical entity.
// An untagged entity under the store root is refused before anything is
// duplicated.
func (f *Factory) InstantiateSelected() (scene.NodeID, error) {
	sel := f.host.Selection(scene.Filter{Kind: scene.KindTransform, Pattern: f.store.Pattern()})
	if len(sel) != 1 {
		return "", fmt.Errorf("%w (got %d)", ErrSelection, len(sel))
	}
	if _, err := f.tags.Of(f.host, sel[0]); err != nil {
		return "", fmt.Errorf("instantiate: %w", err)
	}
	return f.Instantiate(sel[0])
}

// List returns the instances carrying id: tagged nodes outside the store
// root, ordered by path.
func (f *Factory) List(id string) []scene.NodeID {
	var out []scene.NodeID
	for _, n := range f.tags.Find(f.host, "", id) {
		if f.store.Encloses(n) {
			continue
		}
		out = append(out, n)
	}
	return out
}
