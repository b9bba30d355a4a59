package engine

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/basis"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/scene"
)

// propagate re-creates every instance of res.Identifier from the new
// canonical entity. Instances are visited in path order and the first
// failure stops the walk; instances already replaced stay replaced.
func (e *Engine) propagate(res *Result, log *slog.Logger) error {
	stale := e.factory.List(res.Identifier)
	log.Debug("propagating", "instances", len(stale))

	for _, s := range stale {
		// Nested instances are carried over by their ancestor's
		// replacement, so every listed node must still be here.
		if !e.host.Exists(s) {
			return &SyncError{Code: ErrCodeConsistency, Message: "instance vanished during propagation", Identifier: res.Identifier, Node: string(s)}
		}
		inst, err := e.replace(res.Identifier, res.Canonical, s)
		if err != nil {
			return err
		}
		log.Debug("instance replaced", "path", inst.Path)
		res.Instances = append(res.Instances, inst)
	}
	return nil
}

// replace swaps one stale instance for a fresh one carrying the stale
// instance's world pose, parent and display name.
func (e *Engine) replace(id string, canon, stale scene.NodeID) (Instance, error) {
	stalePath, err := e.host.Path(stale)
	if err != nil {
		return Instance{}, classify(err, "read instance path", id, "")
	}
	pose, err := basis.Sample(e.host, stale)
	if err != nil {
		return Instance{}, classify(err, "sample instance pose", id, stalePath)
	}
	parent, err := e.host.Parent(stale)
	if err != nil {
		return Instance{}, classify(err, "read instance parent", id, stalePath)
	}
	name, err := e.host.Name(stale)
	if err != nil {
		return Instance{}, classify(err, "read instance name", id, stalePath)
	}

	fresh, err := e.factory.Instantiate(canon)
	if err != nil {
		return Instance{}, classify(err, "instantiate", id, stalePath)
	}
	if err := e.host.SetWorldMatrix(fresh, pose); err != nil {
		return Instance{}, classify(err, "apply pose", id, stalePath)
	}
	if err := e.adoptTagged(stalePath, fresh); err != nil {
		return Instance{}, classify(err, "carry nested instances", id, stalePath)
	}
	if err := e.host.Delete(stale); err != nil {
		return Instance{}, classify(err, "delete stale instance", id, stalePath)
	}
	if _, err := e.host.Reparent(fresh, parent); err != nil {
		return Instance{}, classify(err, "restore parent", id, stalePath)
	}
	path, err := e.host.Rename(fresh, name)
	if err != nil {
		return Instance{}, classify(err, "restore name", id, stalePath)
	}

	got, err := e.host.WorldMatrix(fresh)
	if err != nil {
		return Instance{}, classify(err, "read applied pose", id, path)
	}
	if !got.ApproxEqual(pose, e.tolerance) {
		return Instance{}, &SyncError{Code: ErrCodeConsistency, Message: "applied pose drifted from sampled pose", Identifier: id, Node: path}
	}
	return Instance{ID: fresh, Path: path, StalePath: stalePath, Pose: pose}, nil
}

// adoptTagged re-parents the outermost tagged descendants of the node at
// stalePath onto fresh. Re-parenting keeps world placement, so instances
// nested in a stale instance outlive its deletion and are replaced later in
// the walk.
func (e *Engine) adoptTagged(stalePath string, fresh scene.NodeID) error {
	var outer []string
	for _, n := range e.tags.Tagged(e.host, stalePath) {
		p, err := e.host.Path(n)
		if err != nil {
			return err
		}
		if slices.ContainsFunc(outer, func(o string) bool {
			return strings.HasPrefix(p, o+scene.PathSeparator)
		}) {
			continue
		}
		outer = append(outer, p)
	}
	for _, p := range outer {
		n, ok := e.host.Lookup(p)
		if !ok {
			return fmt.Errorf("%s: %w", p, scene.ErrNotFound)
		}
		if _, err := e.host.Reparent(n, fresh); err != nil {
			return err
		}
	}
	return nil
}
