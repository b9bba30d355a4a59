package engine

import (
	"context"
	"log/slog"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/basis"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/canonical"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/identity"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/ir"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/scene"
)

// PublishFirst makes the single selected, untagged transform canonical.
//
// The entity gains a basis frame, moves under the store root, is tagged
// with an identifier derived from its display name and locked. An unlocked
// instance is then created so the author keeps an editable copy. All scene
// edits form one undo chunk, undone if any step fails.
func (e *Engine) PublishFirst(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cand, path, err := e.selectOne()
	if err != nil {
		return nil, err
	}
	if id, err := e.tags.Of(e.host, cand); err == nil {
		return nil, &SyncError{Code: ErrCodeSelection, Message: "candidate already carries an identifier", Identifier: id, Node: path}
	}
	name, err := e.host.Name(cand)
	if err != nil {
		return nil, classify(err, "read candidate name", "", path)
	}
	id := identity.FromName(name)
	if e.canonicalCount(id) > 0 {
		return nil, &SyncError{Code: ErrCodeIdentity, Message: "identifier already has a canonical entity", Identifier: id, Node: path}
	}

	token := e.tokens.Generate()
	log := e.logger.With("token", token, "identifier", id)
	log.Info("publish first", "node", path)

	e.host.OpenChunk("publish " + id)
	res, err := e.publishFirst(cand, id, path)
	if err != nil {
		e.undoChunk(log, err)
		return nil, err
	}
	if err := e.host.CloseChunk(); err != nil {
		return nil, classify(err, "close undo chunk", id, path)
	}

	res.Token = token
	if err := e.record(ctx, res); err != nil {
		return res, err
	}
	log.Info("published", "path", res.CanonicalPath, "instances", len(res.Instances))
	return res, nil
}

func (e *Engine) publishFirst(cand scene.NodeID, id, path string) (*Result, error) {
	if _, err := basis.Attach(e.host, cand); err != nil {
		return nil, classify(err, "attach basis frame", id, path)
	}
	if _, err := e.store.Ensure(); err != nil {
		return nil, classify(err, "ensure canonical store", id, path)
	}
	cpath, err := e.store.Insert(cand, id, "")
	if err != nil {
		return nil, classify(err, "insert canonical", id, path)
	}
	inst, err := e.instantiate(cand, id)
	if err != nil {
		return nil, err
	}
	return &Result{
		Kind:          ir.KindFirst,
		Identifier:    id,
		Canonical:     cand,
		CanonicalPath: cpath,
		Instances:     []Instance{inst},
	}, nil
}

// PublishUpdate replaces the canonical entity of an identifier.
//
// The selection must hold exactly two transforms: the new candidate, then
// a reference entity carrying the identifier (an instance or the canonical
// entity itself). The candidate is duplicated, placed at the old canonical
// entity's world pose, inherits its basis frame, and takes its place and
// name in the store. Every instance of the identifier is then re-created
// from the new version in place.
//
// On failure the partial Result is returned with the error. Edits already
// made stay in the scene unless the engine was built WithAtomicUpdate.
func (e *Engine) PublishUpdate(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel := e.host.Selection(scene.Filter{})
	if len(sel) != 2 {
		return nil, selectionError("update needs exactly two selected transforms, new then old (got %d)", len(sel))
	}
	for _, n := range sel {
		if err := e.requireTransform(n); err != nil {
			return nil, err
		}
	}
	cand, ref := sel[0], sel[1]
	candPath, _ := e.host.Path(cand)
	refPath, _ := e.host.Path(ref)
	if e.store.Encloses(cand) {
		return nil, &SyncError{Code: ErrCodeSelection, Message: "candidate is already canonical", Node: candPath}
	}
	id, err := e.tags.Of(e.host, ref)
	if err != nil {
		return nil, classify(err, "reference carries no identifier", "", refPath)
	}

	token := e.tokens.Generate()
	log := e.logger.With("token", token, "identifier", id)
	log.Info("publish update", "node", candPath, "reference", refPath)

	if e.atomic {
		e.host.OpenChunk("update " + id)
	}
	res := &Result{Kind: ir.KindUpdate, Token: token, Identifier: id}
	if err := e.publishUpdate(res, cand, candPath, log); err != nil {
		if e.atomic {
			e.undoChunk(log, err)
			return nil, err
		}
		log.Error("publish update failed, scene left partially updated",
			"instances", len(res.Instances), "error", err)
		return res, err
	}
	if e.atomic {
		if err := e.host.CloseChunk(); err != nil {
			return nil, classify(err, "close undo chunk", id, candPath)
		}
	}

	if err := e.record(ctx, res); err != nil {
		return res, err
	}
	log.Info("published", "path", res.CanonicalPath, "instances", len(res.Instances))
	return res, nil
}

func (e *Engine) publishUpdate(res *Result, cand scene.NodeID, candPath string, log *slog.Logger) error {
	id := res.Identifier

	// The old canonical entity is resolved before the candidate is
	// duplicated so an unknown identifier leaves no stray copy behind.
	old, err := e.store.Find(id)
	if err != nil {
		return classify(err, "no canonical entity for identifier", id, "")
	}
	oldName, err := e.host.Name(old)
	if err != nil {
		return classify(err, "read canonical name", id, "")
	}

	next, err := e.host.Duplicate(cand)
	if err != nil {
		return classify(err, "duplicate candidate", id, candPath)
	}
	world, err := e.host.WorldMatrix(old)
	if err != nil {
		return classify(err, "read canonical pose", id, oldName)
	}
	if err := e.host.SetWorldMatrix(next, world); err != nil {
		return classify(err, "place new version", id, candPath)
	}
	if _, err := basis.Transfer(e.host, old, next); err != nil {
		return classify(err, "transfer basis frame", id, oldName)
	}
	if err := e.tags.Tag(e.host, next, id); err != nil {
		return classify(err, "tag new version", id, candPath)
	}

	if err := canonical.UnlockTransform(e.host, old); err != nil {
		return classify(err, "unlock old version", id, oldName)
	}
	if err := e.host.Delete(old); err != nil {
		return classify(err, "delete old version", id, oldName)
	}
	cpath, err := e.store.Insert(next, id, oldName)
	if err != nil {
		return classify(err, "insert new version", id, candPath)
	}
	res.Canonical = next
	res.CanonicalPath = cpath
	log.Debug("canonical replaced", "path", cpath)

	return e.propagate(res, log)
}

// InstantiateSelected creates an instance of the single selected canonical
// entity.
func (e *Engine) InstantiateSelected(ctx context.Context) (Instance, error) {
	if err := ctx.Err(); err != nil {
		return Instance{}, err
	}
	nid, err := e.factory.InstantiateSelected()
	if err != nil {
		return Instance{}, classify(err, "instantiate under "+e.store.RootPath(), "", "")
	}
	id, err := e.tags.Of(e.host, nid)
	if err != nil {
		return Instance{}, classify(err, "read instance identifier", "", "")
	}
	inst, err := e.describe(nid, id)
	if err != nil {
		return Instance{}, err
	}
	e.logger.Info("instantiated", "identifier", id, "path", inst.Path)
	return inst, nil
}

func (e *Engine) instantiate(canon scene.NodeID, id string) (Instance, error) {
	inst, err := e.factory.Instantiate(canon)
	if err != nil {
		return Instance{}, classify(err, "instantiate", id, "")
	}
	return e.describe(inst, id)
}

// describe reads back the path and world pose of a new instance.
func (e *Engine) describe(inst scene.NodeID, id string) (Instance, error) {
	path, err := e.host.Path(inst)
	if err != nil {
		return Instance{}, classify(err, "read instance path", id, "")
	}
	pose, err := e.host.WorldMatrix(inst)
	if err != nil {
		return Instance{}, classify(err, "read instance pose", id, path)
	}
	return Instance{ID: inst, Path: path, Pose: pose}, nil
}

// selectOne returns the single selected node, which must be a transform.
func (e *Engine) selectOne() (scene.NodeID, string, error) {
	sel := e.host.Selection(scene.Filter{})
	if len(sel) != 1 {
		return "", "", selectionError("publish needs exactly one selected transform (got %d)", len(sel))
	}
	if err := e.requireTransform(sel[0]); err != nil {
		return "", "", err
	}
	path, _ := e.host.Path(sel[0])
	return sel[0], path, nil
}

func (e *Engine) requireTransform(n scene.NodeID) error {
	kind, err := e.host.Kind(n)
	if err != nil {
		return classify(err, "read selection", "", "")
	}
	if kind != scene.KindTransform {
		path, _ := e.host.Path(n)
		return &SyncError{Code: ErrCodeSelection, Message: "selection must be transforms, got " + string(kind), Node: path}
	}
	return nil
}

func (e *Engine) canonicalCount(id string) int {
	n := 0
	for _, entry := range e.store.List() {
		if entry.Identifier == id {
			n++
		}
	}
	return n
}

// undoChunk closes the open chunk and undoes it. Failures are logged; the
// caller returns the original error either way.
func (e *Engine) undoChunk(log *slog.Logger, cause error) {
	if err := e.host.CloseChunk(); err != nil {
		log.Warn("rollback: close undo chunk failed", "cause", cause, "error", err)
		return
	}
	if err := e.host.Undo(); err != nil {
		log.Warn("rollback: undo failed", "cause", cause, "error", err)
		return
	}
	log.Info("rolled back", "cause", cause)
}
