// Package canonical holds the locked, authoritative version of every
// logical entity under a single root group.
//
// At most one canonical entity per identifier lives under the root. The
// root is created lazily on first use, locked and hidden.
package canonical

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/identity"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/scene"
)

// DefaultRoot is the name of the top-level group holding canonical entities.
const DefaultRoot = "Originals"

var (
	// ErrNotFound means no single canonical entity carries the identifier.
	ErrNotFound = errors.New("canonical: not found")
	// ErrNoRoot means the root group has not been created yet.
	ErrNoRoot = errors.New("canonical: store root does not exist")
)

// Entry describes one canonical entity.
type Entry struct {
	ID         scene.NodeID `json:"id"`
	Identifier string       `json:"identifier"`
	Path       string       `json:"path"`
}

// Store manages the canonical root group.
type Store struct {
	host     scene.Host
	tags     identity.Tagger
	rootName string
}

// New returns a store rooted at "|"+rootName (DefaultRoot if empty).
func New(h scene.Host, tags identity.Tagger, rootName string) *Store {
	if rootName == "" {
		rootName = DefaultRoot
	}
	return &Store{host: h, tags: tags, rootName: rootName}
}

// RootPath returns the full path of the root group.
func (s *Store) RootPath() string {
	return scene.PathSeparator + s.rootName
}

// Pattern matches the direct children of the root (for selection filters).
func (s *Store) Pattern() string {
	return s.RootPath() + scene.PathSeparator + "*"
}

// Root returns the root group if it exists.
func (s *Store) Root() (scene.NodeID, bool) {
	return s.host.Lookup(s.RootPath())
}

// Ensure returns the root group, creating, locking and hiding it on first
// call. Subsequent calls return the existing group.
func (s *Store) Ensure() (scene.NodeID, error) {
	if root, ok := s.Root(); ok {
		return root, nil
	}
	root, err := s.host.CreateTransform(s.rootName, scene.Root)
	if err != nil {
		return "", fmt.Errorf("create canonical root: %w", err)
	}
	if err := LockTransform(s.host, root); err != nil {
		return "", fmt.Errorf("lock canonical root: %w", err)
	}
	if err := s.host.Hide(root); err != nil {
		return "", fmt.Errorf("hide canonical root: %w", err)
	}
	return root, nil
}

// Contains reports whether entity is a direct child of the root.
func (s *Store) Contains(entity scene.NodeID) bool {
	root, ok := s.Root()
	if !ok {
		return false
	}
	parent, err := s.host.Parent(entity)
	return err == nil && parent == root
}

// Encloses reports whether entity lies anywhere below the root.
func (s *Store) Encloses(entity scene.NodeID) bool {
	p, err := s.host.Path(entity)
	return err == nil && strings.HasPrefix(p, s.RootPath()+scene.PathSeparator)
}

// Insert moves entity under the root, tags it with id, renames it to name
// when name is not empty, and locks it. Returns the final path.
func (s *Store) Insert(entity scene.NodeID, id, name string) (string, error) {
	root, err := s.Ensure()
	if err != nil {
		return "", err
	}
	p, err := s.host.Reparent(entity, root)
	if err != nil {
		return "", fmt.Errorf("insert canonical: %w", err)
	}
	if err := s.tags.Tag(s.host, entity, id); err != nil {
		return "", fmt.Errorf("insert canonical: %w", err)
	}
	if name != "" {
		if p, err = s.host.Rename(entity, name); err != nil {
			return "", fmt.Errorf("insert canonical: %w", err)
		}
	}
	if err := LockTransform(s.host, entity); err != nil {
		return "", fmt.Errorf("insert canonical: %w", err)
	}
	return p, nil
}

// Remove unlocks entity and moves it back to the top of the hierarchy.
func (s *Store) Remove(entity scene.NodeID) (string, error) {
	if !s.Contains(entity) {
		return "", fmt.Errorf("remove canonical %s: %w", entity, ErrNotFound)
	}
	if err := UnlockTransform(s.host, entity); err != nil {
		return "", fmt.Errorf("remove canonical: %w", err)
	}
	p, err := s.host.Reparent(entity, scene.Root)
	if err != nil {
		return "", fmt.Errorf("remove canonical: %w", err)
	}
	return p, nil
}

// Find returns the canonical entity tagged id. Zero or several matches
// both yield ErrNotFound.
func (s *Store) Find(id string) (scene.NodeID, error) {
	var match []scene.NodeID
	for _, n := range s.tags.Find(s.host, s.RootPath(), id) {
		if s.Contains(n) {
			match = append(match, n)
		}
	}
	if len(match) != 1 {
		return "", fmt.Errorf("identifier %q: %w", id, ErrNotFound)
	}
	return match[0], nil
}

// List returns every canonical entity ordered by path.
func (s *Store) List() []Entry {
	var out []Entry
	for _, n := range s.tags.Tagged(s.host, s.RootPath()) {
		if !s.Contains(n) {
			continue
		}
		id, err := s.tags.Of(s.host, n)
		if err != nil {
			continue
		}
		p, err := s.host.Path(n)
		if err != nil {
			continue
		}
		out = append(out, Entry{ID: n, Identifier: id, Path: p})
	}
	return out
}

// LockTransform locks translate, rotate and scale, then the node itself.
func LockTransform(h scene.Host, id scene.NodeID) error {
	for _, attr := range scene.TransformAttrs {
		if err := h.LockAttr(id, attr, true); err != nil {
			return err
		}
	}
	return h.LockNode(id, true)
}

// UnlockTransform reverses LockTransform.
func UnlockTransform(h scene.Host, id scene.NodeID) error {
	if err := h.LockNode(id, false); err != nil {
		return err
	}
	for _, attr := range scene.TransformAttrs {
		if err := h.LockAttr(id, attr, false); err != nil {
			return err
		}
	}
	return nil
}

// IsLocked reports whether the node and all transform attributes are locked.
func IsLocked(h scene.Host, id scene.NodeID) bool {
	if !h.IsNodeLocked(id) {
		return false
	}
	for _, attr := range scene.TransformAttrs {
		if !h.IsAttrLocked(id, attr) {
			return false
		}
	}
	return true
}
