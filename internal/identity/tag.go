// Package identity gives scene entities a logical identifier that is
// independent of their display name, stored as a string attribute.
package identity

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/scene"
)

// DefaultAttr is the attribute that carries the identifier.
const DefaultAttr = "identifier"

// ErrUntagged means the entity carries no identifier.
var ErrUntagged = errors.New("identity: entity has no identifier")

// Tagger reads and writes identifiers through one attribute name.
type Tagger struct {
	Attr string
}

// New returns a Tagger for attr, falling back to DefaultAttr.
func New(attr string) Tagger {
	if attr == "" {
		attr = DefaultAttr
	}
	return Tagger{Attr: attr}
}

// Tag sets the identifier on entity, replacing any previous value.
func (t Tagger) Tag(h scene.Host, entity scene.NodeID, id string) error {
	if h.HasAttr(entity, t.Attr) {
		if err := h.DeleteAttr(entity, t.Attr); err != nil {
			return fmt.Errorf("tag: %w", err)
		}
	}
	if err := h.SetAttr(entity, t.Attr, id); err != nil {
		return fmt.Errorf("tag: %w", err)
	}
	return nil
}

// Of returns the entity's identifier.
func (t Tagger) Of(h scene.Host, entity scene.NodeID) (string, error) {
	if !h.HasAttr(entity, t.Attr) {
		return "", ErrUntagged
	}
	return h.GetAttr(entity, t.Attr)
}

// Find returns every tagged node under scope (see Tagged) whose identifier
// equals id, ordered by path.
func (t Tagger) Find(h scene.Host, scope, id string) []scene.NodeID {
	var out []scene.NodeID
	for _, n := range t.Tagged(h, scope) {
		v, err := h.GetAttr(n, t.Attr)
		if err == nil && v == id {
			out = append(out, n)
		}
	}
	return out
}

// Tagged returns every tagged node under the scope prefix. A scope of ""
// matches the whole scene; otherwise nodes whose path starts with scope+"|"
// are returned.
func (t Tagger) Tagged(h scene.Host, scope string) []scene.NodeID {
	var out []scene.NodeID
	for _, n := range h.NodesWithAttr(t.Attr) {
		if scope == "" {
			out = append(out, n)
			continue
		}
		p, err := h.Path(n)
		if err == nil && strings.HasPrefix(p, scope+scene.PathSeparator) {
			out = append(out, n)
		}
	}
	return out
}

// FromName derives an identifier from a display name or full path: the
// short name, NFC-normalised so visually identical names compare equal.
func FromName(name string) string {
	return norm.NFC.String(scene.ShortName(name))
}
