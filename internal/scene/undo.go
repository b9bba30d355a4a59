package scene

import "slices"

// snapshot is a full copy of the graph state taken when an undo chunk opens.
type snapshot struct {
	label     string
	nodes     map[NodeID]*node
	roots     []NodeID
	selection []NodeID
}

func (g *Graph) snapshot(label string) snapshot {
	nodes := make(map[NodeID]*node, len(g.nodes))
	for id, n := range g.nodes {
		nodes[id] = n.clone()
	}
	return snapshot{
		label:     label,
		nodes:     nodes,
		roots:     slices.Clone(g.roots),
		selection: slices.Clone(g.selection),
	}
}

func (g *Graph) restore(s snapshot) {
	g.nodes = s.nodes
	g.roots = s.roots
	g.selection = s.selection
}

// OpenChunk starts an undo group. Chunks nest; only the outermost chunk
// becomes an undo step. Edits made outside any chunk are not undoable.
func (g *Graph) OpenChunk(label string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.chunks = append(g.chunks, g.snapshot(label))
}

// CloseChunk ends the innermost undo group.
func (g *Graph) CloseChunk() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.chunks) == 0 {
		return ErrNoChunk
	}
	last := g.chunks[len(g.chunks)-1]
	g.chunks = g.chunks[:len(g.chunks)-1]
	if len(g.chunks) == 0 {
		g.history = append(g.history, last)
		if g.undoLimit > 0 && len(g.history) > g.undoLimit {
			g.history = slices.Delete(g.history, 0, len(g.history)-g.undoLimit)
		}
	}
	return nil
}

// Undo reverts the most recent closed chunk. It refuses to run while a
// chunk is open, since the open chunk would be left inconsistent.
func (g *Graph) Undo() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.chunks) > 0 {
		return ErrChunkOpen
	}
	if len(g.history) == 0 {
		return ErrNothingToUndo
	}
	last := g.history[len(g.history)-1]
	g.history = g.history[:len(g.history)-1]
	g.restore(last)
	return nil
}

// UndoDepth returns the number of undoable steps.
func (g *Graph) UndoDepth() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.history)
}
