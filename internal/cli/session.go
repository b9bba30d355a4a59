package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/engine"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/scene"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/store"
)

// SceneOptions holds the flags shared by commands that work on a scene file.
type SceneOptions struct {
	*RootOptions
	ScenePath string
	Select    []string
	DryRun    bool
	Journal   string // overrides journal_path from the config
}

func addSceneFlags(cmd *cobra.Command, opts *SceneOptions, writes bool) {
	cmd.Flags().StringVar(&opts.ScenePath, "scene", "", "path to scene YAML (required)")
	_ = cmd.MarkFlagRequired("scene")
	cmd.Flags().StringArrayVar(&opts.Select, "select", nil, "node to select, full path or unique short name (repeatable, order kept)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite publish journal (overrides config)")
	if writes {
		cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "run the operation without saving the scene")
	}
}

// session is a loaded scene with an engine bound to it.
type session struct {
	graph   *scene.Graph
	engine  *engine.Engine
	journal *store.Store
}

// openSession loads the scene, applies --select and wires the engine to
// the configured journal. The journal clock resumes after the last seq
// already recorded.
func openSession(ctx context.Context, opts *SceneOptions) (*session, error) {
	g, err := scene.Load(opts.ScenePath, scene.WithUndoLimit(opts.Config.UndoLimit))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load scene", err)
	}
	if len(opts.Select) > 0 {
		ids, err := resolveSelection(g, opts.Select)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid selection", err)
		}
		if err := g.Select(ids...); err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid selection", err)
		}
	}

	cfg := opts.Config
	engineOpts := []engine.Option{
		engine.WithLogger(opts.logger()),
		engine.WithStoreRoot(cfg.StoreRoot),
		engine.WithIdentifierAttr(cfg.IdentifierAttr),
		engine.WithAtomicUpdate(cfg.AtomicUpdate),
		engine.WithTolerance(cfg.Tolerance),
	}

	s := &session{graph: g}
	if path := opts.journalPath(); path != "" && !opts.DryRun {
		st, err := store.Open(path)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		last, err := st.LastSeq(ctx)
		if err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		s.journal = st
		engineOpts = append(engineOpts, engine.WithJournal(st), engine.WithClock(engine.NewClockAt(last)))
	}
	s.engine = engine.New(g, engineOpts...)
	return s, nil
}

func (o *SceneOptions) journalPath() string {
	if o.Journal != "" {
		return o.Journal
	}
	return o.Config.JournalPath
}

// save writes the scene back unless --dry-run is set.
func (s *session) save(opts *SceneOptions) error {
	if opts.DryRun {
		opts.logger().Info("dry run, scene not saved", "path", opts.ScenePath)
		return nil
	}
	if err := s.graph.Save(opts.ScenePath); err != nil {
		return WrapExitError(ExitCommandError, "failed to save scene", err)
	}
	return nil
}

func (s *session) close() {
	if s.journal != nil {
		_ = s.journal.Close()
	}
}

// resolveSelection maps --select values to nodes. A value starting with
// "|" is a full path; anything else must be the short name of exactly one
// node.
func resolveSelection(g *scene.Graph, refs []string) ([]scene.NodeID, error) {
	var byName map[string][]string
	ids := make([]scene.NodeID, 0, len(refs))
	for _, ref := range refs {
		path := ref
		if !strings.HasPrefix(ref, scene.PathSeparator) {
			if byName == nil {
				byName = shortNames(g.Document().Nodes, "")
			}
			matches := byName[ref]
			switch len(matches) {
			case 0:
				return nil, fmt.Errorf("no node named %q", ref)
			case 1:
				path = matches[0]
			default:
				return nil, fmt.Errorf("name %q is ambiguous: %s", ref, strings.Join(matches, ", "))
			}
		}
		id, ok := g.Lookup(path)
		if !ok {
			return nil, fmt.Errorf("no node at %q", path)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func shortNames(nodes []scene.NodeDoc, parent string) map[string][]string {
	out := make(map[string][]string)
	var walk func([]scene.NodeDoc, string)
	walk = func(nodes []scene.NodeDoc, parent string) {
		for _, n := range nodes {
			p := parent + scene.PathSeparator + n.Name
			out[n.Name] = append(out[n.Name], p)
			walk(n.Children, p)
		}
	}
	walk(nodes, parent)
	return out
}
