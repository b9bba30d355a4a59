package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/ir"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal     string
	Identifier  string
	ID          string
	Identifiers bool
}

// HistoryEntry is one journaled publish with its propagations.
type HistoryEntry struct {
	ir.Publish
	Propagations []ir.Propagation `json:"propagations"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled publishes",
		Long: `Print the publish journal in seq order.

Examples:
  layout history --journal layout.db
  layout history --journal layout.db --identifier Pillar --format json
  layout history --journal layout.db --id <publish id>
  layout history --journal layout.db --identifiers`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite publish journal (defaults to config journal_path)")
	cmd.Flags().StringVar(&opts.Identifier, "identifier", "", "only show publishes of this identifier")
	cmd.Flags().StringVar(&opts.ID, "id", "", "show the one publish with this record ID")
	cmd.Flags().BoolVar(&opts.Identifiers, "identifiers", false, "list every published identifier")
	cmd.MarkFlagsMutuallyExclusive("identifier", "id", "identifiers")
	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	ctx := context.Background()
	out := opts.formatter(cmd)

	path := opts.Journal
	if path == "" {
		path = opts.Config.JournalPath
	}
	if path == "" {
		return out.Fail(NewExitError(ExitCommandError, "no journal: pass --journal or set journal_path"))
	}

	st, err := store.Open(path)
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "failed to open journal", err))
	}
	defer st.Close()

	if opts.Identifiers {
		ids, err := st.Identifiers(ctx)
		if err != nil {
			return out.Fail(WrapExitError(ExitCommandError, "failed to read journal", err))
		}
		if len(ids) == 0 {
			return out.Success(ids, "No publishes found in journal.\n")
		}
		return out.Success(ids, strings.Join(ids, "\n")+"\n")
	}

	var pubs []ir.Publish
	if opts.ID != "" {
		pub, err := st.ReadPublish(ctx, opts.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return out.Fail(NewExitError(ExitFailure, fmt.Sprintf("no publish with id %q", opts.ID)))
		}
		if err != nil {
			return out.Fail(WrapExitError(ExitCommandError, "failed to read journal", err))
		}
		pubs = append(pubs, pub)
	} else {
		pubs, err = st.ReadPublishes(ctx, opts.Identifier)
		if err != nil {
			return out.Fail(WrapExitError(ExitCommandError, "failed to read journal", err))
		}
	}
	entries := make([]HistoryEntry, 0, len(pubs))
	for _, p := range pubs {
		props, err := st.ReadPropagations(ctx, p.ID)
		if err != nil {
			return out.Fail(WrapExitError(ExitCommandError, "failed to read journal", err))
		}
		entries = append(entries, HistoryEntry{Publish: p, Propagations: props})
	}

	if len(entries) == 0 {
		return out.Success(entries, "No publishes found in journal.\n")
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "#%d %s %s %s -> %s (%d instances)\n", e.Seq, e.Token, e.Kind, e.Identifier, e.CanonicalPath, e.InstanceCount)
		for _, p := range e.Propagations {
			if p.StalePath == "" {
				fmt.Fprintf(&b, "  #%d created %s\n", p.Seq, p.FreshPath)
				continue
			}
			fmt.Fprintf(&b, "  #%d %s -> %s\n", p.Seq, p.StalePath, p.FreshPath)
		}
	}
	return out.Success(entries, b.String())
}
