package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/canonical"
)

// ListEntry is one canonical entity and its instances.
type ListEntry struct {
	canonical.Entry
	Instances []string `json:"instances"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SceneOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List canonical entities and their instances",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts)
		},
	}
	addSceneFlags(cmd, opts, false)
	return cmd
}

func runList(cmd *cobra.Command, opts *SceneOptions) error {
	out := opts.formatter(cmd)
	// Read-only: never open the journal.
	opts.DryRun = true

	s, err := openSession(context.Background(), opts)
	if err != nil {
		return out.Fail(err)
	}
	defer s.close()

	entries := []ListEntry{}
	for _, e := range s.engine.Store().List() {
		le := ListEntry{Entry: e, Instances: []string{}}
		for _, inst := range s.engine.Factory().List(e.Identifier) {
			p, err := s.graph.Path(inst)
			if err != nil {
				return out.Fail(err)
			}
			le.Instances = append(le.Instances, p)
		}
		entries = append(entries, le)
	}

	if len(entries) == 0 {
		return out.Success(entries, "No canonical entities.\n")
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s  %s  (%d instances)\n", e.Identifier, e.Path, len(e.Instances))
		for _, p := range e.Instances {
			fmt.Fprintf(&b, "  %s\n", p)
		}
	}
	return out.Success(entries, b.String())
}
