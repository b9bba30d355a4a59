package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewInstantiateCommand creates the instantiate command.
func NewInstantiateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SceneOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "instantiate",
		Short:         "Create an instance of the selected canonical entity",
		Example:       `  layout instantiate --scene shot.yaml --select '|Originals|Pillar'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstantiate(cmd, opts)
		},
	}
	addSceneFlags(cmd, opts, true)
	return cmd
}

func runInstantiate(cmd *cobra.Command, opts *SceneOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)

	s, err := openSession(ctx, opts)
	if err != nil {
		return out.Fail(err)
	}
	defer s.close()

	inst, err := s.engine.InstantiateSelected(ctx)
	if err != nil {
		return out.Fail(err)
	}
	if err := s.save(opts); err != nil {
		return out.Fail(err)
	}
	return out.Success(inst, fmt.Sprintf("Created %s\n", inst.Path))
}
