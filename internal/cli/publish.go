package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/engine"
)

// NewPublishCommand creates the publish command (first publication).
func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SceneOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Make the selected entity canonical",
		Long: `Publish the single selected, untagged transform as the canonical version of
a new identifier (its short name) and create an editable instance of it.

Exit codes:
  0 - Published
  1 - Refused (selection or identity error) or failed; the scene is unchanged
  2 - Command error (scene not found, bad flags, etc.)

Examples:
  layout publish --scene shot.yaml --select Pillar
  layout publish --scene shot.yaml --select '|Set|Pillar' --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, opts, func(ctx context.Context, e *engine.Engine) (*engine.Result, error) {
				return e.PublishFirst(ctx)
			})
		},
	}
	addSceneFlags(cmd, opts, true)
	return cmd
}

// NewUpdateCommand creates the update command (publish a new version).
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SceneOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Publish a new version of an identifier",
		Long: `Replace the canonical version of an identifier with the first selected
transform and re-create every instance in place. The second selected node
names the identifier: any instance, or the canonical entity itself.

Without atomic_update in the config a failure part way through leaves the
instances replaced so far in the saved scene.

Examples:
  layout update --scene shot.yaml --select PillarV2 --select Pillar1`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, opts, func(ctx context.Context, e *engine.Engine) (*engine.Result, error) {
				return e.PublishUpdate(ctx)
			})
		},
	}
	addSceneFlags(cmd, opts, true)
	return cmd
}

type publishFunc func(context.Context, *engine.Engine) (*engine.Result, error)

func runPublish(cmd *cobra.Command, opts *SceneOptions, publish publishFunc) error {
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

	res, err := publish(ctx, s.engine)
	if err != nil {
		// A partial update or an unjournaled publish changed the scene;
		// keep the file in step with what happened.
		if res != nil {
			if saveErr := s.save(opts); saveErr != nil {
				opts.logger().Error("failed to save partial result", "error", saveErr)
			}
		}
		return out.Fail(err)
	}
	if err := s.save(opts); err != nil {
		return out.Fail(err)
	}
	return out.Success(res, formatResult(res))
}

func formatResult(res *engine.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Published %s (%s) -> %s\n", res.Identifier, res.Kind, res.CanonicalPath)
	for _, inst := range res.Instances {
		if inst.StalePath == "" {
			fmt.Fprintf(&b, "  instance %s\n", inst.Path)
			continue
		}
		fmt.Fprintf(&b, "  replaced %s\n", inst.Path)
	}
	if res.Publish.ID != "" {
		fmt.Fprintf(&b, "Publish ID: %s\n", res.Publish.ID)
	}
	return b.String()
}
