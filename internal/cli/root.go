// Package cli implements the graphctl command tree: ad-hoc calls
// against the provider through the batching client.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/Sternrassler/graph-batch-client/pkg/logging"
)

// NewRootCmd creates the root Cobra command for the graphctl CLI. It
// wires up logging and the call subcommands (get, post, delete,
// introspect).
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "graphctl",
		Short:         "Issue ad-hoc calls through the batching client",
		Long:          "graphctl sends single calls through the lazy batch queue:\nuseful for poking endpoints, checking tokens and inspecting envelopes.",
		Version:       version,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := logging.LevelWarn
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				level = logging.LevelDebug
			}
			pretty, _ := cmd.Flags().GetBool("pretty")
			logging.Setup(logging.Config{
				Level:  level,
				Pretty: pretty,
				Output: cmd.ErrOrStderr(),
			})
		},
	}

	cmd.PersistentFlags().String("config", "", "path to a YAML settings file")
	cmd.PersistentFlags().String("app-token", "", "app token (overrides config and GRAPH_APP_TOKEN)")
	cmd.PersistentFlags().String("base-url", "", "provider base URL (overrides config and GRAPH_BASE_URL)")
	cmd.PersistentFlags().String("token", "", "per-call user token")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().Bool("pretty", false, "human-readable log output")

	cmd.AddCommand(newGetCmd(), newPostCmd(), newDeleteCmd(), newIntrospectCmd())

	return cmd
}

const rootCmdExample = `  # Fetch a resource
  graphctl get me --token USER_TOKEN

  # Fetch every page of a cursor
  graphctl get me/friends --param limit=25 --all-pages

  # Create a resource
  graphctl post me/feed --param message="hello world" --token USER_TOKEN

  # Describe a token
  graphctl introspect --token USER_TOKEN`
