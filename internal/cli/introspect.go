package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newIntrospectCmd creates the "introspect" subcommand for describing
// the --token credential.
func newIntrospectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "introspect",
		Short: "Describe the --token credential",
		Long:  "Ask the provider to describe the credential passed with --token:\nwhich app issued it, whether it is still valid, its scopes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, _ := cmd.Flags().GetString("token")
			if token == "" {
				return fmt.Errorf("introspect requires --token")
			}

			c, err := buildClient(cmd)
			if err != nil {
				return err
			}

			call, err := c.WithToken(token).IntrospectToken(cmd.Context())
			if err != nil {
				return err
			}
			return printCall(cmd, call)
		},
	}

	return cmd
}
