package cli

import (
	"github.com/spf13/cobra"

	"github.com/Sternrassler/graph-batch-client/pkg/client"
)

// newDeleteCmd creates the "delete" subcommand.
func newDeleteCmd() *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildClient(cmd)
			if err != nil {
				return err
			}
			p, err := parseParams(params)
			if err != nil {
				return err
			}

			call, err := issuer(cmd, c).Delete(cmd.Context(), args[0], p, client.Quiet())
			if err != nil {
				return err
			}
			return printCall(cmd, call)
		},
	}

	cmd.Flags().StringArrayVar(&params, "param", nil, "query parameter as key=value (repeatable)")

	return cmd
}
