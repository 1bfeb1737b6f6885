package cli

import (
	"github.com/spf13/cobra"

	"github.com/Sternrassler/graph-batch-client/pkg/client"
)

// newPostCmd creates the "post" subcommand for writing a resource.
func newPostCmd() *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "post <path>",
		Short: "Create or update a resource",
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

			// Quiet issuance keeps the handle; printCall surfaces the
			// stored error with the envelope still inspectable.
			call, err := issuer(cmd, c).Post(cmd.Context(), args[0], p, client.Quiet())
			if err != nil {
				return err
			}
			return printCall(cmd, call)
		},
	}

	cmd.Flags().StringArrayVar(&params, "param", nil, "form field as key=value (repeatable)")

	return cmd
}
