package cli

import (
	"github.com/spf13/cobra"
)

// newGetCmd creates the "get" subcommand for reading a resource.
func newGetCmd() *cobra.Command {
	var (
		params   []string
		allPages bool
	)

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Fetch a resource",
		Long: `Fetch a resource by its relative path. With --all-pages the cursor
is followed to the end and the collected items are printed as one list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildClient(cmd)
			if err != nil {
				return err
			}
			p, err := parseParams(params)
			if err != nil {
				return err
			}

			call, err := issuer(cmd, c).Get(cmd.Context(), args[0], p)
			if err != nil {
				return err
			}

			if allPages {
				items, err := call.All(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, items)
			}
			return printCall(cmd, call)
		},
	}

	cmd.Flags().StringArrayVar(&params, "param", nil, "query parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&allPages, "all-pages", false, "follow pagination and print all items")

	return cmd
}
