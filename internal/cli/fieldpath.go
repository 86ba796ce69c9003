package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theory-cloud/structuredquery/pkg/query"
)

func newFieldPathCmd(a *app) *cobra.Command {
	var (
		raw    bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "field-path <segment>...",
		Short: "Print the encoded field path for a list of segments",
		Long: `Escape each segment and join them with dots. Segments that are not
simple identifiers are wrapped in backticks.

Examples:
  fsquery field-path user name          # user.name
  fsquery field-path user "first name"  # user.` + "`first name`" + `
  fsquery field-path --raw 'a.b'        # a.b, unchanged`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := query.NewFieldPath(args...)
			if raw {
				if len(args) != 1 {
					return fmt.Errorf("--raw takes exactly one path, got %d", len(args))
				}
				path = query.Raw(args[0])
			}

			if asJSON {
				return a.print(cmd.OutOrStdout(), path.FieldReference())
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), path.String())
			return err
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Use the argument verbatim without escaping")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print a FieldReference message")

	return cmd
}
