package cli

import (
	"fmt"
	"io"

	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/theory-cloud/structuredquery/pkg/query"
)

func newCursorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cursor",
		Short: "Convert cursors between JSON and opaque tokens",
	}

	cmd.AddCommand(newCursorEncodeCmd())
	cmd.AddCommand(newCursorDecodeCmd(a))

	return cmd
}

func newCursorEncodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode [cursor-json]",
		Short: "Encode a Cursor message as a token (reads stdin without an argument)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			if len(args) == 1 {
				data = []byte(args[0])
			} else {
				var err error
				if data, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return fmt.Errorf("failed to read cursor: %w", err)
				}
			}

			var c firestorepb.Cursor
			if err := protojson.Unmarshal(data, &c); err != nil {
				return fmt.Errorf("failed to parse cursor: %w", err)
			}

			token, err := query.EncodeCursor(&c)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
}

func newCursorDecodeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <token>",
		Short: "Decode a token into a Cursor message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := query.DecodeCursor(args[0])
			if err != nil {
				return err
			}
			if c == nil {
				c = &firestorepb.Cursor{}
			}
			return a.print(cmd.OutOrStdout(), c)
		},
	}
}
