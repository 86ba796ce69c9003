package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"github.com/theory-cloud/structuredquery/internal/logger"
	"github.com/theory-cloud/structuredquery/pkg/definition"
	"github.com/theory-cloud/structuredquery/pkg/types"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		file    string
		name    string
		parent  string
		request bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render query definitions as StructuredQuery JSON",
		Long: `Render every query in a definition document, or only the one named by
--query, printing one JSON message per query in document order.

With --request the output is a RunQueryRequest. Its parent is taken from
--parent, then the document's parent, then the configured project.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, file)
			if err != nil {
				return err
			}

			doc, err := definition.ParseDocument(data)
			if err != nil {
				return err
			}

			defs := make([]*definition.QueryDef, 0, len(doc.Queries))
			if name != "" {
				def, ok := definition.FindQuery(doc, name)
				if !ok {
					return fmt.Errorf("query %q not found in %s", name, file)
				}
				defs = append(defs, def)
			} else {
				for i := range doc.Queries {
					defs = append(defs, &doc.Queries[i])
				}
			}

			if request {
				parent = firstNonEmpty(parent, doc.Parent, a.cfg.Parent())
				if parent == "" {
					return fmt.Errorf("--request needs a parent: pass --parent, set parent in the document, or set project in the config")
				}
			}

			log := logger.FromContext(cmd.Context())
			conv := types.NewConverter(types.WithLogger(log))

			for _, def := range defs {
				q, err := def.Build(conv)
				if err != nil {
					return err
				}

				var msg proto.Message = q.StructuredQuery()
				if request {
					msg = q.RunQueryRequest(parent)
				}
				log.Debug("rendered query",
					zap.String("name", def.Name),
					zap.String("collection", q.CollectionID()),
					zap.Bool("all_descendants", q.AllDescendants()),
					zap.Bool("request", request),
				)

				if err := a.print(cmd.OutOrStdout(), msg); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Definition document, YAML or JSON (- for stdin)")
	cmd.Flags().StringVarP(&name, "query", "q", "", "Render only the named query")
	cmd.Flags().StringVar(&parent, "parent", "", "Parent resource for --request")
	cmd.Flags().BoolVar(&request, "request", false, "Print a RunQueryRequest instead of a StructuredQuery")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
