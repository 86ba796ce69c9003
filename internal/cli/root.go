// Package cli implements the fsquery command.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/theory-cloud/structuredquery/internal/config"
	"github.com/theory-cloud/structuredquery/internal/logger"
)

// app is the state shared by every subcommand once the root has loaded
// configuration.
type app struct {
	log        *zap.Logger
	configPath string
	logLevel   string
	cfg        config.Config
}

// NewRootCmd builds the fsquery command tree.
func NewRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "fsquery",
		Short: "Build Firestore StructuredQuery messages from query definitions",
		Long: `fsquery renders declarative query definitions into the StructuredQuery
and RunQueryRequest messages of the Firestore v1 protocol, printed as JSON.

Examples:
  fsquery render -f queries.yaml
  fsquery render -f queries.yaml -q open_orders --request --parent projects/demo/databases/(default)/documents
  fsquery field-path user "first name"
  fsquery cursor encode '{"values":[{"integerValue":"42"}],"before":true}'
  fsquery cursor decode <token>`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default ./"+config.DefaultPath+" when present)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level override: debug, info, warn, error")

	cmd.AddCommand(newRenderCmd(a))
	cmd.AddCommand(newFieldPathCmd(a))
	cmd.AddCommand(newCursorCmd(a))

	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	log, err := logger.NewLogger(cfg.Logging.Env, level)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	cmd.SetContext(logger.ContextWithLogger(cmd.Context(), log))
	return nil
}

// print writes m as protojson followed by a newline.
func (a *app) print(w io.Writer, m proto.Message) error {
	indent := a.cfg.IndentString()
	opts := protojson.MarshalOptions{Multiline: indent != "", Indent: indent}
	data, err := opts.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", m.ProtoReflect().Descriptor().FullName(), err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// readInput reads path, or the command's stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
