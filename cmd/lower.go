package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/cottand/hirc/frontend/oracle"
	"github.com/cottand/hirc/frontend/tast"
	"github.com/cottand/hirc/internal/log"
	"github.com/cottand/hirc/ir"
	"github.com/cottand/hirc/ir/builder"
	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var LowerCmd = &cobra.Command{
	Use:          "lower tree.yaml",
	Short:        "Lower a typed tree and print its IR",
	RunE:         runLower,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
}

var raw *bool

var logger = log.Section("cli")

func init() {
	// check shares the flags of lower
	for _, c := range []*cobra.Command{LowerCmd, CheckCmd} {
		c.Flags().StringP("oracle", "s", "", "YAML file of foreign functions and class annotations")
		c.Flags().IntP("log-level", "l", int(slog.LevelError), "log level")
	}
	raw = LowerCmd.Flags().Bool("raw", false, "dump the Program structure instead of printing it")
}

type loweringFlags struct {
	oracle   string
	logLevel int
}

func flagsOf(cmd *cobra.Command) (loweringFlags, error) {
	var f loweringFlags
	var err error
	if f.oracle, err = cmd.Flags().GetString("oracle"); err != nil {
		return f, err
	}
	if f.logLevel, err = cmd.Flags().GetInt("log-level"); err != nil {
		return f, err
	}
	return f, nil
}

// lowerFile loads the tree at path and lowers it. The returned Builder holds the
// warnings of the lowering.
func lowerFile(path string, flags loweringFlags) (*ir.Program, *builder.Builder, error) {
	log.SetLevel(slog.Level(flags.logLevel))

	opts := []builder.Option{builder.WithLogger(log.Section("hir.builder"))}
	if flags.oracle != "" {
		o, err := oracle.LoadFile(flags.oracle)
		if err != nil {
			return nil, nil, errors.Wrap(err, "could not load oracle")
		}
		opts = append(opts, builder.WithOracle(o))
	}

	tree, err := tast.LoadFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not load typed tree")
	}
	logger.Debug("loaded typed tree", "path", path, "kind", tree.Kind())

	b := builder.New(opts...)
	p, err := b.Build(tree)
	if err != nil {
		return nil, b, errors.Wrap(err, "lowering failed")
	}
	return p, b, nil
}

func printWarnings(b *builder.Builder) {
	for _, w := range b.Warnings().Errors() {
		logger.Warn("lowering fell back on a plain traversal", "warning", w)
	}
}

func runLower(cmd *cobra.Command, args []string) error {
	flags, err := flagsOf(cmd)
	if err != nil {
		return err
	}
	p, b, err := lowerFile(args[0], flags)
	if err != nil {
		return err
	}
	printWarnings(b)

	if *raw {
		cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
		cfg.Fdump(os.Stdout, p)
		return nil
	}
	_, err = fmt.Fprint(os.Stdout, ir.Format(p))
	return err
}
