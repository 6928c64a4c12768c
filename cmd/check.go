package cmd

import (
	"fmt"
	"os"

	"github.com/cottand/hirc/ir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var CheckCmd = &cobra.Command{
	Use:          "check tree.yaml",
	Short:        "Lower a typed tree and validate the IR, without printing it",
	RunE:         runCheck,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
}

func runCheck(cmd *cobra.Command, args []string) error {
	flags, err := flagsOf(cmd)
	if err != nil {
		return err
	}
	p, b, err := lowerFile(args[0], flags)
	if err != nil {
		return err
	}
	printWarnings(b)

	if err := validate(p); err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stdout, "ok: %d functions, %d classes, %d modules\n",
		len(p.Functions), len(p.Classes), len(p.Modules))
	return err
}

func validate(p *ir.Program) error {
	if errs := ir.Validate(p); errs.HasError() {
		return errors.Wrap(errs, "lowered IR is malformed")
	}
	return nil
}
