package main

import (
	"os"

	"github.com/cottand/hirc/cmd"
	"github.com/spf13/cobra"
)

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "hirc [subcommand]",
	Short:        "hirc lowers typed syntax trees into a high-level IR",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(cmd.LowerCmd)
	rootCmd.AddCommand(cmd.CheckCmd)
}
