package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daniel-levin/wild/pkg/config"
)

func main() {
	root := &cobra.Command{
		Use:   "wild",
		Short: "A concurrent static linker",
	}

	root.AddCommand(newLinkCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func mustConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}
