package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/daniel-levin/wild/pkg/linker"
	"github.com/daniel-levin/wild/pkg/logging"
)

func newLinkCmd() *cobra.Command {
	var libraryPaths []string
	var exportList []string

	cmd := &cobra.Command{
		Use:   "link [files...]",
		Short: "Resolve symbols and produce an executable from relocatable objects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := mustConfig(cmd)
			logger := logging.New(cfg.LogLevel)
			defer logger.Sync() //nolint:errcheck

			jobs := cfg.Jobs
			if jobs < 1 {
				jobs = runtime.GOMAXPROCS(0)
			}

			ctx := linker.NewContext()
			ctx.Args.Output = cfg.Output
			ctx.Args.LibraryPaths = append(cfg.LibraryPaths, libraryPaths...)
			ctx.Args.ExportList = append(cfg.Export, exportList...)
			ctx.Args.NumJobs = jobs

			mt, err := linker.ParseMachineType(cfg.Emulation)
			if err != nil {
				return fmt.Errorf("wild: %w", err)
			}
			ctx.Args.Emulation = mt

			linker.ReadInputFiles(ctx, args)

			logger.Infow("linking", "objects", len(ctx.Objs), "pending_archive_members", len(ctx.PendingArchiveMembers), "jobs", jobs)

			if err := linker.Link(ctx, logger); err != nil {
				return fmt.Errorf("wild: link failed: %w", err)
			}

			if err := os.Chmod(ctx.Args.Output, 0755); err != nil {
				return fmt.Errorf("wild: chmod output: %w", err)
			}

			logger.Infow("link complete", "output", ctx.Args.Output)
			return nil
		},
	}

	cmd.Flags().String("output", "a.out", "output file path")
	cmd.Flags().String("emulation", "riscv64", "target machine emulation")
	cmd.Flags().Int("jobs", 0, "number of scheduler worker goroutines (0 = GOMAXPROCS)")
	cmd.Flags().String("log-level", "info", "logging level: debug, info, warn, error")
	cmd.Flags().StringSliceVarP(&libraryPaths, "library-path", "L", nil, "add a directory to the library search path")
	cmd.Flags().StringSliceVar(&exportList, "export", nil, "export a symbol as a dynamic entry point")

	return cmd
}
