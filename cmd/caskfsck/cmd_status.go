package main

import (
	"github.com/spf13/cobra"

	"github.com/caskstore/caskfsck/pkg/cask"
	"github.com/caskstore/caskfsck/pkg/fsck"
)

func newStatusCmd() *cobra.Command {
	var storeFlag, sysrootFlag string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report partial commits and affected refs without repairing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tgt, err := resolveTarget(storeFlag, sysrootFlag)
			if err != nil {
				return err
			}
			st, err := cask.Open(tgt.storePath)
			if err != nil {
				return err
			}

			report, err := fsck.Status(st, newLogger())
			if err != nil {
				return err
			}
			report.Print(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&storeFlag, "store", "", "path to the store to inspect")
	cmd.Flags().StringVar(&sysrootFlag, "sysroot", "", "managed root owning the store")
	return cmd
}
