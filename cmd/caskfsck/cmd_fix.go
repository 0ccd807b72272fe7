package main

import (
	"github.com/spf13/cobra"

	"github.com/caskstore/caskfsck/pkg/cask"
	"github.com/caskstore/caskfsck/pkg/evict"
	"github.com/caskstore/caskfsck/pkg/fetch"
	"github.com/caskstore/caskfsck/pkg/fsck"
	"github.com/caskstore/caskfsck/pkg/lockfile"
)

const defaultConfigPath = "/etc/caskfsck.toml"

func newFixCmd() *cobra.Command {
	var storeFlag, sysrootFlag, configFlag string

	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Run a full repair of a store (requires superuser)",
		Long: `Fix evicts processes holding the store open, takes the store's
exclusive lock, restores commits whose refs dangle, marks commits with
incomplete closures as partial, and re-fetches partial remotely-backed
refs in full. Every step is idempotent; an interrupted run is safe to
re-invoke.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tgt, err := resolveTarget(storeFlag, sysrootFlag)
			if err != nil {
				return err
			}
			cfg, err := fsck.LoadConfig(configFlag)
			if err != nil {
				return err
			}
			st, err := cask.Open(tgt.storePath)
			if err != nil {
				return err
			}

			log := newLogger()
			runner := fsck.NewRunner(
				st,
				fetch.NewClient(st, log),
				evict.New(log),
				&lockfile.Locker{Path: tgt.lockPath, Log: log},
				log,
				cfg,
			)

			report, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}
			// Refs left unhealed by best-effort fetches are reported but do
			// not fail the run.
			report.Print(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&storeFlag, "store", "", "path to the store to repair")
	cmd.Flags().StringVar(&sysrootFlag, "sysroot", "", "managed root owning the store")
	cmd.Flags().StringVar(&configFlag, "config", defaultConfigPath, "path to the tunables file")
	return cmd
}
