// Copyright © 2018 One Concern

package cmd

import (
	"github.com/spf13/cobra"
)

var repoUpdate = &cobra.Command{
	Use:   "update",
	Short: "Refresh the packages advertised by sources",
	Long: `Fetch the listing of every enabled source, then rebuild the source section of the index.

Nothing is installed: use upgrade or sync to install advertised versions.`,
	Example: `% pkgr repo update`,
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		repo := mustOpenRepo()
		if repo == nil {
			return
		}

		ctx, cancel := signalContext()
		defer cancel()

		report, err := repo.UpdateSources(ctx)
		if err != nil {
			wrapFatalln("update sources", err)
			return
		}
		for _, failure := range report.Failed {
			logStdOut("could not update source %s: %v", failure.ID, failure.Err)
		}
		if len(report.Failed) > 0 {
			wrapFatalln("update sources", report.Err())
			return
		}
		logStdOut("updated %s", plural(len(repo.Config().Enabled()), "source"))
	},
}

var repoUpdateLocal = &cobra.Command{
	Use:   "local",
	Short: "Rebuild the index from installed packages",
	Long: `Rebuild the global index from the package store and the source snapshots.

The store is checked for consistency first. With --repair, ledgers are made to match the
version directories present in the store, and leftovers of interrupted operations are removed.`,
	Example: `% pkgr repo update local --repair`,
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		repo := mustOpenRepo()
		if repo == nil {
			return
		}
		index, err := repo.UpdateLocal(pkgrFlags.repo.repair)
		if err != nil {
			wrapFatalln("rebuild index", err)
			return
		}
		logStdOut("indexed %s installed, %s available",
			plural(len(index.Packages), "package"), plural(len(index.Source), "package"))
	},
}

var repoClean = &cobra.Command{
	Use:   "clean",
	Short: "Remove old versions and clear the cache",
	Long: `Remove all but the most recent versions of every installed package, then clear the cache directory.

Source snapshots live in the cache: run "pkgr repo update" afterwards to advertise the packages of sources again.`,
	Example: `% pkgr repo clean --keep 1`,
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		repo := mustOpenRepo()
		if repo == nil {
			return
		}
		set, err := repo.PlanClean(pkgrFlags.repo.keep)
		if err != nil {
			wrapFatalln("plan clean", err)
			return
		}
		if !set.Empty() {
			printChangeSet(set)
			if !confirm("Remove these versions?") {
				logStdOut("aborted")
				return
			}
		}

		ctx, cancel := signalContext()
		defer cancel()

		report, err := repo.Clean(ctx, pkgrFlags.repo.keep)
		printReport(report)
		if err != nil {
			wrapFatalln("clean", err)
			return
		}
		if err = report.Err(); err != nil {
			wrapFatalln("clean", err)
		}
	},
}

func init() {
	addConcurrencyFlag(repoUpdate)
	repoCmd.AddCommand(repoUpdate)

	addRepairFlag(repoUpdateLocal)
	repoUpdate.AddCommand(repoUpdateLocal)

	addKeepFlag(repoClean)
	repoCmd.AddCommand(repoClean)
}
