// Copyright © 2018 One Concern

package cmd

import (
	"github.com/spf13/cobra"
)

func runSync(sourceID string, mirror bool) {
	repo := mustOpenRepo()
	if repo == nil {
		return
	}

	ctx, cancel := signalContext()
	defer cancel()

	plan, err := repo.PrepareSync(ctx, sourceID, mirror)
	if err != nil {
		wrapFatalln("prepare synchronization", err)
		return
	}

	if plan.Empty() {
		logStdOut("%s is up to date with source %s", repo.Root(), sourceID)
	} else {
		printChangeSet(plan.ChangeSet)
		if !confirm("Synchronize with source " + sourceID + "?") {
			logStdOut("aborted")
			return
		}
	}

	// an empty plan still refreshes the snapshot of the source
	report, err := repo.ApplySync(ctx, plan)
	printReport(report)
	if err != nil {
		wrapFatalln("synchronize", err)
		return
	}
	if err = report.Err(); err != nil {
		wrapFatalln("synchronize", err)
	}
}

var repoSync = &cobra.Command{
	Use:   "sync SOURCE",
	Short: "Install all packages advertised by a source",
	Long: `Install the version advertised by the source for every package it lists.

Packages are never removed by an incremental sync. A package which fails to install is reported
and the synchronization carries on with the next one.`,
	Example: `% pkgr repo sync main`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSync(args[0], false)
	},
}

var repoSyncMirror = &cobra.Command{
	Use:   "mirror SOURCE",
	Short: "Make the repository mirror a source",
	Long: `Like sync, but packages previously advertised by the source and no longer listed are dropped
from the packages advertised by this source.

Installed packages and the packages advertised by other sources are left untouched.`,
	Example: `% pkgr repo sync mirror main`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSync(args[0], true)
	},
}

func init() {
	addConcurrencyFlag(repoSync)
	addConcurrencyFlag(repoSyncMirror)
	repoSync.AddCommand(repoSyncMirror)
	repoCmd.AddCommand(repoSync)
}
