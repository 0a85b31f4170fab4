// Copyright © 2018 One Concern

package cmd

import (
	"github.com/oneconcern/pkgr/pkg/core"
	"github.com/spf13/cobra"
)

var repoInstall = &cobra.Command{
	Use:   "install SPEC...",
	Short: "Install packages from sources",
	Long: `Install packages from the configured sources.

A package spec is one of:
	* ID: the version advertised by enabled sources
	* SOURCE:ID: the version advertised by this source
	* SOURCE:ID:VERSION: this exact version, from this source

Run "pkgr repo update" first to refresh the versions advertised by sources.`,
	Example: `% pkgr repo install calendar main:notes main:todo:1.2.0`,
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		repo := mustOpenRepo()
		if repo == nil {
			return
		}

		var set core.ChangeSet
		for _, arg := range args {
			spec, err := core.ParseInstallSpec(arg)
			if err != nil {
				wrapFatalln("parse package spec", err)
				return
			}
			plan, err := repo.PlanInstall(spec)
			if err != nil {
				wrapFatalln("plan install of "+arg, err)
				return
			}
			set.Changes = append(set.Changes, plan.Changes...)
		}

		applyChangeSet(repo, set)
	},
}

var repoRemove = &cobra.Command{
	Use:   "remove ID [VERSION]",
	Short: "Remove a package",
	Long: `Remove a version of an installed package, or all its versions when no version is given.

The latest remaining version becomes the current version of the package.`,
	Example: `% pkgr repo remove calendar 1.0.0`,
	Args:    cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		repo := mustOpenRepo()
		if repo == nil {
			return
		}
		var version string
		if len(args) > 1 {
			version = args[1]
		}

		set, err := repo.PlanRemove(args[0], version)
		if err != nil {
			wrapFatalln("plan removal", err)
			return
		}
		applyChangeSet(repo, set)
	},
}

var repoUpgrade = &cobra.Command{
	Use:   "upgrade [ID...]",
	Short: "Upgrade installed packages",
	Long: `Install the version advertised by sources for installed packages, when it is not installed yet.

All installed packages are considered when no ID is given.`,
	Example: `% pkgr repo upgrade calendar`,
	Run: func(cmd *cobra.Command, args []string) {
		repo := mustOpenRepo()
		if repo == nil {
			return
		}
		set, err := repo.PrepareUpgrade(args...)
		if err != nil {
			wrapFatalln("plan upgrade", err)
			return
		}
		applyChangeSet(repo, set)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{repoInstall, repoUpgrade} {
		addConcurrencyFlag(cmd)
		repoCmd.AddCommand(cmd)
	}
	repoCmd.AddCommand(repoRemove)
}
