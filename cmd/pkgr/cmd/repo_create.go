// Copyright © 2018 One Concern

package cmd

import (
	"github.com/oneconcern/pkgr/pkg/core"
	"github.com/spf13/cobra"
)

var repoInit = &cobra.Command{
	Use:   "init [DIR]",
	Short: "Create a new repository",
	Long: `Create a new repository in DIR, or at the location given by --repo.

The repository is created with an empty index and no source.`,
	Example: `% pkgr repo init --repo /srv/apps --cache-dir /var/cache/pkgr`,
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root := repoPath()
		if len(args) > 0 {
			root = absPath(args[0])
		}
		repo, err := core.Init(root, core.Logger(logger), core.CacheDir(pkgrFlags.repo.cacheDir))
		if err != nil {
			wrapFatalln("init repository", err)
			return
		}
		logStdOut("initialized repository %s", repo.Root())
	},
}

var repoNew = &cobra.Command{
	Use:     "new NAME",
	Short:   "Create a new repository named NAME",
	Long:    `Create a new repository in a new directory NAME, under --dir.`,
	Example: `% pkgr repo new apps --dir /srv`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		repo, err := core.New(args[0], absPath(pkgrFlags.repo.baseDir), core.Logger(logger), core.CacheDir(pkgrFlags.repo.cacheDir))
		if err != nil {
			wrapFatalln("create repository", err)
			return
		}
		logStdOut("created repository %s", repo.Root())
	},
}

func init() {
	addCacheDirFlag(repoInit)
	repoCmd.AddCommand(repoInit)

	addCacheDirFlag(repoNew)
	addBaseDirFlag(repoNew)
	repoCmd.AddCommand(repoNew)
}
