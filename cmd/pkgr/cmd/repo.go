// Copyright © 2018 One Concern

package cmd

import (
	"github.com/oneconcern/pkgr/pkg/core"
	"github.com/spf13/cobra"
)

// repoCmd represents the repo related commands
var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Commands to manage a repository of packages",
	Long: `Commands to manage a repository of packages.

A repository holds installed packages with their version ledgers, a global index
and the registry of sources packages are installed from.
`,
}

func openRepo() (*core.Repository, error) {
	return core.Open(repoPath(),
		core.Logger(logger),
		core.ConcurrentDownloads(pkgrFlags.repo.concurrent),
	)
}

// mustOpenRepo opens the repository selected by --repo, or exits
func mustOpenRepo() *core.Repository {
	repo, err := openRepo()
	if err != nil {
		wrapFatalln("open repository", err)
		return nil
	}
	return repo
}

func init() {
	rootCmd.AddCommand(repoCmd)
}
