// Copyright © 2018 One Concern

package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var repoAdd = &cobra.Command{
	Use:   "add",
	Short: "Install a package from a local directory",
	Long: `Install the package authored in a local directory (see "pkgr app") into the repository.

Every file declared by its metadata.json is verified against its hash before installation.`,
	Example: `% pkgr repo add --package ./calendar`,
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		repo := mustOpenRepo()
		if repo == nil {
			return
		}
		manifest, err := repo.AddLocal(context.Background(), absPath(pkgrFlags.app.packageDir))
		if err != nil {
			wrapFatalln("add package", err)
			return
		}
		logStdOut("installed %s %s", manifest.ID, manifest.Version)
	},
}

func init() {
	addPackageFlag(repoAdd)
	repoCmd.AddCommand(repoAdd)
}
