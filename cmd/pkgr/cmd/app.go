// Copyright © 2018 One Concern

package cmd

import (
	"path/filepath"

	"github.com/oneconcern/pkgr/pkg/app"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// appCmd groups the commands used to author packages
var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Commands to author packages",
	Long: `Commands to author packages.

A package is a directory with a metadata.json describing the package and declaring
the SHA-256 hash of every file it ships.`,
}

var appInit = &cobra.Command{
	Use:     "init",
	Short:   "Create a package in an existing directory",
	Long:    `Write a default metadata.json in the package directory. An existing metadata.json is kept.`,
	Example: `% pkgr app init --package ./calendar`,
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		manifest, err := app.Init(afero.NewOsFs(), absPath(pkgrFlags.app.packageDir))
		if err != nil {
			wrapFatalln("init package", err)
			return
		}
		logStdOut("package %s %s", manifest.ID, manifest.Version)
	},
}

var appNew = &cobra.Command{
	Use:     "new ID",
	Short:   "Create a package in a new directory",
	Long:    `Create a new directory named ID under --dir, with a default metadata.json.`,
	Example: `% pkgr app new calendar --dir ~/apps`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir, err := app.New(afero.NewOsFs(), args[0], absPath(pkgrFlags.repo.baseDir))
		if err != nil {
			wrapFatalln("create package", err)
			return
		}
		logStdOut("created package %s", dir)
	},
}

var appAdd = &cobra.Command{
	Use:   "add PATH",
	Short: "Declare files of a package",
	Long: `Hash a file, or every file under a directory, and declare it in the metadata.json of the package.

Relative paths are resolved against the package directory. Files already declared are hashed again.`,
	Example: `% pkgr app add js --package ./calendar`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		files, err := app.AddPath(afero.NewOsFs(), absPath(pkgrFlags.app.packageDir), packagePath(args[0]))
		if err != nil {
			wrapFatalln("add files", err)
			return
		}
		for _, file := range files {
			logStdOut("added %s", file)
		}
	},
}

var appRemove = &cobra.Command{
	Use:     "remove PATH",
	Short:   "Stop declaring files of a package",
	Long:    `Remove a file, or every file under a directory, from the metadata.json of the package. Files are left on disk.`,
	Example: `% pkgr app remove js/legacy.js --package ./calendar`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		files, err := app.RemovePath(afero.NewOsFs(), absPath(pkgrFlags.app.packageDir), packagePath(args[0]))
		if err != nil {
			wrapFatalln("remove files", err)
			return
		}
		for _, file := range files {
			logStdOut("removed %s", file)
		}
	},
}

// packagePath resolves a relative path against the package directory
func packagePath(pth string) string {
	if filepath.IsAbs(pth) {
		return pth
	}
	return filepath.Join(absPath(pkgrFlags.app.packageDir), pth)
}

func init() {
	addPackageFlag(appCmd)
	addBaseDirFlag(appNew)
	appCmd.AddCommand(appInit, appNew, appAdd, appRemove)
	rootCmd.AddCommand(appCmd)
}
