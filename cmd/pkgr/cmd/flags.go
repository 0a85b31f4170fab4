// Copyright © 2018 One Concern

package cmd

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/oneconcern/pkgr/pkg/core"
	"github.com/oneconcern/pkgr/pkg/dlogger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	repoFlag        = "repo"
	yesFlag         = "yes"
	logLevelFlag    = "log-level"
	metricsFileFlag = "metrics-file"
)

type flagsT struct {
	repo struct {
		cacheDir   string
		baseDir    string
		keep       int
		repair     bool
		installed  bool
		available  bool
		search     string
		concurrent int
	}
	source struct {
		name         string
		disabled     bool
		requireHTTPS bool
	}
	app struct {
		packageDir string
	}
}

var pkgrFlags = flagsT{}

// DefaultRepo is the repository used when --repo is not set
func DefaultRepo() string {
	return filepath.Join(xdg.DataHome, "pkgr", "repo")
}

func addRepoFlag(cmd *cobra.Command) string {
	cmd.PersistentFlags().String(repoFlag, DefaultRepo(), "The root directory of the repository")
	return repoFlag
}

func addYesFlag(cmd *cobra.Command) string {
	cmd.PersistentFlags().BoolP(yesFlag, "y", false, "Apply changes without asking for confirmation")
	return yesFlag
}

func addLogLevel(cmd *cobra.Command) string {
	cmd.PersistentFlags().String(logLevelFlag, dlogger.LogLevelWarn, "The logging level. Levels by increasing order of verbosity: none, error, warn, info, debug")
	return logLevelFlag
}

func addMetricsFileFlag(cmd *cobra.Command) string {
	cmd.PersistentFlags().String(metricsFileFlag, "", "Write metrics to this file, in the prometheus text format")
	return metricsFileFlag
}

func addCacheDirFlag(cmd *cobra.Command) string {
	c := "cache-dir"
	cmd.Flags().StringVar(&pkgrFlags.repo.cacheDir, c, "", "The cache directory of a new repository (defaults to the user cache directory)")
	return c
}

func addBaseDirFlag(cmd *cobra.Command) string {
	c := "dir"
	cmd.Flags().StringVar(&pkgrFlags.repo.baseDir, c, ".", "The directory where to create the new repository or package")
	return c
}

func addKeepFlag(cmd *cobra.Command) string {
	c := "keep"
	cmd.Flags().IntVar(&pkgrFlags.repo.keep, c, core.DefaultKeep, "The number of versions kept for each package")
	return c
}

func addRepairFlag(cmd *cobra.Command) string {
	c := "repair"
	cmd.Flags().BoolVar(&pkgrFlags.repo.repair, c, false, "Make ledgers match the package store before rebuilding the index")
	return c
}

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&pkgrFlags.repo.installed, "installed", false, "Only list installed packages")
	cmd.Flags().BoolVar(&pkgrFlags.repo.available, "available", false, "Only list packages advertised by sources")
	cmd.Flags().StringVar(&pkgrFlags.repo.search, "search", "", "Only list packages matching this text")
}

func addConcurrencyFlag(cmd *cobra.Command) string {
	c := "concurrency"
	cmd.Flags().IntVar(&pkgrFlags.repo.concurrent, c, 0, "The number of files of a package downloaded concurrently (defaults to 2 x #cpus)")
	return c
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&pkgrFlags.source.name, "name", "", "A human readable name for the source")
	cmd.Flags().BoolVar(&pkgrFlags.source.disabled, "disabled", false, "Register the source as disabled")
	cmd.Flags().BoolVar(&pkgrFlags.source.requireHTTPS, "require-https", false, "Refuse to fetch from this source over plain http (defaults to true for https urls)")
}

func addPackageFlag(cmd *cobra.Command) string {
	c := "package"
	cwd, _ := os.Getwd()
	cmd.PersistentFlags().StringVar(&pkgrFlags.app.packageDir, c, cwd, "The package directory")
	return c
}

func repoPath() string {
	pth := viper.GetString(repoFlag)
	if abs, err := filepath.Abs(pth); err == nil {
		return abs
	}
	return pth
}

func absPath(pth string) string {
	if abs, err := filepath.Abs(pth); err == nil {
		return abs
	}
	return pth
}
