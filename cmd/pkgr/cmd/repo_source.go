// Copyright © 2018 One Concern

package cmd

import (
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/oneconcern/pkgr/pkg/core"
	"github.com/oneconcern/pkgr/pkg/model"
	"github.com/spf13/cobra"
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Commands to manage the sources of a repository",
	Long: `Commands to manage the sources of a repository.

A source is either a remote location served over http(s), or a local directory. It lists
its packages in an index.json at its root and serves every version under <id>/<version>/.`,
}

var sourceAdd = &cobra.Command{
	Use:   "add ID URL",
	Short: "Register a new source",
	Long: `Register a new source. Remote urls must end with a slash. Local directories are made absolute.

https is required for urls starting with https://, unless --require-https=false is set.`,
	Example: `% pkgr repo source add main https://packages.example.com/apps/ --name "Main packages"`,
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		repo := mustOpenRepo()
		if repo == nil {
			return
		}
		cfg := model.SourceConfig{
			ID:           args[0],
			Name:         pkgrFlags.source.name,
			URL:          args[1],
			Enabled:      !pkgrFlags.source.disabled,
			RequireHTTPS: pkgrFlags.source.requireHTTPS,
		}
		if !cfg.IsRemote() {
			cfg.URL = absPath(cfg.URL)
		}
		if !cmd.Flags().Changed("require-https") {
			cfg.RequireHTTPS = strings.HasPrefix(cfg.URL, "https://")
		}
		if cfg.Name == "" {
			cfg.Name = cfg.ID
		}

		if err := repo.AddSource(cfg); err != nil {
			wrapFatalln("add source", err)
			return
		}
		logStdOut("added source %s (%s)", cfg.ID, cfg.URL)
	},
}

var sourceList = &cobra.Command{
	Use:   "list",
	Short: "List the sources of a repository",
	Long:  `List the sources of a repository, in configuration order. Later sources take precedence.`,
	Example: `% pkgr repo source list
ID    NAME           URL                                     ENABLED  HTTPS
main  Main packages  https://packages.example.com/apps/      yes      required`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		repo := mustOpenRepo()
		if repo == nil {
			return
		}
		table := uitable.New()
		table.MaxColWidth = 60
		table.AddRow("ID", "NAME", "URL", "ENABLED", "HTTPS")
		for _, src := range repo.Sources() {
			enabled := color.GreenString("yes")
			if !src.Enabled {
				enabled = color.HiBlackString("no")
			}
			https := ""
			if src.RequireHTTPS {
				https = "required"
			}
			table.AddRow(src.ID, src.Name, src.URL, enabled, https)
		}
		logStdOut("%s", table.String())
	},
}

func sourceCommand(use, short, long, verb string, action func(*core.Repository, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Long:  long,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			repo := mustOpenRepo()
			if repo == nil {
				return
			}
			if err := action(repo, args[0]); err != nil {
				wrapFatalln(use+" source", err)
				return
			}
			logStdOut("%s source %s", verb, args[0])
		},
	}
}

var (
	sourceEnable = sourceCommand("enable", "Enable a source",
		`Enable a source: the packages of its last known listing are advertised again.`,
		"enabled", (*core.Repository).EnableSource)

	sourceDisable = sourceCommand("disable", "Disable a source",
		`Disable a source: its packages are no longer advertised. Installed packages are kept.`,
		"disabled", (*core.Repository).DisableSource)

	sourceRemove = sourceCommand("remove", "Remove a source",
		`Remove a source and its last known listing. Installed packages are kept.`,
		"removed", (*core.Repository).RemoveSource)
)

func init() {
	addSourceFlags(sourceAdd)
	sourceCmd.AddCommand(sourceAdd, sourceList, sourceEnable, sourceDisable, sourceRemove)
	repoCmd.AddCommand(sourceCmd)
}
