// Copyright © 2018 One Concern

package cmd

import (
	"path/filepath"
	"strings"

	"github.com/docker/go-units"
	"github.com/gosuri/uitable"
	"github.com/oneconcern/pkgr/pkg/core"
	"github.com/oneconcern/pkgr/pkg/ledger"
	"github.com/oneconcern/pkgr/pkg/model"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var repoList = &cobra.Command{
	Use:   "list",
	Short: "List packages",
	Long:  `List installed packages and packages advertised by enabled sources, as recorded by the global index.`,
	Example: `% pkgr repo list --installed --search calendar
ID        NAME      LATEST VERSION  AUTHOR  DESCRIPTION
calendar  Calendar  1.2.0           acme    A simple calendar`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		repo := mustOpenRepo()
		if repo == nil {
			return
		}

		filter := core.IndexFilter{Text: pkgrFlags.repo.search}
		switch {
		case pkgrFlags.repo.installed && !pkgrFlags.repo.available:
			filter.Section = core.InstalledSection
		case pkgrFlags.repo.available && !pkgrFlags.repo.installed:
			filter.Section = core.SourceSection
		}

		index, err := repo.Query(filter)
		if err != nil {
			wrapFatalln("query index", err)
			return
		}
		if filter.Section != core.SourceSection {
			logStdOut("Installed packages:")
			printInfos(index.Packages, true)
		}
		if filter.Section != core.InstalledSection {
			logStdOut("Available packages:")
			printInfos(index.Source, false)
		}
	},
}

var repoInfo = &cobra.Command{
	Use:     "info ID [VERSION]",
	Short:   "Describe an installed package",
	Long:    `Describe a version of an installed package, by default its latest version.`,
	Example: `% pkgr repo info calendar`,
	Args:    cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		repo := mustOpenRepo()
		if repo == nil {
			return
		}
		id := args[0]
		fs := afero.NewOsFs()

		versions, err := ledger.Load(fs, model.GetPathToLedger(repo.Root(), id))
		if err != nil {
			wrapFatalln("read versions of "+id, err)
			return
		}
		version, err := versions.Latest()
		if err != nil {
			wrapFatalln("read versions of "+id, err)
			return
		}
		if len(args) > 1 {
			version = args[1]
		}

		manifest, err := repo.Manifest(id, version)
		if err != nil {
			wrapFatalln("read manifest", err)
			return
		}

		var size int64
		dir := model.GetPathToVersion(repo.Root(), id, version)
		for _, file := range manifest.SortedFiles() {
			if fi, err := fs.Stat(filepath.Join(dir, filepath.FromSlash(file))); err == nil {
				size += fi.Size()
			}
		}

		table := uitable.New()
		table.MaxColWidth = 80
		table.Wrap = true
		table.AddRow("ID:", manifest.ID)
		table.AddRow("Name:", manifest.Name)
		table.AddRow("Version:", manifest.Version)
		table.AddRow("Versions:", strings.Join(versions.Versions(), ", "))
		table.AddRow("Author:", manifest.Author)
		table.AddRow("Description:", manifest.Description)
		table.AddRow("Type:", manifest.Type)
		table.AddRow("Category:", manifest.Category)
		table.AddRow("Entry:", manifest.Entry)
		table.AddRow("Permissions:", strings.Join(manifest.Permissions, ", "))
		table.AddRow("Files:", plural(len(manifest.Files), "file"))
		table.AddRow("Size:", units.HumanSize(float64(size)))
		table.AddRow("Location:", model.GetLocationOfVersion(id, version))
		logStdOut("%s", table.String())
	},
}

func init() {
	addListFlags(repoList)
	repoCmd.AddCommand(repoList)
	repoCmd.AddCommand(repoInfo)
}
