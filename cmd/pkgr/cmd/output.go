package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/oneconcern/pkgr/pkg/core"
	"github.com/oneconcern/pkgr/pkg/model"
	"github.com/spf13/viper"
)

// confirm asks the user to accept pending changes, unless --yes is set
func confirm(question string) bool {
	if viper.GetBool(yesFlag) {
		return true
	}
	infoLogger.Printf("%s [y/N] ", question)
	answer, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func printChangeSet(set core.ChangeSet) {
	table := uitable.New()
	table.MaxColWidth = 60
	table.AddRow("", "PACKAGE", "VERSION", "PREVIOUS", "SOURCE")
	for _, change := range set.Changes {
		if change.Kind == core.Unchanged {
			continue
		}
		table.AddRow(kindLabel(change.Kind), change.ID, change.Version, change.Previous, change.Source)
	}
	logStdOut("%s", table.String())

	logStdOut("%d to add, %d to update, %d to repair, %d to remove, %d unchanged",
		set.Count(core.Add), set.Count(core.Update), set.Count(core.Repair),
		set.Count(core.Remove), set.Count(core.Unchanged),
	)
}

func kindLabel(kind core.ChangeKind) string {
	switch kind {
	case core.Add:
		return color.GreenString(kind.String())
	case core.Update:
		return color.CyanString(kind.String())
	case core.Repair:
		return color.YellowString(kind.String())
	case core.Remove:
		return color.RedString(kind.String())
	default:
		return color.HiBlackString(kind.String())
	}
}

func printReport(report *core.Report) {
	if report == nil {
		return
	}
	for _, change := range report.Installed {
		logStdOut("%s %s %s", color.GreenString("installed"), change.ID, change.Version)
	}
	for _, change := range report.Removed {
		logStdOut("%s %s %s", color.RedString("removed"), change.ID, change.Version)
	}
	for _, failure := range report.Failed {
		logStdOut("%s %s: %v", color.HiRedString("failed"), failure, failure.Err)
	}
	if ids := report.FailedIDs(); len(ids) > 0 {
		logStdOut("%s with failures: %s", plural(len(ids), "package"), strings.Join(ids, ", "))
	}
}

func printInfos(infos []model.PackageInfo, installed bool) {
	table := uitable.New()
	table.MaxColWidth = 50
	table.Wrap = true
	header := "SOURCE VERSION"
	if installed {
		header = "LATEST VERSION"
	}
	table.AddRow("ID", "NAME", header, "AUTHOR", "DESCRIPTION")
	for _, info := range infos {
		table.AddRow(info.ID, info.Name, info.LatestVersion, info.Author, info.Description)
	}
	logStdOut("%s", table.String())
}

// applyChangeSet prints, confirms then applies a change set. It exits non-zero when some package failed.
func applyChangeSet(repo *core.Repository, set core.ChangeSet) {
	if set.Empty() {
		logStdOut("nothing to do")
		return
	}
	printChangeSet(set)
	if !confirm("Apply these changes?") {
		logStdOut("aborted")
		return
	}

	ctx, cancel := signalContext()
	defer cancel()

	report, err := repo.Apply(ctx, set)
	printReport(report)
	if err != nil {
		wrapFatalln("apply changes", err)
		return
	}
	if err = report.Err(); err != nil {
		wrapFatalln("apply changes", err)
	}
}

func plural(n int, what string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, what)
	}
	return fmt.Sprintf("%d %ss", n, what)
}
