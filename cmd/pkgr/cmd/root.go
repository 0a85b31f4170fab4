// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"log"
	"strings"

	"github.com/oneconcern/pkgr/pkg/dlogger"
	"github.com/oneconcern/pkgr/pkg/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pkgr",
	Short: "pkgr manages repositories of web application packages",
	Long: `pkgr manages a local repository of versioned web application packages.

Packages are installed, upgraded and removed from configured sources, either remote (http or https)
or local directories. Every file is verified against the SHA-256 hash declared by its package manifest
before it becomes visible in the repository.

Global flags may be set from the environment, e.g. PKGR_REPO, PKGR_LOG_LEVEL or PKGR_YES.
`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		l, err := dlogger.GetLogger(viper.GetString(logLevelFlag))
		if err != nil {
			wrapFatalln("invalid log level", err)
			return
		}
		logger = l
	},
	// upstream api note: *PostRun functions aren't called when Run exits the program
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
		if pth := viper.GetString(metricsFileFlag); pth != "" {
			if err := metrics.WriteToTextfile(pth); err != nil {
				wrapFatalln("write metrics", err)
			}
		}
	},
}

var logger = zap.NewNop()

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		osExit(1)
	}
}

func init() {
	log.SetFlags(0)
	cobra.OnInitialize(initConfig)

	for _, flag := range []string{
		addRepoFlag(rootCmd),
		addYesFlag(rootCmd),
		addLogLevel(rootCmd),
		addMetricsFileFlag(rootCmd),
	} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			logFatalln(err)
		}
	}
}

// initConfig reads ENV variables if set
func initConfig() {
	viper.SetEnvPrefix("PKGR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
