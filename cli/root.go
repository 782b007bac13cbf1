// Package cli provides the command-line interface for the fleet
// acquisition pipeline (spec.md §6): a single "download" subcommand
// that discovers the deployed fleet, pulls each app's source archive
// from Altinn Studio, and maintains the local lock file.
//
// Configuration layering follows the teacher's precedence chain
// (flag > env > file > default), scoped to this tool's five settings.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"altinnaudit.dev/acquire"
	"altinnaudit.dev/broker"
	"altinnaudit.dev/common"
	"altinnaudit.dev/config"
	"altinnaudit.dev/forge"
	"altinnaudit.dev/lockstore"
)

var cfgFile string

// RootCmd is the altinnaudit CLI entry point.
var RootCmd = &cobra.Command{
	Use:   "altinnaudit",
	Short: "acquire and audit the fleet of deployed Altinn apps",
	Long: `altinnaudit discovers every Altinn app running across the public
cloud clusters, pulls the matching source archive from Altinn Studio,
and maintains a local lock file pinning each app to the revision on
disk.

Configuration can be provided via command-line flags, environment
variables, or a YAML configuration file, with flags taking precedence.`,
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.altinnaudit.yaml)")
	RootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().String("cache-dir", "./data", "local cache/lock directory")
	downloadCmd.Flags().String("key-path", "./keys.json", "path to the studio bearer-token key file")
	downloadCmd.Flags().Bool("retry-failed", false, "retry apps whose last acquisition attempt failed")
	downloadCmd.Flags().Bool("debug", false, "enable debug logging")
	downloadCmd.Flags().Int("per-host-concurrency", 4, "maximum concurrent requests per host")

	viper.BindPFlag("cache_dir", downloadCmd.Flags().Lookup("cache-dir"))
	viper.BindPFlag("key_path", downloadCmd.Flags().Lookup("key-path"))
	viper.BindPFlag("retry_failed", downloadCmd.Flags().Lookup("retry-failed"))
	viper.BindPFlag("debug", downloadCmd.Flags().Lookup("debug"))
	viper.BindPFlag("per_host_concurrency", downloadCmd.Flags().Lookup("per-host-concurrency"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".altinnaudit")
	}

	viper.SetEnvPrefix("ALTINNAUDIT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "acquire the current fleet's source archives into the local cache",
	RunE:  runDownload,
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg := config.RunConfig{
		CacheDir:           viper.GetString("cache_dir"),
		KeyPath:            viper.GetString("key_path"),
		RetryFailed:        viper.GetBool("retry_failed"),
		Debug:              viper.GetBool("debug"),
		PerHostConcurrency: viper.GetInt("per_host_concurrency"),
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.Debug {
		common.Logger.SetLevel(logrus.DebugLevel)
	}
	svc := common.ServiceLogger("altinnaudit", "download").WithField("run_id", uuid.New().String())
	entry := svc.Entry()

	tokens, err := config.LoadKeys(cfg.KeyPath)
	if err != nil {
		return err
	}
	for studioEnv, token := range tokens {
		fieldLog := svc.WithField("studio_env", studioEnv)
		fieldLog.Debugf("loaded token %s", common.MaskSecret(token))
		if err := forge.VerifyToken(studioEnv, token); err != nil {
			return fmt.Errorf("cli: %w", err)
		}
		fieldLog.Debug("token verified")
	}

	b := broker.New(broker.Config{PerHostConcurrency: cfg.PerHostConcurrency}, entry)
	client := forge.NewClient(b)
	store := lockstore.New(cfg.CacheDir, entry)

	var result acquire.RunResult
	err = common.LogOperation(svc, "acquire_fleet", func() error {
		var runErr error
		result, runErr = acquire.Run(context.Background(), b, client, store, tokens, cfg.RetryFailed, cfg.PerHostConcurrency, entry)
		return runErr
	})
	if err != nil {
		return err
	}

	c := result.Counts
	fmt.Printf("updated=%d already_up_to_date=%d failed=%d skipped_prior_failure=%d skipped_no_match=%d removed=%d\n",
		c.Updated, c.AlreadyUpToDate, c.Failed, c.SkippedPriorFailure, c.SkippedNoMatch, c.Removed)
	return nil
}
