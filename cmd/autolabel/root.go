package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/autolabel/internal/conf"
)

// cli carries configuration state between the root command and its
// subcommands.
type cli struct {
	v          *viper.Viper
	configFile string
	settings   *conf.Settings
}

// RootCommand creates and returns the root command.
func RootCommand() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "autolabel",
		Short:         "Active-learning auto-labeling CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	v, err := conf.New()
	if err != nil {
		// Defaults are static; a failure here is a programming error.
		panic(err)
	}
	c.v = v

	if err := setupFlags(rootCmd, c); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		runCommand(c),
		prepareCommand(c),
		validationCommand(c),
		trainingCommand(c),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if err := conf.ReadConfigFile(c.v, c.configFile); err != nil {
			return err
		}
		settings, err := conf.Load(c.v)
		if err != nil {
			return err
		}
		c.settings = settings
		return nil
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, c *cli) error {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&c.configFile, "config", "c", "", "Path to a config.yaml file")
	f.BoolP("debug", "d", false, "Enable debug output")
	f.Bool("json-logs", false, "Log as JSON")
	f.String("log-level", "info", "Log level: debug, info, warn, error")
	f.String("backend", conf.BackendAWS, "Storage backend: aws or minio")
	f.String("region", "", "AWS region")
	f.String("endpoint", "", "Custom S3 endpoint URL")
	f.String("minio-endpoint", "", "MinIO endpoint host:port")
	f.Bool("minio-secure", true, "Use TLS for MinIO")
	f.Int64("max-in-flight", 0, "Maximum concurrent store requests")
	f.Float64("requests-per-second", 0, "Store request rate limit, 0 unlimited")
	f.String("ledger-table", "", "DynamoDB table recording completed rounds")
	f.String("pushgateway", "", "Prometheus Pushgateway URL")
	f.String("metrics-textfile", "", "Write metrics to a node exporter textfile")

	bindings := map[string]string{
		"debug":               "debug",
		"json-logs":           "log.json",
		"log-level":           "log.level",
		"backend":             "storage.backend",
		"region":              "storage.region",
		"endpoint":            "storage.endpoint",
		"minio-endpoint":      "storage.minio.endpoint",
		"minio-secure":        "storage.minio.secure",
		"max-in-flight":       "storage.maxinflight",
		"requests-per-second": "storage.requestspersecond",
		"ledger-table":        "ledger.table",
		"pushgateway":         "metrics.pushgateway",
		"metrics-textfile":    "metrics.textfile",
	}
	return bindFlags(c.v, f, bindings)
}
