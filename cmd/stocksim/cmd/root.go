package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/marketsim/stocksim/config"
)

var rootCmd = &cobra.Command{
	Use:   "stocksim",
	Short: "A distributed stock trading simulator",
	Long: `Stocksim is a small distributed trading system: a coordinator accepts
client sessions over TCP and drives each trading workflow by delegating to
three backend services over UDP.

Processes:
  coordinator - client-facing session coordinator
  authd       - credential-checking service
  quoted      - stock price service
  ledgerd     - portfolio service

All four read the same configuration file; run each in its own terminal.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

var (
	cfgPath  string
	logLevel string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "f", "", "path to config file (YAML or JSON); defaults apply when omitted")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func loadConfig() (*config.Config, error) {
	if cfgPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(service string) (logrus.FieldLogger, error) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log.WithField("service", service), nil
}
