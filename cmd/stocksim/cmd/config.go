package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marketsim/stocksim/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage deployment configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  stocksim config init -o deployment.yaml
  stocksim config validate --file deployment.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings.

Example:
  stocksim config init -o deployment.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded.

Example:
  stocksim config validate --file deployment.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "deployment.yaml", "output config file path")
	configValidateCmd.Flags().StringVar(&configValidatePath, "file", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nEdit the file and start the services with:")
	fmt.Printf("  stocksim authd -f %s\n", configInitOutput)
	fmt.Printf("  stocksim quoted -f %s\n", configInitOutput)
	fmt.Printf("  stocksim ledgerd -f %s\n", configInitOutput)
	fmt.Printf("  stocksim coordinator -f %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("✓ Configuration valid: %s\n", configValidatePath)
	fmt.Printf("  Coordinator: tcp %s / udp %s\n", cfg.Coordinator.ListenTCP, cfg.Coordinator.ListenUDP)
	fmt.Printf("  Auth: %s (%s)\n", cfg.Auth.Addr, cfg.Auth.MembersFile)
	fmt.Printf("  Quote: %s (%s)\n", cfg.Quote.Addr, cfg.Quote.QuotesFile)
	fmt.Printf("  Ledger: %s (%s)\n", cfg.Ledger.Addr, cfg.Ledger.PortfoliosFile)
	if cfg.Journal.Type != "" && cfg.Journal.Type != "none" {
		fmt.Printf("  Journal: %s\n", cfg.Journal.Type)
	}
	return nil
}
