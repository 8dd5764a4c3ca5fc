package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marketsim/stocksim/config"
	"github.com/marketsim/stocksim/journal"
	"github.com/marketsim/stocksim/ledger"
	"github.com/marketsim/stocksim/transport"
)

var ledgerdCmd = &cobra.Command{
	Use:   "ledgerd",
	Short: "Run the portfolio service",
	Long: `Run the portfolio backend.

It loads the portfolios file at boot, answers holding checks and position
requests, and applies committed buys and sells. Executed trades can be
journaled to CSV or SQLite, per the configuration.

Example:
  stocksim ledgerd -f deployment.yaml`,
	RunE: runLedgerd,
}

func init() {
	rootCmd.AddCommand(ledgerdCmd)
}

func runLedgerd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger("ledgerd")
	if err != nil {
		return err
	}

	portfolios, err := ledger.LoadPortfolios(cfg.Ledger.PortfoliosFile)
	if err != nil {
		return err
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return err
	}
	if j != nil {
		defer j.Close()
	}

	svc := ledger.NewService(portfolios, j, log)

	srv, err := transport.ListenUDP(cfg.Ledger.Addr, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	log.WithField("addr", cfg.Ledger.Addr).WithField("users", len(portfolios)).Info("booting up")
	return srv.Serve(svc.Handle)
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "csv":
		j, err := journal.NewCSV(cfg.ExecutionsFile)
		if err != nil {
			return nil, fmt.Errorf("open csv journal: %w", err)
		}
		return j, nil
	case "sqlite":
		j, err := journal.NewSQLite(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite journal: %w", err)
		}
		return j, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.Type)
	}
}
