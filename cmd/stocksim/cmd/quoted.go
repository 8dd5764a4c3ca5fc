package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marketsim/stocksim/quote"
	"github.com/marketsim/stocksim/transport"
)

var quotedCmd = &cobra.Command{
	Use:   "quoted",
	Short: "Run the stock quote service",
	Long: `Run the price-reporting backend.

It loads the quotes file at boot and answers price lookups and time-forward
requests from the coordinator over UDP.

Example:
  stocksim quoted -f deployment.yaml`,
	RunE: runQuoted,
}

func init() {
	rootCmd.AddCommand(quotedCmd)
}

func runQuoted(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger("quoted")
	if err != nil {
		return err
	}

	prices, err := quote.LoadQuotes(cfg.Quote.QuotesFile)
	if err != nil {
		return err
	}
	svc, err := quote.NewService(prices, log)
	if err != nil {
		return err
	}

	srv, err := transport.ListenUDP(cfg.Quote.Addr, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	log.WithField("addr", cfg.Quote.Addr).WithField("symbols", len(prices)).Info("booting up")
	return srv.Serve(svc.Handle)
}
