package cmd

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marketsim/stocksim/coordinator"
	"github.com/marketsim/stocksim/transport"
)

var coordinatorCmd = &cobra.Command{
	Use:   "coordinator",
	Short: "Run the session coordinator",
	Long: `Run the client-facing coordinator.

It listens for client sessions on the configured TCP address and relays each
workflow to the authd, quoted and ledgerd services over a single shared UDP
socket. Those three services should already be running.

Example:
  stocksim coordinator -f deployment.yaml`,
	RunE: runCoordinator,
}

func init() {
	rootCmd.AddCommand(coordinatorCmd)
}

func runCoordinator(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger("coordinator")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux, err := transport.NewMux(cfg.Coordinator.ListenUDP, log)
	if err != nil {
		return err
	}
	defer mux.Close()

	backends, err := coordinator.ResolveBackends(cfg.Auth.Addr, cfg.Quote.Addr, cfg.Ledger.Addr)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Coordinator.ListenTCP)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	log.WithField("tcp", cfg.Coordinator.ListenTCP).
		WithField("udp", mux.LocalAddr().String()).
		Info("booting up")

	return coordinator.New(mux, backends, log).Serve(ctx, ln)
}
