package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marketsim/stocksim/auth"
	"github.com/marketsim/stocksim/transport"
)

var authdCmd = &cobra.Command{
	Use:   "authd",
	Short: "Run the authentication service",
	Long: `Run the credential-checking backend.

It loads the members file at boot and answers authentication requests from
the coordinator over UDP.

Example:
  stocksim authd -f deployment.yaml`,
	RunE: runAuthd,
}

func init() {
	rootCmd.AddCommand(authdCmd)
}

func runAuthd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger("authd")
	if err != nil {
		return err
	}

	creds, err := auth.LoadMembers(cfg.Auth.MembersFile)
	if err != nil {
		return err
	}
	svc := auth.NewService(creds, log)

	srv, err := transport.ListenUDP(cfg.Auth.Addr, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	log.WithField("addr", cfg.Auth.Addr).WithField("members", len(creds)).Info("booting up")
	return srv.Serve(svc.Handle)
}
