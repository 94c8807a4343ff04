package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/krzsas/security-manager/pkg/config"
	"github.com/krzsas/security-manager/pkg/log"
	"github.com/krzsas/security-manager/pkg/metrics"
	"github.com/krzsas/security-manager/pkg/server"
	"github.com/krzsas/security-manager/pkg/service/privilege"
	"github.com/krzsas/security-manager/pkg/storage"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the security-manager daemon",
	Long: `Run the security-manager daemon.

Opens the privilege database, registers the socket services and serves
client requests until SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		log.Init(log.Config{
			Level:      cfg.Log.Level,
			JSONOutput: cfg.Log.JSON,
		})
		logger := log.WithComponent("daemon")

		// The store is the process-wide instance: opened once here,
		// shared by every service, closed at shutdown.
		db, err := storage.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open privilege database: %w", err)
		}
		defer db.Close()

		srv := server.New()
		if err := srv.RegisterService(privilege.New(db, cfg.PrivilegeSocketPath())); err != nil {
			return err
		}

		if cfg.MetricsAddr != "" {
			go func() {
				if err := metrics.Serve(cfg.MetricsAddr); err != nil {
					logger.Error().Err(err).Msg("metrics endpoint failed")
				}
			}()
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics endpoint enabled")
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			logger.Info().Str("signal", sig.String()).Msg("shutting down")
			cancel()
		}()

		logger.Info().Str("db", cfg.DBPath).Msg("security-manager running")
		return srv.Run(ctx)
	},
}

func init() {
	daemonCmd.Flags().String("config", "", "Path to config file (default "+config.DefaultPath+")")
}
