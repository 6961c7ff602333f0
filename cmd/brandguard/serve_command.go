package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/brandguardian/go-auditor/internal/api"
	"github.com/brandguardian/go-auditor/internal/config"
)

func newServeCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the audit HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFlag)
			if err != nil {
				return err
			}

			lock := flock.New(cfg.Server.LockFile)
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("another brandguard instance is already serving (lock %s)", cfg.Server.LockFile)
			}
			defer lock.Unlock()

			p, err := buildPipeline(cfg)
			if err != nil {
				return err
			}
			defer p.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return api.NewServer(p.runner).ListenAndServe(ctx, cfg.Server.Addr)
		},
	}
}
