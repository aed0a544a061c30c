package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/telenode/internal/api/ws"
	"github.com/GriffinCanCode/telenode/internal/domain/node"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/config"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/logging"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/server"
	"github.com/GriffinCanCode/telenode/internal/providers"
)

// shutdownGrace bounds the node shutdown sequence after a signal.
const shutdownGrace = time.Minute

var startFlags struct {
	name string
	dir  string
	host string
	port string
	dev  bool
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run a node and its control API",
	Long: `Start a node, spawn its filesystem and serve the control API until
SIGINT or SIGTERM. The signal is reported to the node, which then runs its
shutdown sequence: the accountant first, then sources, importer, archive,
index and exporters, and the filesystem last.`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&startFlags.name, "name", "", "Node name")
	startCmd.Flags().StringVar(&startFlags.dir, "dir", "", "Node state directory")
	startCmd.Flags().StringVar(&startFlags.host, "host", "", "API listen host")
	startCmd.Flags().StringVar(&startFlags.port, "port", "", "API listen port")
	startCmd.Flags().BoolVar(&startFlags.dev, "dev", false, "Development logging")
}

func applyStartFlags(cfg *config.Config) error {
	if startFlags.name != "" {
		cfg.Node.Name = startFlags.name
	}
	if startFlags.dir != "" {
		cfg.Node.Dir = startFlags.dir
	}
	if startFlags.host != "" {
		cfg.Server.Host = startFlags.host
	}
	if startFlags.port != "" {
		cfg.Server.Port = startFlags.port
	}
	if startFlags.dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	return cfg.Validate()
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	lc := logging.DefaultConfig()
	if cfg.Logging.Development {
		lc = logging.DevelopmentConfig()
	}
	if cfg.Logging.Level != "" {
		lc.Level = cfg.Logging.Level
	}
	lc.File = cfg.Logging.File
	return logging.New(lc)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyStartFlags(cfg); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(cfg.Node.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create node directory: %w", err)
	}

	metrics := monitoring.NewMetrics()
	hub := ws.NewHub(logger, metrics)
	sys := actor.NewSystem(logger.Logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	n, err := node.Start(ctx, sys, node.Options{
		Name:                  cfg.Node.Name,
		Dir:                   cfg.Node.Dir,
		InitialRequestTimeout: cfg.Node.InitialRequestTimeout.Std(),
		Components:            providers.Components(),
		Filesystem:            providers.Filesystem,
		Logger:                logger,
		Metrics:               metrics,
		Observer:              hub.Publish,
	})
	if err != nil {
		return err
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Server.Enabled {
		srv := server.NewServer(cfg, n, hub, metrics, logger)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}
	g.Go(func() error {
		select {
		case sig := <-signals:
			if s, ok := sig.(syscall.Signal); ok {
				n.Signal(int(s))
			}
		case <-gctx.Done():
		case <-n.Done():
			cancel()
			return nil
		}

		stopCtx, stop := context.WithTimeout(context.Background(), shutdownGrace)
		defer stop()
		err := n.Stop(stopCtx)
		cancel()
		if err != nil && !errors.Is(err, actor.ErrExited) {
			logger.Error("Node shutdown failed", zap.Error(err))
			return err
		}
		logger.Info("Node stopped", zap.String("name", n.Name()))
		return nil
	})
	return g.Wait()
}
