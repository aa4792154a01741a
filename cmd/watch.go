package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"opsdash/pkg/api"
	"opsdash/pkg/cache"
	"opsdash/pkg/config"
	"opsdash/pkg/dispatch"
	"opsdash/pkg/logger"
	"opsdash/pkg/status"
	"opsdash/pkg/toast"
	"opsdash/pkg/transport"
	"opsdash/pkg/ui/dashboard"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live dashboard",
	Long:  "Connects the notification channel and renders live updates, toasts, and pending approvals until quit.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.watch")

		if strings.TrimSpace(cfg.Session.Token) == "" {
			log.Error("No credential configured", "hint", "set OPSDASH_TOKEN or session.token")
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		core, err := buildCore(cfg, log)
		if err != nil {
			log.Error("Failed to initialize realtime core", "error", err)
			return
		}
		defer core.teardown()

		if err := core.client.Connect(cfg.Session.Token); err != nil {
			log.Error("Failed to start connection", "error", err)
			return
		}

		log.Info("Dashboard started", "server", cfg.Server.BaseURL, "viewer_id", cfg.Session.ViewerID)
		if err := dashboard.Run(runCtx, core.deps()); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Dashboard runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// core bundles the realtime subsystem with an explicit teardown, so session
// lifecycle (login/logout) owns construction and destruction instead of a
// module-global.
type core struct {
	client       *transport.Client
	store        *cache.Store
	toasts       *toast.Center
	transactions *toast.Registry
	debts        *toast.Registry
	monitor      *status.Monitor
	detach       func()
}

func buildCore(cfg *config.Config, log *slog.Logger) (*core, error) {
	backend, err := api.NewClient(cfg.Server.BaseURL, cfg.Session.Token, log)
	if err != nil {
		return nil, err
	}

	store := cache.NewStore()
	toasts := toast.NewCenter()

	transactions := toast.NewRegistry(
		toast.KindTransaction,
		dispatch.TransactionResolver{API: backend},
		toasts,
		dispatch.TransactionResolvedInvalidator(store),
		log,
	)
	debts := toast.NewRegistry(
		toast.KindDebt,
		dispatch.DebtResolver{API: backend},
		toasts,
		dispatch.DebtResolvedInvalidator(store),
		log,
	)

	client := transport.NewClient(transportConfig(cfg), log)
	dispatcher := dispatch.New(cfg.Session.ViewerID, store, toasts, transactions, debts, log)
	detachDispatch := dispatcher.Attach(client)

	// Prompts must not outlive the session that received them.
	detachStatus := client.SubscribeStatus(func(connected bool) {
		if !connected {
			transactions.Clear()
			debts.Clear()
		}
	})

	return &core{
		client:       client,
		store:        store,
		toasts:       toasts,
		transactions: transactions,
		debts:        debts,
		monitor:      status.NewMonitor(client, 0),
		detach: func() {
			detachDispatch()
			detachStatus()
		},
	}, nil
}

func (c *core) deps() dashboard.Deps {
	return dashboard.Deps{
		Monitor:      c.monitor,
		Toasts:       c.toasts,
		Transactions: c.transactions,
		Debts:        c.debts,
		Store:        c.store,
	}
}

func (c *core) teardown() {
	c.client.Disconnect()
	c.detach()
	c.transactions.Clear()
	c.debts.Clear()
	c.toasts.Close()
	c.store.Close()
}

func transportConfig(cfg *config.Config) transport.Config {
	return transport.Config{
		URL:                    cfg.SocketURL(),
		PingInterval:           time.Duration(cfg.Transport.PingIntervalSeconds) * time.Second,
		ReconnectBase:          time.Duration(cfg.Transport.ReconnectBaseMillis) * time.Millisecond,
		ReconnectCapMultiplier: cfg.Transport.ReconnectCapMultiplier,
		MaxReconnectAttempts:   cfg.Transport.MaxReconnectAttempts,
	}
}
