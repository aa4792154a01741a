package dashboard

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"opsdash/pkg/cache"
	"opsdash/pkg/status"
	"opsdash/pkg/toast"
)

// Deps are the realtime-core services the dashboard renders from.
type Deps struct {
	Monitor      *status.Monitor
	Toasts       *toast.Center
	Transactions *toast.Registry
	Debts        *toast.Registry
	Store        *cache.Store
}

// Run drives the dashboard TUI until the viewer quits or ctx is canceled.
func Run(ctx context.Context, deps Deps) error {
	toastCh, unsubToasts := deps.Toasts.Subscribe(0)
	defer unsubToasts()
	txCh, unsubTx := deps.Transactions.Subscribe(0)
	defer unsubTx()
	debtCh, unsubDebt := deps.Debts.Subscribe(0)
	defer unsubDebt()
	cacheCh, unsubCache := deps.Store.Subscribe(0)
	defer unsubCache()

	m := newModel(ctx, deps, toastCh, txCh, debtCh, cacheCh)
	program := tea.NewProgram(m, tea.WithContext(ctx))
	_, err := program.Run()
	return err
}
