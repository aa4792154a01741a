package dispatch

import (
	"fmt"
	"log/slog"

	"opsdash/pkg/cache"
	"opsdash/pkg/envelope"
	"opsdash/pkg/toast"
	"opsdash/pkg/transport"
)

// Dispatcher is the single transport subscriber in a running dashboard. It
// classifies every decoded envelope and fans out to cache invalidation,
// one-shot toasts, and the action registries. Reactions for one envelope are
// independent; none depends on another's completion.
type Dispatcher struct {
	log          *slog.Logger
	viewerID     int64
	store        *cache.Store
	toasts       *toast.Center
	transactions *toast.Registry
	debts        *toast.Registry
}

// New wires a dispatcher for one viewer. viewerID drives self-origin
// suppression: a viewer is never prompted to decide their own request.
func New(viewerID int64, store *cache.Store, toasts *toast.Center, transactions *toast.Registry, debts *toast.Registry, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		log:          log.With("component", "dispatch"),
		viewerID:     viewerID,
		store:        store,
		toasts:       toasts,
		transactions: transactions,
		debts:        debts,
	}
}

// Attach subscribes the dispatcher to a transport client and returns the
// unsubscribe func.
func (d *Dispatcher) Attach(client *transport.Client) func() {
	return client.Subscribe(d.Handle)
}

// Handle classifies one envelope. The switch is exhaustive over the closed
// message set; adding an envelope type without a case here is caught by the
// completeness test, not by silent misrouting.
func (d *Dispatcher) Handle(msg envelope.Message) {
	switch m := msg.(type) {
	case envelope.SchedulerNotification:
		d.handleSchedulerNotification(m)
	case envelope.ToastNotification:
		d.handleToastNotification(m)
	case envelope.TaskStatusUpdate, envelope.PaymentUpdate, envelope.CustomerUpdate,
		envelope.AccountUpdate, envelope.TransactionUpdate, envelope.PaymentMethodUpdate:
		d.invalidate(msg)
	case envelope.TransactionRequest:
		d.handleTransactionRequest(m)
	case envelope.DebtRequest:
		d.handleDebtRequest(m)
	case envelope.TransactionRequestResolved:
		d.transactions.Dismiss(m.RequestID)
	case envelope.DebtRequestResolved:
		d.debts.Dismiss(m.RequestID)
	case envelope.ConnectionEstablished, envelope.Pong:
		// Handshake ack and liveness frames carry no dashboard reaction.
	default:
		d.log.Warn("No reaction for envelope", "envelope_type", msg.EnvelopeType())
	}
}

func (d *Dispatcher) invalidate(msg envelope.Message) {
	for _, prefix := range prefixesFor(msg) {
		d.store.InvalidatePrefix(prefix)
	}
}

func (d *Dispatcher) handleSchedulerNotification(m envelope.SchedulerNotification) {
	level := toast.LevelInfo
	body := fmt.Sprintf("%d tasks found, %d reminders sent", m.TasksFound, m.MessagesSent)
	if m.MessagesFailed > 0 {
		level = toast.LevelWarning
		body = fmt.Sprintf("%s, %d failed", body, m.MessagesFailed)
	}

	d.toasts.Push(level, fmt.Sprintf("Scheduler run: %s", m.JobType), body)
}

func (d *Dispatcher) handleToastNotification(m envelope.ToastNotification) {
	title := m.Title
	if title == "" {
		title = m.Kind
	}
	body := m.Body
	if body == "" {
		body = m.Message
	}

	d.toasts.Push(levelForKind(m.Kind), title, body)
}

func (d *Dispatcher) handleTransactionRequest(m envelope.TransactionRequest) {
	if m.RequesterID == d.viewerID {
		d.log.Debug("Suppressing self-originated request", "request_id", m.RequestID)
		return
	}

	d.transactions.Show(toast.Request{
		ID:            m.RequestID,
		Summary:       fmt.Sprintf("%s %.2f: %s", m.TransactionType, m.Amount, m.Description),
		Amount:        m.Amount,
		RequesterID:   m.RequesterID,
		RequesterName: m.RequesterName,
	})
}

func (d *Dispatcher) handleDebtRequest(m envelope.DebtRequest) {
	if m.RequesterID == d.viewerID {
		d.log.Debug("Suppressing self-originated request", "request_id", m.RequestID)
		return
	}

	d.debts.Show(toast.Request{
		ID:            m.RequestID,
		Summary:       fmt.Sprintf("Release %q against debt", m.TaskTitle),
		TaskID:        m.TaskID,
		TaskTitle:     m.TaskTitle,
		RequesterID:   m.RequesterID,
		RequesterName: m.RequesterName,
	})
}

func levelForKind(kind string) toast.Level {
	switch kind {
	case "error", "failure":
		return toast.LevelError
	case "warning":
		return toast.LevelWarning
	case "success":
		return toast.LevelSuccess
	default:
		return toast.LevelInfo
	}
}

// TransactionResolvedInvalidator returns the onResolved hook for the
// transaction registry: refetch request lists and financial summaries after
// a local decision lands.
func TransactionResolvedInvalidator(store *cache.Store) func(toast.Request) {
	return func(toast.Request) {
		store.InvalidatePrefix(KeyTransactionReqs)
		store.InvalidatePrefix(KeyTransactions)
		store.InvalidatePrefix(KeyFinanceSummary)
	}
}

// DebtResolvedInvalidator returns the onResolved hook for the debt registry:
// the affected task's detail plus the debt request list.
func DebtResolvedInvalidator(store *cache.Store) func(toast.Request) {
	return func(req toast.Request) {
		store.InvalidatePrefix(KeyDebtRequests)
		store.InvalidatePrefix(TaskDetailKey(req.TaskID))
	}
}
