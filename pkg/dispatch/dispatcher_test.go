package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsdash/pkg/cache"
	"opsdash/pkg/envelope"
	"opsdash/pkg/toast"
)

const viewerID = int64(9)

type nopResolver struct{}

func (nopResolver) Approve(context.Context, toast.Request) error { return nil }
func (nopResolver) Reject(context.Context, toast.Request) error  { return nil }

type harness struct {
	dispatcher   *Dispatcher
	store        *cache.Store
	center       *toast.Center
	transactions *toast.Registry
	debts        *toast.Registry
	staleCh      <-chan string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := cache.NewStore()
	t.Cleanup(store.Close)
	center := toast.NewCenter()
	t.Cleanup(center.Close)

	transactions := toast.NewRegistry(toast.KindTransaction, nopResolver{}, center, nil, nil)
	debts := toast.NewRegistry(toast.KindDebt, nopResolver{}, center, nil, nil)

	staleCh, unsubscribe := store.Subscribe(32)
	t.Cleanup(unsubscribe)

	return &harness{
		dispatcher:   New(viewerID, store, center, transactions, debts, nil),
		store:        store,
		center:       center,
		transactions: transactions,
		debts:        debts,
		staleCh:      staleCh,
	}
}

// drainStale returns the prefixes invalidated so far without blocking.
// Invalidation notifications are published synchronously from Handle.
func (h *harness) drainStale() []string {
	var prefixes []string
	for {
		select {
		case p := <-h.staleCh:
			prefixes = append(prefixes, p)
		default:
			return prefixes
		}
	}
}

func TestInvalidationTableIsExhaustive(t *testing.T) {
	t.Parallel()

	taskID := int64(42)
	tests := []struct {
		name string
		msg  envelope.Message
		want []string
	}{
		{
			name: "task status update",
			msg:  envelope.TaskStatusUpdate{TaskID: 42},
			want: []string{KeyTaskList, TaskDetailKey(42)},
		},
		{
			name: "payment update with task",
			msg:  envelope.PaymentUpdate{TaskID: &taskID},
			want: []string{KeyPayments, KeyRevenueSummary, TaskDetailKey(42)},
		},
		{
			name: "payment update without task",
			msg:  envelope.PaymentUpdate{},
			want: []string{KeyPayments, KeyRevenueSummary},
		},
		{
			name: "customer update",
			msg:  envelope.CustomerUpdate{},
			want: []string{KeyCustomers},
		},
		{
			name: "account update",
			msg:  envelope.AccountUpdate{},
			want: []string{KeyAccounts},
		},
		{
			name: "transaction update",
			msg:  envelope.TransactionUpdate{},
			want: []string{KeyTransactions, KeyTransactionReqs, KeyFinanceSummary},
		},
		{
			name: "payment method update",
			msg:  envelope.PaymentMethodUpdate{},
			want: []string{KeyPaymentMethods},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.dispatcher.Handle(tc.msg)
			assert.ElementsMatch(t, tc.want, h.drainStale(), "exact invalidation set for %s", tc.msg.EnvelopeType())
		})
	}
}

func TestNonInvalidatingEnvelopesTouchNoCache(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.dispatcher.Handle(envelope.ConnectionEstablished{Message: "ok"})
	h.dispatcher.Handle(envelope.Pong{})
	h.dispatcher.Handle(envelope.SchedulerNotification{JobType: "repair_reminders"})

	assert.Empty(t, h.drainStale())
}

func TestSelfOriginatedRequestsAreSuppressed(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.dispatcher.Handle(envelope.TransactionRequest{RequestID: 7, RequesterID: viewerID})
	h.dispatcher.Handle(envelope.DebtRequest{RequestID: 8, RequesterID: viewerID})

	assert.Empty(t, h.transactions.Prompts())
	assert.Empty(t, h.debts.Prompts())
}

func TestForeignRequestsProducePrompts(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.dispatcher.Handle(envelope.TransactionRequest{
		RequestID:       7,
		TransactionType: "expense",
		Description:     "screen stock",
		Amount:          249.5,
		RequesterID:     3,
		RequesterName:   "Dana",
	})
	h.dispatcher.Handle(envelope.DebtRequest{
		RequestID:     8,
		TaskID:        42,
		TaskTitle:     "iPhone 13 battery",
		RequesterID:   3,
		RequesterName: "Dana",
	})

	prompts := h.transactions.Prompts()
	require.Len(t, prompts, 1)
	assert.Equal(t, int64(7), prompts[0].ID)
	assert.Contains(t, prompts[0].Summary, "screen stock")

	debtPrompts := h.debts.Prompts()
	require.Len(t, debtPrompts, 1)
	assert.Equal(t, int64(42), debtPrompts[0].TaskID)
}

func TestDuplicateRequestEnvelopesKeepOnePrompt(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	for n := 0; n < 4; n++ {
		h.dispatcher.Handle(envelope.TransactionRequest{RequestID: 7, RequesterID: 3})
	}

	assert.Len(t, h.transactions.Prompts(), 1)
}

func TestResolvedEnvelopesDismissPrompts(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.dispatcher.Handle(envelope.TransactionRequest{RequestID: 7, RequesterID: 3})
	h.dispatcher.Handle(envelope.DebtRequest{RequestID: 8, RequesterID: 3})

	h.dispatcher.Handle(envelope.TransactionRequestResolved{RequestID: 7})
	h.dispatcher.Handle(envelope.DebtRequestResolved{RequestID: 8})

	assert.Empty(t, h.transactions.Prompts())
	assert.Empty(t, h.debts.Prompts())

	// Late or repeated resolutions are absorbed silently.
	h.dispatcher.Handle(envelope.TransactionRequestResolved{RequestID: 7})
	h.dispatcher.Handle(envelope.DebtRequestResolved{RequestID: 999})
}

func TestSchedulerNotificationBecomesToast(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	toasts, unsubscribe := h.center.Subscribe(4)
	defer unsubscribe()

	h.dispatcher.Handle(envelope.SchedulerNotification{JobType: "repair_reminders", TasksFound: 4, MessagesSent: 3, MessagesFailed: 1})

	got := <-toasts
	assert.Equal(t, toast.LevelWarning, got.Level)
	assert.Contains(t, got.Title, "repair_reminders")
	assert.Contains(t, got.Body, "1 failed")
}

func TestToastNotificationLevels(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	toasts, unsubscribe := h.center.Subscribe(8)
	defer unsubscribe()

	h.dispatcher.Handle(envelope.ToastNotification{Kind: "error", Title: "Sync failed"})
	h.dispatcher.Handle(envelope.ToastNotification{Kind: "success", Message: "Backup finished"})

	first := <-toasts
	assert.Equal(t, toast.LevelError, first.Level)
	second := <-toasts
	assert.Equal(t, toast.LevelSuccess, second.Level)
	assert.Equal(t, "Backup finished", second.Body)
}

func TestResolvedInvalidatorHooks(t *testing.T) {
	t.Parallel()

	store := cache.NewStore()
	t.Cleanup(store.Close)
	staleCh, unsubscribe := store.Subscribe(16)
	t.Cleanup(unsubscribe)

	TransactionResolvedInvalidator(store)(toast.Request{ID: 7})
	DebtResolvedInvalidator(store)(toast.Request{ID: 8, TaskID: 42})

	var prefixes []string
	for n := 0; n < 5; n++ {
		prefixes = append(prefixes, <-staleCh)
	}

	assert.ElementsMatch(t, []string{
		KeyTransactionReqs, KeyTransactions, KeyFinanceSummary,
		KeyDebtRequests, TaskDetailKey(42),
	}, prefixes)
}
