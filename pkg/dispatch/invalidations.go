package dispatch

import (
	"fmt"

	"opsdash/pkg/envelope"
)

// Cache key prefixes shared with the screens that read through the store.
const (
	KeyTaskList        = "tasks/list"
	KeyTaskDetail      = "tasks/detail"
	KeyPayments        = "payments"
	KeyRevenueSummary  = "revenue/summary"
	KeyCustomers       = "customers"
	KeyAccounts        = "accounts"
	KeyTransactions    = "transactions"
	KeyTransactionReqs = "transaction-requests"
	KeyDebtRequests    = "debt-requests"
	KeyFinanceSummary  = "finance/summary"
	KeyPaymentMethods  = "payment-methods"
)

// staleKeys is the static table from envelope type to the cache prefixes
// that must refetch when that envelope arrives. A missing row here means a
// stale screen, so the table is covered one-to-one by tests. Envelopes that
// carry an entity id get an extra id-scoped prefix appended at dispatch time.
var staleKeys = map[envelope.Type][]string{
	envelope.TypeTaskStatusUpdate:    {KeyTaskList},
	envelope.TypePaymentUpdate:       {KeyPayments, KeyRevenueSummary},
	envelope.TypeCustomerUpdate:      {KeyCustomers},
	envelope.TypeAccountUpdate:       {KeyAccounts},
	envelope.TypeTransactionUpdate:   {KeyTransactions, KeyTransactionReqs, KeyFinanceSummary},
	envelope.TypePaymentMethodUpdate: {KeyPaymentMethods},
}

// TaskDetailKey returns the cache prefix for one task's detail screen.
func TaskDetailKey(taskID int64) string {
	return fmt.Sprintf("%s/%d", KeyTaskDetail, taskID)
}

// prefixesFor resolves the full invalidation set for one envelope,
// static table rows plus any id-scoped prefixes.
func prefixesFor(msg envelope.Message) []string {
	prefixes := append([]string(nil), staleKeys[msg.EnvelopeType()]...)

	switch m := msg.(type) {
	case envelope.TaskStatusUpdate:
		prefixes = append(prefixes, TaskDetailKey(m.TaskID))
	case envelope.PaymentUpdate:
		if m.TaskID != nil {
			prefixes = append(prefixes, TaskDetailKey(*m.TaskID))
		}
	}

	return prefixes
}
