package envelope

import "time"

// Type discriminates every frame the notification channel can carry.
type Type string

const (
	TypeSchedulerNotification      Type = "scheduler_notification"
	TypeToastNotification          Type = "toast_notification"
	TypeTaskStatusUpdate           Type = "task_status_update"
	TypePaymentUpdate              Type = "payment_update"
	TypeCustomerUpdate             Type = "customer_update"
	TypeAccountUpdate              Type = "account_update"
	TypeTransactionUpdate          Type = "transaction_update"
	TypePaymentMethodUpdate        Type = "payment_method_update"
	TypeTransactionRequest         Type = "transaction_request"
	TypeDebtRequest                Type = "debt_request"
	TypeTransactionRequestResolved Type = "transaction_request_resolved"
	TypeDebtRequestResolved        Type = "debt_request_resolved"
	TypeConnectionEstablished      Type = "connection_established"
	TypePong                       Type = "pong"
)

// Message is the closed set of decoded envelope payloads. Every concrete
// payload implements it, so dispatch can be an exhaustive type switch instead
// of a chain of tag comparisons.
type Message interface {
	EnvelopeType() Type
}

// SchedulerNotification reports the outcome of one background reminder run.
type SchedulerNotification struct {
	JobType        string    `json:"job_type"`
	TasksFound     int       `json:"tasks_found"`
	MessagesSent   int       `json:"messages_sent"`
	MessagesFailed int       `json:"messages_failed"`
	FailureDetails []string  `json:"failure_details,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ToastNotification is a server-pushed informational toast with a sub-kind.
type ToastNotification struct {
	Kind    string `json:"kind"`
	Title   string `json:"title,omitempty"`
	Body    string `json:"body,omitempty"`
	Message string `json:"message,omitempty"`
}

// TaskStatusUpdate signals that one task changed state.
type TaskStatusUpdate struct {
	TaskID int64 `json:"task_id"`
}

// PaymentUpdate signals a payment change, optionally scoped to a task.
type PaymentUpdate struct {
	TaskID *int64 `json:"task_id,omitempty"`
}

// CustomerUpdate signals that customer records changed.
type CustomerUpdate struct{}

// AccountUpdate signals that financial accounts changed.
type AccountUpdate struct{}

// TransactionUpdate signals that transactions or their summaries changed.
type TransactionUpdate struct{}

// PaymentMethodUpdate signals that configured payment methods changed.
type PaymentMethodUpdate struct{}

// TransactionRequest asks authorized viewers to approve or reject an
// expenditure or income entry before it is booked.
type TransactionRequest struct {
	RequestID       int64   `json:"request_id"`
	TransactionType string  `json:"transaction_type"`
	Description     string  `json:"description"`
	Amount          float64 `json:"amount"`
	RequesterID     int64   `json:"requester_id"`
	RequesterName   string  `json:"requester_name"`
}

// DebtRequest asks authorized viewers to approve or reject releasing a task
// against outstanding customer debt.
type DebtRequest struct {
	RequestID     int64  `json:"request_id"`
	TaskID        int64  `json:"task_id"`
	TaskTitle     string `json:"task_title"`
	RequesterID   int64  `json:"requester_id"`
	RequesterName string `json:"requester_name"`
}

// TransactionRequestResolved retracts a transaction prompt everywhere once
// any viewer (or the system) has decided it.
type TransactionRequestResolved struct {
	RequestID int64 `json:"request_id"`
}

// DebtRequestResolved retracts a debt prompt everywhere once any viewer (or
// the system) has decided it.
type DebtRequestResolved struct {
	RequestID int64 `json:"request_id"`
}

// ConnectionEstablished is the server's handshake acknowledgement.
type ConnectionEstablished struct {
	Message string `json:"message"`
}

// Pong answers an outbound keepalive ping.
type Pong struct{}

func (SchedulerNotification) EnvelopeType() Type      { return TypeSchedulerNotification }
func (ToastNotification) EnvelopeType() Type          { return TypeToastNotification }
func (TaskStatusUpdate) EnvelopeType() Type           { return TypeTaskStatusUpdate }
func (PaymentUpdate) EnvelopeType() Type              { return TypePaymentUpdate }
func (CustomerUpdate) EnvelopeType() Type             { return TypeCustomerUpdate }
func (AccountUpdate) EnvelopeType() Type              { return TypeAccountUpdate }
func (TransactionUpdate) EnvelopeType() Type          { return TypeTransactionUpdate }
func (PaymentMethodUpdate) EnvelopeType() Type        { return TypePaymentMethodUpdate }
func (TransactionRequest) EnvelopeType() Type         { return TypeTransactionRequest }
func (DebtRequest) EnvelopeType() Type                { return TypeDebtRequest }
func (TransactionRequestResolved) EnvelopeType() Type { return TypeTransactionRequestResolved }
func (DebtRequestResolved) EnvelopeType() Type        { return TypeDebtRequestResolved }
func (ConnectionEstablished) EnvelopeType() Type      { return TypeConnectionEstablished }
func (Pong) EnvelopeType() Type                       { return TypePong }
