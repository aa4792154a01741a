package envelope

import (
	"encoding/json"
	"testing"
)

func TestDecodeTransactionRequest(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"type": "transaction_request",
		"request_id": 7,
		"transaction_type": "expense",
		"description": "replacement screen stock",
		"amount": 249.5,
		"requester_id": 3,
		"requester_name": "Dana"
	}`)

	msg, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	req, ok := msg.(TransactionRequest)
	if !ok {
		t.Fatalf("decoded %T, want TransactionRequest", msg)
	}
	if req.RequestID != 7 || req.RequesterID != 3 || req.Amount != 249.5 {
		t.Fatalf("decoded = %+v", req)
	}
	if req.EnvelopeType() != TypeTransactionRequest {
		t.Fatalf("EnvelopeType = %q", req.EnvelopeType())
	}
}

func TestDecodeDebtRequestAndResolved(t *testing.T) {
	t.Parallel()

	msg, err := Decode([]byte(`{"type":"debt_request","request_id":12,"task_id":88,"task_title":"iPhone 13 battery","requester_id":5,"requester_name":"Sam"}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	req, ok := msg.(DebtRequest)
	if !ok || req.TaskTitle != "iPhone 13 battery" {
		t.Fatalf("decoded = %T %+v", msg, msg)
	}

	msg, err = Decode([]byte(`{"type":"debt_request_resolved","request_id":12}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if resolved, ok := msg.(DebtRequestResolved); !ok || resolved.RequestID != 12 {
		t.Fatalf("decoded = %T %+v", msg, msg)
	}
}

func TestDecodeEveryTypeRoundTrips(t *testing.T) {
	t.Parallel()

	frames := map[Type]string{
		TypeSchedulerNotification:      `{"type":"scheduler_notification","job_type":"repair_reminders","tasks_found":4,"messages_sent":3,"messages_failed":1,"failure_details":["no phone number"],"created_at":"2026-08-29T10:00:00Z"}`,
		TypeToastNotification:          `{"type":"toast_notification","kind":"warning","title":"Printer offline"}`,
		TypeTaskStatusUpdate:           `{"type":"task_status_update","task_id":42}`,
		TypePaymentUpdate:              `{"type":"payment_update","task_id":42}`,
		TypeCustomerUpdate:             `{"type":"customer_update"}`,
		TypeAccountUpdate:              `{"type":"account_update"}`,
		TypeTransactionUpdate:          `{"type":"transaction_update"}`,
		TypePaymentMethodUpdate:        `{"type":"payment_method_update"}`,
		TypeTransactionRequest:         `{"type":"transaction_request","request_id":1,"requester_id":2}`,
		TypeDebtRequest:                `{"type":"debt_request","request_id":1,"task_id":2,"requester_id":3}`,
		TypeTransactionRequestResolved: `{"type":"transaction_request_resolved","request_id":1}`,
		TypeDebtRequestResolved:        `{"type":"debt_request_resolved","request_id":1}`,
		TypeConnectionEstablished:      `{"type":"connection_established","message":"ok"}`,
		TypePong:                       `{"type":"pong"}`,
	}

	for wantType, frame := range frames {
		msg, err := Decode([]byte(frame))
		if err != nil {
			t.Fatalf("Decode(%s) error: %v", wantType, err)
		}
		if got := msg.EnvelopeType(); got != wantType {
			t.Fatalf("EnvelopeType = %q, want %q", got, wantType)
		}
	}
}

func TestDecodeRejectsUnknownAndMalformed(t *testing.T) {
	t.Parallel()

	if _, err := Decode([]byte(`{"type":"mystery_event"}`)); err == nil {
		t.Fatal("expected error for unknown type")
	}
	if _, err := Decode([]byte(`{"no_type": true}`)); err == nil {
		t.Fatal("expected error for missing type tag")
	}
	if _, err := Decode([]byte(`{broken`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
	if _, err := Decode([]byte(`{"type":"task_status_update","task_id":"not-a-number"}`)); err == nil {
		t.Fatal("expected error for mistyped payload field")
	}
}

func TestPingFrameShape(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(NewPing())
	if err != nil {
		t.Fatalf("marshal ping: %v", err)
	}
	if got := string(raw); got != `{"type":"ping"}` {
		t.Fatalf("ping frame = %s", got)
	}
}

func TestPaymentUpdateWithoutTask(t *testing.T) {
	t.Parallel()

	msg, err := Decode([]byte(`{"type":"payment_update"}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	update := msg.(PaymentUpdate)
	if update.TaskID != nil {
		t.Fatalf("task_id = %v, want nil", *update.TaskID)
	}
}
