package envelope

import (
	"encoding/json"
	"fmt"
)

// Ping is the outbound keepalive frame. It is the only frame the client
// originates after the handshake.
type Ping struct {
	Type Type `json:"type"`
}

// NewPing returns a keepalive frame ready for marshaling.
func NewPing() Ping {
	return Ping{Type: "ping"}
}

type header struct {
	Type Type `json:"type"`
}

// Decode parses one wire frame into its typed payload.
//
// Unknown types and malformed payloads return an error; callers drop the
// frame and keep the connection alive.
func Decode(raw []byte) (Message, error) {
	var head header
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode envelope header: %w", err)
	}

	switch head.Type {
	case TypeSchedulerNotification:
		return decodeAs[SchedulerNotification](raw)
	case TypeToastNotification:
		return decodeAs[ToastNotification](raw)
	case TypeTaskStatusUpdate:
		return decodeAs[TaskStatusUpdate](raw)
	case TypePaymentUpdate:
		return decodeAs[PaymentUpdate](raw)
	case TypeCustomerUpdate:
		return decodeAs[CustomerUpdate](raw)
	case TypeAccountUpdate:
		return decodeAs[AccountUpdate](raw)
	case TypeTransactionUpdate:
		return decodeAs[TransactionUpdate](raw)
	case TypePaymentMethodUpdate:
		return decodeAs[PaymentMethodUpdate](raw)
	case TypeTransactionRequest:
		return decodeAs[TransactionRequest](raw)
	case TypeDebtRequest:
		return decodeAs[DebtRequest](raw)
	case TypeTransactionRequestResolved:
		return decodeAs[TransactionRequestResolved](raw)
	case TypeDebtRequestResolved:
		return decodeAs[DebtRequestResolved](raw)
	case TypeConnectionEstablished:
		return decodeAs[ConnectionEstablished](raw)
	case TypePong:
		return Pong{}, nil
	case "":
		return nil, fmt.Errorf("envelope missing type tag")
	default:
		return nil, fmt.Errorf("unknown envelope type %q", head.Type)
	}
}

func decodeAs[T Message](raw []byte) (Message, error) {
	var msg T
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", msg.EnvelopeType(), err)
	}

	return msg, nil
}
