package dispatch

import (
	"context"

	"opsdash/pkg/api"
	"opsdash/pkg/toast"
)

// TransactionResolver executes transaction-request decisions through the
// backend client.
type TransactionResolver struct {
	API *api.Client
}

func (r TransactionResolver) Approve(ctx context.Context, req toast.Request) error {
	return r.API.ApproveTransactionRequest(ctx, req.ID)
}

func (r TransactionResolver) Reject(ctx context.Context, req toast.Request) error {
	return r.API.RejectTransactionRequest(ctx, req.ID)
}

// DebtResolver executes debt-request decisions through the backend client.
// The requester id and task title feed the server's confirmation copy.
type DebtResolver struct {
	API *api.Client
}

func (r DebtResolver) Approve(ctx context.Context, req toast.Request) error {
	return r.API.ApproveDebtRequest(ctx, req.ID, req.RequesterID, req.TaskTitle)
}

func (r DebtResolver) Reject(ctx context.Context, req toast.Request) error {
	return r.API.RejectDebtRequest(ctx, req.ID, req.RequesterID, req.TaskTitle)
}
