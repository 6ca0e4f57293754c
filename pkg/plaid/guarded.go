package plaid

import (
	"context"
	"errors"

	"github.com/nimbuswolf/finance-api/pkg/circuit"
)

// Outcome labels reported to the Observer.
const (
	OutcomeSuccess     = "success"
	OutcomeClientError = "client_error"
	OutcomeFailure     = "failure"
	OutcomeRejected    = "circuit_open"
)

// Observer receives one call per provider operation.
type Observer func(operation, outcome string)

// Guarded wraps a Provider with a circuit breaker. Calls are never retried.
type Guarded struct {
	next     Provider
	breaker  *circuit.Breaker
	observer Observer
}

var _ Provider = (*Guarded)(nil)

func NewGuarded(next Provider, breaker *circuit.Breaker, observer Observer) *Guarded {
	if observer == nil {
		observer = func(string, string) {}
	}
	return &Guarded{next: next, breaker: breaker, observer: observer}
}

// IsProviderFailure reports whether err should count against the circuit.
// Rejected requests (bad token, invalid input) do not.
func IsProviderFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Temporary()
	}
	return true
}

func (g *Guarded) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	err := g.breaker.Execute(ctx, fn)

	switch {
	case err == nil:
		g.observer(operation, OutcomeSuccess)
	case errors.Is(err, circuit.ErrCircuitOpen), errors.Is(err, circuit.ErrTooManyRequests):
		g.observer(operation, OutcomeRejected)
	case IsProviderFailure(err):
		g.observer(operation, OutcomeFailure)
	default:
		g.observer(operation, OutcomeClientError)
	}
	return err
}

func (g *Guarded) CreateLinkToken(ctx context.Context, req LinkTokenRequest) (out *LinkTokenResponse, err error) {
	err = g.call(ctx, "link_token_create", func(ctx context.Context) error {
		out, err = g.next.CreateLinkToken(ctx, req)
		return err
	})
	return out, err
}

func (g *Guarded) ExchangePublicToken(ctx context.Context, publicToken string) (out *ExchangeResponse, err error) {
	err = g.call(ctx, "public_token_exchange", func(ctx context.Context) error {
		out, err = g.next.ExchangePublicToken(ctx, publicToken)
		return err
	})
	return out, err
}

func (g *Guarded) GetAccounts(ctx context.Context, accessToken string) (out *AccountsResponse, err error) {
	err = g.call(ctx, "accounts_get", func(ctx context.Context) error {
		out, err = g.next.GetAccounts(ctx, accessToken)
		return err
	})
	return out, err
}

func (g *Guarded) GetTransactions(ctx context.Context, req TransactionsGetRequest) (out *TransactionsGetResponse, err error) {
	err = g.call(ctx, "transactions_get", func(ctx context.Context) error {
		out, err = g.next.GetTransactions(ctx, req)
		return err
	})
	return out, err
}

func (g *Guarded) SyncTransactions(ctx context.Context, req TransactionsSyncRequest) (out *TransactionsSyncResponse, err error) {
	err = g.call(ctx, "transactions_sync", func(ctx context.Context) error {
		out, err = g.next.SyncTransactions(ctx, req)
		return err
	})
	return out, err
}

func (g *Guarded) GetItem(ctx context.Context, accessToken string) (out *ItemResponse, err error) {
	err = g.call(ctx, "item_get", func(ctx context.Context) error {
		out, err = g.next.GetItem(ctx, accessToken)
		return err
	})
	return out, err
}

func (g *Guarded) GetInstitution(ctx context.Context, institutionID string, countryCodes []string) (out *Institution, err error) {
	err = g.call(ctx, "institutions_get_by_id", func(ctx context.Context) error {
		out, err = g.next.GetInstitution(ctx, institutionID, countryCodes)
		return err
	})
	return out, err
}
