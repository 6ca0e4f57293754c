package service

import (
	"context"
	"errors"

	apperrors "github.com/nimbuswolf/finance-api/internal/errors"
	"github.com/nimbuswolf/finance-api/pkg/circuit"
	"github.com/nimbuswolf/finance-api/pkg/plaid"
)

// upstreamError maps a provider call failure onto the domain error the handler reports.
func upstreamError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.WrapError(apperrors.ErrUpstream, err)
	}
	if errors.Is(err, circuit.ErrCircuitOpen) || errors.Is(err, circuit.ErrTooManyRequests) {
		return apperrors.WrapError(apperrors.ErrServiceUnavailable, err)
	}

	var perr *plaid.Error
	if errors.As(err, &perr) {
		detail := perr.DisplayMessage
		if detail == "" {
			detail = perr.ErrorCode
		}
		return apperrors.WithDetails(apperrors.WrapError(apperrors.ErrUpstream, err), []string{detail})
	}
	return apperrors.WrapError(apperrors.ErrUpstream, err)
}
