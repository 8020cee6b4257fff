package ledgerhw

import (
	"context"
	"errors"
	"fmt"

	"github.com/komodoplatform/hw-kmd-claim/internal/core/domain"
	"github.com/komodoplatform/hw-kmd-claim/pkg/ledger"
)

// toDomainError maps the errors of the ledger client to domain ones. The
// original error stays in the chain.
func toDomainError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	// failures to open the transport are mapped already.
	if errors.Is(err, domain.ErrDeviceUnavailable) {
		return err
	}

	var statusErr *ledger.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case ledger.StatusConditionsNotSatisfied:
			return fmt.Errorf("%w: %w", domain.ErrDeviceRejected, err)
		case ledger.StatusInsNotSupported, ledger.StatusClaNotSupported,
			ledger.StatusAppNotOpen, ledger.StatusLocked:
			return fmt.Errorf("%w: %w", domain.ErrDeviceUnavailable, err)
		default:
			return fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
		}
	}

	switch {
	case errors.Is(err, ledger.ErrDisconnected),
		errors.Is(err, ledger.ErrTransportClosed):
		return fmt.Errorf("%w: %w", domain.ErrDeviceDisconnected, err)
	case errors.Is(err, ledger.ErrBridgeError):
		return fmt.Errorf("%w: %w", domain.ErrDeviceUnavailable, err)
	case errors.Is(err, ledger.ErrShortResponse),
		errors.Is(err, ledger.ErrMalformedResponse):
		return fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	default:
		return err
	}
}

// toSigningError maps the errors of a signing request. Any failure on device
// side declines the signing.
func toSigningError(err error) error {
	err = toDomainError(err)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrDeviceRejected) ||
		errors.Is(err, domain.ErrMalformedResponse) {
		return fmt.Errorf("%w: %w", domain.ErrSigningDeclined, err)
	}
	return err
}
