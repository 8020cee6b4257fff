package ledgerhw

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/komodoplatform/hw-kmd-claim/pkg/ledger"
)

// TransportKind selects how the device is reached.
type TransportKind string

const (
	// TransportPrimary is the websocket APDU bridge.
	TransportPrimary TransportKind = "primary"
	// TransportFallback is the HTTP APDU endpoint.
	TransportFallback TransportKind = "fallback"
)

// ParseTransportKind returns the kind matching the given name.
func ParseTransportKind(kind string) (TransportKind, error) {
	switch TransportKind(kind) {
	case TransportPrimary, TransportFallback:
		return TransportKind(kind), nil
	default:
		return "", fmt.Errorf("unknown ledger transport %q", kind)
	}
}

// Opener opens a fresh transport to the device. The caller owns the returned
// transport and must close it.
type Opener func(ctx context.Context) (ledger.Transport, error)

// OpenerOpts is the struct given to NewOpener.
type OpenerOpts struct {
	Kind      TransportKind
	BridgeURL string
	HTTPURL   string
	// RequestTimeout bounds every request of the HTTP transport.
	RequestTimeout time.Duration
}

func (o OpenerOpts) validate() error {
	switch o.Kind {
	case TransportPrimary:
		if o.BridgeURL == "" {
			return fmt.Errorf("missing ledger bridge url")
		}
	case TransportFallback:
		if o.HTTPURL == "" {
			return fmt.Errorf("missing ledger http url")
		}
	default:
		return fmt.Errorf("unknown ledger transport %q", o.Kind)
	}
	return nil
}

// NewOpener returns the opener of transports of the given kind.
func NewOpener(opts OpenerOpts) (Opener, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	if opts.Kind == TransportFallback {
		client := &http.Client{Timeout: opts.RequestTimeout}
		return func(context.Context) (ledger.Transport, error) {
			return ledger.NewHTTPTransport(opts.HTTPURL, client), nil
		}, nil
	}

	return func(ctx context.Context) (ledger.Transport, error) {
		return ledger.OpenWebSocketTransport(ctx, opts.BridgeURL)
	}, nil
}
