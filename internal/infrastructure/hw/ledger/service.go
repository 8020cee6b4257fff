// Package ledgerhw implements the hardware wallet port for Ledger devices
// running the Komodo app.
package ledgerhw

import (
	"context"
	"fmt"

	"github.com/komodoplatform/hw-kmd-claim/internal/core/domain"
	"github.com/komodoplatform/hw-kmd-claim/internal/core/ports"
	"github.com/komodoplatform/hw-kmd-claim/pkg/ledger"
	"github.com/komodoplatform/hw-kmd-claim/pkg/wallet"
	log "github.com/sirupsen/logrus"
)

// availabilityPath is the path requested to check whether the device is
// unlocked with the app open.
const availabilityPath = "44'/0'/0'/0/0"

type service struct {
	open  Opener
	probe ProbeOpts
}

// NewService returns a Ledger hardware wallet. Every operation opens its own
// transport with the given opener and closes it before returning.
func NewService(open Opener, probe ProbeOpts) (ports.HardwareWallet, error) {
	if open == nil {
		return nil, fmt.Errorf("missing transport opener")
	}
	probe = probe.withDefaults()
	if err := probe.validate(); err != nil {
		return nil, err
	}
	return &service{open, probe}, nil
}

func (s *service) Vendor() domain.Vendor {
	return domain.VendorLedger
}

func (s *service) IsAvailable(ctx context.Context) bool {
	err := s.withClient(ctx, func(c *ledger.Client) error {
		_, err := c.GetWalletPublicKey(ctx, availabilityPath, false)
		return err
	})
	if err != nil {
		log.WithError(err).Debug("ledger: device not available")
		return false
	}
	return true
}

func (s *service) DeriveAddress(
	ctx context.Context, path string, verify bool,
) (string, error) {
	var addr string
	err := s.withClient(ctx, func(c *ledger.Client) error {
		key, err := c.GetWalletPublicKey(ctx, path, verify)
		if err != nil {
			return err
		}
		addr = key.BitcoinAddress
		return nil
	})
	if err != nil {
		return "", toDomainError(err)
	}
	return addr, nil
}

// DeriveExtendedPublicKey takes two GetWalletPublicKey requests on the same
// transport: one for the key at path and one for its parent, whose public key
// gives the parent fingerprint of the xpub.
func (s *service) DeriveExtendedPublicKey(
	ctx context.Context, path string,
) (string, error) {
	derivationPath, err := wallet.ParseDerivationPath(path)
	if err != nil {
		return "", err
	}

	var xpub string
	err = s.withClient(ctx, func(c *ledger.Client) error {
		key, err := c.GetWalletPublicKey(ctx, path, false)
		if err != nil {
			return err
		}

		var parentFingerprint uint32
		if len(derivationPath) > 1 {
			parentPath := derivationPath[:len(derivationPath)-1].AbsoluteString()
			parent, err := c.GetWalletPublicKey(ctx, parentPath, false)
			if err != nil {
				return err
			}
			if parentFingerprint, err = wallet.Fingerprint(parent.PublicKey); err != nil {
				return fmt.Errorf("%w: %w", ledger.ErrMalformedResponse, err)
			}
		}

		xpub, err = wallet.EncodeExtendedPublicKey(wallet.EncodeExtendedPublicKeyOpts{
			Depth:             derivationPath.Depth(),
			ParentFingerprint: parentFingerprint,
			ChildNumber:       derivationPath.ChildNumber() | 0x80000000,
			ChainCode:         key.ChainCode,
			PublicKey:         key.PublicKey,
		})
		if err != nil {
			return fmt.Errorf("%w: %w", ledger.ErrMalformedResponse, err)
		}
		return nil
	})
	if err != nil {
		return "", toDomainError(err)
	}
	return xpub, nil
}

func (s *service) SignTransaction(
	ctx context.Context, req domain.SigningRequest,
) (string, error) {
	ledgerReq, ok := req.(*domain.LedgerSigningRequest)
	if !ok {
		return "", fmt.Errorf(
			"%w: got request for %s", domain.ErrVendorMismatch, req.Vendor(),
		)
	}

	params, err := paymentParams(ledgerReq)
	if err != nil {
		return "", err
	}

	var txHex string
	err = s.withClient(ctx, func(c *ledger.Client) (err error) {
		txHex, err = c.CreatePaymentTransactionNew(ctx, *params)
		return
	})
	if err != nil {
		return "", toSigningError(err)
	}
	return txHex, nil
}

// Close is a no-op: transports live as long as a single operation.
func (s *service) Close() error {
	return nil
}

// withClient opens a transport, runs fn and closes the transport on every
// path.
func (s *service) withClient(
	ctx context.Context, fn func(c *ledger.Client) error,
) error {
	transport, err := s.open(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDeviceUnavailable, err)
	}
	defer func() {
		if err := transport.Close(); err != nil {
			log.WithError(err).Warn("ledger: failed to close transport")
		}
	}()

	return fn(ledger.NewClient(transport))
}

func paymentParams(
	req *domain.LedgerSigningRequest,
) (*ledger.CreatePaymentTransactionParams, error) {
	inputs := make([]ledger.PaymentInput, 0, len(req.Inputs))
	for i, in := range req.Inputs {
		tx, err := ledger.SplitTransaction(in.RawTx, false, true)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		inputs = append(inputs, ledger.PaymentInput{
			Tx:          tx,
			OutputIndex: in.OutputIndex,
		})
	}

	return &ledger.CreatePaymentTransactionParams{
		Inputs:            inputs,
		AssociatedKeysets: req.AssociatedKeysets,
		OutputScriptHex:   req.OutputScript,
		Locktime:          req.Locktime,
		SigHashType:       ledger.SigHashAll,
		Additionals:       req.Additionals,
		ExpiryHeight:      req.ExpiryHeight,
	}, nil
}
