// Package trezorhw implements the hardware wallet port for Trezor devices,
// reached through a Trezor Connect websocket bridge.
package trezorhw

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/komodoplatform/hw-kmd-claim/internal/core/domain"
	"github.com/komodoplatform/hw-kmd-claim/internal/core/ports"
	"github.com/komodoplatform/hw-kmd-claim/pkg/trezor"
	"github.com/komodoplatform/hw-kmd-claim/pkg/wallet"
	log "github.com/sirupsen/logrus"
)

// availabilityPath is the path requested to check whether the device is
// connected and unlocked.
const availabilityPath = "m/141'/0'/0'/0/0"

type service struct {
	url string

	lock   *sync.Mutex
	client *trezor.Client
	closed bool
}

// NewService returns a Trezor hardware wallet talking to the Connect bridge
// at the given url. The connection is opened on first use and kept for the
// lifetime of the service; it's reopened if it breaks.
func NewService(url string) (ports.HardwareWallet, error) {
	if url == "" {
		return nil, fmt.Errorf("missing trezor bridge url")
	}
	return &service{url: url, lock: &sync.Mutex{}}, nil
}

func (s *service) Vendor() domain.Vendor {
	return domain.VendorTrezor
}

func (s *service) IsAvailable(ctx context.Context) bool {
	c, err := s.conn(ctx)
	if err != nil {
		log.WithError(err).Debug("trezor: device not available")
		return false
	}
	if _, err := c.GetPublicKey(ctx, trezor.GetPublicKeyParams{
		Path: availabilityPath,
	}); err != nil {
		_ = s.handleErr(c, err)
		log.WithError(err).Debug("trezor: device not available")
		return false
	}
	return true
}

// DeriveAddress returns an empty address if the device answers without one,
// ie. if the user cancels the request.
func (s *service) DeriveAddress(
	ctx context.Context, path string, verify bool,
) (string, error) {
	absPath, err := absolutePath(path)
	if err != nil {
		return "", err
	}
	c, err := s.conn(ctx)
	if err != nil {
		return "", err
	}

	addr, err := c.GetAddress(ctx, trezor.GetAddressParams{
		Path:         absPath,
		Coin:         wallet.CoinName,
		ShowOnTrezor: verify,
	})
	if err != nil {
		if err := s.handleErr(c, err); err != nil {
			return "", err
		}
		return "", nil
	}
	return addr.Address, nil
}

// DeriveExtendedPublicKey returns an empty xpub if the device answers
// without one.
func (s *service) DeriveExtendedPublicKey(
	ctx context.Context, path string,
) (string, error) {
	absPath, err := absolutePath(path)
	if err != nil {
		return "", err
	}
	c, err := s.conn(ctx)
	if err != nil {
		return "", err
	}

	key, err := c.GetPublicKey(ctx, trezor.GetPublicKeyParams{
		Path: absPath,
		Coin: wallet.CoinName,
	})
	if err != nil {
		if err := s.handleErr(c, err); err != nil {
			return "", err
		}
		return "", nil
	}
	return key.XPub, nil
}

// SignTransaction returns an error wrapping domain.ErrSigningDeclined if the
// device answers with an error or without the signed tx.
func (s *service) SignTransaction(
	ctx context.Context, req domain.SigningRequest,
) (string, error) {
	trezorReq, ok := req.(*domain.TrezorSigningRequest)
	if !ok {
		return "", fmt.Errorf(
			"%w: got request for %s", domain.ErrVendorMismatch, req.Vendor(),
		)
	}
	c, err := s.conn(ctx)
	if err != nil {
		return "", err
	}

	signed, err := c.SignTransaction(ctx, signTxParams(trezorReq))
	if err != nil {
		if err := s.handleErr(c, err); err != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", domain.ErrSigningDeclined, err)
	}
	if signed.SerializedTx == "" {
		return "", fmt.Errorf("%w: no signed tx returned", domain.ErrSigningDeclined)
	}
	return signed.SerializedTx, nil
}

func (s *service) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

// conn returns the open connection, dialing a new one if needed.
func (s *service) conn(ctx context.Context) (*trezor.Client, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return nil, domain.ErrSessionClosed
	}
	if s.client != nil {
		return s.client, nil
	}

	c, err := trezor.Dial(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDeviceUnavailable, err)
	}
	s.client = c
	return c, nil
}

// handleErr returns the domain error matching a failed call, or nil if the
// device answered with an application level error. Broken connections are
// dropped so that the next call dials again.
func (s *service) handleErr(c *trezor.Client, err error) error {
	var appErr *trezor.Error
	if errors.As(err, &appErr) {
		log.WithError(err).Debug("trezor: request failed on device")
		return nil
	}

	if errors.Is(err, trezor.ErrDisconnected) || errors.Is(err, trezor.ErrClientClosed) {
		s.drop(c)
		return fmt.Errorf("%w: %w", domain.ErrDeviceDisconnected, err)
	}
	if errors.Is(err, trezor.ErrMalformedResponse) {
		return fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}
	return err
}

func (s *service) drop(c *trezor.Client) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.client != c {
		return
	}
	c.Close()
	s.client = nil
}

func absolutePath(path string) (string, error) {
	p, err := wallet.ParseDerivationPath(path)
	if err != nil {
		return "", err
	}
	return p.AbsoluteString(), nil
}

func signTxParams(req *domain.TrezorSigningRequest) trezor.SignTxParams {
	inputs := make([]trezor.TxInput, 0, len(req.Inputs))
	for _, in := range req.Inputs {
		inputs = append(inputs, trezor.TxInput{
			AddressN:  in.AddressN,
			PrevHash:  in.PrevHash,
			PrevIndex: in.PrevIndex,
			Amount:    in.Amount,
		})
	}
	outputs := make([]trezor.TxOutput, 0, len(req.Outputs))
	for _, out := range req.Outputs {
		outputs = append(outputs, trezor.TxOutput{
			Address:    out.Address,
			Amount:     out.Amount,
			ScriptType: out.ScriptType,
		})
	}

	refTxs := make([]trezor.RefTransaction, 0, len(req.RefTxs))
	for _, tx := range req.RefTxs {
		refInputs := make([]trezor.RefTxInput, 0, len(tx.Inputs))
		for _, in := range tx.Inputs {
			refInputs = append(refInputs, trezor.RefTxInput{
				PrevHash:  in.PrevHash,
				PrevIndex: in.PrevIndex,
				ScriptSig: in.ScriptSig,
				Sequence:  in.Sequence,
			})
		}
		refOutputs := make([]trezor.RefTxOutput, 0, len(tx.BinOutputs))
		for _, out := range tx.BinOutputs {
			refOutputs = append(refOutputs, trezor.RefTxOutput{
				Amount:       out.Amount,
				ScriptPubKey: out.ScriptPubKey,
			})
		}
		refTxs = append(refTxs, trezor.RefTransaction{
			Hash:           tx.Hash,
			Inputs:         refInputs,
			BinOutputs:     refOutputs,
			Version:        tx.Version,
			LockTime:       tx.LockTime,
			VersionGroupID: tx.VersionGroupID,
			BranchID:       tx.BranchID,
			ExtraData:      tx.ExtraData,
			Expiry:         tx.Expiry,
		})
	}

	return trezor.SignTxParams{
		VersionGroupID: req.VersionGroupID,
		BranchID:       req.BranchID,
		Version:        req.Version,
		Push:           req.Push,
		Coin:           req.Coin,
		Locktime:       req.Locktime,
		Outputs:        outputs,
		Inputs:         inputs,
		RefTxs:         refTxs,
	}
}
