package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/komodoplatform/hw-kmd-claim/internal/core/domain"
	"github.com/komodoplatform/hw-kmd-claim/internal/core/ports"
	"github.com/komodoplatform/hw-kmd-claim/pkg/wallet"
)

type deviceAddressSource struct {
	hw ports.HardwareWallet
}

// NewDeviceAddressSource returns an address source asking the device for
// every address.
func NewDeviceAddressSource(hw ports.HardwareWallet) ports.AddressSource {
	return &deviceAddressSource{hw}
}

func (s *deviceAddressSource) Address(
	ctx context.Context, account uint32, chain domain.Chain, index uint32,
) (string, error) {
	path := wallet.NewAddressPath(account, uint32(chain), index).String()
	addr, err := s.hw.DeriveAddress(ctx, path, false)
	if err != nil {
		return "", err
	}
	if addr == "" {
		return "", fmt.Errorf(
			"%w: device returned no address for %s", domain.ErrMalformedResponse, path,
		)
	}
	return addr, nil
}

type hostAddressSource struct {
	hw ports.HardwareWallet

	lock  *sync.Mutex
	xpubs map[uint32]string
}

// NewHostAddressSource returns an address source that fetches the extended
// public key of an account from the device once and derives its addresses
// locally.
func NewHostAddressSource(hw ports.HardwareWallet) ports.AddressSource {
	return &hostAddressSource{
		hw:    hw,
		lock:  &sync.Mutex{},
		xpubs: make(map[uint32]string),
	}
}

func (s *hostAddressSource) Address(
	ctx context.Context, account uint32, chain domain.Chain, index uint32,
) (string, error) {
	xpub, err := s.accountXpub(ctx, account)
	if err != nil {
		return "", err
	}
	return wallet.DeriveAddressFromXpub(xpub, uint32(chain), index)
}

func (s *hostAddressSource) accountXpub(
	ctx context.Context, account uint32,
) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if xpub, ok := s.xpubs[account]; ok {
		return xpub, nil
	}

	path := wallet.NewAccountPath(account).String()
	xpub, err := s.hw.DeriveExtendedPublicKey(ctx, path)
	if err != nil {
		return "", err
	}
	if xpub == "" {
		return "", fmt.Errorf(
			"%w: device returned no xpub for %s", domain.ErrMalformedResponse, path,
		)
	}

	s.xpubs[account] = xpub
	return xpub, nil
}
