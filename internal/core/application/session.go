package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/komodoplatform/hw-kmd-claim/internal/core/domain"
	"github.com/komodoplatform/hw-kmd-claim/internal/core/ports"
	"github.com/komodoplatform/hw-kmd-claim/pkg/explorer"
	"github.com/komodoplatform/hw-kmd-claim/pkg/stats"
	"github.com/komodoplatform/hw-kmd-claim/pkg/wallet"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/looplab/fsm"
	log "github.com/sirupsen/logrus"
)

const (
	// SessionStateIdle is the state of a session waiting for requests.
	SessionStateIdle = "idle"
	// SessionStateBusy is the state of a session with a device request in
	// flight.
	SessionStateBusy = "busy"
	// SessionStateClosed is the state of a session that released its device.
	SessionStateClosed = "closed"

	sessionEventAcquire = "acquire"
	sessionEventRelease = "release"
	sessionEventClose   = "close"
)

// SessionOpts is the struct given to NewSession.
type SessionOpts struct {
	HardwareWallet ports.HardwareWallet
	Explorer       explorer.Service
	GapLimit       int
	// DeriveOnHost makes discovery fetch the xpub of every account and derive
	// addresses locally instead of asking them one by one to the device.
	DeriveOnHost bool
	Clock        clock.Clock
}

func (o SessionOpts) validate() error {
	if o.HardwareWallet == nil {
		return fmt.Errorf("missing hardware wallet")
	}
	if o.Explorer == nil {
		return fmt.Errorf("missing explorer service")
	}
	if o.GapLimit < 0 {
		return fmt.Errorf("gap limit must not be negative")
	}
	return nil
}

// DiscoveryResult is the outcome of a discovery pass, stamped with the epoch
// of the session it started in.
type DiscoveryResult struct {
	Epoch string
	Utxos []domain.Utxo
}

// SignedTransaction is a transaction signed by the device, stamped with the
// epoch of the session it started in.
type SignedTransaction struct {
	Epoch string
	TxHex string
}

// Session holds the hardware wallet chosen by the user and serializes the
// requests made to it. The vendor can't change for the lifetime of the
// session.
//
// Reset starts a new epoch: requests in flight are not aborted, but their
// results carry the old epoch and IsCurrent lets callers discard them.
type Session struct {
	hw        ports.HardwareWallet
	builder   ports.TransactionBuilder
	discovery *Discovery

	lock  *sync.Mutex
	state *fsm.FSM

	epochLock *sync.RWMutex
	epoch     string
}

// NewSession returns an idle session for the given hardware wallet.
func NewSession(opts SessionOpts) (*Session, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	builder, err := NewTransactionBuilder(opts.HardwareWallet.Vendor(), opts.Clock)
	if err != nil {
		return nil, err
	}

	var source ports.AddressSource
	if opts.DeriveOnHost {
		source = NewHostAddressSource(opts.HardwareWallet)
	} else {
		source = NewDeviceAddressSource(opts.HardwareWallet)
	}
	walker := NewWalker(source, opts.Explorer, opts.GapLimit)

	return &Session{
		hw:        opts.HardwareWallet,
		builder:   builder,
		discovery: NewDiscovery(walker, opts.Explorer),
		lock:      &sync.Mutex{},
		state:     newSessionFSM(),
		epochLock: &sync.RWMutex{},
		epoch:     uuid.New().String(),
	}, nil
}

func newSessionFSM() *fsm.FSM {
	return fsm.NewFSM(
		SessionStateIdle,
		fsm.Events{
			{
				Name: sessionEventAcquire,
				Src:  []string{SessionStateIdle},
				Dst:  SessionStateBusy,
			},
			{
				Name: sessionEventRelease,
				Src:  []string{SessionStateBusy},
				Dst:  SessionStateIdle,
			},
			{
				Name: sessionEventClose,
				Src:  []string{SessionStateIdle, SessionStateBusy},
				Dst:  SessionStateClosed,
			},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Tracef("session: %s -> %s", e.Src, e.Dst)
			},
		},
	)
}

// Vendor returns the vendor of the session hardware wallet.
func (s *Session) Vendor() domain.Vendor {
	return s.hw.Vendor()
}

// State returns one of idle, busy or closed.
func (s *Session) State() string {
	return s.state.Current()
}

// Epoch returns the current epoch of the session.
func (s *Session) Epoch() string {
	s.epochLock.RLock()
	defer s.epochLock.RUnlock()
	return s.epoch
}

// IsCurrent returns whether the given epoch is the current one.
func (s *Session) IsCurrent(epoch string) bool {
	return s.Epoch() == epoch
}

// Reset starts a new epoch and returns it.
func (s *Session) Reset() string {
	s.epochLock.Lock()
	defer s.epochLock.Unlock()

	s.epoch = uuid.New().String()
	log.Debugf("session: reset, new epoch %s", s.epoch)
	return s.epoch
}

// IsAvailable returns whether the device is ready to answer requests.
func (s *Session) IsAvailable(ctx context.Context) bool {
	var available bool
	_ = s.do(ctx, "is_available", func() error {
		available = s.hw.IsAvailable(ctx)
		return nil
	})
	return available
}

// DeriveAddress returns the address at the given position. If verify is set
// the device shows it to the user.
func (s *Session) DeriveAddress(
	ctx context.Context, account uint32, chain domain.Chain, index uint32,
	verify bool,
) (string, error) {
	path := wallet.NewAddressPath(account, uint32(chain), index).String()

	var addr string
	err := s.do(ctx, "derive_address", func() (err error) {
		addr, err = s.hw.DeriveAddress(ctx, path, verify)
		return
	})
	return addr, err
}

// DeriveExtendedPublicKey returns the xpub of the given account.
func (s *Session) DeriveExtendedPublicKey(
	ctx context.Context, account uint32,
) (string, error) {
	path := wallet.NewAccountPath(account).String()

	var xpub string
	err := s.do(ctx, "derive_xpub", func() (err error) {
		xpub, err = s.hw.DeriveExtendedPublicKey(ctx, path)
		return
	})
	return xpub, err
}

// Discover runs a discovery pass over all the accounts of the device.
func (s *Session) Discover(ctx context.Context) (*DiscoveryResult, error) {
	epoch := s.Epoch()

	var utxos []domain.Utxo
	err := s.do(ctx, "discover", func() (err error) {
		utxos, err = s.discovery.Run(ctx)
		return
	})
	if err != nil {
		return nil, err
	}
	return &DiscoveryResult{Epoch: epoch, Utxos: utxos}, nil
}

// CreateTransaction builds the request to spend the given utxos to the
// destination and has the device sign it. The difference between the utxos
// amount and the destination amount is the fee.
func (s *Session) CreateTransaction(
	ctx context.Context, utxos []domain.Utxo, dest domain.Destination,
) (*SignedTransaction, error) {
	epoch := s.Epoch()

	req, err := s.builder.Build(utxos, dest)
	if err != nil {
		return nil, err
	}
	if req.Vendor() != s.hw.Vendor() {
		return nil, fmt.Errorf(
			"%w: request for %s, device is %s",
			domain.ErrVendorMismatch, req.Vendor(), s.hw.Vendor(),
		)
	}

	var txHex string
	err = s.do(ctx, "sign_transaction", func() (err error) {
		txHex, err = s.hw.SignTransaction(ctx, req)
		return
	})
	if err != nil {
		return nil, err
	}
	if txHex == "" {
		return nil, domain.ErrSigningDeclined
	}
	return &SignedTransaction{Epoch: epoch, TxHex: txHex}, nil
}

// ProbeFirmware returns the firmware info of the device, for vendors
// supporting it.
func (s *Session) ProbeFirmware(ctx context.Context) (*ports.FirmwareInfo, error) {
	prober, ok := s.hw.(ports.FirmwareProber)
	if !ok {
		return nil, fmt.Errorf(
			"%w: firmware probing not supported by %s",
			domain.ErrUnsupportedFirmware, s.hw.Vendor().DisplayName(),
		)
	}

	var info *ports.FirmwareInfo
	err := s.do(ctx, "probe_firmware", func() (err error) {
		info, err = prober.ProbeFirmware(ctx)
		return
	})
	return info, err
}

// Close waits for the request in flight, if any, and releases the device.
// Any following request fails with domain.ErrSessionClosed.
func (s *Session) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.state.Event(context.Background(), sessionEventClose); err != nil {
		if s.state.Is(SessionStateClosed) {
			return nil
		}
		return err
	}
	return s.hw.Close()
}

// do runs the given device operation with exclusive access to the device.
func (s *Session) do(ctx context.Context, operation string, fn func() error) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.state.Event(ctx, sessionEventAcquire); err != nil {
		if s.state.Is(SessionStateClosed) {
			return domain.ErrSessionClosed
		}
		return err
	}
	defer func() {
		if err := s.state.Event(context.Background(), sessionEventRelease); err != nil {
			log.WithError(err).Warn("session: failed to release device")
		}
	}()

	err := fn()
	stats.DeviceRequests.WithLabelValues(
		string(s.hw.Vendor()), operation, stats.Outcome(err),
	).Inc()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Debugf("session: %s failed", operation)
	}
	return err
}
