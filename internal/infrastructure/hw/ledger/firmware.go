package ledgerhw

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/komodoplatform/hw-kmd-claim/internal/core/domain"
	"github.com/komodoplatform/hw-kmd-claim/internal/core/ports"
	"github.com/komodoplatform/hw-kmd-claim/pkg/ledger"
	"github.com/lightningnetwork/lnd/clock"
	log "github.com/sirupsen/logrus"
)

const (
	// AppName is the name of the Ledger app signing komodo transactions.
	AppName = "Komodo"

	DefaultProbeInterval = time.Second
	DefaultProbeTimeout  = 2 * time.Minute
)

// ProbeOpts bounds the firmware probe. The device is polled every Interval
// until it answers or Timeout expires.
type ProbeOpts struct {
	Interval time.Duration
	Timeout  time.Duration
	Clock    clock.Clock
}

func (o ProbeOpts) withDefaults() ProbeOpts {
	if o.Interval == 0 {
		o.Interval = DefaultProbeInterval
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultProbeTimeout
	}
	if o.Clock == nil {
		o.Clock = clock.NewDefaultClock()
	}
	return o
}

func (o ProbeOpts) validate() error {
	if o.Interval < 0 {
		return fmt.Errorf("probe interval must not be negative")
	}
	if o.Timeout < 0 {
		return fmt.Errorf("probe timeout must not be negative")
	}
	if o.Interval > o.Timeout {
		return fmt.Errorf("probe interval must not exceed probe timeout")
	}
	return nil
}

// ProbeFirmware waits for the device to show its dashboard to read the
// firmware versions, then for the Komodo app to be opened to read its
// version. The transport is kept open between polls and reopened if the
// device disconnects, ie. while switching from the dashboard to the app.
//
// If the timeout expires before the Komodo app is open the error wraps
// domain.ErrUnsupportedFirmware, or domain.ErrDeviceUnavailable if not even
// the firmware versions could be read.
func (s *service) ProbeFirmware(ctx context.Context) (*ports.FirmwareInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.probe.Timeout)
	defer cancel()

	p := &prober{open: s.open}
	defer p.close()

	var device *ledger.DeviceInfo
	err := s.poll(ctx, func() (done bool, err error) {
		c, err := p.client(ctx)
		if err != nil {
			return false, err
		}
		device, err = c.GetDeviceInfo(ctx)
		return err == nil, err
	}, p)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: firmware version not readable: %w", domain.ErrDeviceUnavailable, err,
		)
	}
	log.WithFields(log.Fields{
		"target": fmt.Sprintf("0x%08x", device.TargetID),
		"se":     device.SeVersion,
		"mcu":    device.McuVersion,
	}).Debug("ledger: firmware probed")

	var app *ledger.AppInfo
	err = s.poll(ctx, func() (done bool, err error) {
		c, err := p.client(ctx)
		if err != nil {
			return false, err
		}
		app, err = c.GetAppAndVersion(ctx)
		if err != nil {
			return false, err
		}
		if app.Name != AppName {
			return false, fmt.Errorf("app %q is open", app.Name)
		}
		return true, nil
	}, p)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: %s app not open: %w", domain.ErrUnsupportedFirmware, AppName, err,
		)
	}

	return &ports.FirmwareInfo{
		McuVersion: device.McuVersion,
		SeVersion:  device.SeVersion,
		TargetID:   device.TargetID,
		AppName:    app.Name,
		AppVersion: app.Version,
	}, nil
}

// poll runs fn every probe interval until it's done or ctx expires, in which
// case the last error of fn is returned along with the ctx one.
func (s *service) poll(
	ctx context.Context, fn func() (bool, error), p *prober,
) error {
	var lastErr error
	for {
		done, err := fn()
		if done {
			return nil
		}
		lastErr = err
		if errors.Is(err, ledger.ErrDisconnected) ||
			errors.Is(err, ledger.ErrTransportClosed) {
			p.close()
		}
		log.WithError(err).Trace("ledger: probe attempt failed")

		select {
		case <-ctx.Done():
			if lastErr == nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w (last error: %s)", ctx.Err(), lastErr)
		case <-s.probe.Clock.TickAfter(s.probe.Interval):
		}
	}
}

// prober keeps a transport open across polls.
type prober struct {
	open      Opener
	transport ledger.Transport
}

func (p *prober) client(ctx context.Context) (*ledger.Client, error) {
	if p.transport == nil {
		transport, err := p.open(ctx)
		if err != nil {
			return nil, err
		}
		p.transport = transport
	}
	return ledger.NewClient(p.transport), nil
}

func (p *prober) close() {
	if p.transport == nil {
		return
	}
	if err := p.transport.Close(); err != nil {
		log.WithError(err).Warn("ledger: failed to close transport")
	}
	p.transport = nil
}
