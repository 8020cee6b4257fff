package main

import (
	"fmt"

	"github.com/komodoplatform/hw-kmd-claim/internal/config"
	"github.com/komodoplatform/hw-kmd-claim/internal/core/application"
	"github.com/komodoplatform/hw-kmd-claim/internal/core/domain"
	"github.com/komodoplatform/hw-kmd-claim/internal/core/ports"
	ledgerhw "github.com/komodoplatform/hw-kmd-claim/internal/infrastructure/hw/ledger"
	trezorhw "github.com/komodoplatform/hw-kmd-claim/internal/infrastructure/hw/trezor"
	"github.com/komodoplatform/hw-kmd-claim/pkg/explorer"
	"github.com/komodoplatform/hw-kmd-claim/pkg/explorer/insight"
	log "github.com/sirupsen/logrus"
)

func getExplorer() (explorer.Service, error) {
	return insight.NewService(insight.ServiceOpts{
		APIURL:            config.GetString(config.ExplorerURLKey),
		RequestsPerSecond: config.GetInt(config.ExplorerRateLimitKey),
		Timeout:           config.GetDuration(config.RequestTimeoutKey),
	})
}

func getHardwareWallet() (ports.HardwareWallet, error) {
	switch vendor := config.GetVendor(); vendor {
	case domain.VendorLedger:
		open, err := ledgerhw.NewOpener(ledgerhw.OpenerOpts{
			Kind:           config.GetLedgerTransport(),
			BridgeURL:      config.GetString(config.LedgerBridgeURLKey),
			HTTPURL:        config.GetString(config.LedgerHTTPURLKey),
			RequestTimeout: config.GetDuration(config.RequestTimeoutKey),
		})
		if err != nil {
			return nil, err
		}
		return ledgerhw.NewService(open, ledgerhw.ProbeOpts{
			Interval: config.GetDuration(config.ProbeIntervalKey),
			Timeout:  config.GetDuration(config.ProbeTimeoutKey),
		})
	case domain.VendorTrezor:
		return trezorhw.NewService(config.GetString(config.TrezorBridgeURLKey))
	default:
		return nil, fmt.Errorf("%w %q", domain.ErrUnknownVendor, vendor)
	}
}

// getSession returns a session for the configured device along with the
// explorer it uses. The returned cleanup func releases the device.
func getSession() (*application.Session, explorer.Service, func(), error) {
	explorerSvc, err := getExplorer()
	if err != nil {
		return nil, nil, nil, err
	}
	hw, err := getHardwareWallet()
	if err != nil {
		return nil, nil, nil, err
	}

	session, err := application.NewSession(application.SessionOpts{
		HardwareWallet: hw,
		Explorer:       explorerSvc,
		GapLimit:       config.GetInt(config.GapLimitKey),
		DeriveOnHost:   config.GetBool(config.DeriveOnHostKey),
	})
	if err != nil {
		hw.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := session.Close(); err != nil {
			log.WithError(err).Warn("failed to release device")
		}
	}
	return session, explorerSvc, cleanup, nil
}
