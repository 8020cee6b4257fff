package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/komodoplatform/hw-kmd-claim/internal/core/domain"
	ledgerhw "github.com/komodoplatform/hw-kmd-claim/internal/infrastructure/hw/ledger"
	"github.com/komodoplatform/hw-kmd-claim/pkg/explorer/insight"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// ExplorerURLKey is the base url of the insight-api-komodo instance used
	// to look up funds and to broadcast transactions
	ExplorerURLKey = "EXPLORER_URL"
	// ExplorerRateLimitKey caps the number of requests per second made to the
	// explorer. Zero disables throttling
	ExplorerRateLimitKey = "EXPLORER_RATE_LIMIT"
	// VendorKey is the hardware wallet in use, either ledger or trezor
	VendorKey = "VENDOR"
	// LedgerTransportKey selects how APDUs reach the Ledger device: primary
	// for the websocket bridge, fallback for the HTTP endpoint
	LedgerTransportKey = "LEDGER_TRANSPORT"
	// LedgerBridgeURLKey is the url of the websocket APDU bridge
	LedgerBridgeURLKey = "LEDGER_BRIDGE_URL"
	// LedgerHTTPURLKey is the base url of the HTTP APDU endpoint
	LedgerHTTPURLKey = "LEDGER_HTTP_URL"
	// TrezorBridgeURLKey is the url of the Trezor Connect websocket bridge
	TrezorBridgeURLKey = "TREZOR_BRIDGE_URL"
	// GapLimitKey is the number of consecutive unused addresses after which
	// the derivation of a chain stops
	GapLimitKey = "GAP_LIMIT"
	// RequestTimeoutKey is the timeout of every http request
	RequestTimeoutKey = "REQUEST_TIMEOUT"
	// ProbeIntervalKey is the interval between two attempts of reading the
	// Ledger firmware and app versions
	ProbeIntervalKey = "PROBE_INTERVAL"
	// ProbeTimeoutKey bounds the whole Ledger firmware probe
	ProbeTimeoutKey = "PROBE_TIMEOUT"
	// DeriveOnHostKey makes account discovery derive addresses from the
	// account xpub instead of asking the device for each of them
	DeriveOnHostKey = "DERIVE_ON_HOST"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// StatsFileKey is the file, relative to the datadir if not absolute,
	// where request counters are dumped at exit. Empty disables the dump
	StatsFileKey = "STATS_FILE"
	// DatadirKey is the local data directory
	DatadirKey = "DATADIR"

	// DefaultLedgerBridgeURL is where the websocket APDU bridge listens by
	// default.
	DefaultLedgerBridgeURL = "ws://127.0.0.1:8435/ledger"
	// DefaultLedgerHTTPURL is the default address of the HTTP APDU endpoint,
	// ie. the one of a Speculos emulator.
	DefaultLedgerHTTPURL = "http://127.0.0.1:5000"
	// DefaultTrezorBridgeURL is where the Trezor Connect bridge listens by
	// default.
	DefaultTrezorBridgeURL = "ws://127.0.0.1:21326/connect"

	envPrefix = "HWKMD"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("hw-kmd-claim", false)

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix(envPrefix)
	vip.AutomaticEnv()

	vip.SetDefault(ExplorerURLKey, insight.DefaultAPIURL)
	vip.SetDefault(ExplorerRateLimitKey, 5)
	vip.SetDefault(VendorKey, string(domain.VendorLedger))
	vip.SetDefault(LedgerTransportKey, string(ledgerhw.TransportPrimary))
	vip.SetDefault(LedgerBridgeURLKey, DefaultLedgerBridgeURL)
	vip.SetDefault(LedgerHTTPURLKey, DefaultLedgerHTTPURL)
	vip.SetDefault(TrezorBridgeURLKey, DefaultTrezorBridgeURL)
	vip.SetDefault(GapLimitKey, 20)
	vip.SetDefault(RequestTimeoutKey, 30*time.Second)
	vip.SetDefault(ProbeIntervalKey, ledgerhw.DefaultProbeInterval)
	vip.SetDefault(ProbeTimeoutKey, ledgerhw.DefaultProbeTimeout)
	vip.SetDefault(DeriveOnHostKey, false)
	vip.SetDefault(LogLevelKey, int(log.InfoLevel))
	vip.SetDefault(StatsFileKey, "")
	vip.SetDefault(DatadirKey, defaultDatadir)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

// Set overrides the value of the given key, ie. with the one of a command
// line flag.
func Set(key string, value interface{}) {
	vip.Set(key, value)
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func GetVendor() domain.Vendor {
	vendor, _ := domain.ParseVendor(GetString(VendorKey))
	return vendor
}

func GetLedgerTransport() ledgerhw.TransportKind {
	kind, _ := ledgerhw.ParseTransportKind(GetString(LedgerTransportKey))
	return kind
}

func GetLogLevel() log.Level {
	return log.Level(GetInt(LogLevelKey))
}

// GetStatsFile returns the absolute path of the stats file, or an empty
// string if the dump is disabled.
func GetStatsFile() string {
	path := GetString(StatsFileKey)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(GetDatadir(), path)
}

// Validate checks the current configuration, ie. after some values have been
// overridden with Set.
func Validate() error {
	return validate()
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	if GetString(ExplorerURLKey) == "" {
		return fmt.Errorf("missing explorer url")
	}
	if GetInt(ExplorerRateLimitKey) < 0 {
		return fmt.Errorf("%s must not be negative", ExplorerRateLimitKey)
	}

	vendor, err := domain.ParseVendor(GetString(VendorKey))
	if err != nil {
		return err
	}
	switch vendor {
	case domain.VendorLedger:
		kind, err := ledgerhw.ParseTransportKind(GetString(LedgerTransportKey))
		if err != nil {
			return err
		}
		if kind == ledgerhw.TransportPrimary && GetString(LedgerBridgeURLKey) == "" {
			return fmt.Errorf("missing ledger bridge url")
		}
		if kind == ledgerhw.TransportFallback && GetString(LedgerHTTPURLKey) == "" {
			return fmt.Errorf("missing ledger http url")
		}
	case domain.VendorTrezor:
		if GetString(TrezorBridgeURLKey) == "" {
			return fmt.Errorf("missing trezor bridge url")
		}
	}

	if GetInt(GapLimitKey) <= 0 {
		return fmt.Errorf("%s must be greater than zero", GapLimitKey)
	}
	if GetDuration(RequestTimeoutKey) <= 0 {
		return fmt.Errorf("%s must be greater than zero", RequestTimeoutKey)
	}

	interval, timeout := GetDuration(ProbeIntervalKey), GetDuration(ProbeTimeoutKey)
	if interval <= 0 || timeout <= 0 {
		return fmt.Errorf(
			"%s and %s must be greater than zero", ProbeIntervalKey, ProbeTimeoutKey,
		)
	}
	if interval > timeout {
		return fmt.Errorf("%s must not exceed %s", ProbeIntervalKey, ProbeTimeoutKey)
	}

	level := GetInt(LogLevelKey)
	if level < int(log.PanicLevel) || level > int(log.TraceLevel) {
		return fmt.Errorf(
			"%s must be in range [%d, %d]",
			LogLevelKey, log.PanicLevel, log.TraceLevel,
		)
	}

	return nil
}

func initDatadir() error {
	return makeDirectoryIfNotExists(GetDatadir())
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
