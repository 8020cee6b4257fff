package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/komodoplatform/hw-kmd-claim/internal/core/domain"
	ledgerhw "github.com/komodoplatform/hw-kmd-claim/internal/infrastructure/hw/ledger"
	"github.com/komodoplatform/hw-kmd-claim/pkg/explorer/insight"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestInitConfig(t *testing.T) {
	datadir := filepath.Join(t.TempDir(), "hwkmd")
	t.Setenv("HWKMD_DATADIR", datadir)

	err := InitConfig()
	require.NoError(t, err)

	require.DirExists(t, datadir)
	require.Equal(t, datadir, GetDatadir())
	require.Equal(t, insight.DefaultAPIURL, GetString(ExplorerURLKey))
	require.Equal(t, 5, GetInt(ExplorerRateLimitKey))
	require.Equal(t, domain.VendorLedger, GetVendor())
	require.Equal(t, ledgerhw.TransportPrimary, GetLedgerTransport())
	require.Equal(t, DefaultLedgerBridgeURL, GetString(LedgerBridgeURLKey))
	require.Equal(t, DefaultTrezorBridgeURL, GetString(TrezorBridgeURLKey))
	require.Equal(t, 20, GetInt(GapLimitKey))
	require.Equal(t, 30*time.Second, GetDuration(RequestTimeoutKey))
	require.Equal(t, ledgerhw.DefaultProbeInterval, GetDuration(ProbeIntervalKey))
	require.Equal(t, ledgerhw.DefaultProbeTimeout, GetDuration(ProbeTimeoutKey))
	require.False(t, GetBool(DeriveOnHostKey))
	require.Equal(t, log.InfoLevel, GetLogLevel())
	require.Empty(t, GetStatsFile())
}

func TestInitConfigFromEnv(t *testing.T) {
	datadir := t.TempDir()
	env := map[string]string{
		"HWKMD_DATADIR":          datadir,
		"HWKMD_VENDOR":           "Trezor",
		"HWKMD_LEDGER_TRANSPORT": "fallback",
		"HWKMD_GAP_LIMIT":        "5",
		"HWKMD_REQUEST_TIMEOUT":  "10s",
		"HWKMD_PROBE_INTERVAL":   "500ms",
		"HWKMD_PROBE_TIMEOUT":    "1m",
		"HWKMD_DERIVE_ON_HOST":   "true",
		"HWKMD_LOG_LEVEL":        "5",
		"HWKMD_STATS_FILE":       "stats.txt",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	err := InitConfig()
	require.NoError(t, err)

	require.Equal(t, domain.VendorTrezor, GetVendor())
	require.Equal(t, ledgerhw.TransportFallback, GetLedgerTransport())
	require.Equal(t, 5, GetInt(GapLimitKey))
	require.Equal(t, 10*time.Second, GetDuration(RequestTimeoutKey))
	require.Equal(t, 500*time.Millisecond, GetDuration(ProbeIntervalKey))
	require.Equal(t, time.Minute, GetDuration(ProbeTimeoutKey))
	require.True(t, GetBool(DeriveOnHostKey))
	require.Equal(t, log.DebugLevel, GetLogLevel())
	require.Equal(t, filepath.Join(datadir, "stats.txt"), GetStatsFile())

	abs := filepath.Join(os.TempDir(), "hwkmd-stats.txt")
	Set(StatsFileKey, abs)
	require.Equal(t, abs, GetStatsFile())
}

func TestFailingInitConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "unknown vendor",
			env:  map[string]string{"HWKMD_VENDOR": "keepkey"},
		},
		{
			name: "unknown ledger transport",
			env:  map[string]string{"HWKMD_LEDGER_TRANSPORT": "webusb"},
		},
		{
			name: "zero gap limit",
			env:  map[string]string{"HWKMD_GAP_LIMIT": "0"},
		},
		{
			name: "negative rate limit",
			env:  map[string]string{"HWKMD_EXPLORER_RATE_LIMIT": "-1"},
		},
		{
			name: "zero request timeout",
			env:  map[string]string{"HWKMD_REQUEST_TIMEOUT": "0s"},
		},
		{
			name: "probe interval exceeding timeout",
			env: map[string]string{
				"HWKMD_PROBE_INTERVAL": "2m",
				"HWKMD_PROBE_TIMEOUT":  "1m",
			},
		},
		{
			name: "log level out of range",
			env:  map[string]string{"HWKMD_LOG_LEVEL": "7"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HWKMD_DATADIR", t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			err := InitConfig()
			require.Error(t, err)
		})
	}
}

func TestValidateOverrides(t *testing.T) {
	t.Setenv("HWKMD_DATADIR", t.TempDir())
	require.NoError(t, InitConfig())

	Set(VendorKey, "trezor")
	require.NoError(t, Validate())

	Set(TrezorBridgeURLKey, "")
	require.Error(t, Validate())

	Set(VendorKey, "ledger")
	Set(LedgerTransportKey, "fallback")
	Set(LedgerHTTPURLKey, "")
	require.Error(t, Validate())

	Set(LedgerTransportKey, "primary")
	require.NoError(t, Validate())
}
