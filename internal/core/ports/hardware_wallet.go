package ports

import (
	"context"

	"github.com/komodoplatform/hw-kmd-claim/internal/core/domain"
)

// HardwareWallet is the set of operations every supported device offers.
// Paths are in the form 44'/141'/account'/chain/index, without the leading m.
type HardwareWallet interface {
	Vendor() domain.Vendor
	// IsAvailable returns whether the device is connected and ready to
	// answer requests.
	IsAvailable(ctx context.Context) bool
	// DeriveAddress returns the address at the given path. If verify is set,
	// the device shows the address to the user for confirmation.
	// An empty address with nil error means the device returned no address.
	DeriveAddress(ctx context.Context, path string, verify bool) (string, error)
	DeriveExtendedPublicKey(ctx context.Context, path string) (string, error)
	// SignTransaction returns the hex of the signed transaction. Requests
	// refused by the user or failed on device side return an error wrapping
	// domain.ErrSigningDeclined.
	SignTransaction(ctx context.Context, req domain.SigningRequest) (string, error)
	Close() error
}

// FirmwareProber reads firmware and app versions of a device.
type FirmwareProber interface {
	ProbeFirmware(ctx context.Context) (*FirmwareInfo, error)
}

// FirmwareInfo holds the firmware versions of a device and the name and
// version of the app open on it.
type FirmwareInfo struct {
	McuVersion string
	SeVersion  string
	TargetID   uint32
	AppName    string
	AppVersion string
}

// AddressSource derives the address at the given position of an account.
type AddressSource interface {
	Address(
		ctx context.Context, account uint32, chain domain.Chain, index uint32,
	) (string, error)
}

// TransactionBuilder turns a set of utxos and a destination into the signing
// request of a specific device vendor.
type TransactionBuilder interface {
	Vendor() domain.Vendor
	Build(
		utxos []domain.Utxo, dest domain.Destination,
	) (domain.SigningRequest, error)
}
