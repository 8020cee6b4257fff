package domain

import (
	"fmt"
	"strings"
)

// Vendor identifies a hardware wallet manufacturer.
type Vendor string

const (
	VendorLedger Vendor = "ledger"
	VendorTrezor Vendor = "trezor"
)

// ParseVendor returns the vendor matching the given name, case insensitive.
func ParseVendor(name string) (Vendor, error) {
	switch Vendor(strings.ToLower(strings.TrimSpace(name))) {
	case VendorLedger:
		return VendorLedger, nil
	case VendorTrezor:
		return VendorTrezor, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownVendor, name)
	}
}

// DisplayName returns the name of the vendor as shown to users.
func (v Vendor) DisplayName() string {
	switch v {
	case VendorLedger:
		return "Ledger"
	case VendorTrezor:
		return "Trezor"
	default:
		return string(v)
	}
}
