package domain

import "errors"

var (
	// ErrDeviceUnavailable is returned when the device can't be reached, is
	// locked or the coin app is not open.
	ErrDeviceUnavailable = errors.New("hardware wallet is not available")
	// ErrDeviceDisconnected is returned when the device connection breaks
	// during an operation.
	ErrDeviceDisconnected = errors.New("hardware wallet disconnected during operation")
	// ErrDeviceRejected is returned when the user refuses a request on the
	// device.
	ErrDeviceRejected = errors.New("request rejected on hardware wallet")
	// ErrUnsupportedFirmware is returned when the device firmware or app does
	// not support the requested operation.
	ErrUnsupportedFirmware = errors.New("unsupported hardware wallet firmware")
	// ErrNetworkFailure is returned when the block explorer can't be reached
	// or answers with an error.
	ErrNetworkFailure = errors.New("block explorer request failed")
	// ErrMalformedResponse is returned when a device or explorer response
	// can't be parsed.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrSigningDeclined is returned when the device refuses or fails to sign
	// a transaction.
	ErrSigningDeclined = errors.New("transaction signing declined")
	// ErrSessionClosed is returned for any request made to a closed session.
	ErrSessionClosed = errors.New("hardware wallet session is closed")
	// ErrVendorMismatch is returned when a signing request built for a vendor
	// is given to another vendor's device.
	ErrVendorMismatch = errors.New("signing request vendor does not match device")
	// ErrNoUtxos ...
	ErrNoUtxos = errors.New("no utxos to spend")
	// ErrInsufficientFunds ...
	ErrInsufficientFunds = errors.New("utxos amount does not cover output")
	// ErrUnknownVendor ...
	ErrUnknownVendor = errors.New("unknown hardware wallet vendor")
	// ErrMissingReferenceTx is returned when a utxo is not completed with its
	// parent transaction.
	ErrMissingReferenceTx = errors.New("utxo is missing its parent transaction")
)
