package ledger

import "errors"

var (
	// ErrApduTooLong ...
	ErrApduTooLong = errors.New("apdu data exceeds 255 bytes")
	// ErrShortResponse is returned when a response has no status word.
	ErrShortResponse = errors.New("device response is too short")
	// ErrMalformedResponse ...
	ErrMalformedResponse = errors.New("malformed device response")
	// ErrMalformedTransaction is returned when a raw transaction can't be
	// split.
	ErrMalformedTransaction = errors.New("malformed raw transaction")
	// ErrInvalidOutputIndex ...
	ErrInvalidOutputIndex = errors.New("output index out of range")
	// ErrInvalidInputs ...
	ErrInvalidInputs = errors.New("inputs and associated keysets must have the same non-zero length")
	// ErrTransportClosed is returned for exchanges on a closed transport.
	ErrTransportClosed = errors.New("transport is closed")
	// ErrDisconnected is returned when the device connection breaks during
	// an exchange.
	ErrDisconnected = errors.New("device disconnected during operation")
	// ErrBridgeError is returned when the bridge fails to forward an apdu.
	ErrBridgeError = errors.New("bridge error")
)
