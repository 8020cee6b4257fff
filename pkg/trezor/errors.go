package trezor

import "errors"

var (
	// ErrConnectionFailed is returned when the bridge can't be reached.
	ErrConnectionFailed = errors.New("cannot connect to trezor bridge")
	// ErrDisconnected is returned when the connection with the bridge breaks
	// during a request.
	ErrDisconnected = errors.New("trezor bridge disconnected")
	// ErrClientClosed ...
	ErrClientClosed = errors.New("trezor client is closed")
	// ErrMalformedResponse ...
	ErrMalformedResponse = errors.New("malformed trezor bridge response")
)
