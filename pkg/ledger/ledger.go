// Package ledger implements the subset of the Ledger bitcoin app protocol
// used to derive keys and to sign komodo transactions.
package ledger

import (
	"context"
	"encoding/binary"
	"fmt"
)

// Transport exchanges raw APDUs with a Ledger device. The response includes
// the trailing 2 bytes status word.
type Transport interface {
	Exchange(ctx context.Context, apdu []byte) ([]byte, error)
	Close() error
}

// Status words returned by the device.
const (
	StatusOK                     uint16 = 0x9000
	StatusConditionsNotSatisfied uint16 = 0x6985
	StatusIncorrectData          uint16 = 0x6a80
	StatusInsNotSupported        uint16 = 0x6d00
	StatusClaNotSupported        uint16 = 0x6e00
	StatusAppNotOpen             uint16 = 0x6511
	StatusLocked                 uint16 = 0x6982
)

const (
	claBtc     = 0xe0
	claBolos   = 0xe0
	claGeneric = 0xb0

	insGetDeviceInfo          = 0x01
	insGetAppAndVersion       = 0x01
	insGetWalletPublicKey     = 0x40
	insUntrustedHashTxInput   = 0x44
	insUntrustedHashSign      = 0x48
	insUntrustedHashOutputEnd = 0x4a

	maxApduData = 0xff
)

// StatusError is returned when the device answers with a status word other
// than 0x9000.
type StatusError struct {
	Code uint16
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ledger device: %s (0x%04x)", statusText(e.Code), e.Code)
}

func statusText(code uint16) string {
	switch code {
	case StatusConditionsNotSatisfied:
		return "conditions of use not satisfied"
	case StatusIncorrectData:
		return "incorrect data"
	case StatusInsNotSupported:
		return "instruction not supported"
	case StatusClaNotSupported:
		return "class not supported"
	case StatusAppNotOpen:
		return "app not open"
	case StatusLocked:
		return "device locked"
	default:
		return "unknown status"
	}
}

// Client talks to the bitcoin app of a Ledger device over the given
// transport. A Client does not own the transport.
type Client struct {
	transport Transport
}

// NewClient returns a client using the given transport.
func NewClient(transport Transport) *Client {
	return &Client{transport}
}

// send frames and exchanges a single APDU and returns the response without
// the status word.
func (c *Client) send(
	ctx context.Context, cla, ins, p1, p2 byte, data []byte,
) ([]byte, error) {
	if len(data) > maxApduData {
		return nil, fmt.Errorf("%w: %d bytes", ErrApduTooLong, len(data))
	}

	apdu := make([]byte, 0, 5+len(data))
	apdu = append(apdu, cla, ins, p1, p2, byte(len(data)))
	apdu = append(apdu, data...)

	resp, err := c.transport.Exchange(ctx, apdu)
	if err != nil {
		return nil, err
	}
	if len(resp) < 2 {
		return nil, ErrShortResponse
	}

	sw := binary.BigEndian.Uint16(resp[len(resp)-2:])
	if sw != StatusOK {
		return nil, &StatusError{sw}
	}
	return resp[:len(resp)-2], nil
}
