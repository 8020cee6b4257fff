package ledger

import (
	"context"
	"fmt"
)

// WalletPublicKey is the response of a get wallet public key request.
type WalletPublicKey struct {
	// PublicKey is the uncompressed public key.
	PublicKey      []byte
	BitcoinAddress string
	ChainCode      []byte
}

// GetWalletPublicKey returns the public key, the address and the chain code
// for the given derivation path. If verify is true the device displays the
// address and waits for the user to confirm it.
func (c *Client) GetWalletPublicKey(
	ctx context.Context, path string, verify bool,
) (*WalletPublicKey, error) {
	data, err := bip32AsBuffer(path)
	if err != nil {
		return nil, err
	}

	var p1 byte
	if verify {
		p1 = 0x01
	}
	resp, err := c.send(ctx, claBtc, insGetWalletPublicKey, p1, 0x00, data)
	if err != nil {
		return nil, err
	}

	return parseWalletPublicKey(resp)
}

func parseWalletPublicKey(resp []byte) (*WalletPublicKey, error) {
	r := &reader{buf: resp}

	pubkey, err := r.readVarBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %s", ErrMalformedResponse, err)
	}
	address, err := r.readVarBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: address: %s", ErrMalformedResponse, err)
	}
	chainCode, err := r.read(32)
	if err != nil {
		return nil, fmt.Errorf("%w: chain code: %s", ErrMalformedResponse, err)
	}

	return &WalletPublicKey{
		PublicKey:      pubkey,
		BitcoinAddress: string(address),
		ChainCode:      chainCode,
	}, nil
}
