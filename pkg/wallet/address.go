package wallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
)

// AddressFromPublicKey returns the P2PKH address of the given public key in
// compressed or uncompressed format.
func AddressFromPublicKey(pubkey []byte) (string, error) {
	key, err := btcec.ParsePubKey(pubkey)
	if err != nil {
		return "", ErrInvalidPublicKey
	}
	hash := btcutil.Hash160(key.SerializeCompressed())
	addr, err := btcutil.NewAddressPubKeyHash(hash, &KomodoParams)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

// DecodeAddress parses a base58 komodo P2PKH or P2SH address.
func DecodeAddress(addr string) (btcutil.Address, error) {
	decoded, err := btcutil.DecodeAddress(addr, &KomodoParams)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, err)
	}
	switch decoded.(type) {
	case *btcutil.AddressPubKeyHash, *btcutil.AddressScriptHash:
	default:
		return nil, ErrInvalidAddress
	}
	if !decoded.IsForNet(&KomodoParams) {
		return nil, ErrInvalidAddress
	}
	return decoded, nil
}

// PayToAddrScript returns the output script paying to the given address.
func PayToAddrScript(addr string) ([]byte, error) {
	decoded, err := DecodeAddress(addr)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(decoded)
}
