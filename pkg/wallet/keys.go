package wallet

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

// ExtendedPublicKey holds the fields of a BIP32 serialized public key.
type ExtendedPublicKey struct {
	Depth             uint8
	ParentFingerprint uint32
	ChildNumber       uint32
	ChainCode         []byte
	// PublicKey is the compressed 33 bytes public key.
	PublicKey []byte
}

// EncodeExtendedPublicKeyOpts is the struct given to EncodeExtendedPublicKey
type EncodeExtendedPublicKeyOpts struct {
	Depth             uint8
	ParentFingerprint uint32
	ChildNumber       uint32
	ChainCode         []byte
	// PublicKey can be in compressed or uncompressed format, as returned by
	// hardware wallets.
	PublicKey []byte
}

func (o EncodeExtendedPublicKeyOpts) validate() error {
	if len(o.ChainCode) != 32 {
		return ErrInvalidChainCode
	}
	if _, err := btcec.ParsePubKey(o.PublicKey); err != nil {
		return ErrInvalidPublicKey
	}
	return nil
}

// EncodeExtendedPublicKey serializes the given key material into an xpub:
// version(4) || depth(1) || parent fingerprint(4) || child number(4) ||
// chain code(32) || compressed pubkey(33), base58 encoded with a double
// sha256 checksum.
func EncodeExtendedPublicKey(opts EncodeExtendedPublicKeyOpts) (string, error) {
	if err := opts.validate(); err != nil {
		return "", err
	}

	pubkey, _ := btcec.ParsePubKey(opts.PublicKey)
	parentFP := make([]byte, 4)
	binary.BigEndian.PutUint32(parentFP, opts.ParentFingerprint)

	key := hdkeychain.NewExtendedKey(
		KomodoParams.HDPublicKeyID[:],
		pubkey.SerializeCompressed(),
		opts.ChainCode,
		parentFP,
		opts.Depth,
		opts.ChildNumber,
		false,
	)
	return key.String(), nil
}

// DecodeExtendedPublicKey parses a base58 xpub and verifies its checksum.
func DecodeExtendedPublicKey(xpub string) (*ExtendedPublicKey, error) {
	key, err := hdkeychain.NewKeyFromString(xpub)
	if err != nil {
		return nil, err
	}
	if key.IsPrivate() {
		return nil, ErrInvalidExtendedKey
	}
	pubkey, err := key.ECPubKey()
	if err != nil {
		return nil, err
	}

	return &ExtendedPublicKey{
		Depth:             key.Depth(),
		ParentFingerprint: key.ParentFingerprint(),
		ChildNumber:       key.ChildIndex(),
		ChainCode:         key.ChainCode(),
		PublicKey:         pubkey.SerializeCompressed(),
	}, nil
}

// Fingerprint returns the BIP32 fingerprint of a public key, that is the
// first 4 bytes of its hash160.
func Fingerprint(pubkey []byte) (uint32, error) {
	key, err := btcec.ParsePubKey(pubkey)
	if err != nil {
		return 0, ErrInvalidPublicKey
	}
	hash := btcutil.Hash160(key.SerializeCompressed())
	return binary.BigEndian.Uint32(hash[:4]), nil
}

// DeriveAddressFromXpub derives the address at chain/index below the account
// represented by the given xpub. Only unhardened steps can be derived.
func DeriveAddressFromXpub(xpub string, chain, index uint32) (string, error) {
	key, err := hdkeychain.NewKeyFromString(xpub)
	if err != nil {
		return "", err
	}
	if key.IsPrivate() {
		return "", ErrInvalidExtendedKey
	}
	for _, step := range []uint32{chain, index} {
		key, err = key.Derive(step)
		if err != nil {
			return "", err
		}
	}
	addr, err := key.Address(&KomodoParams)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}
