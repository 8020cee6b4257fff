package wallet

import (
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip32"
	"pgregory.net/rapid"
)

// BIP32 test vector 1, chain m/0H.
const (
	testXpub        = "xpub68Gmy5EdvgibQVfPdqkBBCHxA5htiqg55crXYuXoQRKfDBFA1WEjWgP6LHhwBZeNK1VTsfTFUHCdrfp1bgwQ9xv5ski8PX9rL2dZXvgGDnw"
	testChainCode   = "47fdacbd0f1097043b78c63c20c34ef4ed9a111d980047ad16282c7ae6236141"
	testPubkey      = "035a784662a4a20a65bf6aab9ae98a6c068a81c52e4b032c0fb5400c706cfccc56"
	testParentFP    = 0x3442193e
	testFingerprint = 0x5c1bd648
)

func TestEncodeExtendedPublicKey(t *testing.T) {
	chainCode, _ := hex.DecodeString(testChainCode)
	pubkey, _ := hex.DecodeString(testPubkey)

	key, err := btcec.ParsePubKey(pubkey)
	require.NoError(t, err)

	tests := []struct {
		name   string
		pubkey []byte
	}{
		{"compressed", pubkey},
		{"uncompressed", key.SerializeUncompressed()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			xpub, err := EncodeExtendedPublicKey(EncodeExtendedPublicKeyOpts{
				Depth:             1,
				ParentFingerprint: testParentFP,
				ChildNumber:       hdkeychain.HardenedKeyStart,
				ChainCode:         chainCode,
				PublicKey:         tt.pubkey,
			})
			require.NoError(t, err)
			assert.Equal(t, testXpub, xpub)
		})
	}
}

func TestFailingEncodeExtendedPublicKey(t *testing.T) {
	chainCode, _ := hex.DecodeString(testChainCode)
	pubkey, _ := hex.DecodeString(testPubkey)

	tests := []struct {
		opts EncodeExtendedPublicKeyOpts
		err  error
	}{
		{
			opts: EncodeExtendedPublicKeyOpts{ChainCode: chainCode[:31], PublicKey: pubkey},
			err:  ErrInvalidChainCode,
		},
		{
			opts: EncodeExtendedPublicKeyOpts{ChainCode: chainCode, PublicKey: pubkey[:32]},
			err:  ErrInvalidPublicKey,
		},
		{
			opts: EncodeExtendedPublicKeyOpts{ChainCode: chainCode},
			err:  ErrInvalidPublicKey,
		},
	}

	for _, tt := range tests {
		_, err := EncodeExtendedPublicKey(tt.opts)
		assert.Equal(t, tt.err, err)
	}
}

func TestDecodeExtendedPublicKey(t *testing.T) {
	key, err := DecodeExtendedPublicKey(testXpub)
	require.NoError(t, err)

	assert.Equal(t, uint8(1), key.Depth)
	assert.Equal(t, uint32(testParentFP), key.ParentFingerprint)
	assert.Equal(t, uint32(hdkeychain.HardenedKeyStart), key.ChildNumber)
	assert.Equal(t, testChainCode, hex.EncodeToString(key.ChainCode))
	assert.Equal(t, testPubkey, hex.EncodeToString(key.PublicKey))

	// Flipping the last character breaks the checksum.
	corrupted := testXpub[:len(testXpub)-1] + "x"
	_, err = DecodeExtendedPublicKey(corrupted)
	assert.Error(t, err)
}

func TestExtendedPublicKeyRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		secret := rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "secret")
		chainCode := rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "chainCode")
		depth := rapid.Uint8().Draw(t, "depth")
		child := rapid.Uint32().Draw(t, "child")
		parentFP := rapid.Uint32().Draw(t, "parentFP")

		_, pubkey := btcec.PrivKeyFromBytes(secret)
		if pubkey == nil || !pubkey.IsOnCurve() {
			t.Skip("invalid key")
		}

		xpub, err := EncodeExtendedPublicKey(EncodeExtendedPublicKeyOpts{
			Depth:             depth,
			ParentFingerprint: parentFP,
			ChildNumber:       child,
			ChainCode:         chainCode,
			PublicKey:         pubkey.SerializeUncompressed(),
		})
		if err != nil {
			t.Fatal(err)
		}

		key, err := DecodeExtendedPublicKey(xpub)
		if err != nil {
			t.Fatal(err)
		}
		if key.Depth != depth || key.ChildNumber != child ||
			key.ParentFingerprint != parentFP {
			t.Fatalf("header mismatch for %s", xpub)
		}
		if hex.EncodeToString(key.ChainCode) != hex.EncodeToString(chainCode) {
			t.Fatalf("chain code mismatch for %s", xpub)
		}
		if hex.EncodeToString(key.PublicKey) !=
			hex.EncodeToString(pubkey.SerializeCompressed()) {
			t.Fatalf("pubkey mismatch for %s", xpub)
		}
	})
}

func TestExtendedPublicKeyCompatibility(t *testing.T) {
	chainCode, _ := hex.DecodeString(testChainCode)
	pubkey, _ := hex.DecodeString(testPubkey)

	xpub, err := EncodeExtendedPublicKey(EncodeExtendedPublicKeyOpts{
		Depth:             1,
		ParentFingerprint: testParentFP,
		ChildNumber:       hdkeychain.HardenedKeyStart,
		ChainCode:         chainCode,
		PublicKey:         pubkey,
	})
	require.NoError(t, err)

	key, err := bip32.B58Deserialize(xpub)
	require.NoError(t, err)
	assert.False(t, key.IsPrivate)
	assert.Equal(t, byte(1), key.Depth)
	assert.Equal(t, uint32(testParentFP), binary.BigEndian.Uint32(key.FingerPrint))
	assert.Equal(t, uint32(hdkeychain.HardenedKeyStart), binary.BigEndian.Uint32(key.ChildNumber))
	assert.Equal(t, chainCode, key.ChainCode)
	assert.Equal(t, pubkey, key.Key)
}

func TestFingerprint(t *testing.T) {
	pubkey, _ := hex.DecodeString(testPubkey)

	fp, err := Fingerprint(pubkey)
	require.NoError(t, err)
	assert.Equal(t, uint32(testFingerprint), fp)

	_, err = Fingerprint(pubkey[1:])
	assert.Equal(t, ErrInvalidPublicKey, err)
}

func TestDeriveAddressFromXpub(t *testing.T) {
	tests := []struct {
		chain   uint32
		index   uint32
		address string
	}{
		{ExternalChain, 0, "RLCsxBkr1KhKQSTLr6FNEPGJ8pxd3xAvh2"},
		{ExternalChain, 1, "RKHeQBkVMKsuU6nDDcWc3e2YeKcMeEhPAx"},
		{InternalChain, 0, "RSN3j7V31QiMNTqzqfQMK7yNpQgRvqvog1"},
	}

	for _, tt := range tests {
		address, err := DeriveAddressFromXpub(testXpub, tt.chain, tt.index)
		require.NoError(t, err)
		assert.Equal(t, tt.address, address)
	}

	_, err := DeriveAddressFromXpub(testXpub, h, 0)
	assert.Error(t, err)
}
