package wallet

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressFromPublicKey(t *testing.T) {
	pubkey, _ := hex.DecodeString(testPubkey)
	key, err := btcec.ParsePubKey(pubkey)
	require.NoError(t, err)

	for _, pk := range [][]byte{pubkey, key.SerializeUncompressed()} {
		address, err := AddressFromPublicKey(pk)
		require.NoError(t, err)
		assert.Equal(t, "RHgDbKKNJGEfX8dwAV7SergtXn3Rdwdi5n", address)
	}

	_, err = AddressFromPublicKey(pubkey[:20])
	assert.Equal(t, ErrInvalidPublicKey, err)
}

func TestPayToAddrScript(t *testing.T) {
	tests := []struct {
		address string
		script  string
	}{
		{
			"RHgDbKKNJGEfX8dwAV7SergtXn3Rdwdi5n",
			"76a9145c1bd648ed23aa5fd50ba52b2457c11e9e80a6a788ac",
		},
		{
			"bM8JD2ma3mpZxy86mySQmzVZGPV1Uqv2we",
			"a9145c1bd648ed23aa5fd50ba52b2457c11e9e80a6a787",
		},
	}

	for _, tt := range tests {
		script, err := PayToAddrScript(tt.address)
		require.NoError(t, err)
		assert.Equal(t, tt.script, hex.EncodeToString(script))
	}
}

func TestFailingDecodeAddress(t *testing.T) {
	tests := []string{
		"",
		// bitcoin mainnet address of the same key
		"19Q2WoS5hSS6T8GjhK8KZLMgmWaq4neXrh",
		// bad checksum
		"RHgDbKKNJGEfX8dwAV7SergtXn3Rdwdi5m",
		// raw public keys are not addresses
		testPubkey,
	}

	for _, address := range tests {
		_, err := DecodeAddress(address)
		assert.ErrorIs(t, err, ErrInvalidAddress)
	}
}
