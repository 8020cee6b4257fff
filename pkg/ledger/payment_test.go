package ledger

import (
	"bytes"
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	// sapling tx with 1 input and 1 p2pkh output of 1.5 KMD.
	testParentTx = "0400008085202f8901000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f0100000000ffffffff0180d1f008000000001976a9145c1bd648ed23aa5fd50ba52b2457c11e9e80a6a788ac00000000000000000000000000000000000000"
	// double sha256 of testParentTx.
	testParentHash = "e71b5a5c1dd0f0b1027ef07c8140891277b9f3a48d8a11d8aa5a3a02b910da84"
	testP2pkh      = "76a9145c1bd648ed23aa5fd50ba52b2457c11e9e80a6a788ac"
	// 1 output of 1.4998 KMD to testP2pkh.
	testOutputScript = "016083f008000000001976a9145c1bd648ed23aa5fd50ba52b2457c11e9e80a6a788ac"
	testSignedTx     = "0400008085202f8901e71b5a5c1dd0f0b1027ef07c8140891277b9f3a48d8a11d8aa5a3a02b910da84000000002c0930060201010201010121035a784662a4a20a65bf6aab9ae98a6c068a81c52e4b032c0fb5400c706cfccc56ffffffff016083f008000000001976a9145c1bd648ed23aa5fd50ba52b2457c11e9e80a6a788ac00f15365000000000000000000000000000000"
	testLocktime     = 1700000000
)

func TestSplitTransaction(t *testing.T) {
	tx, err := SplitTransaction(testParentTx, false, true)
	require.NoError(t, err)

	require.True(t, tx.IsOverwinter())
	require.Equal(t, "04000080", hex.EncodeToString(tx.Version))
	require.Equal(t, "85202f89", hex.EncodeToString(tx.VersionGroupID))
	require.Len(t, tx.Inputs, 1)
	require.Equal(t, "01000000", hex.EncodeToString(tx.Inputs[0].Prevout[32:]))
	require.Empty(t, tx.Inputs[0].Script)
	require.Equal(t, "ffffffff", hex.EncodeToString(tx.Inputs[0].Sequence))
	require.Len(t, tx.Outputs, 1)
	require.Equal(t, "80d1f00800000000", hex.EncodeToString(tx.Outputs[0].Amount))
	require.Equal(t, testP2pkh, hex.EncodeToString(tx.Outputs[0].Script))
	require.Equal(t, "00000000", hex.EncodeToString(tx.Locktime))
	require.Equal(t, "00000000", hex.EncodeToString(tx.ExpiryHeight))
	require.Equal(t, make([]byte, 11), tx.ExtraData)

	require.Equal(t, testParentTx, hex.EncodeToString(tx.Serialize()))
}

func TestSplitLegacyTransaction(t *testing.T) {
	// version 1 tx, no version group id nor expiry height.
	legacyTx := "01000000" + "01" + hex.EncodeToString(make([]byte, 32)) +
		"00000000" + "00" + "feffffff" + "01" + "0100000000000000" + "19" +
		testP2pkh + "00000000"

	tx, err := SplitTransaction(legacyTx, false, false)
	require.NoError(t, err)
	require.False(t, tx.IsOverwinter())
	require.Empty(t, tx.VersionGroupID)
	require.Empty(t, tx.ExpiryHeight)
	require.Equal(t, legacyTx, hex.EncodeToString(tx.Serialize()))
}

func TestFailingSplitTransaction(t *testing.T) {
	tests := []struct {
		name string
		tx   string
	}{
		{"not hex", "zz"},
		{"empty", ""},
		{"truncated", testParentTx[:100]},
		{"too many inputs", "0400008085202f89ff"},
		{"missing expiry height", testParentTx[:len(testParentTx)-30]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SplitTransaction(tt.tx, false, true)
			require.ErrorIs(t, err, ErrMalformedTransaction)
		})
	}
}

func TestScriptBlocks(t *testing.T) {
	sequence := []byte{0xff, 0xff, 0xff, 0xff}

	blocks := scriptBlocks(nil, sequence)
	require.Equal(t, [][]byte{sequence}, blocks)

	script := bytes.Repeat([]byte{0x01}, 120)
	blocks = scriptBlocks(script, sequence)
	require.Len(t, blocks, 3)
	require.Len(t, blocks[0], 50)
	require.Len(t, blocks[1], 50)
	require.Len(t, blocks[2], 24)
	require.Equal(t, sequence, blocks[2][20:])
}

func TestTrustedInput(t *testing.T) {
	tx, err := SplitTransaction(testParentTx, false, true)
	require.NoError(t, err)

	trusted := getTrustedInputBIP143(tx, 0)
	require.Equal(
		t, testParentHash+"00000000"+"80d1f00800000000",
		hex.EncodeToString(trusted),
	)
}

// signingDevice answers apdus like a device signing every input with a fixed
// signature.
func signingDevice(t *testing.T) func([]byte) ([]byte, error) {
	pubkeyResp := walletPublicKeyResponse(t)
	return func(apdu []byte) ([]byte, error) {
		switch apdu[1] {
		case insGetWalletPublicKey:
			return pubkeyResp, nil
		case insUntrustedHashSign:
			// The empty path only confirms the outputs.
			if apdu[5] == 0x00 {
				return []byte{0x90, 0x00}, nil
			}
			return hex.DecodeString("3106020101020101019000")
		default:
			return []byte{0x90, 0x00}, nil
		}
	}
}

func TestCreatePaymentTransactionNew(t *testing.T) {
	tx, err := SplitTransaction(testParentTx, false, true)
	require.NoError(t, err)

	transport := &mockTransport{handler: signingDevice(t)}
	client := NewClient(transport)

	signedTx, err := client.CreatePaymentTransactionNew(
		context.Background(),
		CreatePaymentTransactionParams{
			Inputs:            []PaymentInput{{Tx: tx, OutputIndex: 0}},
			AssociatedKeysets: []string{"44'/141'/0'/0/0"},
			OutputScriptHex:   testOutputScript,
			Locktime:          testLocktime,
			Additionals:       []string{AdditionalSapling},
			ExpiryHeight:      []byte{0x00, 0x00, 0x00, 0x00},
		},
	)
	require.NoError(t, err)
	require.Equal(t, testSignedTx, signedTx)
	require.Contains(t, signedTx, testCompressedPubkey)

	apdus := transport.apdus
	require.Len(t, apdus, 10)

	type header struct{ ins, p1, p2 byte }
	expected := []header{
		{insGetWalletPublicKey, 0x00, 0x00},
		{insUntrustedHashTxInput, 0x00, 0x05},
		{insUntrustedHashTxInput, 0x80, 0x05},
		{insUntrustedHashTxInput, 0x80, 0x05},
		{insUntrustedHashOutputEnd, 0x80, 0x00},
		{insUntrustedHashSign, 0x00, 0x00},
		{insUntrustedHashTxInput, 0x00, 0x80},
		{insUntrustedHashTxInput, 0x80, 0x80},
		{insUntrustedHashTxInput, 0x80, 0x80},
		{insUntrustedHashSign, 0x00, 0x00},
	}
	for i, h := range expected {
		require.Equal(t, h, header{apdus[i][1], apdus[i][2], apdus[i][3]}, "apdu %d", i)
	}

	// tx header with 1 input.
	require.Equal(t, "0400008085202f8901", hex.EncodeToString(apdus[1][5:]))
	// trusted input with empty script in the first pass.
	require.Equal(
		t, "02"+testParentHash+"00000000"+"80d1f00800000000"+"00",
		hex.EncodeToString(apdus[2][5:]),
	)
	require.Equal(t, "ffffffff", hex.EncodeToString(apdus[3][5:]))
	require.Equal(t, testOutputScript, hex.EncodeToString(apdus[4][5:]))
	// empty path, locktime BE, sighash all, expiry height.
	require.Equal(t, "00006553f1000100000000", hex.EncodeToString(apdus[5][5:]))
	// script of the spent output in the second pass.
	require.Equal(t, testP2pkh+"ffffffff", hex.EncodeToString(apdus[8][5:]))
}

func TestFailingCreatePaymentTransactionNew(t *testing.T) {
	tx, err := SplitTransaction(testParentTx, false, true)
	require.NoError(t, err)

	validParams := func() CreatePaymentTransactionParams {
		return CreatePaymentTransactionParams{
			Inputs:            []PaymentInput{{Tx: tx, OutputIndex: 0}},
			AssociatedKeysets: []string{"44'/141'/0'/0/0"},
			OutputScriptHex:   testOutputScript,
			Locktime:          testLocktime,
			Additionals:       []string{AdditionalSapling},
			ExpiryHeight:      []byte{0x00, 0x00, 0x00, 0x00},
		}
	}

	t.Run("invalid params", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(p *CreatePaymentTransactionParams)
		}{
			{"no inputs", func(p *CreatePaymentTransactionParams) {
				p.Inputs = nil
				p.AssociatedKeysets = nil
			}},
			{"keysets mismatch", func(p *CreatePaymentTransactionParams) {
				p.AssociatedKeysets = append(p.AssociatedKeysets, "44'/141'/0'/0/1")
			}},
			{"output index out of range", func(p *CreatePaymentTransactionParams) {
				p.Inputs[0].OutputIndex = 1
			}},
			{"missing tx", func(p *CreatePaymentTransactionParams) {
				p.Inputs[0].Tx = nil
			}},
			{"invalid output script", func(p *CreatePaymentTransactionParams) {
				p.OutputScriptHex = "zz"
			}},
			{"missing expiry height", func(p *CreatePaymentTransactionParams) {
				p.ExpiryHeight = nil
			}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				transport := &mockTransport{handler: signingDevice(t)}
				params := validParams()
				tt.mutate(&params)

				_, err := NewClient(transport).CreatePaymentTransactionNew(
					context.Background(), params,
				)
				require.Error(t, err)
				require.Empty(t, transport.apdus)
			})
		}
	})

	t.Run("declined by user", func(t *testing.T) {
		sign := signingDevice(t)
		transport := &mockTransport{
			handler: func(apdu []byte) ([]byte, error) {
				if apdu[1] == insUntrustedHashSign {
					return []byte{0x69, 0x85}, nil
				}
				return sign(apdu)
			},
		}

		_, err := NewClient(transport).CreatePaymentTransactionNew(
			context.Background(), validParams(),
		)
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		require.Equal(t, StatusConditionsNotSatisfied, statusErr.Code)
	})
}
