package application

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/wire"
	"github.com/komodoplatform/hw-kmd-claim/internal/core/domain"
	"github.com/komodoplatform/hw-kmd-claim/internal/core/ports"
	"github.com/komodoplatform/hw-kmd-claim/pkg/ledger"
	"github.com/komodoplatform/hw-kmd-claim/pkg/wallet"
	"github.com/lightningnetwork/lnd/clock"
)

const scriptTypePayToAddress = "PAYTOADDRESS"

// NewTransactionBuilder returns the builder of signing requests for the
// given vendor. Locktimes are computed from the given clock.
func NewTransactionBuilder(
	vendor domain.Vendor, clk clock.Clock,
) (ports.TransactionBuilder, error) {
	if clk == nil {
		clk = clock.NewDefaultClock()
	}

	switch vendor {
	case domain.VendorLedger:
		return &ledgerTxBuilder{clk}, nil
	case domain.VendorTrezor:
		return &trezorTxBuilder{clk}, nil
	default:
		return nil, fmt.Errorf("%w %q", domain.ErrUnknownVendor, vendor)
	}
}

func validateBuildArgs(utxos []domain.Utxo, dest domain.Destination) error {
	if len(utxos) <= 0 {
		return domain.ErrNoUtxos
	}
	if _, err := wallet.DecodeAddress(dest.Address); err != nil {
		return err
	}
	if dest.Satoshis == 0 {
		return fmt.Errorf("%w: output amount must be positive", wallet.ErrInvalidAmount)
	}
	if total := domain.TotalSatoshis(utxos); dest.Satoshis > total {
		return fmt.Errorf(
			"%w: output %d, available %d",
			domain.ErrInsufficientFunds, dest.Satoshis, total,
		)
	}
	return nil
}

type ledgerTxBuilder struct {
	clock clock.Clock
}

func (b *ledgerTxBuilder) Vendor() domain.Vendor {
	return domain.VendorLedger
}

func (b *ledgerTxBuilder) Build(
	utxos []domain.Utxo, dest domain.Destination,
) (domain.SigningRequest, error) {
	if err := validateBuildArgs(utxos, dest); err != nil {
		return nil, err
	}

	inputs := make([]domain.LedgerInput, 0, len(utxos))
	keysets := make([]string, 0, len(utxos))
	for _, u := range utxos {
		if u.RawTx == "" {
			return nil, fmt.Errorf("%w: %s", domain.ErrMissingReferenceTx, u.Key())
		}
		inputs = append(inputs, domain.LedgerInput{
			RawTx:       u.RawTx,
			OutputIndex: u.Vout,
		})
		keysets = append(keysets, u.DerivationPath())
	}

	outputScript, err := serializeOutputs(dest)
	if err != nil {
		return nil, err
	}

	return &domain.LedgerSigningRequest{
		Inputs:            inputs,
		AssociatedKeysets: keysets,
		OutputScript:      outputScript,
		Locktime:          wallet.Locktime(b.clock.Now()),
		Additionals:       []string{ledger.AdditionalSapling},
		ExpiryHeight:      []byte{0x00, 0x00, 0x00, 0x00},
	}, nil
}

// serializeOutputs returns the hex of the outputs section of a tx paying the
// given destination.
func serializeOutputs(dest domain.Destination) (string, error) {
	script, err := wallet.PayToAddrScript(dest.Address)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := wire.WriteVarInt(&buf, 0, 1); err != nil {
		return "", err
	}
	if err := wire.WriteTxOut(
		&buf, 0, 0, wire.NewTxOut(int64(dest.Satoshis), script),
	); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

type trezorTxBuilder struct {
	clock clock.Clock
}

func (b *trezorTxBuilder) Vendor() domain.Vendor {
	return domain.VendorTrezor
}

func (b *trezorTxBuilder) Build(
	utxos []domain.Utxo, dest domain.Destination,
) (domain.SigningRequest, error) {
	if err := validateBuildArgs(utxos, dest); err != nil {
		return nil, err
	}

	branchID, err := wallet.ConsensusBranchID(wallet.SaplingTxVersion)
	if err != nil {
		return nil, err
	}

	inputs := make([]domain.TrezorInput, 0, len(utxos))
	for _, u := range utxos {
		inputs = append(inputs, domain.TrezorInput{
			AddressN:  []uint32(u.Path()),
			PrevHash:  u.Txid,
			PrevIndex: u.Vout,
			Amount:    strconv.FormatUint(u.Satoshis, 10),
		})
	}

	refTxs, err := buildRefTxs(utxos)
	if err != nil {
		return nil, err
	}

	return &domain.TrezorSigningRequest{
		Coin:           wallet.CoinName,
		Version:        wallet.SaplingTxVersion,
		VersionGroupID: wallet.SaplingVersionGroupID,
		BranchID:       branchID,
		Locktime:       wallet.Locktime(b.clock.Now()),
		Push:           false,
		Inputs:         inputs,
		Outputs: []domain.TrezorOutput{{
			Address:    dest.Address,
			Amount:     strconv.FormatUint(dest.Satoshis, 10),
			ScriptType: scriptTypePayToAddress,
		}},
		RefTxs: refTxs,
	}, nil
}

// buildRefTxs returns one reference tx per distinct parent tx of the given
// utxos, in order of first appearance.
func buildRefTxs(utxos []domain.Utxo) ([]domain.TrezorRefTx, error) {
	refTxs := make([]domain.TrezorRefTx, 0, len(utxos))
	seen := make(map[string]bool)

	for _, u := range utxos {
		if u.Tx == nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrMissingReferenceTx, u.Key())
		}
		if seen[u.Txid] {
			continue
		}
		seen[u.Txid] = true

		branchID, err := wallet.ConsensusBranchID(u.Tx.Version)
		if err != nil {
			return nil, fmt.Errorf("parent tx %s: %w", u.Txid, err)
		}

		inputs := make([]domain.TrezorRefInput, 0, len(u.Tx.Inputs))
		for _, in := range u.Tx.Inputs {
			inputs = append(inputs, domain.TrezorRefInput{
				PrevHash:  in.PrevTxid,
				PrevIndex: in.PrevIndex,
				ScriptSig: in.ScriptSig,
				Sequence:  in.Sequence,
			})
		}
		outputs := make([]domain.TrezorRefOutput, 0, len(u.Tx.Outputs))
		for _, out := range u.Tx.Outputs {
			outputs = append(outputs, domain.TrezorRefOutput{
				Amount:       out.Satoshis,
				ScriptPubKey: out.ScriptPubKey,
			})
		}

		refTxs = append(refTxs, domain.TrezorRefTx{
			Hash:           u.Txid,
			Inputs:         inputs,
			BinOutputs:     outputs,
			Version:        u.Tx.Version,
			LockTime:       u.Tx.Locktime,
			VersionGroupID: u.Tx.VersionGroupID,
			BranchID:       branchID,
			ExtraData:      wallet.SaplingExtraData,
			Expiry:         u.Tx.ExpiryHeight,
		})
	}
	return refTxs, nil
}
