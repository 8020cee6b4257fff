package ledger

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/wire"
)

// AdditionalSapling enables the sapling serialization of the target tx.
const AdditionalSapling = "sapling"

var (
	overwinterVersion = []byte{0x03, 0x00, 0x00, 0x80}
	saplingVersion    = []byte{0x04, 0x00, 0x00, 0x80}
)

// TxInput is an input of a split transaction. Fields keep their wire
// encoding.
type TxInput struct {
	Prevout  []byte
	Script   []byte
	Sequence []byte
}

// TxOutput is an output of a split transaction. Amount is 8 bytes LE.
type TxOutput struct {
	Amount []byte
	Script []byte
}

// Transaction is a transaction split in its wire encoded fields, as expected
// by the device protocol.
type Transaction struct {
	Version        []byte
	Timestamp      []byte
	VersionGroupID []byte
	Inputs         []TxInput
	Outputs        []TxOutput
	Locktime       []byte
	ExpiryHeight   []byte
	ExtraData      []byte
}

// IsOverwinter returns whether the tx uses the overwinter or sapling format.
func (tx *Transaction) IsOverwinter() bool {
	return bytes.Equal(tx.Version, overwinterVersion) ||
		bytes.Equal(tx.Version, saplingVersion)
}

// SplitTransaction parses a raw transaction. Overwinter and sapling txs are
// detected from their version; hasTimestamp expects 4 bytes after the
// version, hasExtraData keeps the trailing bytes after the expiry height
// (ie. the empty shielded section of sapling txs).
func SplitTransaction(
	txHex string, hasTimestamp, hasExtraData bool,
) (*Transaction, error) {
	raw, err := hex.DecodeString(txHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedTransaction, err)
	}

	tx, err := splitTransaction(raw, hasTimestamp, hasExtraData)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedTransaction, err)
	}
	return tx, nil
}

func splitTransaction(
	raw []byte, hasTimestamp, hasExtraData bool,
) (*Transaction, error) {
	r := bytes.NewReader(raw)
	tx := &Transaction{}

	var err error
	if tx.Version, err = readN(r, 4); err != nil {
		return nil, err
	}
	if hasTimestamp {
		if tx.Timestamp, err = readN(r, 4); err != nil {
			return nil, err
		}
	}
	if tx.IsOverwinter() {
		if tx.VersionGroupID, err = readN(r, 4); err != nil {
			return nil, err
		}
	}

	numInputs, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}
	if numInputs > uint64(r.Len()) {
		return nil, fmt.Errorf("invalid number of inputs %d", numInputs)
	}
	for i := uint64(0); i < numInputs; i++ {
		in := TxInput{}
		if in.Prevout, err = readN(r, 36); err != nil {
			return nil, err
		}
		if in.Script, err = readVarBytes(r); err != nil {
			return nil, err
		}
		if in.Sequence, err = readN(r, 4); err != nil {
			return nil, err
		}
		tx.Inputs = append(tx.Inputs, in)
	}

	numOutputs, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}
	if numOutputs > uint64(r.Len()) {
		return nil, fmt.Errorf("invalid number of outputs %d", numOutputs)
	}
	for i := uint64(0); i < numOutputs; i++ {
		out := TxOutput{}
		if out.Amount, err = readN(r, 8); err != nil {
			return nil, err
		}
		if out.Script, err = readVarBytes(r); err != nil {
			return nil, err
		}
		tx.Outputs = append(tx.Outputs, out)
	}

	if tx.Locktime, err = readN(r, 4); err != nil {
		return nil, err
	}
	if tx.IsOverwinter() {
		if tx.ExpiryHeight, err = readN(r, 4); err != nil {
			return nil, err
		}
	}
	if hasExtraData {
		tx.ExtraData, _ = io.ReadAll(r)
	}

	return tx, nil
}

// Serialize returns the wire encoding of the transaction.
func (tx *Transaction) Serialize() []byte {
	var buf bytes.Buffer
	buf.Write(tx.serializeHeader())
	tx.writeInputs(&buf)

	// Errors writing to a bytes.Buffer are always nil.
	_ = wire.WriteVarInt(&buf, 0, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		buf.Write(out.Amount)
		_ = wire.WriteVarBytes(&buf, 0, out.Script)
	}

	buf.Write(tx.Locktime)
	buf.Write(tx.ExpiryHeight)
	buf.Write(tx.ExtraData)
	return buf.Bytes()
}

// serializeHeader returns version || timestamp || version group id.
func (tx *Transaction) serializeHeader() []byte {
	header := make([]byte, 0, 12)
	header = append(header, tx.Version...)
	header = append(header, tx.Timestamp...)
	header = append(header, tx.VersionGroupID...)
	return header
}

func (tx *Transaction) writeInputs(buf *bytes.Buffer) {
	_ = wire.WriteVarInt(buf, 0, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		buf.Write(in.Prevout)
		_ = wire.WriteVarBytes(buf, 0, in.Script)
		buf.Write(in.Sequence)
	}
}

func readN(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func readVarBytes(r *bytes.Reader) ([]byte, error) {
	n, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}
	if n > uint64(r.Len()) {
		return nil, fmt.Errorf("script length %d exceeds tx size", n)
	}
	return readN(r, int(n))
}
