package ledger

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	log "github.com/sirupsen/logrus"
)

const (
	// SigHashAll is the only sighash type used for claim transactions.
	SigHashAll byte = 0x01

	maxScriptBlock  = 50
	defaultSequence = 0xffffffff
)

var (
	saplingVersionGroupID    = []byte{0x85, 0x20, 0x2f, 0x89}
	overwinterVersionGroupID = []byte{0x70, 0x82, 0xc4, 0x03}
)

// PaymentInput is an output of a split transaction to be spent.
type PaymentInput struct {
	Tx          *Transaction
	OutputIndex uint32
}

// CreatePaymentTransactionParams are the arguments of
// CreatePaymentTransactionNew.
type CreatePaymentTransactionParams struct {
	Inputs []PaymentInput
	// AssociatedKeysets are the derivation paths of the keys signing the
	// inputs, in the same order.
	AssociatedKeysets []string
	// OutputScriptHex is the serialized list of outputs of the new tx.
	OutputScriptHex string
	Locktime        uint32
	SigHashType     byte
	Additionals     []string
	// ExpiryHeight is the 4 bytes expiry height of the overwinter or sapling
	// tx. Only overwinter and sapling transactions are supported.
	ExpiryHeight []byte
}

func (p CreatePaymentTransactionParams) validate() error {
	if len(p.Inputs) <= 0 || len(p.Inputs) != len(p.AssociatedKeysets) {
		return ErrInvalidInputs
	}
	for i, in := range p.Inputs {
		if in.Tx == nil {
			return fmt.Errorf("%w: missing tx for input %d", ErrInvalidInputs, i)
		}
		if int(in.OutputIndex) >= len(in.Tx.Outputs) {
			return fmt.Errorf("%w: input %d", ErrInvalidOutputIndex, i)
		}
	}
	if _, err := hex.DecodeString(p.OutputScriptHex); err != nil {
		return fmt.Errorf("invalid output script: %w", err)
	}
	if len(p.ExpiryHeight) != 4 {
		return fmt.Errorf("expiry height must be 4 bytes")
	}
	return nil
}

func (p CreatePaymentTransactionParams) isSapling() bool {
	for _, a := range p.Additionals {
		if a == AdditionalSapling {
			return true
		}
	}
	return false
}

type trustedInput struct {
	value []byte
}

// CreatePaymentTransactionNew builds and signs a transaction spending the
// given inputs to the outputs of the given script. Every input is signed by
// the device with the key at the associated derivation path; the user must
// confirm the outputs on the device.
// It returns the hex of the signed transaction.
func (c *Client) CreatePaymentTransactionNew(
	ctx context.Context, params CreatePaymentTransactionParams,
) (string, error) {
	if err := params.validate(); err != nil {
		return "", err
	}
	if params.SigHashType == 0 {
		params.SigHashType = SigHashAll
	}
	outputScript, _ := hex.DecodeString(params.OutputScriptHex)
	sapling := params.isSapling()

	target := newTargetTransaction(len(params.Inputs), params.ExpiryHeight, sapling)

	trustedInputs := make([]trustedInput, 0, len(params.Inputs))
	regularOutputs := make([]TxOutput, 0, len(params.Inputs))
	for _, in := range params.Inputs {
		trustedInputs = append(trustedInputs, trustedInput{
			value: getTrustedInputBIP143(in.Tx, in.OutputIndex),
		})
		regularOutputs = append(regularOutputs, in.Tx.Outputs[in.OutputIndex])
	}

	publicKeys := make([][]byte, 0, len(params.Inputs))
	for _, path := range params.AssociatedKeysets {
		key, err := c.GetWalletPublicKey(ctx, path, false)
		if err != nil {
			return "", err
		}
		pubkey, err := btcec.ParsePubKey(key.PublicKey)
		if err != nil {
			return "", fmt.Errorf("%w: public key for %s", ErrMalformedResponse, path)
		}
		publicKeys = append(publicKeys, pubkey.SerializeCompressed())
	}

	// First pass: hash all inputs with empty scripts and the outputs, then
	// let the user confirm them.
	if err := c.startUntrustedHashTransactionInput(
		ctx, true, target, trustedInputs, sapling,
	); err != nil {
		return "", err
	}
	if err := c.hashOutputFull(ctx, outputScript); err != nil {
		return "", err
	}
	if _, err := c.signTransaction(
		ctx, "", params.Locktime, params.SigHashType, params.ExpiryHeight,
	); err != nil {
		return "", err
	}

	// Second pass: sign every input on its own with the script of the output
	// it spends.
	signatures := make([][]byte, 0, len(params.Inputs))
	for i := range params.Inputs {
		pseudoTx := &Transaction{
			Version:        target.Version,
			VersionGroupID: target.VersionGroupID,
			Inputs: []TxInput{{
				Prevout:  target.Inputs[i].Prevout,
				Script:   regularOutputs[i].Script,
				Sequence: target.Inputs[i].Sequence,
			}},
		}
		if err := c.startUntrustedHashTransactionInput(
			ctx, false, pseudoTx, trustedInputs[i:i+1], sapling,
		); err != nil {
			return "", err
		}

		signature, err := c.signTransaction(
			ctx, params.AssociatedKeysets[i], params.Locktime,
			params.SigHashType, params.ExpiryHeight,
		)
		if err != nil {
			return "", err
		}
		log.Debugf("ledger: signed input %d/%d", i+1, len(params.Inputs))
		signatures = append(signatures, signature)
	}

	for i := range target.Inputs {
		script := make([]byte, 0, 2+len(signatures[i])+len(publicKeys[i]))
		script = append(script, byte(len(signatures[i])))
		script = append(script, signatures[i]...)
		script = append(script, byte(len(publicKeys[i])))
		script = append(script, publicKeys[i]...)

		target.Inputs[i].Script = script
		target.Inputs[i].Prevout = trustedInputs[i].value[:36]
	}

	locktime := make([]byte, 4)
	binary.LittleEndian.PutUint32(locktime, params.Locktime)

	var buf bytes.Buffer
	buf.Write(target.serializeHeader())
	target.writeInputs(&buf)
	buf.Write(outputScript)
	buf.Write(locktime)
	buf.Write(target.ExpiryHeight)
	buf.Write(target.ExtraData)

	return hex.EncodeToString(buf.Bytes()), nil
}

// newTargetTransaction returns the skeleton of the tx to sign, with null
// prevouts and empty scripts.
func newTargetTransaction(
	numInputs int, expiryHeight []byte, sapling bool,
) *Transaction {
	version := make([]byte, 4)
	tx := &Transaction{
		Version:      version,
		ExpiryHeight: expiryHeight,
	}
	if sapling {
		binary.LittleEndian.PutUint32(version, 0x80000004)
		tx.VersionGroupID = saplingVersionGroupID
		tx.ExtraData = make([]byte, 11)
	} else {
		binary.LittleEndian.PutUint32(version, 0x80000003)
		tx.VersionGroupID = overwinterVersionGroupID
		tx.ExtraData = []byte{0x00}
	}

	sequence := make([]byte, 4)
	binary.LittleEndian.PutUint32(sequence, defaultSequence)
	for i := 0; i < numInputs; i++ {
		tx.Inputs = append(tx.Inputs, TxInput{
			Prevout:  make([]byte, 36),
			Script:   []byte{},
			Sequence: sequence,
		})
	}
	return tx
}

// getTrustedInputBIP143 computes on host the input reference used by BIP143
// style signing: txid(32) || output index(4 LE) || amount(8 LE).
func getTrustedInputBIP143(tx *Transaction, index uint32) []byte {
	hash := chainhash.DoubleHashB(tx.Serialize())

	value := make([]byte, 0, 44)
	value = append(value, hash...)
	value = binary.LittleEndian.AppendUint32(value, index)
	value = append(value, tx.Outputs[index].Amount...)
	return value
}

func (c *Client) startUntrustedHashTransactionInput(
	ctx context.Context, newTransaction bool, tx *Transaction,
	inputs []trustedInput, sapling bool,
) error {
	var header bytes.Buffer
	header.Write(tx.serializeHeader())
	_ = wire.WriteVarInt(&header, 0, uint64(len(tx.Inputs)))

	if err := c.startUntrustedHashTransactionInputRaw(
		ctx, newTransaction, true, header.Bytes(), sapling,
	); err != nil {
		return err
	}

	for i, in := range tx.Inputs {
		var data bytes.Buffer
		data.WriteByte(0x02)
		data.Write(inputs[i].value)
		_ = wire.WriteVarInt(&data, 0, uint64(len(in.Script)))
		if err := c.startUntrustedHashTransactionInputRaw(
			ctx, newTransaction, false, data.Bytes(), sapling,
		); err != nil {
			return err
		}

		for _, block := range scriptBlocks(in.Script, in.Sequence) {
			if err := c.startUntrustedHashTransactionInputRaw(
				ctx, newTransaction, false, block, sapling,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

// scriptBlocks splits a script in chunks of at most 50 bytes, the sequence
// is appended to the last one.
func scriptBlocks(script, sequence []byte) [][]byte {
	if len(script) == 0 {
		return [][]byte{sequence}
	}

	blocks := make([][]byte, 0, len(script)/maxScriptBlock+1)
	for offset := 0; offset < len(script); offset += maxScriptBlock {
		end := offset + maxScriptBlock
		if end >= len(script) {
			end = len(script)
			block := make([]byte, 0, end-offset+len(sequence))
			block = append(block, script[offset:end]...)
			block = append(block, sequence...)
			blocks = append(blocks, block)
			break
		}
		blocks = append(blocks, script[offset:end])
	}
	return blocks
}

func (c *Client) startUntrustedHashTransactionInputRaw(
	ctx context.Context, newTransaction, firstRound bool, data []byte,
	sapling bool,
) error {
	var p1, p2 byte = 0x80, 0x80
	if firstRound {
		p1 = 0x00
	}
	if newTransaction {
		p2 = 0x04
		if sapling {
			p2 = 0x05
		}
	}
	_, err := c.send(ctx, claBtc, insUntrustedHashTxInput, p1, p2, data)
	return err
}

func (c *Client) hashOutputFull(ctx context.Context, outputScript []byte) error {
	for offset := 0; offset < len(outputScript); offset += maxScriptBlock {
		end := offset + maxScriptBlock
		var p1 byte = 0x00
		if end >= len(outputScript) {
			end = len(outputScript)
			p1 = 0x80
		}
		if _, err := c.send(
			ctx, claBtc, insUntrustedHashOutputEnd, p1, 0x00,
			outputScript[offset:end],
		); err != nil {
			return err
		}
	}
	return nil
}

// signTransaction signs the hashed tx with the key at the given path. An
// empty path asks the device to confirm the outputs without signing.
func (c *Client) signTransaction(
	ctx context.Context, path string, locktime uint32, sigHashType byte,
	expiryHeight []byte,
) ([]byte, error) {
	pathBuf, err := bip32AsBuffer(path)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, len(pathBuf)+10)
	data = append(data, pathBuf...)
	data = append(data, 0x00)
	data = binary.BigEndian.AppendUint32(data, locktime)
	data = append(data, sigHashType)
	data = append(data, expiryHeight...)

	resp, err := c.send(ctx, claBtc, insUntrustedHashSign, 0x00, 0x00, data)
	if err != nil {
		return nil, err
	}
	if len(resp) > 0 {
		resp[0] = 0x30
	}
	return resp, nil
}
