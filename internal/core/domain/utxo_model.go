package domain

import "fmt"

// RefInput is an input of a reference (parent) transaction.
type RefInput struct {
	PrevTxid  string
	PrevIndex uint32
	ScriptSig string
	Sequence  uint32
}

// RefOutput is an output of a reference (parent) transaction.
type RefOutput struct {
	Satoshis     uint64
	ScriptPubKey string
}

// ReferenceTransaction is the decoded parent transaction of a utxo. Trezor
// devices need it to verify the amounts of the inputs being spent.
type ReferenceTransaction struct {
	Txid           string
	Version        uint32
	Locktime       uint32
	VersionGroupID uint32
	ExpiryHeight   uint32
	Inputs         []RefInput
	Outputs        []RefOutput
}

// Utxo is a spendable output owned by the hardware wallet, completed with the
// derivation metadata of its address and with its parent transaction in both
// raw and decoded form.
type Utxo struct {
	DerivedAddress
	Txid     string
	Vout     uint32
	Satoshis uint64
	RawTx    string
	Tx       *ReferenceTransaction
}

// Key returns the outpoint of the utxo in the form txid:vout.
func (u Utxo) Key() string {
	return fmt.Sprintf("%s:%d", u.Txid, u.Vout)
}

// Destination is the single output of a claim transaction.
type Destination struct {
	Address  string
	Satoshis uint64
}

// TotalSatoshis returns the sum of the amounts of the given utxos.
func TotalSatoshis(utxos []Utxo) uint64 {
	var total uint64
	for _, u := range utxos {
		total += u.Satoshis
	}
	return total
}
