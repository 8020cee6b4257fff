package explorer

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the explorer does not know the requested
	// address or transaction.
	ErrNotFound = errors.New("resource not found")
	// ErrUnexpectedStatus is returned for any non 2xx response.
	ErrUnexpectedStatus = errors.New("unexpected response status")
	// ErrMalformedResponse is returned when the response body can't be decoded.
	ErrMalformedResponse = errors.New("malformed response body")
)

// AddressInfo is the funding state of an address. Amounts are in satoshis.
type AddressInfo struct {
	Address            string
	Balance            uint64
	TotalReceived      uint64
	UnconfirmedBalance int64
}

// IsUsed returns whether the address ever received funds, confirmed or not.
func (i AddressInfo) IsUsed() bool {
	return i.TotalReceived > 0 || i.UnconfirmedBalance != 0
}

// Utxo is an unspent output with the raw hex of the transaction that created
// it.
type Utxo struct {
	Address       string
	Txid          string
	Vout          uint32
	Satoshis      uint64
	ScriptPubKey  string
	Confirmations int64
	RawTx         string
}

// TxInput is an input of a decoded transaction.
type TxInput struct {
	Txid      string
	Vout      uint32
	ScriptSig string
	Sequence  uint32
}

// TxOutput is an output of a decoded transaction.
type TxOutput struct {
	Index        uint32
	Satoshis     uint64
	ScriptPubKey string
}

// Transaction is the decoded form of a transaction as returned by the
// explorer.
type Transaction struct {
	Txid           string
	Version        uint32
	Locktime       uint32
	VersionGroupID uint32
	ExpiryHeight   uint32
	Inputs         []TxInput
	Outputs        []TxOutput
}

// Info is the status of the node backing the explorer.
type Info struct {
	Version     int64
	Blocks      int64
	Connections int64
	Network     string
}

// Service is representation of an explorer that allows to fetch data from the
// blockchain and to broadcast transactions.
type Service interface {
	// GetAddressInfo returns the received and unconfirmed amounts of the given
	// address.
	GetAddressInfo(ctx context.Context, address string) (*AddressInfo, error)
	// GetUtxos fetches with a single request the unspents of the given list of
	// addresses, each completed with the hex of its parent transaction.
	GetUtxos(ctx context.Context, addresses []string) ([]Utxo, error)
	// GetTransaction fetches the decoded transaction given its hash.
	GetTransaction(ctx context.Context, txid string) (*Transaction, error)
	// GetRawTransaction fetches the transaction in hex format given its hash.
	GetRawTransaction(ctx context.Context, txid string) (string, error)
	// BroadcastTransaction attempts to add the given tx in hex format to the
	// mempool and returns its tx hash.
	BroadcastTransaction(ctx context.Context, txhex string) (string, error)
	// GetInfo returns info about the node backing the explorer.
	GetInfo(ctx context.Context) (*Info, error)
}
