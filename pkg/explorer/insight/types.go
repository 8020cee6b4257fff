package insight

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/komodoplatform/hw-kmd-claim/pkg/explorer"
	"github.com/komodoplatform/hw-kmd-claim/pkg/wallet"
	"github.com/shopspring/decimal"
)

type addressInfo struct {
	AddrStr               string          `json:"addrStr"`
	Balance               decimal.Decimal `json:"balance"`
	BalanceSat            *int64          `json:"balanceSat"`
	TotalReceived         decimal.Decimal `json:"totalReceived"`
	TotalReceivedSat      *int64          `json:"totalReceivedSat"`
	UnconfirmedBalance    decimal.Decimal `json:"unconfirmedBalance"`
	UnconfirmedBalanceSat *int64          `json:"unconfirmedBalanceSat"`
}

// satoshis prefers the integer amount when the explorer provides it and
// falls back to converting the decimal one.
func satoshis(sats *int64, value decimal.Decimal) int64 {
	if sats != nil {
		return *sats
	}
	return value.Round(8).Shift(8).IntPart()
}

func (a addressInfo) toExplorer() *explorer.AddressInfo {
	balance := satoshis(a.BalanceSat, a.Balance)
	totalReceived := satoshis(a.TotalReceivedSat, a.TotalReceived)
	if balance < 0 {
		balance = 0
	}
	if totalReceived < 0 {
		totalReceived = 0
	}
	return &explorer.AddressInfo{
		Address:            a.AddrStr,
		Balance:            uint64(balance),
		TotalReceived:      uint64(totalReceived),
		UnconfirmedBalance: satoshis(a.UnconfirmedBalanceSat, a.UnconfirmedBalance),
	}
}

type utxo struct {
	Address       string          `json:"address"`
	Txid          string          `json:"txid"`
	Vout          uint32          `json:"vout"`
	ScriptPubKey  string          `json:"scriptPubKey"`
	Amount        decimal.Decimal `json:"amount"`
	Satoshis      *int64          `json:"satoshis"`
	Confirmations int64           `json:"confirmations"`
}

func (u utxo) toExplorer() (explorer.Utxo, error) {
	sats := satoshis(u.Satoshis, u.Amount)
	if sats < 0 {
		return explorer.Utxo{}, fmt.Errorf(
			"%w: negative amount for utxo %s:%d",
			explorer.ErrMalformedResponse, u.Txid, u.Vout,
		)
	}
	return explorer.Utxo{
		Address:       u.Address,
		Txid:          u.Txid,
		Vout:          u.Vout,
		Satoshis:      uint64(sats),
		ScriptPubKey:  u.ScriptPubKey,
		Confirmations: u.Confirmations,
	}, nil
}

type rawTx struct {
	RawTx string `json:"rawtx"`
}

type script struct {
	Hex string `json:"hex"`
}

type vin struct {
	Txid      string `json:"txid"`
	Vout      uint32 `json:"vout"`
	Sequence  uint32 `json:"sequence"`
	ScriptSig script `json:"scriptSig"`
}

type vout struct {
	Value        decimal.Decimal `json:"value"`
	N            uint32          `json:"n"`
	ScriptPubKey script          `json:"scriptPubKey"`
}

type transaction struct {
	Txid           string         `json:"txid"`
	Version        uint32         `json:"version"`
	Locktime       uint32         `json:"locktime"`
	VersionGroupID versionGroupID `json:"nVersionGroupId"`
	ExpiryHeight   uint32         `json:"nExpiryHeight"`
	Vin            []vin          `json:"vin"`
	Vout           []vout         `json:"vout"`
}

// versionGroupID is either serialized as a number or as a hex string,
// depending on the explorer version.
type versionGroupID uint32

func (v *versionGroupID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		if str == "" {
			return nil
		}
		id, err := strconv.ParseUint(strings.TrimPrefix(str, "0x"), 16, 32)
		if err != nil {
			return fmt.Errorf("invalid version group id %q", str)
		}
		*v = versionGroupID(id)
		return nil
	}
	var id uint32
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	*v = versionGroupID(id)
	return nil
}

func (t transaction) toExplorer() (*explorer.Transaction, error) {
	inputs := make([]explorer.TxInput, 0, len(t.Vin))
	for _, in := range t.Vin {
		inputs = append(inputs, explorer.TxInput{
			Txid:      in.Txid,
			Vout:      in.Vout,
			ScriptSig: in.ScriptSig.Hex,
			Sequence:  in.Sequence,
		})
	}

	outputs := make([]explorer.TxOutput, 0, len(t.Vout))
	for _, out := range t.Vout {
		sats, err := wallet.CoinToSatoshis(out.Value.String())
		if err != nil {
			return nil, fmt.Errorf(
				"%w: output %d of tx %s: %s", explorer.ErrMalformedResponse,
				out.N, t.Txid, err,
			)
		}
		outputs = append(outputs, explorer.TxOutput{
			Index:        out.N,
			Satoshis:     sats,
			ScriptPubKey: out.ScriptPubKey.Hex,
		})
	}

	return &explorer.Transaction{
		Txid:           t.Txid,
		Version:        t.Version,
		Locktime:       t.Locktime,
		VersionGroupID: uint32(t.VersionGroupID),
		ExpiryHeight:   t.ExpiryHeight,
		Inputs:         inputs,
		Outputs:        outputs,
	}, nil
}

type statusInfo struct {
	Info struct {
		Version     int64  `json:"version"`
		Blocks      int64  `json:"blocks"`
		Connections int64  `json:"connections"`
		Network     string `json:"network"`
	} `json:"info"`
}

type sendTxRequest struct {
	RawTx string `json:"rawtx"`
}

type sendTxResponse struct {
	Txid string `json:"txid"`
}
