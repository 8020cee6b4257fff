package main

import (
	"errors"
	"fmt"

	"github.com/komodoplatform/hw-kmd-claim/internal/core/domain"
	"github.com/komodoplatform/hw-kmd-claim/pkg/wallet"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var errNoAccounts = errors.New("no accounts found, try again")

var accounts = cli.Command{
	Name:   "accounts",
	Usage:  "discover the funded accounts of the hardware wallet",
	Action: accountsAction,
}

type utxoInfo struct {
	Txid    string `json:"txid"`
	Vout    uint32 `json:"vout"`
	Amount  string `json:"amount"`
	Address string `json:"address"`
	Path    string `json:"path"`
}

type accountInfo struct {
	Account      uint32     `json:"account"`
	Balance      string     `json:"balance"`
	ReceiveUtxos int        `json:"receive_utxos"`
	ChangeUtxos  int        `json:"change_utxos"`
	Utxos        []utxoInfo `json:"utxos"`
}

func accountsAction(ctx *cli.Context) error {
	session, _, cleanup, err := getSession()
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := session.Discover(ctx.Context)
	if err != nil {
		log.WithError(err).Debug("discovery failed")
		return fmt.Errorf("%w: %s", errNoAccounts, err)
	}
	if len(result.Utxos) == 0 {
		return errNoAccounts
	}

	summaries := domain.SummarizeAccounts(result.Utxos)
	resp := make([]accountInfo, 0, len(summaries))
	for _, s := range summaries {
		utxos := make([]utxoInfo, 0, len(s.Utxos))
		for _, u := range s.Utxos {
			utxos = append(utxos, utxoInfo{
				Txid:    u.Txid,
				Vout:    u.Vout,
				Amount:  wallet.SatoshisToCoin(u.Satoshis).String(),
				Address: u.Address,
				Path:    u.Path().AbsoluteString(),
			})
		}
		resp = append(resp, accountInfo{
			Account:      s.Account,
			Balance:      wallet.SatoshisToCoin(s.Balance).String(),
			ReceiveUtxos: s.Receive,
			ChangeUtxos:  s.Change,
			Utxos:        utxos,
		})
	}

	printJSON(resp)
	return nil
}
