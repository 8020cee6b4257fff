package main

import (
	"errors"
	"fmt"

	"github.com/komodoplatform/hw-kmd-claim/internal/core/domain"
	"github.com/komodoplatform/hw-kmd-claim/pkg/wallet"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var errTxNotCreated = errors.New("transaction not created")

var send = cli.Command{
	Name:  "send",
	Usage: "spend the funds of the hardware wallet to an address",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "address",
			Usage:    "the destination address",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "amount",
			Usage: "the amount in KMD to send. If omitted, the whole balance minus the fee is sent",
		},
		&cli.IntFlag{
			Name:  "account",
			Usage: "spend only the utxos of the given account, all accounts if negative",
			Value: -1,
		},
		&cli.BoolFlag{
			Name:  "broadcast",
			Usage: "broadcast the signed transaction",
		},
	},
	Action: sendAction,
}

func sendAction(ctx *cli.Context) error {
	session, explorerSvc, cleanup, err := getSession()
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := session.Discover(ctx.Context)
	if err != nil {
		log.WithError(err).Debug("discovery failed")
		return fmt.Errorf("%w: %s", errNoAccounts, err)
	}

	utxos := filterAccount(result.Utxos, ctx.Int("account"))
	if len(utxos) == 0 {
		return errNoAccounts
	}

	dest, err := claimDestination(utxos, ctx.String("address"), ctx.String("amount"))
	if err != nil {
		return err
	}

	signed, err := session.CreateTransaction(ctx.Context, utxos, dest)
	if err != nil {
		log.WithError(err).Debug("signing failed")
		return fmt.Errorf("%w: %s", errTxNotCreated, err)
	}
	if !session.IsCurrent(signed.Epoch) {
		return errTxNotCreated
	}

	resp := map[string]string{"txhex": signed.TxHex}
	if ctx.Bool("broadcast") {
		txid, err := explorerSvc.BroadcastTransaction(ctx.Context, signed.TxHex)
		if err != nil {
			return err
		}
		resp["txid"] = txid
	}

	printJSON(resp)
	return nil
}

func filterAccount(utxos []domain.Utxo, account int) []domain.Utxo {
	if account < 0 {
		return utxos
	}
	filtered := make([]domain.Utxo, 0, len(utxos))
	for _, u := range utxos {
		if u.Account == uint32(account) {
			filtered = append(filtered, u)
		}
	}
	return filtered
}

// claimDestination returns the output spending the given utxos. If amount is
// empty the whole balance minus the default fee is sent, otherwise the given
// amount, in KMD, must leave room for the fee.
func claimDestination(
	utxos []domain.Utxo, address, amount string,
) (domain.Destination, error) {
	total := domain.TotalSatoshis(utxos)
	fee := uint64(wallet.DefaultTxFee)

	if amount == "" {
		if total <= fee {
			return domain.Destination{}, fmt.Errorf(
				"%w and fee %d: balance %s KMD", domain.ErrInsufficientFunds, fee,
				wallet.SatoshisToCoin(total),
			)
		}
		return domain.Destination{Address: address, Satoshis: total - fee}, nil
	}

	sats, err := wallet.CoinToSatoshis(amount)
	if err != nil {
		return domain.Destination{}, err
	}
	if sats == 0 {
		return domain.Destination{}, fmt.Errorf("amount must be greater than zero")
	}
	if sats+fee > total {
		return domain.Destination{}, fmt.Errorf(
			"%w and fee %d: balance %s KMD", domain.ErrInsufficientFunds, fee,
			wallet.SatoshisToCoin(total),
		)
	}
	return domain.Destination{Address: address, Satoshis: sats}, nil
}
