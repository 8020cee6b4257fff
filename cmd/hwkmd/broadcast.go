package main

import (
	"github.com/urfave/cli/v2"
)

var broadcast = cli.Command{
	Name:  "broadcast",
	Usage: "broadcast a signed transaction",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "txhex",
			Usage:    "the signed transaction in hex format",
			Required: true,
		},
	},
	Action: broadcastAction,
}

func broadcastAction(ctx *cli.Context) error {
	explorerSvc, err := getExplorer()
	if err != nil {
		return err
	}

	txid, err := explorerSvc.BroadcastTransaction(ctx.Context, ctx.String("txhex"))
	if err != nil {
		return err
	}

	printJSON(map[string]string{"txid": txid})
	return nil
}
