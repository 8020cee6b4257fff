package main

import (
	"fmt"

	"github.com/komodoplatform/hw-kmd-claim/internal/core/domain"
	"github.com/komodoplatform/hw-kmd-claim/pkg/wallet"
	"github.com/urfave/cli/v2"
)

var accountFlag = &cli.UintFlag{
	Name:  "account",
	Usage: "the index of the account",
}

var address = cli.Command{
	Name:  "address",
	Usage: "derive an address of the hardware wallet",
	Flags: []cli.Flag{
		accountFlag,
		&cli.BoolFlag{
			Name:  "change",
			Usage: "derive from the change branch instead of the receiving one",
		},
		&cli.UintFlag{
			Name:  "index",
			Usage: "the index of the address in the branch",
		},
		&cli.BoolFlag{
			Name:  "verify",
			Usage: "show the address on the device for confirmation",
		},
	},
	Action: addressAction,
}

var xpub = cli.Command{
	Name:   "xpub",
	Usage:  "get the extended public key of an account of the hardware wallet",
	Flags:  []cli.Flag{accountFlag},
	Action: xpubAction,
}

func addressAction(ctx *cli.Context) error {
	session, _, cleanup, err := getSession()
	if err != nil {
		return err
	}
	defer cleanup()

	account := uint32(ctx.Uint("account"))
	index := uint32(ctx.Uint("index"))
	chain := domain.ChainReceive
	if ctx.Bool("change") {
		chain = domain.ChainChange
	}

	addr, err := session.DeriveAddress(
		ctx.Context, account, chain, index, ctx.Bool("verify"),
	)
	if err != nil {
		return err
	}
	if addr == "" {
		return fmt.Errorf("no address returned by the device")
	}

	printJSON(map[string]string{
		"address": addr,
		"path":    wallet.NewAddressPath(account, uint32(chain), index).AbsoluteString(),
	})
	return nil
}

func xpubAction(ctx *cli.Context) error {
	session, _, cleanup, err := getSession()
	if err != nil {
		return err
	}
	defer cleanup()

	account := uint32(ctx.Uint("account"))
	key, err := session.DeriveExtendedPublicKey(ctx.Context, account)
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("no extended public key returned by the device")
	}

	printJSON(map[string]string{
		"xpub": key,
		"path": wallet.NewAccountPath(account).AbsoluteString(),
	})
	return nil
}
