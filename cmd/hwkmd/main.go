package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/komodoplatform/hw-kmd-claim/internal/config"
	"github.com/komodoplatform/hw-kmd-claim/pkg/stats"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// configLoaded is set once the configuration has been loaded and validated.
var configLoaded bool

var (
	vendorFlag = &cli.StringFlag{
		Name:  "vendor",
		Usage: "the hardware wallet in use, either ledger or trezor",
	}
	ledgerTransportFlag = &cli.StringFlag{
		Name:  "ledger-transport",
		Usage: "how to reach the Ledger device, either primary (websocket bridge) or fallback (http)",
	}
	explorerURLFlag = &cli.StringFlag{
		Name:  "explorer-url",
		Usage: "the insight-api-komodo endpoint to use",
	}
)

func main() {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "hwkmd"
	app.Usage = "Claim KMD funds held by Ledger and Trezor hardware wallets"
	app.Flags = []cli.Flag{vendorFlag, ledgerTransportFlag, explorerURLFlag}
	app.Before = initConfig
	app.After = dumpStats
	app.Commands = append(
		app.Commands,
		&accounts,
		&address,
		&xpub,
		&send,
		&broadcast,
		&device,
	)

	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGTERM, syscall.SIGINT,
	)
	defer cancel()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fatal(err)
	}
}

// initConfig loads the configuration from env and overrides it with the
// global flags given.
func initConfig(ctx *cli.Context) error {
	if err := config.InitConfig(); err != nil {
		return err
	}

	overrides := map[string]string{
		config.VendorKey:          ctx.String(vendorFlag.Name),
		config.LedgerTransportKey: ctx.String(ledgerTransportFlag.Name),
		config.ExplorerURLKey:     ctx.String(explorerURLFlag.Name),
	}
	for key, value := range overrides {
		if value != "" {
			config.Set(key, value)
		}
	}
	if err := config.Validate(); err != nil {
		return err
	}

	log.SetLevel(config.GetLogLevel())
	configLoaded = true
	return nil
}

func dumpStats(_ *cli.Context) error {
	if !configLoaded {
		return nil
	}
	path := config.GetStatsFile()
	if path == "" {
		return nil
	}
	if err := stats.DumpPrometheusDefaults(path); err != nil {
		log.WithError(err).Warn("failed to dump request stats")
	}
	return nil
}

func printJSON(resp interface{}) {
	buf, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		fmt.Println("unable to encode response: ", err)
		return
	}
	fmt.Println(string(buf))
}

func fatal(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "[hwkmd] %v\n", err)
	os.Exit(1)
}
