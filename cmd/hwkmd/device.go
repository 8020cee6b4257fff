package main

import (
	"errors"
	"fmt"

	"github.com/komodoplatform/hw-kmd-claim/internal/core/domain"
	"github.com/urfave/cli/v2"
)

var device = cli.Command{
	Name:  "device",
	Usage: "check the hardware wallet and, for Ledger, its firmware and app versions",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "firmware",
			Usage: "wait for the device to report its firmware and Komodo app versions",
		},
	},
	Action: deviceAction,
}

type deviceInfo struct {
	Vendor     string `json:"vendor"`
	Available  bool   `json:"available"`
	McuVersion string `json:"mcu_version,omitempty"`
	SeVersion  string `json:"se_version,omitempty"`
	TargetID   string `json:"target_id,omitempty"`
	AppName    string `json:"app_name,omitempty"`
	AppVersion string `json:"app_version,omitempty"`
}

func deviceAction(ctx *cli.Context) error {
	session, _, cleanup, err := getSession()
	if err != nil {
		return err
	}
	defer cleanup()

	resp := deviceInfo{
		Vendor:    session.Vendor().DisplayName(),
		Available: session.IsAvailable(ctx.Context),
	}

	if ctx.Bool("firmware") {
		info, err := session.ProbeFirmware(ctx.Context)
		if err != nil && !errors.Is(err, domain.ErrUnsupportedFirmware) {
			return err
		}
		if info != nil {
			resp.McuVersion = info.McuVersion
			resp.SeVersion = info.SeVersion
			resp.TargetID = fmt.Sprintf("0x%08x", info.TargetID)
			resp.AppName = info.AppName
			resp.AppVersion = info.AppVersion
		}
		if err != nil {
			printJSON(resp)
			return err
		}
	}

	printJSON(resp)
	return nil
}
