package ledger

import (
	"context"
	"encoding/binary"
	"fmt"
)

// DeviceInfo describes the firmware of the device. It can only be read while
// the device is on its dashboard.
type DeviceInfo struct {
	TargetID   uint32
	SeVersion  string
	Flags      []byte
	McuVersion string
}

// AppInfo describes the app currently open on the device.
type AppInfo struct {
	Name    string
	Version string
	Flags   []byte
}

// GetDeviceInfo returns the firmware info of the device.
func (c *Client) GetDeviceInfo(ctx context.Context) (*DeviceInfo, error) {
	resp, err := c.send(ctx, claBolos, insGetDeviceInfo, 0x00, 0x00, nil)
	if err != nil {
		return nil, err
	}
	return parseDeviceInfo(resp)
}

func parseDeviceInfo(resp []byte) (*DeviceInfo, error) {
	r := &reader{buf: resp}

	targetID, err := r.read(4)
	if err != nil {
		return nil, fmt.Errorf("%w: target id: %s", ErrMalformedResponse, err)
	}
	seVersion, err := r.readVarBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: se version: %s", ErrMalformedResponse, err)
	}
	flags, err := r.readVarBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: flags: %s", ErrMalformedResponse, err)
	}
	mcuVersion, err := r.readVarBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: mcu version: %s", ErrMalformedResponse, err)
	}
	if n := len(mcuVersion); n > 0 && mcuVersion[n-1] == 0 {
		mcuVersion = mcuVersion[:n-1]
	}

	return &DeviceInfo{
		TargetID:   binary.BigEndian.Uint32(targetID),
		SeVersion:  string(seVersion),
		Flags:      flags,
		McuVersion: string(mcuVersion),
	}, nil
}

// GetAppAndVersion returns name and version of the open app.
func (c *Client) GetAppAndVersion(ctx context.Context) (*AppInfo, error) {
	resp, err := c.send(ctx, claGeneric, insGetAppAndVersion, 0x00, 0x00, nil)
	if err != nil {
		return nil, err
	}
	return parseAppInfo(resp)
}

func parseAppInfo(resp []byte) (*AppInfo, error) {
	r := &reader{buf: resp}

	// format
	if _, err := r.readByte(); err != nil {
		return nil, fmt.Errorf("%w: format: %s", ErrMalformedResponse, err)
	}
	name, err := r.readVarBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: name: %s", ErrMalformedResponse, err)
	}
	version, err := r.readVarBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: version: %s", ErrMalformedResponse, err)
	}
	// Old apps don't return flags.
	flags, _ := r.readVarBytes()

	return &AppInfo{
		Name:    string(name),
		Version: string(version),
		Flags:   flags,
	}, nil
}
