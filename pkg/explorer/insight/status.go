package insight

import (
	"context"
	"net/url"

	"github.com/komodoplatform/hw-kmd-claim/pkg/explorer"
)

func (i *insight) GetInfo(ctx context.Context) (*explorer.Info, error) {
	query := url.Values{}
	query.Set("q", "getInfo")

	var status statusInfo
	if err := i.get(ctx, "status", "status", query, &status); err != nil {
		return nil, err
	}
	return &explorer.Info{
		Version:     status.Info.Version,
		Blocks:      status.Info.Blocks,
		Connections: status.Info.Connections,
		Network:     status.Info.Network,
	}, nil
}
