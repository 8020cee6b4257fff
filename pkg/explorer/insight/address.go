package insight

import (
	"context"
	"fmt"
	"net/url"

	"github.com/komodoplatform/hw-kmd-claim/pkg/explorer"
)

func (i *insight) GetAddressInfo(
	ctx context.Context, address string,
) (*explorer.AddressInfo, error) {
	query := url.Values{}
	query.Set("noTxList", "1")

	var info addressInfo
	path := fmt.Sprintf("addr/%s/", url.PathEscape(address))
	if err := i.get(ctx, "addr", path, query, &info); err != nil {
		return nil, err
	}
	if info.AddrStr == "" {
		info.AddrStr = address
	}
	return info.toExplorer(), nil
}
