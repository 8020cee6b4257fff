package insight

import (
	"context"
	"fmt"
	"net/url"

	"github.com/komodoplatform/hw-kmd-claim/pkg/explorer"
)

func (i *insight) GetTransaction(
	ctx context.Context, txid string,
) (*explorer.Transaction, error) {
	var tx transaction
	path := fmt.Sprintf("tx/%s", url.PathEscape(txid))
	if err := i.get(ctx, "tx", path, nil, &tx); err != nil {
		return nil, err
	}
	if tx.Txid == "" {
		tx.Txid = txid
	}
	return tx.toExplorer()
}

func (i *insight) GetRawTransaction(
	ctx context.Context, txid string,
) (string, error) {
	var tx rawTx
	path := fmt.Sprintf("rawtx/%s", url.PathEscape(txid))
	if err := i.get(ctx, "rawtx", path, nil, &tx); err != nil {
		return "", err
	}
	if tx.RawTx == "" {
		return "", fmt.Errorf(
			"%w: missing raw tx for %s", explorer.ErrMalformedResponse, txid,
		)
	}
	return tx.RawTx, nil
}

func (i *insight) BroadcastTransaction(
	ctx context.Context, txhex string,
) (string, error) {
	var resp sendTxResponse
	if err := i.post(
		ctx, "tx/send", "tx/send", sendTxRequest{RawTx: txhex}, &resp,
	); err != nil {
		return "", err
	}
	if resp.Txid == "" {
		return "", fmt.Errorf("%w: missing txid", explorer.ErrMalformedResponse)
	}
	return resp.Txid, nil
}
