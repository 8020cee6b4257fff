package insight

import (
	"context"
	"strings"

	"github.com/komodoplatform/hw-kmd-claim/pkg/explorer"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentRequests bounds the number of raw transactions fetched in
// parallel.
const maxConcurrentRequests = 8

func (i *insight) GetUtxos(
	ctx context.Context, addresses []string,
) ([]explorer.Utxo, error) {
	if len(addresses) <= 0 {
		return nil, nil
	}

	var resp []utxo
	body := map[string]string{"addrs": strings.Join(addresses, ",")}
	if err := i.post(ctx, "addrs/utxo", "addrs/utxo", body, &resp); err != nil {
		return nil, err
	}

	utxos := make([]explorer.Utxo, 0, len(resp))
	txids := make([]string, 0)
	for _, u := range resp {
		unspent, err := u.toExplorer()
		if err != nil {
			return nil, err
		}
		utxos = append(utxos, unspent)
		txids = append(txids, u.Txid)
	}

	rawTxs, err := i.getRawTransactions(ctx, txids)
	if err != nil {
		return nil, err
	}
	for j := range utxos {
		utxos[j].RawTx = rawTxs[utxos[j].Txid]
	}

	return utxos, nil
}

// getRawTransactions fetches the hex of every given transaction once, with a
// bounded number of concurrent requests.
func (i *insight) getRawTransactions(
	ctx context.Context, txids []string,
) (map[string]string, error) {
	unique := make([]string, 0, len(txids))
	seen := make(map[string]struct{})
	for _, txid := range txids {
		if _, ok := seen[txid]; ok {
			continue
		}
		seen[txid] = struct{}{}
		unique = append(unique, txid)
	}

	rawTxs := make([]string, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRequests)
	for j, txid := range unique {
		j, txid := j, txid
		g.Go(func() error {
			rawTx, err := i.GetRawTransaction(gctx, txid)
			if err != nil {
				return err
			}
			rawTxs[j] = rawTx
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make(map[string]string, len(unique))
	for j, txid := range unique {
		result[txid] = rawTxs[j]
	}
	return result, nil
}
