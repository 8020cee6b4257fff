package application

import (
	"context"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/komodoplatform/hw-kmd-claim/internal/core/domain"
	"github.com/komodoplatform/hw-kmd-claim/pkg/explorer"
	"github.com/komodoplatform/hw-kmd-claim/pkg/stats"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	maxConcurrentTxFetches = 8
	// parent txs are cached for the duration of a discovery pass only.
	txCacheTTL = 10 * time.Minute
)

// Discovery finds the utxos of all the accounts of a hardware wallet.
type Discovery struct {
	walker   *Walker
	explorer explorer.Service
	txCache  *ttlcache.Cache[string, *explorer.Transaction]
}

// NewDiscovery returns a discovery engine walking accounts with the given
// walker and fetching utxos and their parent txs from the given explorer.
func NewDiscovery(walker *Walker, explorerSvc explorer.Service) *Discovery {
	return &Discovery{
		walker:   walker,
		explorer: explorerSvc,
		txCache: ttlcache.New[string, *explorer.Transaction](
			ttlcache.WithTTL[string, *explorer.Transaction](txCacheTTL),
			ttlcache.WithDisableTouchOnHit[string, *explorer.Transaction](),
		),
	}
}

// Run scans accounts 0, 1, 2... and returns the utxos found, each completed
// with its parent tx and the derivation metadata of its address. The scan
// stops at the first account with no used address. Any failure aborts the
// whole pass and no partial result is returned.
func (d *Discovery) Run(ctx context.Context) ([]domain.Utxo, error) {
	defer d.txCache.DeleteAll()

	utxos := make([]domain.Utxo, 0)
	for account := uint32(0); ; account++ {
		addresses, err := d.accountAddresses(ctx, account)
		if err != nil {
			return nil, err
		}
		if len(addresses) == 0 {
			log.Debugf("account %d is unused, discovery completed", account)
			break
		}

		accountUtxos, err := d.accountUtxos(ctx, addresses)
		if err != nil {
			return nil, err
		}
		log.WithFields(log.Fields{
			"account":   account,
			"addresses": len(addresses),
			"utxos":     len(accountUtxos),
		}).Debug("account discovered")

		utxos = append(utxos, accountUtxos...)
	}

	stats.DiscoveredUtxos.Add(float64(len(utxos)))
	return utxos, nil
}

func (d *Discovery) accountAddresses(
	ctx context.Context, account uint32,
) ([]domain.DerivedAddress, error) {
	receive, err := d.walker.Walk(ctx, account, domain.ChainReceive)
	if err != nil {
		return nil, err
	}
	change, err := d.walker.Walk(ctx, account, domain.ChainChange)
	if err != nil {
		return nil, err
	}
	return append(receive, change...), nil
}

func (d *Discovery) accountUtxos(
	ctx context.Context, addresses []domain.DerivedAddress,
) ([]domain.Utxo, error) {
	addressesByStr := make(map[string]domain.DerivedAddress, len(addresses))
	addrs := make([]string, 0, len(addresses))
	for _, a := range addresses {
		addressesByStr[a.Address] = a
		addrs = append(addrs, a.Address)
	}

	unspents, err := d.explorer.GetUtxos(ctx, addrs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrNetworkFailure, err)
	}
	if err := d.fetchParentTxs(ctx, unspents); err != nil {
		return nil, err
	}

	utxos := make([]domain.Utxo, 0, len(unspents))
	for _, u := range unspents {
		addr, ok := addressesByStr[u.Address]
		if !ok {
			return nil, fmt.Errorf(
				"%w: utxo %s:%d has unknown address %s",
				domain.ErrMalformedResponse, u.Txid, u.Vout, u.Address,
			)
		}
		item := d.txCache.Get(u.Txid)
		if item == nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrMissingReferenceTx, u.Txid)
		}

		utxos = append(utxos, domain.Utxo{
			DerivedAddress: addr,
			Txid:           u.Txid,
			Vout:           u.Vout,
			Satoshis:       u.Satoshis,
			RawTx:          u.RawTx,
			Tx:             toReferenceTransaction(item.Value()),
		})
	}
	return utxos, nil
}

// fetchParentTxs fetches once every distinct parent tx of the given utxos
// not already cached.
func (d *Discovery) fetchParentTxs(
	ctx context.Context, unspents []explorer.Utxo,
) error {
	txids := make([]string, 0, len(unspents))
	seen := make(map[string]bool)
	for _, u := range unspents {
		if seen[u.Txid] || d.txCache.Has(u.Txid) {
			continue
		}
		seen[u.Txid] = true
		txids = append(txids, u.Txid)
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentTxFetches)
	for _, txid := range txids {
		txid := txid
		eg.Go(func() error {
			tx, err := d.explorer.GetTransaction(gctx, txid)
			if err != nil {
				return fmt.Errorf("tx %s: %w", txid, err)
			}
			d.txCache.Set(txid, tx, ttlcache.DefaultTTL)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNetworkFailure, err)
	}
	return nil
}

func toReferenceTransaction(tx *explorer.Transaction) *domain.ReferenceTransaction {
	inputs := make([]domain.RefInput, 0, len(tx.Inputs))
	for _, in := range tx.Inputs {
		inputs = append(inputs, domain.RefInput{
			PrevTxid:  in.Txid,
			PrevIndex: in.Vout,
			ScriptSig: in.ScriptSig,
			Sequence:  in.Sequence,
		})
	}
	outputs := make([]domain.RefOutput, 0, len(tx.Outputs))
	for _, out := range tx.Outputs {
		outputs = append(outputs, domain.RefOutput{
			Satoshis:     out.Satoshis,
			ScriptPubKey: out.ScriptPubKey,
		})
	}

	return &domain.ReferenceTransaction{
		Txid:           tx.Txid,
		Version:        tx.Version,
		Locktime:       tx.Locktime,
		VersionGroupID: tx.VersionGroupID,
		ExpiryHeight:   tx.ExpiryHeight,
		Inputs:         inputs,
		Outputs:        outputs,
	}
}
