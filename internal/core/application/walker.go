package application

import (
	"context"
	"fmt"

	"github.com/komodoplatform/hw-kmd-claim/internal/core/domain"
	"github.com/komodoplatform/hw-kmd-claim/internal/core/ports"
	"github.com/komodoplatform/hw-kmd-claim/pkg/explorer"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultGapLimit is the number of consecutive unused addresses after which
// the scan of an account branch stops.
const DefaultGapLimit = 20

// Walker scans the addresses of an account branch until a gap of unused
// addresses is found.
type Walker struct {
	source   ports.AddressSource
	explorer explorer.Service
	gapLimit int
}

// NewWalker returns a walker deriving addresses from the given source and
// checking their funding with the given explorer. A non positive gapLimit
// defaults to DefaultGapLimit.
func NewWalker(
	source ports.AddressSource, explorerSvc explorer.Service, gapLimit int,
) *Walker {
	if gapLimit <= 0 {
		gapLimit = DefaultGapLimit
	}
	return &Walker{source, explorerSvc, gapLimit}
}

// GapLimit returns the gap limit of the walker.
func (w *Walker) GapLimit() int {
	return w.gapLimit
}

// Walk derives the addresses of the given account branch, from index 0, and
// stops once gapLimit consecutive addresses have never received funds,
// confirmed or not. The returned list is the walked one without its last
// gapLimit entries.
//
// Addresses are derived one at a time, while their funding is checked
// concurrently in windows of at most gapLimit addresses. Windows are
// consumed in index order, so the result doesn't depend on the order the
// explorer answers in.
//
// The trim is literal: exactly gapLimit entries are dropped, whatever their
// state. The walk only ends on gapLimit unused addresses in a row, so the
// dropped entries are always that unused run.
func (w *Walker) Walk(
	ctx context.Context, account uint32, chain domain.Chain,
) ([]domain.DerivedAddress, error) {
	logger := log.WithFields(log.Fields{"account": account, "chain": chain})

	var (
		walked []domain.DerivedAddress
		unused int
		index  uint32
	)

	for unused < w.gapLimit {
		// No less than gapLimit-unused addresses are needed to reach the gap.
		size := w.gapLimit - unused
		window := make([]domain.DerivedAddress, 0, size)
		for i := 0; i < size; i++ {
			addr, err := w.source.Address(ctx, account, chain, index)
			if err != nil {
				return nil, err
			}
			window = append(window, domain.DerivedAddress{
				Address: addr,
				Account: account,
				Chain:   chain,
				Index:   index,
			})
			index++
		}

		used, err := w.checkFunding(ctx, window)
		if err != nil {
			return nil, err
		}

		for i, addr := range window {
			walked = append(walked, addr)
			if used[i] {
				unused = 0
			} else {
				unused++
			}
			if unused == w.gapLimit {
				break
			}
		}
		logger.Debugf("walked %d addresses, %d unused in a row", len(walked), unused)
	}

	return walked[:len(walked)-w.gapLimit], nil
}

func (w *Walker) checkFunding(
	ctx context.Context, window []domain.DerivedAddress,
) ([]bool, error) {
	used := make([]bool, len(window))

	eg, gctx := errgroup.WithContext(ctx)
	for i, addr := range window {
		i, addr := i, addr
		eg.Go(func() error {
			info, err := w.explorer.GetAddressInfo(gctx, addr.Address)
			if err != nil {
				return fmt.Errorf("address %s: %w", addr.Address, err)
			}
			used[i] = info.IsUsed()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrNetworkFailure, err)
	}
	return used, nil
}
