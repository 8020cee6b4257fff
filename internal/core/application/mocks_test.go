package application_test

import (
	"context"
	"fmt"

	"github.com/komodoplatform/hw-kmd-claim/internal/core/domain"
	"github.com/komodoplatform/hw-kmd-claim/pkg/explorer"
	"github.com/stretchr/testify/mock"
)

// Explorer
type mockExplorer struct {
	mock.Mock
}

func (m *mockExplorer) GetAddressInfo(
	ctx context.Context, address string,
) (*explorer.AddressInfo, error) {
	args := m.Called(ctx, address)

	var res *explorer.AddressInfo
	if a := args.Get(0); a != nil {
		res = a.(*explorer.AddressInfo)
	}
	return res, args.Error(1)
}

func (m *mockExplorer) GetUtxos(
	ctx context.Context, addresses []string,
) ([]explorer.Utxo, error) {
	args := m.Called(ctx, addresses)

	var res []explorer.Utxo
	if a := args.Get(0); a != nil {
		res = a.([]explorer.Utxo)
	}
	return res, args.Error(1)
}

func (m *mockExplorer) GetTransaction(
	ctx context.Context, txid string,
) (*explorer.Transaction, error) {
	args := m.Called(ctx, txid)

	var res *explorer.Transaction
	if a := args.Get(0); a != nil {
		res = a.(*explorer.Transaction)
	}
	return res, args.Error(1)
}

func (m *mockExplorer) GetRawTransaction(
	ctx context.Context, txid string,
) (string, error) {
	args := m.Called(ctx, txid)
	return args.String(0), args.Error(1)
}

func (m *mockExplorer) BroadcastTransaction(
	ctx context.Context, txhex string,
) (string, error) {
	args := m.Called(ctx, txhex)
	return args.String(0), args.Error(1)
}

func (m *mockExplorer) GetInfo(ctx context.Context) (*explorer.Info, error) {
	args := m.Called(ctx)

	var res *explorer.Info
	if a := args.Get(0); a != nil {
		res = a.(*explorer.Info)
	}
	return res, args.Error(1)
}

// HardwareWallet
type mockHardwareWallet struct {
	mock.Mock
	vendor domain.Vendor
}

func newMockHardwareWallet(vendor domain.Vendor) *mockHardwareWallet {
	return &mockHardwareWallet{vendor: vendor}
}

func (m *mockHardwareWallet) Vendor() domain.Vendor {
	return m.vendor
}

func (m *mockHardwareWallet) IsAvailable(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *mockHardwareWallet) DeriveAddress(
	ctx context.Context, path string, verify bool,
) (string, error) {
	args := m.Called(ctx, path, verify)

	if fn, ok := args.Get(0).(func(context.Context, string, bool) string); ok {
		return fn(ctx, path, verify), args.Error(1)
	}
	return args.String(0), args.Error(1)
}

func (m *mockHardwareWallet) DeriveExtendedPublicKey(
	ctx context.Context, path string,
) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

func (m *mockHardwareWallet) SignTransaction(
	ctx context.Context, req domain.SigningRequest,
) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockHardwareWallet) Close() error {
	args := m.Called()
	return args.Error(0)
}

// fakeSource derives addresses in the form addr/account/chain/index.
type fakeSource struct{}

func (fakeSource) Address(
	_ context.Context, account uint32, chain domain.Chain, index uint32,
) (string, error) {
	return fakeAddress(account, chain, index), nil
}

func fakeAddress(account uint32, chain domain.Chain, index uint32) string {
	return fmt.Sprintf("addr/%d/%d/%d", account, chain, index)
}

type failingSource struct {
	err error
}

func (s failingSource) Address(
	context.Context, uint32, domain.Chain, uint32,
) (string, error) {
	return "", s.err
}

// withUsedAddresses makes the explorer report the given addresses as funded
// and any other one as unused.
func withUsedAddresses(m *mockExplorer, used ...string) {
	for _, addr := range used {
		m.On("GetAddressInfo", mock.Anything, addr).Return(
			&explorer.AddressInfo{Address: addr, TotalReceived: 100000}, nil,
		)
	}
	m.On("GetAddressInfo", mock.Anything, mock.Anything).Return(
		&explorer.AddressInfo{}, nil,
	)
}
