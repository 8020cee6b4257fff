package domain

import (
	"github.com/komodoplatform/hw-kmd-claim/pkg/wallet"
)

// Chain is the BIP44 branch of an account.
type Chain uint32

const (
	ChainReceive = Chain(wallet.ExternalChain)
	ChainChange  = Chain(wallet.InternalChain)
)

func (c Chain) String() string {
	if c == ChainChange {
		return "change"
	}
	return "receive"
}

// DerivedAddress is an address together with the derivation metadata needed
// to sign for it.
type DerivedAddress struct {
	Address string
	Account uint32
	Chain   Chain
	Index   uint32
}

// Path returns the BIP44 derivation path of the address.
func (a DerivedAddress) Path() wallet.DerivationPath {
	return wallet.NewAddressPath(a.Account, uint32(a.Chain), a.Index)
}

// DerivationPath returns the path in the form 44'/141'/account'/chain/index.
func (a DerivedAddress) DerivationPath() string {
	return a.Path().String()
}

// IsChange returns whether the address belongs to the change branch.
func (a DerivedAddress) IsChange() bool {
	return a.Chain == ChainChange
}
