package wallet

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
)

// BIP44 constants for the komodo chain.
const (
	PurposeBIP44   = 44
	CoinTypeKomodo = 141
)

const (
	// SaplingTxVersion is the transaction version of the active network
	// upgrade.
	SaplingTxVersion = 4
	// SaplingVersionGroupID identifies sapling transactions.
	SaplingVersionGroupID = 0x892f2085
	// SaplingExtraData is the hex encoded empty shielded section of a sapling
	// tx: valueBalance (8 bytes), nShieldedSpend, nShieldedOutput, nJoinSplit.
	SaplingExtraData = "0000000000000000000000"
	// LocktimeOffset is subtracted from the current unix time to get the
	// locktime of a new transaction.
	LocktimeOffset = 777
	// DefaultTxFee is the fee in satoshis paid by claim transactions.
	DefaultTxFee = 20000
	// CoinName is the name of the coin for the trezor connect API.
	CoinName = "kmd"
)

var (
	// KomodoParams defines the address and extended key encodings of the
	// komodo main network.
	KomodoParams = chaincfg.Params{
		Name:             "komodo",
		PubKeyHashAddrID: 0x3c,
		ScriptHashAddrID: 0x55,
		PrivateKeyID:     0xbc,
		HDPrivateKeyID:   [4]byte{0x04, 0x88, 0xad, 0xe4},
		HDPublicKeyID:    [4]byte{0x04, 0x88, 0xb2, 0x1e},
		HDCoinType:       CoinTypeKomodo,
	}

	consensusBranchIDs = map[uint32]uint32{
		1: 0x00000000,
		2: 0x00000000,
		3: 0x5ba81b19,
		4: 0x76b809bb,
	}
)

// ConsensusBranchID returns the branch id of the network upgrade that
// introduced the given tx version.
func ConsensusBranchID(version uint32) (uint32, error) {
	id, ok := consensusBranchIDs[version]
	if !ok {
		return 0, fmt.Errorf("%w %d", ErrUnknownTxVersion, version)
	}
	return id, nil
}

// Locktime returns the locktime for a transaction created at the given time.
func Locktime(now time.Time) uint32 {
	return uint32(now.Unix() - LocktimeOffset)
}
