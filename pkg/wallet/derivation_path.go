package wallet

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

// Chain indexes of a BIP44 account.
const (
	ExternalChain uint32 = 0
	InternalChain uint32 = 1
)

// DerivationPath is the internal representation of a hierarchical
// deterministic wallet path
type DerivationPath []uint32

// NewAccountPath returns the path of the given account, in the form
// 44'/141'/account'.
func NewAccountPath(account uint32) DerivationPath {
	return DerivationPath{
		hdkeychain.HardenedKeyStart + PurposeBIP44,
		hdkeychain.HardenedKeyStart + CoinTypeKomodo,
		hdkeychain.HardenedKeyStart + account,
	}
}

// NewAddressPath returns the full BIP44 path of an address, in the form
// 44'/141'/account'/chain/index.
func NewAddressPath(account, chain, index uint32) DerivationPath {
	return append(NewAccountPath(account), chain, index)
}

// ParseDerivationPath converts a derivation path string to the
// internal binary representation
func ParseDerivationPath(strPath string) (DerivationPath, error) {
	var path DerivationPath

	elems := strings.Split(strPath, "/")
	switch {
	case strPath == "":
		return nil, ErrNullDerivationPath

	case containsEmptyString(elems):
		return nil, ErrMalformedDerivationPath
	case len(elems) < 2:
		return nil, ErrMalformedDerivationPath

	default:
		if strings.TrimSpace(elems[0]) == "m" {
			elems = elems[1:]
		}
	}

	for _, elem := range elems {
		elem = strings.TrimSpace(elem)
		var value uint32

		if strings.HasSuffix(elem, "'") {
			value = hdkeychain.HardenedKeyStart
			elem = strings.TrimSpace(strings.TrimSuffix(elem, "'"))
		}

		// use big int for convertion
		bigval, ok := new(big.Int).SetString(elem, 0)
		if !ok {
			return nil, fmt.Errorf("invalid elem '%s' in path", elem)
		}

		max := math.MaxUint32 - value
		if bigval.Sign() < 0 || bigval.Cmp(big.NewInt(int64(max))) > 0 {
			if value == 0 {
				return nil, fmt.Errorf("elem %v must be in range [0, %d]", bigval, max)
			}
			return nil, fmt.Errorf("elem %v must be in hardened range [0, %d]", bigval, max)
		}
		value += uint32(bigval.Uint64())

		path = append(path, value)
	}

	return path, nil
}

// String renders the path in the relative form used by hardware wallet SDKs,
// ie. 44'/141'/0'/0/0.
func (path DerivationPath) String() string {
	if len(path) <= 0 {
		return ""
	}

	elems := make([]string, 0, len(path))
	for _, component := range path {
		if IsHardened(component) {
			elems = append(
				elems, fmt.Sprintf("%d'", component-hdkeychain.HardenedKeyStart),
			)
			continue
		}
		elems = append(elems, fmt.Sprintf("%d", component))
	}
	return strings.Join(elems, "/")
}

// AbsoluteString renders the path prefixed with the master key marker,
// ie. m/44'/141'/0'/0/0.
func (path DerivationPath) AbsoluteString() string {
	if len(path) <= 0 {
		return "m"
	}
	return "m/" + path.String()
}

// Depth is the number of derivation steps from the master key.
func (path DerivationPath) Depth() uint8 {
	return uint8(len(path))
}

// ChildNumber returns the last element of the path, or zero for an empty one.
func (path DerivationPath) ChildNumber() uint32 {
	if len(path) <= 0 {
		return 0
	}
	return path[len(path)-1]
}

// Account returns the unhardened account index of a BIP44 path.
func (path DerivationPath) Account() (uint32, error) {
	if len(path) < 3 {
		return 0, ErrInvalidDerivationPathLength
	}
	if !IsHardened(path[2]) {
		return 0, ErrInvalidDerivationPathAccount
	}
	return path[2] - hdkeychain.HardenedKeyStart, nil
}

// IsHardened returns whether the given path element is a hardened index.
func IsHardened(index uint32) bool {
	return index >= hdkeychain.HardenedKeyStart
}

func containsEmptyString(composedPath []string) bool {
	for _, s := range composedPath {
		if s == "" {
			return true
		}
	}
	return false
}
