package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/komodoplatform/hw-kmd-claim/pkg/wallet"
)

// bip32AsBuffer serializes a derivation path as count(1) || elements(4 BE).
// An empty path serializes to a single zero byte.
func bip32AsBuffer(path string) ([]byte, error) {
	if path == "" {
		return []byte{0x00}, nil
	}

	elems, err := wallet.ParseDerivationPath(path)
	if err != nil {
		return nil, err
	}
	if len(elems) > 10 {
		return nil, fmt.Errorf("derivation path %s is too deep", path)
	}

	buf := make([]byte, 1+4*len(elems))
	buf[0] = byte(len(elems))
	for i, elem := range elems {
		binary.BigEndian.PutUint32(buf[1+4*i:], elem)
	}
	return buf, nil
}
