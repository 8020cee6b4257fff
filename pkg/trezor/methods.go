package trezor

import "context"

const (
	methodGetPublicKey    = "getPublicKey"
	methodGetAddress      = "getAddress"
	methodSignTransaction = "signTransaction"
)

// GetPublicKeyParams are the params of a getPublicKey call. Path is in the
// form m/44'/141'/0'.
type GetPublicKeyParams struct {
	Path string `json:"path"`
	Coin string `json:"coin,omitempty"`
}

// PublicKey is the payload of a getPublicKey call.
type PublicKey struct {
	Path           []uint32 `json:"path"`
	SerializedPath string   `json:"serializedPath"`
	XPub           string   `json:"xpub"`
	ChainCode      string   `json:"chainCode"`
	ChildNum       uint32   `json:"childNum"`
	PublicKey      string   `json:"publicKey"`
	Fingerprint    uint32   `json:"fingerprint"`
	Depth          uint8    `json:"depth"`
}

// GetPublicKey returns the extended public key at the given path.
func (c *Client) GetPublicKey(
	ctx context.Context, params GetPublicKeyParams,
) (*PublicKey, error) {
	out := &PublicKey{}
	if err := c.call(ctx, methodGetPublicKey, params, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAddressParams are the params of a getAddress call.
type GetAddressParams struct {
	Path         string `json:"path"`
	Coin         string `json:"coin,omitempty"`
	ShowOnTrezor bool   `json:"showOnTrezor"`
}

// Address is the payload of a getAddress call.
type Address struct {
	Address        string   `json:"address"`
	Path           []uint32 `json:"path"`
	SerializedPath string   `json:"serializedPath"`
}

// GetAddress returns the address at the given path. If ShowOnTrezor is set
// the device displays it for the user to verify.
func (c *Client) GetAddress(
	ctx context.Context, params GetAddressParams,
) (*Address, error) {
	out := &Address{}
	if err := c.call(ctx, methodGetAddress, params, out); err != nil {
		return nil, err
	}
	return out, nil
}

// TxInput is an input of the tx to sign.
type TxInput struct {
	AddressN  []uint32 `json:"address_n"`
	PrevHash  string   `json:"prev_hash"`
	PrevIndex uint32   `json:"prev_index"`
	Amount    string   `json:"amount"`
}

// TxOutput is an output of the tx to sign.
type TxOutput struct {
	Address    string `json:"address"`
	Amount     string `json:"amount"`
	ScriptType string `json:"script_type"`
}

// RefTxInput is an input of a reference tx.
type RefTxInput struct {
	PrevHash  string `json:"prev_hash"`
	PrevIndex uint32 `json:"prev_index"`
	ScriptSig string `json:"script_sig"`
	Sequence  uint32 `json:"sequence"`
}

// RefTxOutput is an output of a reference tx.
type RefTxOutput struct {
	Amount       uint64 `json:"amount"`
	ScriptPubKey string `json:"script_pubkey"`
}

// RefTransaction is a previous tx spent by the tx to sign.
type RefTransaction struct {
	Hash           string        `json:"hash"`
	Inputs         []RefTxInput  `json:"inputs"`
	BinOutputs     []RefTxOutput `json:"bin_outputs"`
	Version        uint32        `json:"version"`
	LockTime       uint32        `json:"lock_time"`
	VersionGroupID uint32        `json:"version_group_id"`
	BranchID       uint32        `json:"branch_id"`
	ExtraData      string        `json:"extra_data"`
	Expiry         uint32        `json:"expiry"`
}

// SignTxParams is the descriptor of the tx to sign.
type SignTxParams struct {
	VersionGroupID uint32           `json:"versionGroupId"`
	BranchID       uint32           `json:"branchId"`
	Version        uint32           `json:"version"`
	Push           bool             `json:"push"`
	Coin           string           `json:"coin"`
	Locktime       uint32           `json:"locktime"`
	Outputs        []TxOutput       `json:"outputs"`
	Inputs         []TxInput        `json:"inputs"`
	RefTxs         []RefTransaction `json:"refTxs"`
}

// SignedTx is the payload of a signTransaction call.
type SignedTx struct {
	Signatures   []string `json:"signatures"`
	SerializedTx string   `json:"serializedTx"`
	Txid         string   `json:"txid,omitempty"`
}

// SignTransaction asks the device to sign the described tx. The user must
// confirm the outputs on the device.
func (c *Client) SignTransaction(
	ctx context.Context, params SignTxParams,
) (*SignedTx, error) {
	out := &SignedTx{}
	if err := c.call(ctx, methodSignTransaction, params, out); err != nil {
		return nil, err
	}
	return out, nil
}
