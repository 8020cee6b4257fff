package domain

// SigningRequest is the vendor specific payload handed to a hardware wallet
// for signing. The only implementations are *LedgerSigningRequest and
// *TrezorSigningRequest.
type SigningRequest interface {
	Vendor() Vendor
	signingRequest()
}

// LedgerInput references the output being spent by its parent tx in raw form.
type LedgerInput struct {
	RawTx       string
	OutputIndex uint32
}

// LedgerSigningRequest holds the arguments of a Ledger payment transaction.
type LedgerSigningRequest struct {
	Inputs []LedgerInput
	// AssociatedKeysets are the derivation paths of the inputs, in the same
	// order.
	AssociatedKeysets []string
	// OutputScript is the hex serialized list of outputs:
	// varint(count) || amount LE || varint(len) || script.
	OutputScript string
	Locktime     uint32
	// Additionals enables the network upgrade specific serialization, ie.
	// "sapling".
	Additionals  []string
	ExpiryHeight []byte
}

func (*LedgerSigningRequest) Vendor() Vendor { return VendorLedger }
func (*LedgerSigningRequest) signingRequest() {}

// TrezorInput is an input of a Trezor sign request. Amount is in satoshis.
type TrezorInput struct {
	AddressN  []uint32
	PrevHash  string
	PrevIndex uint32
	Amount    string
}

// TrezorOutput is an output of a Trezor sign request. Amount is in satoshis.
type TrezorOutput struct {
	Address    string
	Amount     string
	ScriptType string
}

// TrezorRefInput is an input of a reference transaction.
type TrezorRefInput struct {
	PrevHash  string
	PrevIndex uint32
	ScriptSig string
	Sequence  uint32
}

// TrezorRefOutput is an output of a reference transaction.
type TrezorRefOutput struct {
	Amount       uint64
	ScriptPubKey string
}

// TrezorRefTx is a parent transaction the device uses to verify the amounts
// of the inputs.
type TrezorRefTx struct {
	Hash           string
	Inputs         []TrezorRefInput
	BinOutputs     []TrezorRefOutput
	Version        uint32
	LockTime       uint32
	VersionGroupID uint32
	BranchID       uint32
	ExtraData      string
	Expiry         uint32
}

// TrezorSigningRequest holds the descriptor of a Trezor sign transaction call.
type TrezorSigningRequest struct {
	Coin           string
	Version        uint32
	VersionGroupID uint32
	BranchID       uint32
	Locktime       uint32
	Push           bool
	Inputs         []TrezorInput
	Outputs        []TrezorOutput
	RefTxs         []TrezorRefTx
}

func (*TrezorSigningRequest) Vendor() Vendor { return VendorTrezor }
func (*TrezorSigningRequest) signingRequest() {}
