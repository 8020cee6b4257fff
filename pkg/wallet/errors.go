package wallet

import "errors"

var (
	// ErrNullDerivationPath ...
	ErrNullDerivationPath = errors.New("derivation path must not be null")
	// ErrMalformedDerivationPath ...
	ErrMalformedDerivationPath = errors.New(
		"path must not start or end with a '/' and " +
			"can optionally start with 'm/' for absolute paths",
	)
	// ErrInvalidDerivationPathLength ...
	ErrInvalidDerivationPathLength = errors.New(
		"derivation path must be in the form \"purpose'/coin'/account'/chain/index\"",
	)
	// ErrInvalidDerivationPathAccount ...
	ErrInvalidDerivationPathAccount = errors.New(
		"derivation path's account must be hardened (suffix \"'\")",
	)

	// ErrInvalidChainCode ...
	ErrInvalidChainCode = errors.New("chain code must be a 32 byte array")
	// ErrInvalidPublicKey ...
	ErrInvalidPublicKey = errors.New("public key must be a valid secp256k1 point")
	// ErrInvalidExtendedKey ...
	ErrInvalidExtendedKey = errors.New("extended key is not a valid public key")

	// ErrInvalidAddress ...
	ErrInvalidAddress = errors.New("address is not valid for the komodo network")
	// ErrInvalidAmount ...
	ErrInvalidAmount = errors.New("amount must be a positive decimal number")
	// ErrUnknownTxVersion ...
	ErrUnknownTxVersion = errors.New("no consensus branch id for tx version")
)
