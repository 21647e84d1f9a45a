// Package solana provides JSON-RPC and WebSocket clients for Solana nodes.
package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface consumed by the pipeline.
type RPCClient interface {
	// GetTransaction retrieves a parsed transaction by signature.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetSignaturesForAddress retrieves signatures for an address, newest first.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetBlockTime retrieves the estimated production time of a block (epoch seconds).
	GetBlockTime(ctx context.Context, slot int64) (*int64, error)

	// GetAccountInfo retrieves account info by public key. Returns nil if not found.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)
}

// Transaction represents a parsed Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds), 0 if unavailable
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err         interface{}
	LogMessages []string
}

// TransactionMessage contains the parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
	// InstructionTypes lists parsed instruction type names in order
	// (e.g. "initializeMint2", "create"), empty for unparsed programs.
	InstructionTypes []string
}

// SignatureInfo is one entry from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       string // base64 encoded
	Executable bool
	RentEpoch  uint64
}
