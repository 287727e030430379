// Package inter defines the token layer's core data structures: the
// confirmed-block and transaction views consumed from the host chain, the
// decoded instruction set, and transaction outcomes. The host chain's own
// consensus, mempool and signature checks are out of scope; by the time a
// ChainTx reaches this package it is final, and the token layer's only
// job is to decide what it means for the ledger.
package inter

import (
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
)

// Block is the token layer's view of one confirmed host-chain block: an
// ordered list of transactions plus the consensus timestamp. Blocks are
// applied as atomic units and disconnected in exact reverse order during
// reorganizations.
type Block struct {
	// Height is the block's position in the host chain.
	Height idx.Block

	// Hash identifies the block; reconnecting a different block at the
	// same height after a reorg yields a different hash.
	Hash common.Hash

	// Time is the consensus timestamp of the block. Crowdsale and DEx
	// timing decisions read this field, never the system clock.
	Time Timestamp

	// Txs are the block's transactions in chain order. Application order
	// is significant: an instruction may depend on state created by an
	// earlier transaction in the same block.
	Txs []ChainTx
}

// ChainTx is a confirmed host-chain transaction carrying an embedded
// token-layer payload. The host chain has already validated signatures
// and fees; a transaction failing the relay-fee policy is never delivered
// here as confirmed.
type ChainTx struct {
	// TxID is the host-chain transaction hash, used to key outcomes.
	TxID common.Hash

	// Sender is the address that authored the transaction (the first
	// input's address on a UTXO host chain).
	Sender common.Address

	// Reference is the optional secondary address of the transaction:
	// the token recipient of a send or grant, the delegate of a
	// delegation change, the frozen address of a freeze, the seller of a
	// DEx accept or pay. Zero when the instruction needs none.
	Reference common.Address

	// Payload is the raw embedded instruction data. Undecodable payloads
	// invalidate only this transaction, never the block.
	Payload []byte

	// Payment is the chain-native amount (in base payment units) paid by
	// Sender to Reference within the same transaction. DEx settlement
	// qualifies reservations against this value.
	Payment int64
}

// HasReference reports whether the transaction names a secondary address.
func (tx *ChainTx) HasReference() bool {
	return tx.Reference != (common.Address{})
}
