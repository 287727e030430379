package inter

import (
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
)

// Outcome records what the state machine decided about one processed
// transaction. Invalid transactions are not errors: the host chain has
// already mined them, so the token layer's job is only to record that
// they produced no ledger effect, and why. Every processed transaction
// stays queryable by its hash until the block containing it is
// disconnected.
type Outcome struct {
	TxID   common.Hash
	Height idx.Block

	// Valid reports whether the instruction passed validation and was
	// applied to the ledger.
	Valid bool

	// Reason explains a rejection; empty for valid transactions.
	Reason string

	// Purchases lists the DEx trade legs settled by this transaction.
	// Only DEx pay transactions populate it.
	Purchases []Purchase
}

// Purchase is one settled DEx trade leg: reserved tokens released to the
// buyer against a qualifying chain-native payment.
type Purchase struct {
	Property PropertyID
	Seller   common.Address
	Buyer    common.Address

	// Amount is the token quantity released to the buyer.
	Amount int64

	// Payment is the chain-native amount the buyer paid.
	Payment int64

	Valid bool
}
