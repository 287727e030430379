package ledger

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-token-layer/inter"
)

// The journal records the inverse of every store mutation. Reverting a
// suffix of the journal restores the exact prior state, which serves two
// callers: the state machine reverts a single instruction's span when a
// later check fails (all-or-nothing application), and the reorg
// coordinator reverts a whole block's span on disconnect.
//
// Entries revert in strictly reverse order; each entry restores one
// field of one record, so replay order never matters within an entry.

type journalEntry interface {
	revert(s *Store)
}

type journal []journalEntry

func (j *journal) append(e journalEntry) {
	*j = append(*j, e)
}

func (j *journal) revert(s *Store, snap int) {
	if snap < 0 || snap > len(*j) {
		panic("ledger: invalid journal snapshot")
	}
	for i := len(*j) - 1; i >= snap; i-- {
		(*j)[i].revert(s)
	}
	*j = (*j)[:snap]
}

// propertyCreated reverts a CreateProperty: the record disappears and the
// ID counter steps back, keeping allocation monotonic across reorgs of
// the same height.
type propertyCreated struct {
	id inter.PropertyID
}

// balanceCreated reverts the lazy creation of an empty balance entry, so
// a reverted first touch leaves no residue in the balance table.
type balanceCreated struct {
	key BalanceKey
}

// balanceChange restores both amount fields of one balance entry.
type balanceChange struct {
	key           BalanceKey
	prevAvailable int64
	prevReserved  int64
}

// frozenChange restores the frozen flag of one balance entry.
type frozenChange struct {
	key  BalanceKey
	prev bool
}

// delegateChange restores a property's delegate pointer.
type delegateChange struct {
	id   inter.PropertyID
	prev common.Address
}

// freezingToggled restores a property's freezing gate.
type freezingToggled struct {
	id   inter.PropertyID
	prev bool
}

// supplyChange restores a property's total supply.
type supplyChange struct {
	id   inter.PropertyID
	prev int64
}

func (e propertyCreated) revert(s *Store) {
	delete(s.props, e.id)
	s.nextID--
}

func (e balanceCreated) revert(s *Store) {
	delete(s.balances, e.key)
}

func (e balanceChange) revert(s *Store) {
	b := s.balances[e.key]
	b.Available = e.prevAvailable
	b.Reserved = e.prevReserved
}

func (e frozenChange) revert(s *Store) {
	s.balances[e.key].Frozen = e.prev
}

func (e delegateChange) revert(s *Store) {
	s.props[e.id].Delegate = e.prev
}

func (e freezingToggled) revert(s *Store) {
	s.props[e.id].FreezingEnabled = e.prev
}

func (e supplyChange) revert(s *Store) {
	s.props[e.id].TotalSupply = e.prev
}
