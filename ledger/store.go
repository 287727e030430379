// Package ledger implements the token layer's balance and property
// store. It has pure key-value semantics: (property, address) -> balance
// entry and property id -> property record. Validation and authorization
// live in layercore; the store only enforces arithmetic invariants
// (available and reserved never go negative, supply never underflows) and
// records an inverse journal entry for every mutation so any span of
// mutations can be reverted exactly - per instruction for all-or-nothing
// application, per block for chain reorganizations.
package ledger

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-token-layer/inter"
)

// ErrInsufficientFunds is returned by Debit and Reserve when the
// available balance cannot cover the requested amount. It is the only
// expected error of the store; callers translate it into an invalid
// transaction outcome.
var ErrInsufficientFunds = errors.New("insufficient available balance")

// BalanceKey addresses one balance entry.
type BalanceKey struct {
	Property inter.PropertyID
	Address  common.Address
}

// Balance is the externally visible state of one (property, address)
// entry. Available plus Reserved of all holders always equals the
// property's total supply.
type Balance struct {
	// Available is the spendable amount.
	Available int64

	// Reserved is the amount escrowed in an open DEx reservation.
	Reserved int64

	// Frozen blocks owner-initiated transfers while the property has
	// freezing enabled. The issuer or delegate can still unfreeze.
	Frozen bool
}

// Property is a tokenized asset record. Properties are created by
// issuance instructions and never deleted; supply, delegate, and the
// freezing flag are the only mutable fields.
type Property struct {
	ID     inter.PropertyID
	Issuer common.Address

	// Delegate is the address holding exclusive administrative authority
	// in place of the issuer; the zero address means none is set.
	Delegate common.Address

	Meta inter.PropertyMeta

	// Managed marks properties whose supply changes only through grant
	// and revoke.
	Managed bool

	// FreezingEnabled gates freeze/unfreeze instructions and the
	// frozen-balance transfer restriction.
	FreezingEnabled bool

	// TotalSupply is the sum of all available and reserved balances.
	TotalSupply int64
}

// HasDelegate reports whether a delegate is currently set.
func (p *Property) HasDelegate() bool {
	return p.Delegate != (common.Address{})
}

// Store holds all ledger state. It is not safe for concurrent use; the
// reorg coordinator serializes writers and excludes readers during block
// application.
type Store struct {
	props    map[inter.PropertyID]*Property
	balances map[BalanceKey]*Balance
	nextID   inter.PropertyID

	journal journal
}

// NewStore returns an empty ledger. The first created property receives
// ID 1.
func NewStore() *Store {
	return &Store{
		props:    make(map[inter.PropertyID]*Property),
		balances: make(map[BalanceKey]*Balance),
		nextID:   1,
	}
}

// Snapshot returns an identifier of the current journal position.
// Reverting to it undoes every mutation made after this call.
func (s *Store) Snapshot() int {
	return len(s.journal)
}

// RevertToSnapshot undoes all mutations back to the given snapshot, in
// reverse order.
func (s *Store) RevertToSnapshot(snap int) {
	s.journal.revert(s, snap)
}

// DiscardJournalPrefix drops the oldest n journal entries, giving up the
// ability to revert past them. Snapshots taken before the call must be
// rebased by subtracting n; the coordinator does this when it compacts
// blocks beyond the outcome retention depth.
func (s *Store) DiscardJournalPrefix(n int) {
	if n < 0 || n > len(s.journal) {
		panic("ledger: invalid journal prefix")
	}
	s.journal = append(journal(nil), s.journal[n:]...)
}

// CreateProperty allocates the next property ID and stores the record.
// This is the single allocation point of the registry; IDs are assigned
// monotonically and a reverted creation returns its ID to the pool.
func (s *Store) CreateProperty(issuer common.Address, meta inter.PropertyMeta, managed bool) *Property {
	id := s.nextID
	s.nextID++
	p := &Property{
		ID:      id,
		Issuer:  issuer,
		Meta:    meta,
		Managed: managed,
	}
	s.props[id] = p
	s.journal.append(propertyCreated{id: id})
	return p
}

// GetProperty returns a copy of the property record.
func (s *Store) GetProperty(id inter.PropertyID) (Property, bool) {
	p, ok := s.props[id]
	if !ok {
		return Property{}, false
	}
	return *p, true
}

// HasProperty reports whether the property exists.
func (s *Store) HasProperty(id inter.PropertyID) bool {
	_, ok := s.props[id]
	return ok
}

// PropertyCount returns how many properties have been created.
func (s *Store) PropertyCount() int {
	return len(s.props)
}

func (s *Store) mustProp(id inter.PropertyID) *Property {
	p, ok := s.props[id]
	if !ok {
		panic(fmt.Sprintf("ledger: property %d does not exist", id))
	}
	return p
}

// SetDelegate points the property's delegate at addr; the zero address
// clears it.
func (s *Store) SetDelegate(id inter.PropertyID, addr common.Address) {
	p := s.mustProp(id)
	s.journal.append(delegateChange{id: id, prev: p.Delegate})
	p.Delegate = addr
}

// SetFreezingEnabled toggles the property's freezing gate. Toggling moves
// no tokens and clears no frozen flags.
func (s *Store) SetFreezingEnabled(id inter.PropertyID, enabled bool) {
	p := s.mustProp(id)
	s.journal.append(freezingToggled{id: id, prev: p.FreezingEnabled})
	p.FreezingEnabled = enabled
}

// GrantSupply increases the property's total supply.
func (s *Store) GrantSupply(id inter.PropertyID, amount int64) {
	mustNonNegative(amount)
	p := s.mustProp(id)
	s.journal.append(supplyChange{id: id, prev: p.TotalSupply})
	p.TotalSupply += amount
}

// RevokeSupply decreases the property's total supply. Underflow here
// means validation let a burn exceed circulation - an internal defect,
// not a user error.
func (s *Store) RevokeSupply(id inter.PropertyID, amount int64) {
	mustNonNegative(amount)
	p := s.mustProp(id)
	if p.TotalSupply < amount {
		panic(fmt.Sprintf("ledger: supply underflow on property %d", id))
	}
	s.journal.append(supplyChange{id: id, prev: p.TotalSupply})
	p.TotalSupply -= amount
}

// GetBalance returns the balance entry, or a zero entry if none exists.
func (s *Store) GetBalance(id inter.PropertyID, addr common.Address) Balance {
	if b, ok := s.balances[BalanceKey{id, addr}]; ok {
		return *b
	}
	return Balance{}
}

// entry returns the mutable balance entry, creating (and journaling) an
// empty one on first touch.
func (s *Store) entry(id inter.PropertyID, addr common.Address) *Balance {
	key := BalanceKey{id, addr}
	b, ok := s.balances[key]
	if !ok {
		b = &Balance{}
		s.balances[key] = b
		s.journal.append(balanceCreated{key: key})
	}
	return b
}

// Credit adds to the available balance.
func (s *Store) Credit(id inter.PropertyID, addr common.Address, amount int64) {
	mustNonNegative(amount)
	b := s.entry(id, addr)
	s.journal.append(balanceChange{key: BalanceKey{id, addr}, prevAvailable: b.Available, prevReserved: b.Reserved})
	b.Available += amount
}

// Debit removes from the available balance, failing with
// ErrInsufficientFunds if it would go negative.
func (s *Store) Debit(id inter.PropertyID, addr common.Address, amount int64) error {
	mustNonNegative(amount)
	b := s.entry(id, addr)
	if b.Available < amount {
		return ErrInsufficientFunds
	}
	s.journal.append(balanceChange{key: BalanceKey{id, addr}, prevAvailable: b.Available, prevReserved: b.Reserved})
	b.Available -= amount
	return nil
}

// Reserve moves tokens from available to reserved (DEx escrow).
func (s *Store) Reserve(id inter.PropertyID, addr common.Address, amount int64) error {
	mustNonNegative(amount)
	b := s.entry(id, addr)
	if b.Available < amount {
		return ErrInsufficientFunds
	}
	s.journal.append(balanceChange{key: BalanceKey{id, addr}, prevAvailable: b.Available, prevReserved: b.Reserved})
	b.Available -= amount
	b.Reserved += amount
	return nil
}

// Release moves tokens back from reserved to available. Releasing more
// than is reserved is an internal defect.
func (s *Store) Release(id inter.PropertyID, addr common.Address, amount int64) {
	mustNonNegative(amount)
	b := s.entry(id, addr)
	if b.Reserved < amount {
		panic(fmt.Sprintf("ledger: reserved underflow on property %d", id))
	}
	s.journal.append(balanceChange{key: BalanceKey{id, addr}, prevAvailable: b.Available, prevReserved: b.Reserved})
	b.Reserved -= amount
	b.Available += amount
}

// MoveReserved settles a DEx trade leg: tokens leave the seller's
// reserved balance and arrive in the buyer's available balance.
func (s *Store) MoveReserved(id inter.PropertyID, from, to common.Address, amount int64) {
	mustNonNegative(amount)
	fb := s.entry(id, from)
	if fb.Reserved < amount {
		panic(fmt.Sprintf("ledger: reserved underflow on property %d", id))
	}
	s.journal.append(balanceChange{key: BalanceKey{id, from}, prevAvailable: fb.Available, prevReserved: fb.Reserved})
	fb.Reserved -= amount

	tb := s.entry(id, to)
	s.journal.append(balanceChange{key: BalanceKey{id, to}, prevAvailable: tb.Available, prevReserved: tb.Reserved})
	tb.Available += amount
}

// SetFrozen sets or clears the frozen flag of one balance entry.
func (s *Store) SetFrozen(id inter.PropertyID, addr common.Address, frozen bool) {
	b := s.entry(id, addr)
	s.journal.append(frozenChange{key: BalanceKey{id, addr}, prev: b.Frozen})
	b.Frozen = frozen
}

// CirculatingSupply sums available and reserved tokens over all holders
// of the property. It must always equal the property's TotalSupply; the
// test suite asserts this after every block.
func (s *Store) CirculatingSupply(id inter.PropertyID) int64 {
	var sum int64
	for key, b := range s.balances {
		if key.Property == id {
			sum += b.Available + b.Reserved
		}
	}
	return sum
}

func mustNonNegative(amount int64) {
	if amount < 0 {
		panic("ledger: negative amount")
	}
}
