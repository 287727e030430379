// Package layercore implements the protocol state machine of the token
// layer: it consumes confirmed host-chain blocks, validates and applies
// every embedded instruction against the ledger store, tracks crowdsales
// and DEx offers, and keeps enough undo information to reverse whole
// blocks exactly when the host chain reorganizes.
//
// Invalid instructions are a normal, expected outcome here. The host
// chain has already mined the transaction, so a failed check never
// raises an error; it records Outcome{Valid: false, Reason} and moves
// on. Only arithmetic invariant violations inside the ledger (which
// validation must make unreachable) panic.
package layercore

import (
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-token-layer/inter"
	"github.com/rony4d/go-token-layer/ledger"
	"github.com/rony4d/go-token-layer/tokenlayer"
)

// Rejection reasons surfaced on transaction outcomes. They are part of
// the query interface, so wording stays stable.
const (
	ReasonDecode            = "unable to decode payload"
	ReasonNoReference       = "reference address required"
	ReasonUnknownProperty   = "property does not exist"
	ReasonNotAuthorized     = "sender not authorized"
	ReasonInsufficientFunds = "insufficient available balance"
	ReasonFrozen            = "sender balance is frozen"
	ReasonBadAmount         = "amount out of range"
	ReasonSupplyOverflow    = "total supply overflow"
	ReasonNotManaged        = "property is not managed"
	ReasonNoDelegate        = "no delegate is set"
	ReasonWrongDelegate     = "reference does not match current delegate"
	ReasonFreezingDisabled  = "freezing is not enabled"
	ReasonFreezingUnchanged = "freezing flag already in requested state"
	ReasonFrozenUnchanged   = "balance frozen flag already in requested state"
	ReasonBadCrowdsale      = "crowdsale parameters out of range"
	ReasonNoCrowdsale       = "no active crowdsale"
	ReasonCrowdsaleActive   = "issuer already runs an active crowdsale"
	ReasonOfferExists       = "an offer is already open"
	ReasonNoOffer           = "no open offer"
	ReasonBadAccept         = "accept amount outside offer limits"
	ReasonAcceptPending     = "a reservation is already pending"
	ReasonNoReservation     = "no pending reservation"
	ReasonPartialPayment    = "partial payment not allowed"
	ReasonPaymentTooLow     = "payment below asking price"
	ReasonBadPaymentWindow  = "payment window out of range"
	ReasonSelfSend          = "sender and reference are the same address"
)

// undoFn reverses one side-state mutation (crowdsale or DEx bookkeeping
// held outside the ledger journal).
type undoFn func(sm *StateMachine)

// StateMachine validates and applies decoded instructions. It is driven
// exclusively by the Coordinator, which serializes access; the state
// machine itself holds no lock.
type StateMachine struct {
	rules tokenlayer.Rules
	store *ledger.Store

	crowdsales     map[inter.PropertyID]*Crowdsale
	activeByIssuer map[common.Address]inter.PropertyID

	offers       map[offerKey]*Offer
	reservations map[reservationKey]*Reservation

	outcomes map[common.Hash]*inter.Outcome

	// undos mirrors the ledger journal for state the ledger does not
	// own; reverted together with it, suffix-first.
	undos []undoFn

	log *logrus.Entry
}

// NewStateMachine creates a state machine over a fresh ledger.
func NewStateMachine(rules tokenlayer.Rules, logger *logrus.Logger) *StateMachine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &StateMachine{
		rules:          rules,
		store:          ledger.NewStore(),
		crowdsales:     make(map[inter.PropertyID]*Crowdsale),
		activeByIssuer: make(map[common.Address]inter.PropertyID),
		offers:         make(map[offerKey]*Offer),
		reservations:   make(map[reservationKey]*Reservation),
		outcomes:       make(map[common.Hash]*inter.Outcome),
		log:            logger.WithField("module", "layercore"),
	}
}

// Store exposes the underlying ledger for queries and tests.
func (sm *StateMachine) Store() *ledger.Store {
	return sm.store
}

func (sm *StateMachine) recordUndo(fn undoFn) {
	sm.undos = append(sm.undos, fn)
}

func (sm *StateMachine) sideSnapshot() int {
	return len(sm.undos)
}

func (sm *StateMachine) revertSideTo(snap int) {
	for i := len(sm.undos) - 1; i >= snap; i-- {
		sm.undos[i](sm)
	}
	sm.undos = sm.undos[:snap]
}

// discardUndoPrefix drops the oldest n undo closures; side-state snapshots
// taken before the call must be rebased by subtracting n.
func (sm *StateMachine) discardUndoPrefix(n int) {
	if n < 0 || n > len(sm.undos) {
		panic("layercore: invalid undo prefix")
	}
	sm.undos = append([]undoFn(nil), sm.undos[n:]...)
}

// applyTx decodes and applies one transaction, producing its outcome.
// Application is all-or-nothing: if any check fails after partial
// mutation, both the ledger journal and the side-state undo log are
// rolled back to the pre-instruction snapshot.
func (sm *StateMachine) applyTx(b *inter.Block, tx *inter.ChainTx) *inter.Outcome {
	out := &inter.Outcome{TxID: tx.TxID, Height: b.Height}

	instr, err := inter.DecodeInstruction(tx.Payload)
	if err != nil {
		out.Reason = ReasonDecode
		sm.log.WithFields(logrus.Fields{
			"txid": tx.TxID.Hex(),
			"err":  err,
		}).Debug("dropping undecodable payload")
		return out
	}

	snap := sm.store.Snapshot()
	side := sm.sideSnapshot()

	reason := sm.applyInstruction(b, tx, instr, out)
	if reason != "" {
		sm.store.RevertToSnapshot(snap)
		sm.revertSideTo(side)
		out.Valid = false
		out.Reason = reason
		out.Purchases = nil
	} else {
		out.Valid = true
	}

	sm.log.WithFields(logrus.Fields{
		"txid":   tx.TxID.Hex(),
		"type":   instr.InstructionType(),
		"valid":  out.Valid,
		"reason": out.Reason,
	}).Debug("applied instruction")
	return out
}

// applyInstruction runs the per-type checks and mutations. It returns an
// empty string on success or a rejection reason. Check order is uniform:
// addresses well-formed, property exists, caller authorized, freeze
// semantics, sufficient funds.
func (sm *StateMachine) applyInstruction(b *inter.Block, tx *inter.ChainTx, instr inter.Instruction, out *inter.Outcome) string {
	switch v := instr.(type) {
	case inter.IssueFixed:
		return sm.applyIssueFixed(tx, v)
	case inter.IssueManaged:
		sm.store.CreateProperty(tx.Sender, v.Meta, true)
		return ""
	case inter.IssueCrowdsale:
		return sm.applyIssueCrowdsale(b, tx, v)
	case inter.CloseCrowdsale:
		return sm.applyCloseCrowdsale(tx, v)
	case inter.SimpleSend:
		return sm.applySimpleSend(b, tx, v)
	case inter.Grant:
		return sm.applyGrant(tx, v)
	case inter.Revoke:
		return sm.applyRevoke(tx, v)
	case inter.AddDelegate:
		return sm.applyAddDelegate(tx, v)
	case inter.RemoveDelegate:
		return sm.applyRemoveDelegate(tx, v)
	case inter.EnableFreezing:
		return sm.applySetFreezing(tx, v.Property, true)
	case inter.DisableFreezing:
		return sm.applySetFreezing(tx, v.Property, false)
	case inter.Freeze:
		return sm.applySetFrozen(tx, v.Property, true)
	case inter.Unfreeze:
		return sm.applySetFrozen(tx, v.Property, false)
	case inter.DexSell:
		return sm.applyDexSell(tx, v)
	case inter.DexAccept:
		return sm.applyDexAccept(b, tx, v)
	case inter.DexPay:
		return sm.applyDexPay(b, tx, v, out)
	default:
		return ReasonDecode
	}
}

// controller returns the address holding administrative authority over
// the property: the delegate when one is set, the issuer otherwise. Once
// a delegate is set the issuer loses grant/freeze authority entirely
// until the delegation is removed.
func controller(p ledger.Property) common.Address {
	if p.HasDelegate() {
		return p.Delegate
	}
	return p.Issuer
}

func (sm *StateMachine) applyIssueFixed(tx *inter.ChainTx, v inter.IssueFixed) string {
	if v.Amount <= 0 {
		return ReasonBadAmount
	}
	p := sm.store.CreateProperty(tx.Sender, v.Meta, false)
	sm.store.GrantSupply(p.ID, v.Amount)
	sm.store.Credit(p.ID, tx.Sender, v.Amount)
	return ""
}

func (sm *StateMachine) applyGrant(tx *inter.ChainTx, v inter.Grant) string {
	p, ok := sm.store.GetProperty(v.Property)
	if !ok {
		return ReasonUnknownProperty
	}
	if !p.Managed {
		return ReasonNotManaged
	}
	if tx.Sender != controller(p) {
		return ReasonNotAuthorized
	}
	if v.Amount <= 0 {
		return ReasonBadAmount
	}
	if p.TotalSupply > math.MaxInt64-v.Amount {
		return ReasonSupplyOverflow
	}
	recipient := tx.Reference
	if !tx.HasReference() {
		recipient = tx.Sender
	}
	sm.store.GrantSupply(v.Property, v.Amount)
	sm.store.Credit(v.Property, recipient, v.Amount)
	return ""
}

func (sm *StateMachine) applyRevoke(tx *inter.ChainTx, v inter.Revoke) string {
	p, ok := sm.store.GetProperty(v.Property)
	if !ok {
		return ReasonUnknownProperty
	}
	if !p.Managed {
		return ReasonNotManaged
	}
	if v.Amount <= 0 {
		return ReasonBadAmount
	}
	// Revoking one's own tokens needs no authority beyond holding them.
	if err := sm.store.Debit(v.Property, tx.Sender, v.Amount); err != nil {
		return ReasonInsufficientFunds
	}
	sm.store.RevokeSupply(v.Property, v.Amount)
	return ""
}

func (sm *StateMachine) applySimpleSend(b *inter.Block, tx *inter.ChainTx, v inter.SimpleSend) string {
	if !tx.HasReference() {
		return ReasonNoReference
	}
	if tx.Reference == tx.Sender {
		return ReasonSelfSend
	}
	p, ok := sm.store.GetProperty(v.Property)
	if !ok {
		return ReasonUnknownProperty
	}
	if v.Amount <= 0 {
		return ReasonBadAmount
	}
	bal := sm.store.GetBalance(v.Property, tx.Sender)
	if bal.Frozen && p.FreezingEnabled {
		return ReasonFrozen
	}
	if err := sm.store.Debit(v.Property, tx.Sender, v.Amount); err != nil {
		return ReasonInsufficientFunds
	}
	sm.store.Credit(v.Property, tx.Reference, v.Amount)

	// A send of a crowdsale's desired property to its issuer is a
	// contribution on top of the plain transfer.
	return sm.maybeContribute(b, tx, v)
}

func (sm *StateMachine) applyAddDelegate(tx *inter.ChainTx, v inter.AddDelegate) string {
	if !tx.HasReference() {
		return ReasonNoReference
	}
	p, ok := sm.store.GetProperty(v.Property)
	if !ok {
		return ReasonUnknownProperty
	}
	// Naming a delegate is the one power the issuer never loses.
	if tx.Sender != p.Issuer {
		return ReasonNotAuthorized
	}
	sm.store.SetDelegate(v.Property, tx.Reference)
	return ""
}

func (sm *StateMachine) applyRemoveDelegate(tx *inter.ChainTx, v inter.RemoveDelegate) string {
	if !tx.HasReference() {
		return ReasonNoReference
	}
	p, ok := sm.store.GetProperty(v.Property)
	if !ok {
		return ReasonUnknownProperty
	}
	if !p.HasDelegate() {
		return ReasonNoDelegate
	}
	if tx.Reference != p.Delegate {
		return ReasonWrongDelegate
	}
	// Either the issuer or the delegate itself (self-removal) may clear
	// the delegation; nobody else.
	if tx.Sender != p.Issuer && tx.Sender != p.Delegate {
		return ReasonNotAuthorized
	}
	sm.store.SetDelegate(v.Property, common.Address{})
	return ""
}

func (sm *StateMachine) applySetFreezing(tx *inter.ChainTx, id inter.PropertyID, enable bool) string {
	p, ok := sm.store.GetProperty(id)
	if !ok {
		return ReasonUnknownProperty
	}
	if tx.Sender != controller(p) {
		return ReasonNotAuthorized
	}
	if p.FreezingEnabled == enable {
		return ReasonFreezingUnchanged
	}
	sm.store.SetFreezingEnabled(id, enable)
	return ""
}

func (sm *StateMachine) applySetFrozen(tx *inter.ChainTx, id inter.PropertyID, frozen bool) string {
	if !tx.HasReference() {
		return ReasonNoReference
	}
	p, ok := sm.store.GetProperty(id)
	if !ok {
		return ReasonUnknownProperty
	}
	if tx.Sender != controller(p) {
		return ReasonNotAuthorized
	}
	if !p.FreezingEnabled {
		return ReasonFreezingDisabled
	}
	bal := sm.store.GetBalance(id, tx.Reference)
	if bal.Frozen == frozen {
		return ReasonFrozenUnchanged
	}
	sm.store.SetFrozen(id, tx.Reference, frozen)
	return ""
}

// mulBig multiplies two int64 values without overflow.
func mulBig(a, b int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
}
