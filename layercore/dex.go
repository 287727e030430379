package layercore

import (
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-token-layer/inter"
)

// The DEx trades tokens against the host chain's native coin in three
// steps: the seller publishes an offer, a buyer accepts part of it
// (escrowing that part out of the seller's available balance), and the
// buyer delivers a chain-native payment to the seller within the offer's
// payment window. Settlement is all-or-nothing per reservation; an
// unpaid reservation expires and the escrow returns to the seller.

type offerKey struct {
	Seller   common.Address
	Property inter.PropertyID
}

// Offer is one open sell offer. A seller has at most one open offer per
// property. Tokens stay in the seller's available balance until a buyer
// accepts; Remaining only shrinks when reservations settle.
type Offer struct {
	Seller   common.Address
	Property inter.PropertyID

	Remaining int64
	UnitPrice int64
	MinAccept int64

	// PaymentWindow is the number of blocks a buyer has to pay after
	// accepting.
	PaymentWindow idx.Block
}

type reservationKey struct {
	Buyer    common.Address
	Seller   common.Address
	Property inter.PropertyID
}

// Reservation is an accepted, not yet paid part of an offer. The escrowed
// amount sits in the seller's reserved balance; UnitPrice is pinned at
// accept time so a later offer change cannot move the price under the
// buyer.
type Reservation struct {
	Buyer    common.Address
	Seller   common.Address
	Property inter.PropertyID

	Amount    int64
	UnitPrice int64

	// Expiry is the last block height at which payment still settles.
	Expiry idx.Block
}

func (sm *StateMachine) applyDexSell(tx *inter.ChainTx, v inter.DexSell) string {
	p, ok := sm.store.GetProperty(v.Property)
	if !ok {
		return ReasonUnknownProperty
	}
	key := offerKey{tx.Sender, v.Property}

	// A zero amount cancels the sender's open offer. Outstanding
	// reservations are unaffected; their escrow settles or expires on
	// its own schedule.
	if v.Amount == 0 {
		offer, ok := sm.offers[key]
		if !ok {
			return ReasonNoOffer
		}
		delete(sm.offers, key)
		sm.recordUndo(func(sm *StateMachine) {
			sm.offers[key] = offer
		})
		return ""
	}

	if v.Amount < 0 || v.UnitPrice <= 0 {
		return ReasonBadAmount
	}
	if v.MinAccept <= 0 || v.MinAccept > v.Amount {
		return ReasonBadAmount
	}
	window := v.PaymentWindow
	if window == 0 {
		window = sm.rules.Dex.DefaultPaymentWindow
	}
	if window > sm.rules.Dex.MaxPaymentWindow {
		return ReasonBadPaymentWindow
	}
	bal := sm.store.GetBalance(v.Property, tx.Sender)
	if bal.Frozen && p.FreezingEnabled {
		return ReasonFrozen
	}
	if bal.Available < v.Amount {
		return ReasonInsufficientFunds
	}
	if _, ok := sm.offers[key]; ok {
		return ReasonOfferExists
	}

	sm.offers[key] = &Offer{
		Seller:        tx.Sender,
		Property:      v.Property,
		Remaining:     v.Amount,
		UnitPrice:     v.UnitPrice,
		MinAccept:     v.MinAccept,
		PaymentWindow: window,
	}
	sm.recordUndo(func(sm *StateMachine) {
		delete(sm.offers, key)
	})
	return ""
}

// outstanding sums the unsettled reservations against one offer. Accepts
// beyond Remaining minus this sum would oversell the offer.
func (sm *StateMachine) outstanding(seller common.Address, id inter.PropertyID) int64 {
	var sum int64
	for key, rsv := range sm.reservations {
		if key.Seller == seller && key.Property == id {
			sum += rsv.Amount
		}
	}
	return sum
}

func (sm *StateMachine) applyDexAccept(b *inter.Block, tx *inter.ChainTx, v inter.DexAccept) string {
	if !tx.HasReference() {
		return ReasonNoReference
	}
	if !sm.store.HasProperty(v.Property) {
		return ReasonUnknownProperty
	}
	if v.Amount <= 0 {
		return ReasonBadAmount
	}
	offer, ok := sm.offers[offerKey{tx.Reference, v.Property}]
	if !ok {
		return ReasonNoOffer
	}
	key := reservationKey{tx.Sender, tx.Reference, v.Property}
	if _, ok := sm.reservations[key]; ok {
		return ReasonAcceptPending
	}
	if v.Amount < offer.MinAccept {
		return ReasonBadAccept
	}
	if v.Amount > offer.Remaining-sm.outstanding(offer.Seller, v.Property) {
		return ReasonBadAccept
	}
	// The offer does not escrow at publish time, so the seller may have
	// spent the tokens since. The accept fails in that case.
	if err := sm.store.Reserve(v.Property, offer.Seller, v.Amount); err != nil {
		return ReasonInsufficientFunds
	}

	sm.reservations[key] = &Reservation{
		Buyer:     tx.Sender,
		Seller:    offer.Seller,
		Property:  v.Property,
		Amount:    v.Amount,
		UnitPrice: offer.UnitPrice,
		Expiry:    b.Height + offer.PaymentWindow,
	}
	sm.recordUndo(func(sm *StateMachine) {
		delete(sm.reservations, key)
	})
	return ""
}

func (sm *StateMachine) applyDexPay(b *inter.Block, tx *inter.ChainTx, v inter.DexPay, out *inter.Outcome) string {
	if !tx.HasReference() {
		return ReasonNoReference
	}
	key := reservationKey{tx.Sender, tx.Reference, v.Property}
	rsv, ok := sm.reservations[key]
	if !ok {
		// Also reached by a duplicate payment: the first one consumed
		// the reservation.
		return ReasonNoReservation
	}
	if v.Amount != rsv.Amount {
		return ReasonPartialPayment
	}
	cost := mulBig(rsv.Amount, rsv.UnitPrice)
	if big.NewInt(tx.Payment).Cmp(cost) < 0 {
		return ReasonPaymentTooLow
	}

	sm.store.MoveReserved(v.Property, rsv.Seller, rsv.Buyer, rsv.Amount)
	delete(sm.reservations, key)
	sm.recordUndo(func(sm *StateMachine) {
		sm.reservations[key] = rsv
	})

	// The offer may have been cancelled while the reservation was
	// pending; the escrow settles regardless.
	okey := offerKey{rsv.Seller, v.Property}
	if offer, ok := sm.offers[okey]; ok {
		prev := offer.Remaining
		offer.Remaining -= rsv.Amount
		sm.recordUndo(func(sm *StateMachine) {
			offer.Remaining = prev
		})
		if offer.Remaining == 0 {
			delete(sm.offers, okey)
			sm.recordUndo(func(sm *StateMachine) {
				sm.offers[okey] = offer
			})
		}
	}

	out.Purchases = append(out.Purchases, inter.Purchase{
		Property: v.Property,
		Seller:   rsv.Seller,
		Buyer:    rsv.Buyer,
		Amount:   rsv.Amount,
		Payment:  tx.Payment,
		Valid:    true,
	})
	return ""
}

// expireReservations releases every reservation whose payment window has
// closed before this block, returning the escrow to the seller's
// available balance. Runs at the start of block application, so a payment
// mined at Expiry still settles and one mined a block later does not.
func (sm *StateMachine) expireReservations(b *inter.Block) {
	for key, rsv := range sm.reservations {
		if rsv.Expiry >= b.Height {
			continue
		}
		sm.store.Release(rsv.Property, rsv.Seller, rsv.Amount)
		key, rsv := key, rsv
		delete(sm.reservations, key)
		sm.recordUndo(func(sm *StateMachine) {
			sm.reservations[key] = rsv
		})

		sm.log.WithFields(logrus.Fields{
			"property": rsv.Property,
			"seller":   rsv.Seller.Hex(),
			"buyer":    rsv.Buyer.Hex(),
			"amount":   rsv.Amount,
		}).Debug("reservation expired")
	}
}

// GetOffer returns a copy of the seller's open offer for a property.
func (sm *StateMachine) GetOffer(seller common.Address, id inter.PropertyID) (Offer, bool) {
	offer, ok := sm.offers[offerKey{seller, id}]
	if !ok {
		return Offer{}, false
	}
	return *offer, true
}

// GetReservation returns a copy of the pending reservation between a
// buyer and a seller for a property.
func (sm *StateMachine) GetReservation(buyer, seller common.Address, id inter.PropertyID) (Reservation, bool) {
	rsv, ok := sm.reservations[reservationKey{buyer, seller, id}]
	if !ok {
		return Reservation{}, false
	}
	return *rsv, true
}
