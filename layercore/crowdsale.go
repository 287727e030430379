package layercore

import (
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-token-layer/inter"
)

// Crowdsale tracks one crowdsale issuance from creation until close.
// While it is active, every send of the desired property to the issuer
// mints freshly granted tokens for the contributor; at close the issuer
// receives its percentage cut of everything minted to participants.
type Crowdsale struct {
	Property inter.PropertyID
	Issuer   common.Address

	DesiredProperty inter.PropertyID
	PriceRate       int64

	// Start and Deadline bound the bonus decay; the bonus is
	// EarlyBonusPct at Start and zero at Deadline.
	Start    inter.Timestamp
	Deadline inter.Timestamp

	EarlyBonusPct  uint8
	IssuerBonusPct uint8

	// Raised is the total contributed amount of the desired property.
	Raised int64

	// ParticipantTokens is the total minted to contributors so far; the
	// issuer's close-time cut is computed from it.
	ParticipantTokens int64

	Closed bool
}

func (sm *StateMachine) applyIssueCrowdsale(b *inter.Block, tx *inter.ChainTx, v inter.IssueCrowdsale) string {
	if !sm.store.HasProperty(v.DesiredProperty) {
		return ReasonUnknownProperty
	}
	if v.PriceRate <= 0 {
		return ReasonBadCrowdsale
	}
	if v.Deadline <= b.Time {
		return ReasonBadCrowdsale
	}
	if v.Deadline-b.Time > sm.rules.Crowdsale.MaxDuration {
		return ReasonBadCrowdsale
	}
	if v.EarlyBonusPct > sm.rules.Crowdsale.MaxEarlyBonusPct {
		return ReasonBadCrowdsale
	}
	if v.IssuerBonusPct > sm.rules.Crowdsale.MaxIssuerBonusPct {
		return ReasonBadCrowdsale
	}
	// Contributions are routed by the issuer address, so an issuer can
	// run at most one crowdsale at a time.
	if _, ok := sm.activeByIssuer[tx.Sender]; ok {
		return ReasonCrowdsaleActive
	}

	p := sm.store.CreateProperty(tx.Sender, v.Meta, false)
	cs := &Crowdsale{
		Property:        p.ID,
		Issuer:          tx.Sender,
		DesiredProperty: v.DesiredProperty,
		PriceRate:       v.PriceRate,
		Start:           b.Time,
		Deadline:        v.Deadline,
		EarlyBonusPct:   v.EarlyBonusPct,
		IssuerBonusPct:  v.IssuerBonusPct,
	}
	sm.crowdsales[p.ID] = cs
	sm.activeByIssuer[tx.Sender] = p.ID
	sm.recordUndo(func(sm *StateMachine) {
		delete(sm.crowdsales, cs.Property)
		delete(sm.activeByIssuer, cs.Issuer)
	})
	return ""
}

// maybeContribute turns a send into a crowdsale contribution when the
// recipient is the issuer of an active crowdsale and the sent property is
// the one the crowdsale desires. The plain transfer has already been
// applied; this only mints the contributor's tokens on top.
func (sm *StateMachine) maybeContribute(b *inter.Block, tx *inter.ChainTx, v inter.SimpleSend) string {
	csID, ok := sm.activeByIssuer[tx.Reference]
	if !ok {
		return ""
	}
	cs := sm.crowdsales[csID]
	if cs.DesiredProperty != v.Property {
		return ""
	}

	granted, ok := contributionTokens(cs, b.Time, v.Amount)
	if !ok {
		return ReasonSupplyOverflow
	}
	p, _ := sm.store.GetProperty(cs.Property)
	if p.TotalSupply > math.MaxInt64-granted {
		return ReasonSupplyOverflow
	}
	sm.store.GrantSupply(cs.Property, granted)
	sm.store.Credit(cs.Property, tx.Sender, granted)

	prevRaised, prevTokens := cs.Raised, cs.ParticipantTokens
	cs.Raised += v.Amount
	cs.ParticipantTokens += granted
	sm.recordUndo(func(sm *StateMachine) {
		cs.Raised, cs.ParticipantTokens = prevRaised, prevTokens
	})

	sm.log.WithFields(logrus.Fields{
		"crowdsale":   cs.Property,
		"contributor": tx.Sender.Hex(),
		"amount":      v.Amount,
		"granted":     granted,
	}).Debug("crowdsale contribution")
	return ""
}

// contributionTokens computes how many tokens a contribution of amount
// desired-property units mints at block time t. The early-bird bonus
// decays linearly from EarlyBonusPct at Start to zero at Deadline:
//
//	tokens = floor(amount * rate * (100*span + bonus*remaining) / (100*span))
//
// where span = Deadline-Start and remaining = Deadline-t. Intermediate
// math runs in big.Int; the second return value is false if the result
// does not fit an int64.
func contributionTokens(cs *Crowdsale, t inter.Timestamp, amount int64) (int64, bool) {
	if t < cs.Start {
		t = cs.Start
	}
	if t > cs.Deadline {
		t = cs.Deadline
	}
	base := mulBig(amount, cs.PriceRate)

	span := int64(cs.Deadline - cs.Start)
	if span > 0 && cs.EarlyBonusPct > 0 {
		remaining := int64(cs.Deadline - t)
		num := new(big.Int).Add(
			big.NewInt(100*span),
			mulBig(int64(cs.EarlyBonusPct), remaining),
		)
		base.Mul(base, num)
		base.Div(base, big.NewInt(100*span))
	}
	if !base.IsInt64() {
		return 0, false
	}
	return base.Int64(), true
}

func (sm *StateMachine) applyCloseCrowdsale(tx *inter.ChainTx, v inter.CloseCrowdsale) string {
	cs, ok := sm.crowdsales[v.Property]
	if !ok || cs.Closed {
		return ReasonNoCrowdsale
	}
	// Early close is reserved to the issuer even while a delegate is
	// set; the crowdsale is the issuer's undertaking, not an
	// administrative action over holders.
	if tx.Sender != cs.Issuer {
		return ReasonNotAuthorized
	}
	sm.finishCrowdsale(cs)
	return ""
}

// finishCrowdsale closes the crowdsale and mints the issuer's cut. Called
// for both early closes and deadline expiry; callers have already
// verified the crowdsale is open.
func (sm *StateMachine) finishCrowdsale(cs *Crowdsale) {
	issuerTokens := issuerCut(cs)
	if issuerTokens > 0 {
		if p, _ := sm.store.GetProperty(cs.Property); p.TotalSupply > math.MaxInt64-issuerTokens {
			// Mint whatever headroom is left rather than refusing the
			// close; a close must never fail.
			issuerTokens = math.MaxInt64 - p.TotalSupply
		}
	}
	if issuerTokens > 0 {
		sm.store.GrantSupply(cs.Property, issuerTokens)
		sm.store.Credit(cs.Property, cs.Issuer, issuerTokens)
	}
	cs.Closed = true
	delete(sm.activeByIssuer, cs.Issuer)
	sm.recordUndo(func(sm *StateMachine) {
		cs.Closed = false
		sm.activeByIssuer[cs.Issuer] = cs.Property
	})

	sm.log.WithFields(logrus.Fields{
		"crowdsale":    cs.Property,
		"raised":       cs.Raised,
		"participants": cs.ParticipantTokens,
		"issuerCut":    issuerTokens,
	}).Debug("crowdsale closed")
}

// issuerCut is the issuer's close-time mint: a flat IssuerBonusPct
// percent of everything minted to participants, rounded down. The
// time-weighted early-bird bonus applies only to contributions; the
// issuer's cut does not weight them by arrival time.
func issuerCut(cs *Crowdsale) int64 {
	if cs.IssuerBonusPct == 0 || cs.ParticipantTokens == 0 {
		return 0
	}
	cut := mulBig(cs.ParticipantTokens, int64(cs.IssuerBonusPct))
	cut.Div(cut, big.NewInt(100))
	return cut.Int64()
}

// processDeadlines closes every active crowdsale whose deadline is at or
// before the block time. Runs at the start of block application, so a
// contribution mined in the same block as the deadline arrives after the
// close and mints nothing.
func (sm *StateMachine) processDeadlines(b *inter.Block) {
	for _, csID := range sm.activeByIssuer {
		cs := sm.crowdsales[csID]
		if cs.Deadline <= b.Time {
			sm.finishCrowdsale(cs)
		}
	}
}

// GetCrowdsale returns a copy of the crowdsale record for a property.
func (sm *StateMachine) GetCrowdsale(id inter.PropertyID) (Crowdsale, bool) {
	cs, ok := sm.crowdsales[id]
	if !ok {
		return Crowdsale{}, false
	}
	return *cs, true
}
