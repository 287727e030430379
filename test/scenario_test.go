package test

import (
	"encoding/binary"
	"io/ioutil"
	"testing"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-token-layer/inter"
	"github.com/rony4d/go-token-layer/layercore"
	"github.com/rony4d/go-token-layer/tokenlayer"
)

// End-to-end scenario tests: each one drives a fresh coordinator through
// a multi-block flow the way a host-chain follower would, checking
// balances, outcomes, and supply conservation after every block.

var (
	scenarioIssuer   = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	scenarioDelegate = common.HexToAddress("0x00000000000000000000000000000000000000e2")
	scenarioSink     = common.HexToAddress("0x00000000000000000000000000000000000000e3")
	scenarioOutsider = common.HexToAddress("0x00000000000000000000000000000000000000e4")
)

// chain feeds blocks into a coordinator with deterministic heights,
// hashes and timestamps, one block per connect call.
type chain struct {
	c      *layercore.Coordinator
	height idx.Block
	now    inter.Timestamp
	seq    uint64
}

func newChain() *chain {
	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)
	return &chain{
		c:   layercore.NewCoordinator(tokenlayer.FakeNetRules(), logger),
		now: inter.FromUnix(1700000000),
	}
}

func (ch *chain) tx(t *testing.T, sender, reference common.Address, instr inter.Instruction, payment int64) inter.ChainTx {
	t.Helper()
	payload, err := inter.EncodeInstruction(instr)
	if err != nil {
		t.Fatalf("encoding instruction: %v", err)
	}
	ch.seq++
	var id common.Hash
	binary.BigEndian.PutUint64(id[24:], ch.seq)
	return inter.ChainTx{
		TxID:      id,
		Sender:    sender,
		Reference: reference,
		Payload:   payload,
		Payment:   payment,
	}
}

func (ch *chain) connect(t *testing.T, txs ...inter.ChainTx) {
	t.Helper()
	ch.height++
	ch.now += inter.FromUnix(1)
	var hash common.Hash
	binary.BigEndian.PutUint64(hash[0:], uint64(ch.height))
	err := ch.c.ConnectBlock(&inter.Block{
		Height: ch.height,
		Hash:   hash,
		Time:   ch.now,
		Txs:    txs,
	})
	if err != nil {
		t.Fatalf("connecting block %d: %v", ch.height, err)
	}
}

// apply connects one transaction in its own block and asserts it was
// accepted.
func (ch *chain) apply(t *testing.T, tx inter.ChainTx) {
	t.Helper()
	ch.connect(t, tx)
	out, ok := ch.c.GetOutcome(tx.TxID)
	if !ok {
		t.Fatalf("no outcome recorded for %s", tx.TxID.Hex())
	}
	if !out.Valid {
		t.Fatalf("transaction rejected: %q", out.Reason)
	}
}

// reject connects one transaction in its own block and asserts it was
// refused with the given reason.
func (ch *chain) reject(t *testing.T, tx inter.ChainTx, reason string) {
	t.Helper()
	ch.connect(t, tx)
	out, ok := ch.c.GetOutcome(tx.TxID)
	if !ok {
		t.Fatalf("no outcome recorded for %s", tx.TxID.Hex())
	}
	if out.Valid {
		t.Fatalf("transaction was applied, want rejection %q", reason)
	}
	if out.Reason != reason {
		t.Fatalf("rejection reason = %q, want %q", out.Reason, reason)
	}
}

// checkSupply asserts the conservation invariant: the sum of all balances
// equals the property's recorded total supply.
func (ch *chain) checkSupply(t *testing.T, id inter.PropertyID) {
	t.Helper()
	p, ok := ch.c.GetProperty(id)
	if !ok {
		t.Fatalf("property %d does not exist", id)
	}
	if got := ch.c.CirculatingSupply(id); got != p.TotalSupply {
		t.Fatalf("circulating supply = %d, total supply = %d", got, p.TotalSupply)
	}
}

// TestDelegationScenario replays the full administrative lifecycle of a
// managed property: grants before and after delegation, freeze-authority
// handoffs, delegate removal permutations, and the issuer regaining
// control. The running sink balance tracks every accepted mint and burn
// (1000 + 33 - 1 + 53) and must end at 1085.
func TestDelegationScenario(t *testing.T) {
	ch := newChain()
	const prop = inter.PropertyID(1)

	ch.apply(t, ch.tx(t, scenarioIssuer, common.Address{}, inter.IssueManaged{
		Meta: inter.PropertyMeta{Name: "Managed"},
	}, 0))

	// The issuer funds the sink; nobody else can mint yet.
	ch.apply(t, ch.tx(t, scenarioIssuer, scenarioSink, inter.Grant{Property: prop, Amount: 1000}, 0))
	ch.reject(t, ch.tx(t, scenarioOutsider, scenarioSink, inter.Grant{Property: prop, Amount: 7}, 0), layercore.ReasonNotAuthorized)
	ch.reject(t, ch.tx(t, scenarioDelegate, scenarioSink, inter.Grant{Property: prop, Amount: 7}, 0), layercore.ReasonNotAuthorized)
	ch.checkSupply(t, prop)

	// Pre-delegation the issuer holds freeze authority.
	ch.apply(t, ch.tx(t, scenarioIssuer, common.Address{}, inter.EnableFreezing{Property: prop}, 0))
	ch.apply(t, ch.tx(t, scenarioIssuer, scenarioSink, inter.Freeze{Property: prop}, 0))
	ch.reject(t, ch.tx(t, scenarioSink, scenarioOutsider, inter.SimpleSend{Property: prop, Amount: 5}, 0), layercore.ReasonFrozen)
	ch.apply(t, ch.tx(t, scenarioIssuer, scenarioSink, inter.Unfreeze{Property: prop}, 0))
	ch.checkSupply(t, prop)

	// Delegation hands grant and freeze authority over exclusively.
	ch.apply(t, ch.tx(t, scenarioIssuer, scenarioDelegate, inter.AddDelegate{Property: prop}, 0))
	ch.reject(t, ch.tx(t, scenarioIssuer, scenarioSink, inter.Grant{Property: prop, Amount: 45}, 0), layercore.ReasonNotAuthorized)
	ch.reject(t, ch.tx(t, scenarioIssuer, scenarioSink, inter.Freeze{Property: prop}, 0), layercore.ReasonNotAuthorized)
	ch.apply(t, ch.tx(t, scenarioDelegate, scenarioSink, inter.Grant{Property: prop, Amount: 33}, 0))
	ch.checkSupply(t, prop)

	// Any holder may burn its own tokens, delegated or not.
	ch.apply(t, ch.tx(t, scenarioSink, common.Address{}, inter.Revoke{Property: prop, Amount: 1}, 0))
	ch.checkSupply(t, prop)

	// Freeze authority followed the delegation.
	ch.apply(t, ch.tx(t, scenarioDelegate, scenarioSink, inter.Freeze{Property: prop}, 0))
	ch.reject(t, ch.tx(t, scenarioSink, scenarioOutsider, inter.SimpleSend{Property: prop, Amount: 5}, 0), layercore.ReasonFrozen)
	ch.apply(t, ch.tx(t, scenarioDelegate, scenarioSink, inter.Unfreeze{Property: prop}, 0))

	// The delegate cannot pass its role on, and removal is guarded.
	ch.reject(t, ch.tx(t, scenarioDelegate, scenarioOutsider, inter.AddDelegate{Property: prop}, 0), layercore.ReasonNotAuthorized)
	ch.reject(t, ch.tx(t, scenarioOutsider, scenarioDelegate, inter.RemoveDelegate{Property: prop}, 0), layercore.ReasonNotAuthorized)
	ch.reject(t, ch.tx(t, scenarioIssuer, scenarioOutsider, inter.RemoveDelegate{Property: prop}, 0), layercore.ReasonWrongDelegate)

	// One more delegated mint, then the delegate steps down.
	ch.apply(t, ch.tx(t, scenarioDelegate, scenarioSink, inter.Grant{Property: prop, Amount: 53}, 0))
	ch.apply(t, ch.tx(t, scenarioDelegate, scenarioDelegate, inter.RemoveDelegate{Property: prop}, 0))
	ch.checkSupply(t, prop)

	// Authority has returned to the issuer; the former delegate is out.
	ch.apply(t, ch.tx(t, scenarioIssuer, scenarioSink, inter.Freeze{Property: prop}, 0))
	ch.apply(t, ch.tx(t, scenarioIssuer, scenarioSink, inter.Unfreeze{Property: prop}, 0))
	ch.reject(t, ch.tx(t, scenarioDelegate, scenarioSink, inter.Grant{Property: prop, Amount: 5}, 0), layercore.ReasonNotAuthorized)
	ch.reject(t, ch.tx(t, scenarioIssuer, scenarioDelegate, inter.RemoveDelegate{Property: prop}, 0), layercore.ReasonNoDelegate)

	// 1000 + 33 - 1 + 53, every rejected step contributing nothing.
	if got := ch.c.GetBalance(prop, scenarioSink).Available; got != 1085 {
		t.Fatalf("sink balance = %d, want 1085", got)
	}
	p, _ := ch.c.GetProperty(prop)
	if p.TotalSupply != 1085 {
		t.Fatalf("total supply = %d, want 1085", p.TotalSupply)
	}
	ch.checkSupply(t, prop)
}

// TestDexScenario replays a trade over the distributed exchange: publish,
// partial accept, an underpayment that leaves the escrow intact, and two
// settlements, conserving supply throughout.
func TestDexScenario(t *testing.T) {
	ch := newChain()
	const prop = inter.PropertyID(1)

	ch.apply(t, ch.tx(t, scenarioIssuer, common.Address{}, inter.IssueFixed{
		Meta:   inter.PropertyMeta{Name: "Traded", Divisible: true},
		Amount: 10000,
	}, 0))
	ch.apply(t, ch.tx(t, scenarioIssuer, common.Address{}, inter.DexSell{
		Property: prop, Amount: 1000, UnitPrice: 5, MinAccept: 10,
	}, 0))
	ch.checkSupply(t, prop)

	// First buyer reserves 100 units; the escrow leaves the seller's
	// available balance but not the supply.
	ch.apply(t, ch.tx(t, scenarioSink, scenarioIssuer, inter.DexAccept{Property: prop, Amount: 100}, 0))
	if bal := ch.c.GetBalance(prop, scenarioIssuer); bal.Available != 9900 || bal.Reserved != 100 {
		t.Fatalf("seller balance = %+v, want 9900 available / 100 reserved", bal)
	}
	ch.checkSupply(t, prop)

	// Underpayment does not settle and does not consume the reservation.
	ch.reject(t, ch.tx(t, scenarioSink, scenarioIssuer, inter.DexPay{Property: prop, Amount: 100}, 499), layercore.ReasonPaymentTooLow)
	ch.checkSupply(t, prop)

	pay := ch.tx(t, scenarioSink, scenarioIssuer, inter.DexPay{Property: prop, Amount: 100}, 500)
	ch.apply(t, pay)
	out, _ := ch.c.GetOutcome(pay.TxID)
	if len(out.Purchases) != 1 {
		t.Fatalf("purchases = %d, want 1", len(out.Purchases))
	}
	if leg := out.Purchases[0]; leg.Amount != 100 || leg.Payment != 500 || leg.Buyer != scenarioSink {
		t.Fatalf("purchase leg = %+v", leg)
	}
	if got := ch.c.GetBalance(prop, scenarioSink).Available; got != 100 {
		t.Fatalf("buyer balance = %d, want 100", got)
	}
	ch.checkSupply(t, prop)

	// A second buyer takes another slice of the same offer.
	ch.apply(t, ch.tx(t, scenarioOutsider, scenarioIssuer, inter.DexAccept{Property: prop, Amount: 90}, 0))
	ch.apply(t, ch.tx(t, scenarioOutsider, scenarioIssuer, inter.DexPay{Property: prop, Amount: 90}, 450))
	ch.checkSupply(t, prop)

	offer, ok := ch.c.GetOffer(scenarioIssuer, prop)
	if !ok {
		t.Fatal("offer should remain open")
	}
	if offer.Remaining != 810 {
		t.Fatalf("offer remaining = %d, want 810", offer.Remaining)
	}
	if bal := ch.c.GetBalance(prop, scenarioIssuer); bal.Available != 9810 || bal.Reserved != 0 {
		t.Fatalf("seller balance = %+v, want 9810 available / 0 reserved", bal)
	}
}
