// Package tokenlayer defines the network rules and configuration
// parameters for the token-layer protocol.
//
// This package provides:
//   - Network identification constants (MainNet, TestNet, FakeNet)
//   - Fee policy for embedding payloads into host-chain transactions
//   - DEx rules (payment windows, offer limits)
//   - Crowdsale rules (bonus and deadline limits)
//
// The Rules type is the central configuration structure consulted by the
// state machine and the transaction builder for a given deployment.
package tokenlayer

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/rony4d/go-token-layer/inter"
)

// Network identification constants.
const (
	// MainNetworkID is the chain ID of the production deployment.
	MainNetworkID uint64 = 0xc1

	// TestNetworkID is the chain ID of the public test deployment.
	TestNetworkID uint64 = 0xc2

	// FakeNetworkID is the chain ID for local/fake networks used in
	// testing.
	FakeNetworkID uint64 = 0xc3

	// DefaultFeeRatePerKB is the baseline relay fee rate, in base
	// payment units per 1000 bytes of transaction size.
	DefaultFeeRatePerKB int64 = 3000

	// DefaultDust is the smallest chain-native output considered
	// spendable by the transaction builder.
	DefaultDust int64 = 546
)

// Rules describes the complete configuration for a token-layer network.
type Rules struct {
	Name      string // network name identifier (e.g., "main", "test", "fake")
	NetworkID uint64 // chain ID distinguishing deployments

	// Fee options - payload embedding fee policy
	Fee FeeRules

	// DEx options - offer and payment-window limits
	Dex DexRules

	// Crowdsale options - bonus and duration limits
	Crowdsale CrowdsaleRules
}

// FeeRules governs fee-aware transaction construction. The protocol core
// never computes fees itself; it only relies on the builder guaranteeing
// that underpaying transactions are never confirmed.
type FeeRules struct {
	// RatePerKB is the relay fee rate in base payment units per KB.
	// Fees are charged per started kilobyte: ceil(size/1000) * RatePerKB.
	RatePerKB int64

	// MinFee is the floor any constructed transaction pays regardless of
	// size.
	MinFee *big.Int

	// DustThreshold is the smallest output value the builder will
	// create or select.
	DustThreshold int64
}

// DexRules bounds decentralized-exchange offers.
type DexRules struct {
	// MaxPaymentWindow caps the number of blocks a seller may give an
	// accepting buyer to deliver payment.
	MaxPaymentWindow idx.Block

	// DefaultPaymentWindow is used when an offer specifies none.
	DefaultPaymentWindow idx.Block
}

// CrowdsaleRules bounds crowdsale issuance parameters.
type CrowdsaleRules struct {
	// MaxDuration caps how far in the future a crowdsale deadline may
	// lie, measured from the block creating it.
	MaxDuration inter.Timestamp

	// MaxEarlyBonusPct caps the starting early-bird bonus percentage.
	MaxEarlyBonusPct uint8

	// MaxIssuerBonusPct caps the issuer's percentage cut at close.
	MaxIssuerBonusPct uint8
}

// MainNetRules returns the production network configuration.
func MainNetRules() Rules {
	return Rules{
		Name:      "main",
		NetworkID: MainNetworkID,
		Fee:       DefaultFeeRules(),
		Dex:       DefaultDexRules(),
		Crowdsale: DefaultCrowdsaleRules(),
	}
}

// TestNetRules returns the public testnet configuration. Testnet shares
// mainnet parameters so behavior observed there carries over.
func TestNetRules() Rules {
	return Rules{
		Name:      "test",
		NetworkID: TestNetworkID,
		Fee:       DefaultFeeRules(),
		Dex:       DefaultDexRules(),
		Crowdsale: DefaultCrowdsaleRules(),
	}
}

// FakeNetRules returns the configuration for local/fake networks. Windows
// and durations are shortened so lifecycle paths (reservation expiry,
// crowdsale deadlines) are reachable within small test chains.
func FakeNetRules() Rules {
	cfg := Rules{
		Name:      "fake",
		NetworkID: FakeNetworkID,
		Fee:       DefaultFeeRules(),
		Dex:       DefaultDexRules(),
		Crowdsale: DefaultCrowdsaleRules(),
	}
	cfg.Dex.MaxPaymentWindow = 50
	cfg.Dex.DefaultPaymentWindow = 10
	cfg.Crowdsale.MaxDuration = inter.Timestamp(24 * time.Hour)
	return cfg
}

// DefaultFeeRules returns the mainnet fee policy.
func DefaultFeeRules() FeeRules {
	return FeeRules{
		RatePerKB:     DefaultFeeRatePerKB,
		MinFee:        big.NewInt(DefaultFeeRatePerKB), // one KB minimum
		DustThreshold: DefaultDust,
	}
}

// DefaultDexRules returns the mainnet DEx limits.
func DefaultDexRules() DexRules {
	return DexRules{
		MaxPaymentWindow:     255,
		DefaultPaymentWindow: 10,
	}
}

// DefaultCrowdsaleRules returns the mainnet crowdsale limits.
func DefaultCrowdsaleRules() CrowdsaleRules {
	return CrowdsaleRules{
		MaxDuration:       inter.Timestamp(365 * 24 * time.Hour),
		MaxEarlyBonusPct:  255,
		MaxIssuerBonusPct: 100,
	}
}

// Copy creates a deep copy of Rules. Rules contains *big.Int fields that
// would be shared by a shallow copy.
func (r Rules) Copy() Rules {
	cp := r
	cp.Fee.MinFee = new(big.Int).Set(r.Fee.MinFee)
	return cp
}

// String returns a JSON representation of Rules for logging and config
// dumps.
func (r Rules) String() string {
	b, _ := json.Marshal(&r)
	return string(b)
}
