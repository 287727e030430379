package tokenlayer

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/rony4d/go-token-layer/inter"
)

// TestNetworkConstants verifies that network ID constants are correctly
// defined. These constants identify which deployment a node follows.
func TestNetworkConstants(t *testing.T) {
	tests := []struct {
		name     string
		constant uint64
		want     uint64
	}{
		{"MainNetworkID", MainNetworkID, 0xc1},
		{"TestNetworkID", TestNetworkID, 0xc2},
		{"FakeNetworkID", FakeNetworkID, 0xc3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.constant != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, tt.constant, tt.want)
			}
		})
	}
}

// TestMainNetRules verifies the production configuration.
func TestMainNetRules(t *testing.T) {
	rules := MainNetRules()

	if rules.Name != "main" {
		t.Errorf("Name = %q, want %q", rules.Name, "main")
	}
	if rules.NetworkID != MainNetworkID {
		t.Errorf("NetworkID = %d, want %d", rules.NetworkID, MainNetworkID)
	}
	if rules.Fee.RatePerKB != DefaultFeeRatePerKB {
		t.Errorf("Fee.RatePerKB = %d, want %d", rules.Fee.RatePerKB, DefaultFeeRatePerKB)
	}
	if rules.Fee.DustThreshold != DefaultDust {
		t.Errorf("Fee.DustThreshold = %d, want %d", rules.Fee.DustThreshold, DefaultDust)
	}
	// The minimum fee equals one full kilobyte at the default rate.
	if rules.Fee.MinFee.Cmp(big.NewInt(DefaultFeeRatePerKB)) != 0 {
		t.Errorf("Fee.MinFee = %s, want %d", rules.Fee.MinFee, DefaultFeeRatePerKB)
	}
	if rules.Dex.MaxPaymentWindow != 255 {
		t.Errorf("Dex.MaxPaymentWindow = %d, want 255", rules.Dex.MaxPaymentWindow)
	}
	if rules.Crowdsale.MaxDuration != inter.Timestamp(365*24*time.Hour) {
		t.Errorf("Crowdsale.MaxDuration = %v, want one year", rules.Crowdsale.MaxDuration)
	}
	if rules.Crowdsale.MaxIssuerBonusPct != 100 {
		t.Errorf("Crowdsale.MaxIssuerBonusPct = %d, want 100", rules.Crowdsale.MaxIssuerBonusPct)
	}
}

// TestTestNetRules verifies that testnet shares mainnet parameters, so
// behavior observed there carries over.
func TestTestNetRules(t *testing.T) {
	rules := TestNetRules()
	main := MainNetRules()

	if rules.Name != "test" {
		t.Errorf("Name = %q, want %q", rules.Name, "test")
	}
	if rules.NetworkID != TestNetworkID {
		t.Errorf("NetworkID = %d, want %d", rules.NetworkID, TestNetworkID)
	}
	if rules.Fee.RatePerKB != main.Fee.RatePerKB {
		t.Error("TestNet fee rate should match MainNet")
	}
	if rules.Dex != main.Dex {
		t.Error("TestNet DEx rules should match MainNet")
	}
	if rules.Crowdsale != main.Crowdsale {
		t.Error("TestNet crowdsale rules should match MainNet")
	}
}

// TestFakeNetRules verifies that fake networks use shortened windows so
// lifecycle paths are reachable in small test chains.
func TestFakeNetRules(t *testing.T) {
	rules := FakeNetRules()
	main := MainNetRules()

	if rules.Name != "fake" {
		t.Errorf("Name = %q, want %q", rules.Name, "fake")
	}
	if rules.NetworkID != FakeNetworkID {
		t.Errorf("NetworkID = %d, want %d", rules.NetworkID, FakeNetworkID)
	}
	if rules.Dex.MaxPaymentWindow >= main.Dex.MaxPaymentWindow {
		t.Error("FakeNet should have a shorter MaxPaymentWindow than MainNet")
	}
	if rules.Crowdsale.MaxDuration >= main.Crowdsale.MaxDuration {
		t.Error("FakeNet should have a shorter crowdsale MaxDuration than MainNet")
	}
}

// TestRulesCopy verifies that Copy() creates a deep copy. Rules contains
// a *big.Int that a shallow copy would share.
func TestRulesCopy(t *testing.T) {
	original := MainNetRules()
	original.Fee.MinFee.Set(big.NewInt(999999))

	copied := original.Copy()
	copied.Fee.MinFee.Set(big.NewInt(123456))

	if original.Fee.MinFee.Cmp(big.NewInt(999999)) != 0 {
		t.Errorf("original MinFee was modified: got %s, want 999999", original.Fee.MinFee)
	}
	if copied.Fee.MinFee.Cmp(big.NewInt(123456)) != 0 {
		t.Errorf("copied MinFee = %s, want 123456", copied.Fee.MinFee)
	}
	if original.Fee.MinFee == copied.Fee.MinFee {
		t.Error("MinFee pointers should differ after Copy()")
	}
}

// TestRulesString verifies that String() returns valid JSON.
func TestRulesString(t *testing.T) {
	rules := MainNetRules()
	jsonStr := rules.String()

	var unmarshaled Rules
	if err := json.Unmarshal([]byte(jsonStr), &unmarshaled); err != nil {
		t.Fatalf("String() returned invalid JSON: %v\nJSON: %s", err, jsonStr)
	}
	if unmarshaled.Name != rules.Name {
		t.Errorf("unmarshaled Name = %q, want %q", unmarshaled.Name, rules.Name)
	}
	if unmarshaled.NetworkID != rules.NetworkID {
		t.Errorf("unmarshaled NetworkID = %d, want %d", unmarshaled.NetworkID, rules.NetworkID)
	}
}
