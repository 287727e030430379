// Package txbuilder assembles unsigned host-chain transactions that
// embed token-layer payloads. Its core job is fee-aware input selection:
// pick enough UTXOs to cover the chain-native payment plus the relay fee
// of the transaction being built, where the fee itself depends on how
// many inputs end up selected. Signing and broadcast belong to the
// wallet; this package only produces the skeleton.
package txbuilder

import (
	"errors"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-token-layer/inter"
	"github.com/rony4d/go-token-layer/tokenlayer"
)

var (
	// ErrNotEnoughFunds is returned when the spendable UTXOs cannot
	// cover the payment plus the relay fee.
	ErrNotEnoughFunds = errors.New("not enough spendable funds")

	// ErrPayloadTooLarge is returned when the encoded instruction
	// exceeds the embeddable payload limit.
	ErrPayloadTooLarge = errors.New("payload too large to embed")
)

// Size estimate constants, in bytes. Inputs assume a standard
// pay-to-pubkey-hash spend with its signature; outputs a standard
// pay-to-pubkey-hash script.
const (
	txOverhead    = 10
	inputSize     = 148
	outputSize    = 34
	embedOverhead = 12
)

// UTXO is one spendable output of the host chain.
type UTXO struct {
	TxID  common.Hash
	Vout  uint32
	Value int64
}

// Unsigned is a constructed transaction skeleton: the selected inputs,
// the encoded payload to embed, and the value split the signer must
// reproduce.
type Unsigned struct {
	Inputs  []UTXO
	Payload []byte

	// Payment is the chain-native value delivered to the reference
	// output (zero when the instruction needs none).
	Payment int64

	// Fee is what the transaction leaves to miners.
	Fee *big.Int

	// Change returns to the sender; zero when the remainder was folded
	// into the fee as dust.
	Change int64
}

// Builder constructs transactions under one network's fee policy.
type Builder struct {
	fee tokenlayer.FeeRules
}

// NewBuilder creates a builder for the given network rules.
func NewBuilder(rules tokenlayer.Rules) *Builder {
	return &Builder{fee: rules.Fee}
}

// EstimateSize predicts the serialized size of a transaction with the
// given shape. The payload rides in a data-carrier output whose overhead
// is counted separately from standard outputs.
func EstimateSize(numInputs, numOutputs, payloadLen int) int {
	return txOverhead +
		numInputs*inputSize +
		numOutputs*outputSize +
		embedOverhead + payloadLen
}

// RequiredFee returns the relay fee for a transaction of the given size:
// the per-kilobyte rate charged per started kilobyte, floored at the
// policy minimum.
func (b *Builder) RequiredFee(size int) *big.Int {
	kb := int64((size + 999) / 1000)
	fee := new(big.Int).Mul(big.NewInt(kb), big.NewInt(b.fee.RatePerKB))
	if fee.Cmp(b.fee.MinFee) < 0 {
		fee.Set(b.fee.MinFee)
	}
	return fee
}

// Build encodes the instruction and selects inputs covering payment plus
// fee. refOutputs counts the standard outputs besides change (the
// reference output of a send, pay, etc.).
func (b *Builder) Build(instr inter.Instruction, utxos []UTXO, refOutputs int, payment int64) (*Unsigned, error) {
	payload, err := inter.EncodeInstruction(instr)
	if err != nil {
		return nil, err
	}
	if len(payload) > inter.MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}

	inputs, fee, change, err := b.SelectInputs(utxos, payment, refOutputs, len(payload))
	if err != nil {
		return nil, err
	}
	return &Unsigned{
		Inputs:  inputs,
		Payload: payload,
		Payment: payment,
		Fee:     fee,
		Change:  change,
	}, nil
}

// SelectInputs picks UTXOs until they cover target plus the fee of the
// resulting transaction. Selection is deterministic: largest value
// first, ties broken by outpoint. Dust UTXOs are never selected, and a
// dust change remainder is folded into the fee instead of creating an
// unspendable output.
func (b *Builder) SelectInputs(utxos []UTXO, target int64, refOutputs, payloadLen int) ([]UTXO, *big.Int, int64, error) {
	spendable := make([]UTXO, 0, len(utxos))
	for _, u := range utxos {
		if u.Value >= b.fee.DustThreshold {
			spendable = append(spendable, u)
		}
	}
	sort.Slice(spendable, func(i, j int) bool {
		a, z := spendable[i], spendable[j]
		if a.Value != z.Value {
			return a.Value > z.Value
		}
		if a.TxID != z.TxID {
			return a.TxID.Hex() < z.TxID.Hex()
		}
		return a.Vout < z.Vout
	})

	var (
		selected []UTXO
		total    = new(big.Int)
	)
	for _, u := range spendable {
		selected = append(selected, u)
		total.Add(total, big.NewInt(u.Value))

		// One change output on top of the reference outputs; the fee
		// grows with every added input, so it is recomputed per step.
		size := EstimateSize(len(selected), refOutputs+1, payloadLen)
		fee := b.RequiredFee(size)

		need := new(big.Int).Add(big.NewInt(target), fee)
		if total.Cmp(need) < 0 {
			continue
		}

		change := new(big.Int).Sub(total, need)
		if change.Cmp(big.NewInt(b.fee.DustThreshold)) < 0 {
			fee.Add(fee, change)
			change.SetInt64(0)
		}
		return selected, fee, change.Int64(), nil
	}
	return nil, nil, 0, ErrNotEnoughFunds
}
