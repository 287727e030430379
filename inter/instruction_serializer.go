package inter

import (
	"errors"
	"math"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/rony4d/go-token-layer/utils/cser"
)

// This file implements the wire codec for embedded instructions, built on
// the canonical split-stream (cser) format. Every payload starts with a
// version byte and a type tag; the remaining fields depend on the type.
// The codec is append-only: new instruction types get new tags, and a
// decoder seeing an unknown tag or version fails closed. The state
// machine treats any decode failure as "this transaction carries no
// instruction" and keeps processing the block.

// Errors returned by the instruction codec.
var (
	ErrUnknownInstruction = errors.New("unknown instruction type tag")
	ErrUnknownVersion     = errors.New("unknown payload version: client is likely outdated")
	ErrMalformedFields    = errors.New("instruction fields violate protocol limits")
)

// PayloadVersion is the highest payload encoding version this client
// understands.
const PayloadVersion = 1

// MaxPayloadSize bounds a decoded payload. Larger embedded data cannot
// satisfy the host chain's standard relay rules anyway.
const MaxPayloadSize = 64 * 1024

// maxMetaField bounds each metadata string at issuance.
const maxMetaField = 255

// writeAmount serializes a non-negative token amount.
func writeAmount(w *cser.Writer, v int64) error {
	if v < 0 {
		return ErrMalformedFields
	}
	w.U64(uint64(v))
	return nil
}

// readAmount deserializes a token amount, rejecting values outside the
// signed 64-bit range.
func readAmount(r *cser.Reader) int64 {
	v := r.U64()
	if v > math.MaxInt64 {
		panic(cser.ErrMalformedEncoding)
	}
	return int64(v)
}

func marshalMeta(w *cser.Writer, m PropertyMeta) error {
	for _, s := range []string{m.Category, m.Subcategory, m.Name, m.URL, m.Data} {
		if len(s) > maxMetaField {
			return ErrMalformedFields
		}
		w.SliceBytes([]byte(s))
	}
	w.Bool(m.Divisible)
	return nil
}

func unmarshalMeta(r *cser.Reader) PropertyMeta {
	var m PropertyMeta
	m.Category = string(r.SliceBytes(maxMetaField))
	m.Subcategory = string(r.SliceBytes(maxMetaField))
	m.Name = string(r.SliceBytes(maxMetaField))
	m.URL = string(r.SliceBytes(maxMetaField))
	m.Data = string(r.SliceBytes(maxMetaField))
	m.Divisible = r.Bool()
	return m
}

// InstructionMarshalCSER serializes an instruction into the cser streams.
func InstructionMarshalCSER(w *cser.Writer, instr Instruction) error {
	w.U8(PayloadVersion)
	w.U8(instr.InstructionType())

	switch v := instr.(type) {
	case SimpleSend:
		w.U32(uint32(v.Property))
		return writeAmount(w, v.Amount)
	case Grant:
		w.U32(uint32(v.Property))
		return writeAmount(w, v.Amount)
	case Revoke:
		w.U32(uint32(v.Property))
		return writeAmount(w, v.Amount)
	case IssueFixed:
		if err := marshalMeta(w, v.Meta); err != nil {
			return err
		}
		return writeAmount(w, v.Amount)
	case IssueManaged:
		return marshalMeta(w, v.Meta)
	case IssueCrowdsale:
		if err := marshalMeta(w, v.Meta); err != nil {
			return err
		}
		w.U32(uint32(v.DesiredProperty))
		if err := writeAmount(w, v.PriceRate); err != nil {
			return err
		}
		w.U64(uint64(v.Deadline))
		w.U8(v.EarlyBonusPct)
		w.U8(v.IssuerBonusPct)
		return nil
	case CloseCrowdsale:
		w.U32(uint32(v.Property))
		return nil
	case AddDelegate:
		w.U32(uint32(v.Property))
		return nil
	case RemoveDelegate:
		w.U32(uint32(v.Property))
		return nil
	case EnableFreezing:
		w.U32(uint32(v.Property))
		return nil
	case DisableFreezing:
		w.U32(uint32(v.Property))
		return nil
	case Freeze:
		w.U32(uint32(v.Property))
		return writeAmount(w, v.Amount)
	case Unfreeze:
		w.U32(uint32(v.Property))
		return writeAmount(w, v.Amount)
	case DexSell:
		w.U32(uint32(v.Property))
		if err := writeAmount(w, v.Amount); err != nil {
			return err
		}
		if err := writeAmount(w, v.UnitPrice); err != nil {
			return err
		}
		if err := writeAmount(w, v.MinAccept); err != nil {
			return err
		}
		w.U32(uint32(v.PaymentWindow))
		return nil
	case DexAccept:
		w.U32(uint32(v.Property))
		return writeAmount(w, v.Amount)
	case DexPay:
		w.U32(uint32(v.Property))
		return writeAmount(w, v.Amount)
	default:
		return ErrUnknownInstruction
	}
}

// InstructionUnmarshalCSER deserializes a single instruction.
func InstructionUnmarshalCSER(r *cser.Reader) (Instruction, error) {
	version := r.U8()
	if version == 0 || version > PayloadVersion {
		return nil, ErrUnknownVersion
	}
	tag := r.U8()

	switch tag {
	case TypeSimpleSend:
		return SimpleSend{Property: PropertyID(r.U32()), Amount: readAmount(r)}, nil
	case TypeGrant:
		return Grant{Property: PropertyID(r.U32()), Amount: readAmount(r)}, nil
	case TypeRevoke:
		return Revoke{Property: PropertyID(r.U32()), Amount: readAmount(r)}, nil
	case TypeIssueFixed:
		meta := unmarshalMeta(r)
		return IssueFixed{Meta: meta, Amount: readAmount(r)}, nil
	case TypeIssueManaged:
		return IssueManaged{Meta: unmarshalMeta(r)}, nil
	case TypeIssueCrowdsale:
		meta := unmarshalMeta(r)
		return IssueCrowdsale{
			Meta:            meta,
			DesiredProperty: PropertyID(r.U32()),
			PriceRate:       readAmount(r),
			Deadline:        Timestamp(r.U64()),
			EarlyBonusPct:   r.U8(),
			IssuerBonusPct:  r.U8(),
		}, nil
	case TypeCloseCrowdsale:
		return CloseCrowdsale{Property: PropertyID(r.U32())}, nil
	case TypeAddDelegate:
		return AddDelegate{Property: PropertyID(r.U32())}, nil
	case TypeRemoveDelegate:
		return RemoveDelegate{Property: PropertyID(r.U32())}, nil
	case TypeEnableFreezing:
		return EnableFreezing{Property: PropertyID(r.U32())}, nil
	case TypeDisableFreezing:
		return DisableFreezing{Property: PropertyID(r.U32())}, nil
	case TypeFreeze:
		return Freeze{Property: PropertyID(r.U32()), Amount: readAmount(r)}, nil
	case TypeUnfreeze:
		return Unfreeze{Property: PropertyID(r.U32()), Amount: readAmount(r)}, nil
	case TypeDexSell:
		return DexSell{
			Property:      PropertyID(r.U32()),
			Amount:        readAmount(r),
			UnitPrice:     readAmount(r),
			MinAccept:     readAmount(r),
			PaymentWindow: idx.Block(r.U32()),
		}, nil
	case TypeDexAccept:
		return DexAccept{Property: PropertyID(r.U32()), Amount: readAmount(r)}, nil
	case TypeDexPay:
		return DexPay{Property: PropertyID(r.U32()), Amount: readAmount(r)}, nil
	default:
		return nil, ErrUnknownInstruction
	}
}

// EncodeInstruction serializes an instruction into a raw payload ready
// for embedding into a host-chain transaction.
func EncodeInstruction(instr Instruction) ([]byte, error) {
	return cser.MarshalBinaryAdapter(func(w *cser.Writer) error {
		return InstructionMarshalCSER(w, instr)
	})
}

// DecodeInstruction parses a raw embedded payload. It fails closed: any
// unknown tag, unknown version, truncation or non-canonical encoding
// yields an error and no instruction. The codec is stateless and knows
// nothing about ledger state.
func DecodeInstruction(raw []byte) (Instruction, error) {
	if len(raw) == 0 || len(raw) > MaxPayloadSize {
		return nil, cser.ErrMalformedEncoding
	}
	var instr Instruction
	err := cser.UnmarshalBinaryAdapter(raw, func(r *cser.Reader) error {
		var err error
		instr, err = InstructionUnmarshalCSER(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return instr, nil
}
