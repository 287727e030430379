package inter

import "github.com/Fantom-foundation/lachesis-base/inter/idx"

// PropertyID identifies a token property. IDs are assigned by the ledger
// from a monotonically increasing counter; ID 0 is never allocated.
type PropertyID uint32

// Instruction type tags. The numbering follows the classic token-layer
// transaction-type space so decoded payloads map one-to-one onto wire
// history: sends and DEx actions sit in the low range, issuance in the
// 50s, freezing controls at 71/72 and 185/186.
const (
	TypeSimpleSend      = uint8(0)
	TypeDexSell         = uint8(20)
	TypeDexAccept       = uint8(22)
	TypeDexPay          = uint8(24)
	TypeIssueFixed      = uint8(50)
	TypeIssueCrowdsale  = uint8(51)
	TypeCloseCrowdsale  = uint8(53)
	TypeIssueManaged    = uint8(54)
	TypeGrant           = uint8(55)
	TypeRevoke          = uint8(56)
	TypeEnableFreezing  = uint8(71)
	TypeDisableFreezing = uint8(72)
	TypeAddDelegate     = uint8(73)
	TypeRemoveDelegate  = uint8(74)
	TypeFreeze          = uint8(185)
	TypeUnfreeze        = uint8(186)
)

// Instruction is a decoded token-layer request. Sender and reference
// addresses live on the enclosing ChainTx envelope; the instruction
// carries only the type-specific fields. Instructions are immutable once
// decoded and are discarded after application or rejection.
type Instruction interface {
	// InstructionType returns the wire type tag.
	InstructionType() uint8
}

// PropertyMeta is the descriptive metadata attached to a property at
// issuance. It never changes afterwards.
type PropertyMeta struct {
	Category    string
	Subcategory string
	Name        string
	URL         string
	Data        string
	Divisible   bool
}

// IssueFixed creates a property with a fixed total supply, credited
// entirely to the issuer at creation.
type IssueFixed struct {
	Meta   PropertyMeta
	Amount int64
}

// IssueManaged creates a property with zero initial supply; supply only
// changes through Grant and Revoke.
type IssueManaged struct {
	Meta PropertyMeta
}

// IssueCrowdsale creates a property together with an active crowdsale.
// Supply is minted lazily as contributions arrive.
type IssueCrowdsale struct {
	Meta PropertyMeta

	// DesiredProperty is the property contributors pay with.
	DesiredProperty PropertyID

	// PriceRate is the number of created tokens granted per unit of the
	// desired property, before the early-bird bonus.
	PriceRate int64

	// Deadline is the block time at which the crowdsale ends.
	Deadline Timestamp

	// EarlyBonusPct is the starting bonus percentage; it decays linearly
	// to zero at the deadline.
	EarlyBonusPct uint8

	// IssuerBonusPct is the percentage of all participant tokens minted
	// for the issuer when the crowdsale closes.
	IssuerBonusPct uint8
}

// CloseCrowdsale ends an active crowdsale before its deadline. Issuer
// only.
type CloseCrowdsale struct {
	Property PropertyID
}

// SimpleSend moves tokens from the sender to the reference address. A
// send of a crowdsale's desired property to its issuer doubles as a
// crowdsale contribution.
type SimpleSend struct {
	Property PropertyID
	Amount   int64
}

// Grant mints tokens of a managed property to the reference address (or
// to the sender when no reference is set).
type Grant struct {
	Property PropertyID
	Amount   int64
}

// Revoke burns tokens from the sender's own balance, shrinking total
// supply. Any holder may revoke what it holds.
type Revoke struct {
	Property PropertyID
	Amount   int64
}

// AddDelegate points the property's delegate at the reference address.
// Issuer only, even while a delegate is set.
type AddDelegate struct {
	Property PropertyID
}

// RemoveDelegate clears the property's delegate. The reference address
// must name the current delegate; only the issuer or the delegate itself
// may invoke it.
type RemoveDelegate struct {
	Property PropertyID
}

// EnableFreezing allows Freeze/Unfreeze on the property.
type EnableFreezing struct {
	Property PropertyID
}

// DisableFreezing forbids further Freeze/Unfreeze on the property.
type DisableFreezing struct {
	Property PropertyID
}

// Freeze marks the reference address's balance of the property as frozen.
// The amount is carried on the wire for compatibility but freezing always
// applies to the whole balance.
type Freeze struct {
	Property PropertyID
	Amount   int64
}

// Unfreeze clears the frozen flag on the reference address's balance.
type Unfreeze struct {
	Property PropertyID
	Amount   int64
}

// DexSell publishes a sell offer: Amount units of Property at UnitPrice
// payment units each. Tokens stay in the seller's available balance until
// accepted.
type DexSell struct {
	Property PropertyID
	Amount   int64

	// UnitPrice is the asking price per token unit, in base payment
	// units of the host chain.
	UnitPrice int64

	// MinAccept is the smallest quantity an accept may claim.
	MinAccept int64

	// PaymentWindow is the number of blocks an accepting buyer has to
	// deliver payment before the reservation expires.
	PaymentWindow idx.Block
}

// DexAccept reserves part of the offer published by the reference
// address. Reserved tokens move out of the seller's available balance
// until paid for or expired.
type DexAccept struct {
	Property PropertyID
	Amount   int64
}

// DexPay settles a reservation with the seller named by the reference
// address. The qualifying payment amount is read from the enclosing
// transaction's chain-native Payment value; it must cover the full
// reserved quantity (settlement is all-or-nothing).
type DexPay struct {
	Property PropertyID
	Amount   int64
}

func (IssueFixed) InstructionType() uint8      { return TypeIssueFixed }
func (IssueManaged) InstructionType() uint8    { return TypeIssueManaged }
func (IssueCrowdsale) InstructionType() uint8  { return TypeIssueCrowdsale }
func (CloseCrowdsale) InstructionType() uint8  { return TypeCloseCrowdsale }
func (SimpleSend) InstructionType() uint8      { return TypeSimpleSend }
func (Grant) InstructionType() uint8           { return TypeGrant }
func (Revoke) InstructionType() uint8          { return TypeRevoke }
func (AddDelegate) InstructionType() uint8     { return TypeAddDelegate }
func (RemoveDelegate) InstructionType() uint8  { return TypeRemoveDelegate }
func (EnableFreezing) InstructionType() uint8  { return TypeEnableFreezing }
func (DisableFreezing) InstructionType() uint8 { return TypeDisableFreezing }
func (Freeze) InstructionType() uint8          { return TypeFreeze }
func (Unfreeze) InstructionType() uint8        { return TypeUnfreeze }
func (DexSell) InstructionType() uint8         { return TypeDexSell }
func (DexAccept) InstructionType() uint8       { return TypeDexAccept }
func (DexPay) InstructionType() uint8          { return TypeDexPay }
