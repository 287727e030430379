package layercore

import (
	"errors"
	"sync"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-token-layer/inter"
	"github.com/rony4d/go-token-layer/ledger"
	"github.com/rony4d/go-token-layer/tokenlayer"
)

var (
	// ErrNonSequential is returned by ConnectBlock when the block does
	// not extend the current head.
	ErrNonSequential = errors.New("block does not extend the current head")

	// ErrNoBlocks is returned by DisconnectBlock when nothing is
	// connected.
	ErrNoBlocks = errors.New("no connected blocks")
)

// blockRecord remembers where a block's mutations start in the ledger
// journal and the side-state undo log, and which outcomes it produced.
// Disconnecting the block reverts both spans and forgets the outcomes.
type blockRecord struct {
	height   idx.Block
	hash     common.Hash
	snapshot int
	side     int
	txids    []common.Hash
}

// Coordinator is the single entry point for driving the token layer from
// host-chain events. It serializes all access: ConnectBlock and
// DisconnectBlock take the write lock, queries take the read lock, so
// readers never observe a half-applied block.
//
// Blocks connect strictly in height order and disconnect strictly in
// reverse; a reorg is a sequence of disconnects followed by connects of
// the replacement branch.
type Coordinator struct {
	mu     sync.RWMutex
	sm     *StateMachine
	blocks []blockRecord

	// retention bounds how many connected blocks stay reversible; zero
	// keeps everything.
	retention int

	log *logrus.Entry
}

// NewCoordinator creates a coordinator with a fresh state machine and
// empty ledger.
func NewCoordinator(rules tokenlayer.Rules, logger *logrus.Logger) *Coordinator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Coordinator{
		sm:  NewStateMachine(rules, logger),
		log: logger.WithField("module", "coordinator"),
	}
}

// SetOutcomeRetention bounds how many connected blocks stay reversible
// and queryable. Older blocks are compacted away as new ones connect:
// their outcomes are forgotten and their journal spans discarded, so
// DisconnectBlock can no longer reach below the retained depth. A depth
// of zero (the default) retains everything.
func (c *Coordinator) SetOutcomeRetention(depth int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retention = depth
}

// ConnectBlock applies one confirmed block. Expired reservations are
// released and overdue crowdsales closed first, then every transaction is
// applied in order, each producing a queryable outcome. The first block
// may arrive at any height; every later one must extend the head by
// exactly one.
func (c *Coordinator) ConnectBlock(b *inter.Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := len(c.blocks); n > 0 && b.Height != c.blocks[n-1].height+1 {
		return ErrNonSequential
	}

	rec := blockRecord{
		height:   b.Height,
		hash:     b.Hash,
		snapshot: c.sm.store.Snapshot(),
		side:     c.sm.sideSnapshot(),
	}

	c.sm.expireReservations(b)
	c.sm.processDeadlines(b)

	var valid int
	for i := range b.Txs {
		tx := &b.Txs[i]
		out := c.sm.applyTx(b, tx)
		c.sm.outcomes[tx.TxID] = out
		rec.txids = append(rec.txids, tx.TxID)
		if out.Valid {
			valid++
		}
	}
	c.blocks = append(c.blocks, rec)
	c.compact()

	c.log.WithFields(logrus.Fields{
		"height": b.Height,
		"hash":   b.Hash.Hex(),
		"txs":    len(b.Txs),
		"valid":  valid,
	}).Info("connected block")
	return nil
}

// compact drops block records beyond the retention depth. The journal
// and undo-log prefixes covering the dropped blocks are discarded and
// the surviving records' snapshot indices rebased, so memory stays
// proportional to the retained depth instead of chain length. Callers
// hold the write lock.
func (c *Coordinator) compact() {
	if c.retention <= 0 || len(c.blocks) <= c.retention {
		return
	}
	drop := len(c.blocks) - c.retention

	for _, rec := range c.blocks[:drop] {
		for _, txid := range rec.txids {
			delete(c.sm.outcomes, txid)
		}
	}

	// The oldest kept record's snapshots mark the boundary: everything
	// below belongs to the dropped blocks.
	journalPrefix := c.blocks[drop].snapshot
	sidePrefix := c.blocks[drop].side
	c.sm.store.DiscardJournalPrefix(journalPrefix)
	c.sm.discardUndoPrefix(sidePrefix)

	kept := append([]blockRecord(nil), c.blocks[drop:]...)
	for i := range kept {
		kept[i].snapshot -= journalPrefix
		kept[i].side -= sidePrefix
	}
	c.blocks = kept

	c.log.WithFields(logrus.Fields{
		"dropped":   drop,
		"retention": c.retention,
	}).Debug("compacted block records")
}

// DisconnectBlock reverts the most recently connected block exactly,
// restoring ledger, crowdsale and DEx state and forgetting the block's
// transaction outcomes.
func (c *Coordinator) DisconnectBlock() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.blocks)
	if n == 0 {
		return ErrNoBlocks
	}
	rec := c.blocks[n-1]

	// Side state reverts before the ledger so undo closures observe the
	// maps as the block left them; both spans cover the same block.
	c.sm.revertSideTo(rec.side)
	c.sm.store.RevertToSnapshot(rec.snapshot)
	for _, txid := range rec.txids {
		delete(c.sm.outcomes, txid)
	}
	c.blocks = c.blocks[:n-1]

	c.log.WithFields(logrus.Fields{
		"height": rec.height,
		"hash":   rec.hash.Hex(),
	}).Info("disconnected block")
	return nil
}

// Head returns the height and hash of the most recently connected block.
func (c *Coordinator) Head() (idx.Block, common.Hash, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := len(c.blocks)
	if n == 0 {
		return 0, common.Hash{}, false
	}
	return c.blocks[n-1].height, c.blocks[n-1].hash, true
}

// GetProperty returns a copy of the property record.
func (c *Coordinator) GetProperty(id inter.PropertyID) (ledger.Property, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sm.store.GetProperty(id)
}

// GetBalance returns the balance entry of an address for a property.
func (c *Coordinator) GetBalance(id inter.PropertyID, addr common.Address) ledger.Balance {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sm.store.GetBalance(id, addr)
}

// GetOutcome returns the recorded outcome of a processed transaction. It
// reports false for unknown hashes and for transactions whose block has
// been disconnected.
func (c *Coordinator) GetOutcome(txid common.Hash) (inter.Outcome, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out, ok := c.sm.outcomes[txid]
	if !ok {
		return inter.Outcome{}, false
	}
	return *out, true
}

// GetCrowdsale returns a copy of the crowdsale record for a property.
func (c *Coordinator) GetCrowdsale(id inter.PropertyID) (Crowdsale, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sm.GetCrowdsale(id)
}

// GetOffer returns a copy of the seller's open DEx offer for a property.
func (c *Coordinator) GetOffer(seller common.Address, id inter.PropertyID) (Offer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sm.GetOffer(seller, id)
}

// GetReservation returns a copy of the pending DEx reservation between a
// buyer and a seller for a property.
func (c *Coordinator) GetReservation(buyer, seller common.Address, id inter.PropertyID) (Reservation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sm.GetReservation(buyer, seller, id)
}

// CirculatingSupply sums all balances of a property. Always equals the
// property's recorded total supply.
func (c *Coordinator) CirculatingSupply(id inter.PropertyID) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sm.store.CirculatingSupply(id)
}
