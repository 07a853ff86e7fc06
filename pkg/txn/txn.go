// Package txn implements the Transaction Coordinator: the single-writer
// state machine that drives a transaction from Active through Committing or
// RollingBack, orchestrating the WAL, the Rels Statistics Catalog, and the
// per-table Lists Update Stores into one commit/rollback protocol (spec.md
// §4.5).
package txn

import (
	"context"
	"sync"

	"github.com/kasuganosora/kuzugraph/pkg/config"
	"github.com/kasuganosora/kuzugraph/pkg/graphid"
	"github.com/kasuganosora/kuzugraph/pkg/kerr"
	"github.com/kasuganosora/kuzugraph/pkg/listsupdate"
	"github.com/kasuganosora/kuzugraph/pkg/mvcc"
	"github.com/kasuganosora/kuzugraph/pkg/relstats"
	"github.com/kasuganosora/kuzugraph/pkg/utils"
	"github.com/kasuganosora/kuzugraph/pkg/wal"
	"github.com/kasuganosora/kuzugraph/pkg/walrecord"
	"github.com/kasuganosora/kuzugraph/pkg/workerpool"
)

// State is a transaction's position in the commit/rollback state machine.
type State int

const (
	StateActive State = iota
	StateCommitting
	StateCommitted
	StateRollingBack
	StateRolled
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "Active"
	case StateCommitting:
		return "Committing"
	case StateCommitted:
		return "Committed"
	case StateRollingBack:
		return "RollingBack"
	case StateRolled:
		return "Rolled"
	default:
		return "Unknown"
	}
}

// Mode distinguishes a read-only transaction (no writer-exclusion, no
// staged WAL records) from a write transaction (at most one process-wide).
type Mode int

const (
	ReadOnly Mode = iota
	Write
)

// PageApplier copies a WAL shadow page into its original on-disk location,
// the checkpoint step's actual page-file mutation. Implemented by the
// top-level Database, which owns the concrete page files; pkg/txn only
// knows the WAL/stats/lists-update-store choreography around it.
type PageApplier interface {
	ApplyStructNodeProp(rec walrecord.StructNodePropRecord) error
	ApplyStructAdjColProp(rec walrecord.StructAdjColPropRecord) error
}

// Coordinator owns the single active writer slot and the resources a
// commit or rollback touches: the WAL, the stats catalog, the page
// applier, and the per-table Lists Update Stores staged by the active
// writer.
type Coordinator struct {
	mu sync.Mutex

	wal         *wal.WAL
	stats       *relstats.Catalog
	pageApplier PageApplier
	checkpoints *workerpool.ScanPool

	activeWriter *Transaction
	listsStores  map[graphid.TableID]*listsupdate.Store

	nextXID mvcc.XID
	clog    *mvcc.CommitLog
	mvccCfg config.MVCCConfig
}

// NewCoordinator builds a coordinator over an already-open WAL and stats
// catalog. checkpointWorkers sizes the ScanPool that runs the checkpoint's
// shadow-page copy-back during Commit; ExecuteParallel starts one goroutine
// per batch, so this size does not limit how many batches run at once and
// passing 1 does not make the checkpoint serial. mvccCfg bounds
// the in-memory commit-history kept for diagnostics (pkg/mvcc.CommitLog). A
// nil clock defaults to the system clock; tests can pass a
// utils.FixedTimeProvider/MockTimeProvider to control commit-log aging.
func NewCoordinator(w *wal.WAL, stats *relstats.Catalog, applier PageApplier, checkpointWorkers int, mvccCfg config.MVCCConfig, clock utils.TimeProvider) (*Coordinator, error) {
	c := &Coordinator{
		wal:         w,
		stats:       stats,
		pageApplier: applier,
		listsStores: make(map[graphid.TableID]*listsupdate.Store),
		nextXID:     mvcc.XIDBootstrap,
		clog:        mvcc.NewCommitLog(clock),
		mvccCfg:     mvccCfg,
	}

	pool, err := workerpool.NewScanPool(checkpointWorkers, c.checkpointScanFunc)
	if err != nil {
		return nil, err
	}
	if err := pool.Start(); err != nil {
		return nil, err
	}
	c.checkpoints = pool

	return c, nil
}

// RegisterListsStore associates a table's Lists Update Store with this
// coordinator, so Commit/Rollback can clear it as part of the protocol.
func (c *Coordinator) RegisterListsStore(tableID graphid.TableID, store *listsupdate.Store) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listsStores[tableID] = store
}

// BeginRead starts a read-only transaction. Any number of these may be
// active concurrently alongside the single active writer.
func (c *Coordinator) BeginRead() *Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.allocateXID()

	return &Transaction{
		id:          id,
		mode:        ReadOnly,
		state:       StateActive,
		coordinator: c,
	}
}

// BeginWrite starts the process-wide single write transaction. Returns a
// LogicError if a writer is already active.
func (c *Coordinator) BeginWrite() (*Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeWriter != nil {
		return nil, kerr.Logic("a write transaction is already active (txn %d)", c.activeWriter.id)
	}

	id := c.allocateXID()

	txn := &Transaction{
		id:          id,
		mode:        Write,
		state:       StateActive,
		coordinator: c,
	}
	c.activeWriter = txn
	return txn, nil
}

// checkpointScanFunc applies one batch of staged records, selected by
// task.Data, into their original pages via the PageApplier. Each task
// covers a disjoint slice of the pending-record lists so batches can run
// concurrently without contending on the same original page.
func (c *Coordinator) checkpointScanFunc(ctx context.Context, task workerpool.ScanTask) (workerpool.ScanResult, error) {
	batch, ok := task.Data.(checkpointBatch)
	if !ok {
		return workerpool.ScanResult{}, kerr.Logic("checkpoint task %d carries no checkpointBatch", task.ID)
	}

	for _, rec := range batch.nodeProps {
		if err := c.pageApplier.ApplyStructNodeProp(rec); err != nil {
			return workerpool.ScanResult{TaskID: task.ID, Error: err}, err
		}
	}
	for _, rec := range batch.adjColProps {
		if err := c.pageApplier.ApplyStructAdjColProp(rec); err != nil {
			return workerpool.ScanResult{TaskID: task.ID, Error: err}, err
		}
	}

	return workerpool.ScanResult{TaskID: task.ID}, nil
}

type checkpointBatch struct {
	nodeProps   []walrecord.StructNodePropRecord
	adjColProps []walrecord.StructAdjColPropRecord
}

// checkpoint replays every record currently in the WAL into its original
// page via the PageApplier, splitting the records into batches of 64 that
// run concurrently through the ScanPool (spec.md §3.1's parallel page
// copy-back). Must be called with
// c.mu held and the WAL already flushed through its commit record.
func (c *Coordinator) checkpoint() error {
	it := c.wal.GetIterator()

	var nodeProps []walrecord.StructNodePropRecord
	var adjColProps []walrecord.StructAdjColPropRecord

	for it.HasNext() {
		rec, err := it.Next()
		if err != nil {
			return err
		}
		switch rec.Kind {
		case walrecord.KindStructNodeProp:
			nodeProps = append(nodeProps, *rec.NodeProp)
		case walrecord.KindStructAdjColProp:
			adjColProps = append(adjColProps, *rec.AdjColProp)
		case walrecord.KindCommit:
			// No page to apply; marks the end of this transaction's records.
		}
	}

	const batchSize = 64
	var tasks []workerpool.ScanTask
	taskID := 0
	for i := 0; i < len(nodeProps); i += batchSize {
		end := i + batchSize
		if end > len(nodeProps) {
			end = len(nodeProps)
		}
		tasks = append(tasks, workerpool.ScanTask{ID: taskID, Data: checkpointBatch{nodeProps: nodeProps[i:end]}})
		taskID++
	}
	for i := 0; i < len(adjColProps); i += batchSize {
		end := i + batchSize
		if end > len(adjColProps) {
			end = len(adjColProps)
		}
		tasks = append(tasks, workerpool.ScanTask{ID: taskID, Data: checkpointBatch{adjColProps: adjColProps[i:end]}})
		taskID++
	}

	if len(tasks) == 0 {
		return nil
	}

	results, err := c.checkpoints.ExecuteParallel(context.Background(), tasks)
	if err != nil {
		for _, r := range results {
			if r.Error != nil {
				return r.Error
			}
		}
		return err
	}
	return nil
}

// Checkpoint manually replays any records currently staged in the WAL into
// their original files and clears the WAL, without requiring a commit. A
// no-op on an empty WAL. Exposed for callers that want to force a
// checkpoint outside the normal commit path.
func (c *Coordinator) Checkpoint() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.wal.IsEmptyWAL() {
		return nil
	}
	if err := c.checkpoint(); err != nil {
		return err
	}
	c.stats.CommitSwap()
	c.clearListsStores()
	return c.wal.ClearWAL()
}

// clearListsStores resets every registered Lists Update Store, the shared
// tail of both the commit and rollback protocols. Must be called with
// c.mu held.
func (c *Coordinator) clearListsStores() {
	for _, store := range c.listsStores {
		store.Reset()
	}
}

// allocateXID assigns the next transaction id. Must be called with c.mu
// held.
func (c *Coordinator) allocateXID() mvcc.XID {
	id := c.nextXID
	c.nextXID = mvcc.NextXID(id)
	return id
}

// recordOutcome logs a transaction's terminal status into the commit log
// and prunes it down to the MVCC config's bounds. Must be called with c.mu
// held.
func (c *Coordinator) recordOutcome(id mvcc.XID, status mvcc.TransactionStatus) {
	c.clog.SetStatus(id, status)
	c.clog.GC(c.mvccCfg.GCAgeThreshold, c.mvccCfg.MaxActiveTxns)
}

// CommitLog returns the coordinator's bounded in-memory transaction outcome
// history, for diagnostics.
func (c *Coordinator) CommitLog() *mvcc.CommitLog {
	return c.clog
}

// Close stops the coordinator's checkpoint pool.
func (c *Coordinator) Close() error {
	return c.checkpoints.Close()
}

// Recover runs crash recovery on an already-open WAL per spec.md §4.3/§4.5:
// if the WAL's last logged record is a commit, the transaction it closes
// is known durable and its pages are replayed into the original files; if
// not (a crash mid-write), the WAL's partial records are discarded as if
// the transaction never happened. Either way the WAL ends empty and the
// stats read/write snapshots end identical.
func (c *Coordinator) Recover() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.wal.IsEmptyWAL() {
		return nil
	}

	if c.wal.IsLastLoggedRecordCommit() {
		if err := c.checkpoint(); err != nil {
			return kerr.Recovery(err, "failed to replay committed WAL records during recovery")
		}
		c.stats.CommitSwap()
	} else {
		c.stats.Rollback()
	}

	c.clearListsStores()
	return c.wal.ClearWAL()
}

// Transaction is one transaction's handle into the Coordinator, carrying
// its own position in the Active/Committing/Committed/RollingBack/Rolled
// state machine.
type Transaction struct {
	id          mvcc.XID
	mode        Mode
	state       State
	coordinator *Coordinator
}

// ID returns the transaction's coordinator-assigned id.
func (t *Transaction) ID() mvcc.XID { return t.id }

// Mode returns whether this is a read-only or write transaction.
func (t *Transaction) Mode() Mode { return t.mode }

// State returns the transaction's current state-machine position.
func (t *Transaction) State() State { return t.state }

func (t *Transaction) requireActiveWriter() error {
	if t.mode != Write {
		return kerr.Logic("transaction %d is read-only, cannot log page updates", t.id)
	}
	if t.state != StateActive {
		return kerr.Logic("transaction %d is not active (state=%s)", t.id, t.state)
	}
	return nil
}

// LogStructNodeProp stages a structured node property page update. The
// write-transaction's only route to the WAL: callers apply their in-memory
// edit to a shadow page, then call this to make the edit durable-pending.
func (t *Transaction) LogStructNodeProp(rec walrecord.StructNodePropRecord) error {
	if err := t.requireActiveWriter(); err != nil {
		return err
	}
	return t.coordinator.wal.LogStructNodePropertyPageRecord(rec)
}

// LogStructAdjColProp stages a structured adjacency-column property page
// update, mirroring LogStructNodeProp for the adjacency-column file shape.
func (t *Transaction) LogStructAdjColProp(rec walrecord.StructAdjColPropRecord) error {
	if err := t.requireActiveWriter(); err != nil {
		return err
	}
	return t.coordinator.wal.LogStructAdjColumnPropertyPageRecord(rec)
}

// Commit runs the commit protocol (spec.md §4.5 step 1-4): flush the WAL
// through a commit record, checkpoint every staged page into its original
// file, swap the stats catalog's read/write snapshots, clear the WAL, and
// reset the Lists Update Stores. A read-only transaction's commit is a
// pure state transition with nothing to flush.
func (t *Transaction) Commit() error {
	if t.state != StateActive {
		return kerr.Logic("transaction %d cannot commit from state %s", t.id, t.state)
	}

	if t.mode == ReadOnly {
		t.state = StateCommitted
		t.coordinator.mu.Lock()
		t.coordinator.recordOutcome(t.id, mvcc.TxnStatusCommitted)
		t.coordinator.mu.Unlock()
		return nil
	}

	c := t.coordinator
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeWriter != t {
		return kerr.Logic("transaction %d is not the coordinator's active writer", t.id)
	}

	t.state = StateCommitting

	if err := c.wal.LogCommit(uint64(t.id)); err != nil {
		t.state = StateActive
		return err
	}
	if err := c.wal.FlushAllPages(); err != nil {
		t.state = StateActive
		return err
	}

	if err := c.checkpoint(); err != nil {
		// The WAL is durable on disk even though checkpointing failed
		// mid-way; a later Recover() will finish applying it. The
		// transaction itself is left Committing rather than rolled
		// back, since its WAL records must not be discarded.
		return err
	}

	c.stats.CommitSwap()
	c.clearListsStores()

	if err := c.wal.ClearWAL(); err != nil {
		return err
	}

	t.state = StateCommitted
	c.activeWriter = nil
	c.recordOutcome(t.id, mvcc.TxnStatusCommitted)
	return nil
}

// Rollback runs the rollback protocol (spec.md §4.5): discard the staged
// Lists Update Store state, drop the WAL's uncommitted records, and revert
// the stats catalog's write snapshot. The original page files are never
// touched, since nothing was checkpointed into them yet.
func (t *Transaction) Rollback() error {
	if t.state != StateActive {
		return kerr.Logic("transaction %d cannot roll back from state %s", t.id, t.state)
	}

	if t.mode == ReadOnly {
		t.state = StateRolled
		t.coordinator.mu.Lock()
		t.coordinator.recordOutcome(t.id, mvcc.TxnStatusAborted)
		t.coordinator.mu.Unlock()
		return nil
	}

	c := t.coordinator
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeWriter != t {
		return kerr.Logic("transaction %d is not the coordinator's active writer", t.id)
	}

	t.state = StateRollingBack

	c.clearListsStores()
	c.stats.Rollback()

	if err := c.wal.ClearWAL(); err != nil {
		return err
	}

	t.state = StateRolled
	c.activeWriter = nil
	c.recordOutcome(t.id, mvcc.TxnStatusAborted)
	return nil
}
