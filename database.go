// Package kuzugraph assembles the storage-engine sub-packages (wal,
// relstats, listsupdate, txn, pageio, config, dbdir) into the single entry
// point a caller opens: Database. This mirrors the teacher's pkg/service.go,
// which assembles its own sub-packages behind a single NewServer.
package kuzugraph

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kasuganosora/kuzugraph/pkg/config"
	"github.com/kasuganosora/kuzugraph/pkg/dbdir"
	"github.com/kasuganosora/kuzugraph/pkg/graphid"
	"github.com/kasuganosora/kuzugraph/pkg/kerr"
	"github.com/kasuganosora/kuzugraph/pkg/listsupdate"
	"github.com/kasuganosora/kuzugraph/pkg/pageio"
	"github.com/kasuganosora/kuzugraph/pkg/relstats"
	"github.com/kasuganosora/kuzugraph/pkg/txn"
	"github.com/kasuganosora/kuzugraph/pkg/wal"
	"github.com/kasuganosora/kuzugraph/pkg/walrecord"
)

const (
	walFileName        = "wal"
	relsStatsFileName  = "rels.statistics.original"
	shadowPageFileName = "wal.shadow"
)

// Database is an opened kuzugraph database directory: the WAL, the
// relationship statistics catalog, the Transaction Coordinator, and the
// per-table page files the Coordinator's PageApplier writes into on
// checkpoint (spec.md §6 Environment).
type Database struct {
	cfg  *config.Config
	lock *dbdir.Lock

	wal         *wal.WAL
	stats       *relstats.Catalog
	coordinator *txn.Coordinator

	shadowFile *pageio.PageFile

	mu        sync.Mutex
	nodeFiles map[nodePropKey]*pageio.PageFile
	adjFiles  map[adjColPropKey]*pageio.PageFile

	listsStores map[graphid.TableID]*listsupdate.Store
}

type nodePropKey struct {
	tableID    graphid.TableID
	propertyID graphid.PropertyID
}

type adjColPropKey struct {
	relTableID graphid.TableID
	propertyID graphid.PropertyID
}

// Open opens (creating if necessary) the database directory at dir, taking
// its exclusive open-lock, replaying any crash-recovery work the WAL
// records, and returning a ready-to-use Database.
func Open(dir string, cfg *config.Config) (*Database, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg.Storage.Directory = dir

	lock, err := dbdir.Acquire(dir)
	if err != nil {
		return nil, err
	}

	w, err := wal.Open(filepath.Join(dir, walFileName), cfg.Storage.PageSize)
	if err != nil {
		lock.Release()
		return nil, err
	}

	stats, statsErr := loadOrCreateStats(dir)
	if statsErr != nil {
		lock.Release()
		return nil, statsErr
	}

	shadowFile, err := pageio.Open(filepath.Join(dir, shadowPageFileName), cfg.Storage.PageSize)
	if err != nil {
		lock.Release()
		return nil, err
	}

	db := &Database{
		cfg:         cfg,
		lock:        lock,
		wal:         w,
		stats:       stats,
		shadowFile:  shadowFile,
		nodeFiles:   make(map[nodePropKey]*pageio.PageFile),
		adjFiles:    make(map[adjColPropKey]*pageio.PageFile),
		listsStores: make(map[graphid.TableID]*listsupdate.Store),
	}

	coordinator, err := txn.NewCoordinator(w, stats, db, cfg.Checkpoint.WorkerPoolSize, cfg.MVCC, nil)
	if err != nil {
		lock.Release()
		return nil, err
	}
	db.coordinator = coordinator

	if err := coordinator.Recover(); err != nil {
		return nil, err
	}

	return db, nil
}

func loadOrCreateStats(dir string) (*relstats.Catalog, error) {
	path := filepath.Join(dir, relsStatsFileName)
	if _, err := os.Stat(path); err != nil {
		return relstats.New(), nil
	}
	return relstats.LoadFromFile(path)
}

// RegisterTable registers a relationship table's Lists Update Store with
// the Transaction Coordinator, so it participates in commit/rollback.
func (db *Database) RegisterTable(tableID graphid.TableID, schema listsupdate.TableSchema) *listsupdate.Store {
	db.mu.Lock()
	defer db.mu.Unlock()

	store := listsupdate.New(schema)
	db.listsStores[tableID] = store
	db.coordinator.RegisterListsStore(tableID, store)
	return store
}

// BeginRead starts a read-only transaction.
func (db *Database) BeginRead() *txn.Transaction {
	return db.coordinator.BeginRead()
}

// BeginWrite starts the single process-wide write transaction.
func (db *Database) BeginWrite() (*txn.Transaction, error) {
	return db.coordinator.BeginWrite()
}

// Stats returns the database's relationship statistics catalog.
func (db *Database) Stats() *relstats.Catalog {
	return db.stats
}

// Checkpoint forces the Transaction Coordinator to replay any WAL records
// currently staged into their original page files, outside the normal
// commit path.
func (db *Database) Checkpoint() error {
	return db.coordinator.Checkpoint()
}

// Recover re-runs crash recovery against the WAL's current contents. Open
// already calls this once; exposed separately for callers that want to
// trigger it explicitly (e.g. after restoring a backup directory).
func (db *Database) Recover() error {
	return db.coordinator.Recover()
}

// Close saves the stats catalog and closes every file the database holds
// open (page files are closed without an fsync of their own), releasing
// its open-lock last so a crash mid-close still leaves the lock in place
// for the next recovery to see.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(db.stats.SaveToFile(filepath.Join(db.cfg.Storage.Directory, relsStatsFileName)))
	record(db.coordinator.Close())
	record(db.shadowFile.Close())
	for _, f := range db.nodeFiles {
		record(f.Close())
	}
	for _, f := range db.adjFiles {
		record(f.Close())
	}
	record(db.wal.Close())
	record(db.lock.Release())

	return firstErr
}

func (db *Database) nodePropFile(tableID graphid.TableID, propertyID graphid.PropertyID) (*pageio.PageFile, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	key := nodePropKey{tableID: tableID, propertyID: propertyID}
	if f, ok := db.nodeFiles[key]; ok {
		return f, nil
	}

	path := filepath.Join(db.cfg.Storage.Directory, fmt.Sprintf("node_%d_prop_%d.original", tableID, propertyID))
	f, err := pageio.Open(path, db.cfg.Storage.PageSize)
	if err != nil {
		return nil, err
	}
	db.nodeFiles[key] = f
	return f, nil
}

func (db *Database) adjColPropFile(relTableID graphid.TableID, propertyID graphid.PropertyID) (*pageio.PageFile, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	key := adjColPropKey{relTableID: relTableID, propertyID: propertyID}
	if f, ok := db.adjFiles[key]; ok {
		return f, nil
	}

	path := filepath.Join(db.cfg.Storage.Directory, fmt.Sprintf("adjcol_%d_prop_%d.original", relTableID, propertyID))
	f, err := pageio.Open(path, db.cfg.Storage.PageSize)
	if err != nil {
		return nil, err
	}
	db.adjFiles[key] = f
	return f, nil
}

// ApplyStructNodeProp implements txn.PageApplier: it copies the WAL's
// shadow page into the node property file's original page, the checkpoint
// step's actual mutation for a structured node property page update.
func (db *Database) ApplyStructNodeProp(rec walrecord.StructNodePropRecord) error {
	f, err := db.nodePropFile(rec.NodeTableID, rec.PropertyID)
	if err != nil {
		return err
	}
	return db.copyShadowPage(rec.WALShadowPageIdx, f, rec.PageIdxOriginal)
}

// ApplyStructAdjColProp implements txn.PageApplier for adjacency-column
// property pages, mirroring ApplyStructNodeProp's shadow-to-original copy.
func (db *Database) ApplyStructAdjColProp(rec walrecord.StructAdjColPropRecord) error {
	f, err := db.adjColPropFile(rec.RelTableID, rec.PropertyID)
	if err != nil {
		return err
	}
	return db.copyShadowPage(rec.WALShadowPageIdx, f, rec.PageIdxOriginal)
}

// copyShadowPage reads the shadow page at shadowIdx out of the shared
// wal.shadow file and writes it into target's page at originalIdx.
func (db *Database) copyShadowPage(shadowIdx uint32, target *pageio.PageFile, originalIdx uint32) error {
	buf := make([]byte, db.cfg.Storage.PageSize)
	if err := db.shadowFile.ReadPage(uint64(shadowIdx), buf); err != nil {
		return err
	}
	return target.WritePage(uint64(originalIdx), buf)
}

// StageShadowPage writes data, which must be exactly one page, into the
// shadow-file page at nextShadowPageIdx. Callers take that index from
// NextShadowPageIdx and pass it to txn.Transaction.LogStructNodeProp as
// WALShadowPageIdx.
func (db *Database) StageShadowPage(nextShadowPageIdx uint32, data []byte) error {
	if uint64(len(data)) != db.cfg.Storage.PageSize {
		return kerr.Logic("shadow page payload size %d does not match page size %d", len(data), db.cfg.Storage.PageSize)
	}
	return db.shadowFile.WritePage(uint64(nextShadowPageIdx), data)
}

// NextShadowPageIdx returns the next unused index in the shadow page file,
// for a caller assembling a StructNodePropRecord/StructAdjColPropRecord.
func (db *Database) NextShadowPageIdx() (uint32, error) {
	n, err := db.shadowFile.NumPages()
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}
