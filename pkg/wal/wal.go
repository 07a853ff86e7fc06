// Package wal implements the write-ahead log: a chain of fixed-size header
// pages, each holding a record count, a forward link to the next header
// page, and a stream of walrecord-encoded records. A single mutex guards
// both the writer and any iterator reading the same WAL, mirroring the
// original's BaseWALAndWALIterator sharing one mutex by reference.
package wal

import (
	"encoding/binary"
	"sync"

	"github.com/kasuganosora/kuzugraph/pkg/kerr"
	"github.com/kasuganosora/kuzugraph/pkg/pageio"
	"github.com/kasuganosora/kuzugraph/pkg/walrecord"
)

// HeaderPageSize is the default header page size; callers normally pass
// Config.Storage.PageSize instead.
const HeaderPageSize = 4096

// headerPrefixSize is the size of the num_records/next_header_page_idx
// prefix at the start of every header page.
const headerPrefixSize = 16

// NoNextHeaderPage is the sentinel value for "no further header page".
const NoNextHeaderPage = ^uint64(0)

// WAL is the write-ahead log for one database directory. It owns the
// underlying page file and a single mutex shared with every iterator handed
// out by GetIterator.
type WAL struct {
	mu       sync.Mutex
	file     *pageio.PageFile
	pageSize uint64

	headerPageIdx    uint64 // index of the current (last) header page
	numRecords       uint64 // records already written to the current header page
	writeOffset      uint64 // byte offset within the current header page's record stream
	lastRecordKind   walrecord.Kind
	hasLastRecord    bool
}

// Open opens or creates the WAL file at path with the given page size.
func Open(path string, pageSize uint64) (*WAL, error) {
	f, err := pageio.Open(path, pageSize)
	if err != nil {
		return nil, err
	}

	w := &WAL{file: f, pageSize: pageSize}

	numPages, err := f.NumPages()
	if err != nil {
		return nil, err
	}
	if numPages == 0 {
		if err := w.initHeaderPage(0); err != nil {
			return nil, err
		}
		return w, nil
	}

	if err := w.loadTail(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *WAL) initHeaderPage(idx uint64) error {
	buf := make([]byte, w.pageSize)
	binary.LittleEndian.PutUint64(buf[0:8], 0)
	binary.LittleEndian.PutUint64(buf[8:16], NoNextHeaderPage)
	if err := w.file.WritePage(idx, buf); err != nil {
		return err
	}
	w.headerPageIdx = idx
	w.numRecords = 0
	w.writeOffset = headerPrefixSize
	w.hasLastRecord = false
	return nil
}

// loadTail walks the header-page chain from page 0 to find the last header
// page and replays its record stream to recover numRecords/writeOffset/
// lastRecordKind, so a freshly-opened WAL can keep appending where a prior
// process left off.
func (w *WAL) loadTail() error {
	pageIdx := uint64(0)
	buf := make([]byte, w.pageSize)

	for {
		if err := w.file.ReadPage(pageIdx, buf); err != nil {
			return err
		}
		numRecords := binary.LittleEndian.Uint64(buf[0:8])
		nextPage := binary.LittleEndian.Uint64(buf[8:16])

		if nextPage == NoNextHeaderPage {
			w.headerPageIdx = pageIdx
			w.numRecords = numRecords

			offset := uint64(headerPrefixSize)
			var hasLast bool
			var lastKind walrecord.Kind
			for i := uint64(0); i < numRecords; i++ {
				rec, n, err := walrecord.Decode(buf[offset:])
				if err != nil {
					return kerr.Recovery(err, "corrupt WAL header page %d at record %d", pageIdx, i)
				}
				offset += uint64(n)
				hasLast = true
				lastKind = rec.Kind
			}
			w.writeOffset = offset
			w.hasLastRecord = hasLast
			w.lastRecordKind = lastKind
			return nil
		}
		pageIdx = nextPage
	}
}

// appendRaw appends an encoded record to the current header page's record
// stream, rolling over to a new header page if it doesn't fit. Must be
// called with mu held.
func (w *WAL) appendRaw(kind walrecord.Kind, encoded []byte) error {
	if w.writeOffset+uint64(len(encoded)) > w.pageSize {
		nextIdx := w.headerPageIdx + 1
		if err := w.linkNextHeaderPage(nextIdx); err != nil {
			return err
		}
		if err := w.initHeaderPage(nextIdx); err != nil {
			return err
		}
	}

	buf := make([]byte, w.pageSize)
	if err := w.file.ReadPage(w.headerPageIdx, buf); err != nil {
		return err
	}
	copy(buf[w.writeOffset:], encoded)
	w.writeOffset += uint64(len(encoded))
	w.numRecords++
	binary.LittleEndian.PutUint64(buf[0:8], w.numRecords)
	if err := w.file.WritePage(w.headerPageIdx, buf); err != nil {
		return err
	}

	w.hasLastRecord = true
	w.lastRecordKind = kind
	return nil
}

func (w *WAL) linkNextHeaderPage(nextIdx uint64) error {
	buf := make([]byte, w.pageSize)
	if err := w.file.ReadPage(w.headerPageIdx, buf); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(buf[8:16], nextIdx)
	return w.file.WritePage(w.headerPageIdx, buf)
}

// LogStructNodePropertyPageRecord appends a StructNodeProp record.
func (w *WAL) LogStructNodePropertyPageRecord(rec walrecord.StructNodePropRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.appendRaw(walrecord.KindStructNodeProp, walrecord.EncodeStructNodeProp(rec))
}

// LogStructAdjColumnPropertyPageRecord appends a StructAdjColProp record.
func (w *WAL) LogStructAdjColumnPropertyPageRecord(rec walrecord.StructAdjColPropRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.appendRaw(walrecord.KindStructAdjColProp, walrecord.EncodeStructAdjColProp(rec))
}

// LogCommit appends a Commit record for txnID. A commit record must always
// be the last record logged by its transaction.
func (w *WAL) LogCommit(txnID uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.appendRaw(walrecord.KindCommit, walrecord.EncodeCommit(walrecord.CommitRecord{TxnID: txnID}))
}

// FlushAllPages fsyncs the WAL file.
func (w *WAL) FlushAllPages() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Flush()
}

// IsLastLoggedRecordCommit reports whether the last record appended to this
// WAL (across its lifetime, including before a reopen) was a Commit record.
func (w *WAL) IsLastLoggedRecordCommit() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hasLastRecord && w.lastRecordKind == walrecord.KindCommit
}

// IsEmptyWAL reports whether the WAL has no records at all.
func (w *WAL) IsEmptyWAL() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.hasLastRecord
}

// ClearWAL truncates the WAL back to a single empty header page, discarding
// all records. Called after a successful checkpoint or a rollback.
func (w *WAL) ClearWAL() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.initHeaderPage(0)
}

// Close closes the underlying file.
func (w *WAL) Close() error {
	return w.file.Close()
}

// GetIterator returns an Iterator over every record currently in the WAL,
// sharing this WAL's mutex so reads and writes never interleave
// inconsistently.
func (w *WAL) GetIterator() *Iterator {
	return &Iterator{wal: w}
}

// Iterator walks a WAL's records from the first header page onward. It does
// not own the WAL's mutex; it locks it for the duration of each Next call,
// following the original's non-owning back-reference into the WAL.
type Iterator struct {
	wal          *WAL
	pageIdx      uint64
	pageBuf      []byte
	recordsInPage uint64
	recordsRead  uint64
	offset       uint64
	started      bool
}

// HasNext reports whether there is another record to read.
func (it *Iterator) HasNext() bool {
	it.wal.mu.Lock()
	defer it.wal.mu.Unlock()

	if !it.started {
		return it.hasAnyRecordsLocked()
	}
	if it.recordsRead < it.recordsInPage {
		return true
	}
	return it.hasMoreHeaderPagesLocked()
}

func (it *Iterator) hasAnyRecordsLocked() bool {
	buf := make([]byte, it.wal.pageSize)
	if err := it.wal.file.ReadPage(0, buf); err != nil {
		return false
	}
	numRecords := binary.LittleEndian.Uint64(buf[0:8])
	return numRecords > 0
}

func (it *Iterator) hasMoreHeaderPagesLocked() bool {
	buf := make([]byte, it.wal.pageSize)
	if err := it.wal.file.ReadPage(it.pageIdx, buf); err != nil {
		return false
	}
	nextPage := binary.LittleEndian.Uint64(buf[8:16])
	return nextPage != NoNextHeaderPage
}

// Next returns the next record, advancing the iterator.
func (it *Iterator) Next() (*walrecord.Record, error) {
	it.wal.mu.Lock()
	defer it.wal.mu.Unlock()

	if !it.started {
		it.pageIdx = 0
		if err := it.loadPageLocked(); err != nil {
			return nil, err
		}
		it.started = true
	}

	for it.recordsRead >= it.recordsInPage {
		buf := make([]byte, it.wal.pageSize)
		if err := it.wal.file.ReadPage(it.pageIdx, buf); err != nil {
			return nil, err
		}
		nextPage := binary.LittleEndian.Uint64(buf[8:16])
		if nextPage == NoNextHeaderPage {
			return nil, kerr.Logic("WAL iterator exhausted")
		}
		it.pageIdx = nextPage
		if err := it.loadPageLocked(); err != nil {
			return nil, err
		}
	}

	rec, n, err := walrecord.Decode(it.pageBuf[it.offset:])
	if err != nil {
		return nil, err
	}
	it.offset += uint64(n)
	it.recordsRead++
	return rec, nil
}

func (it *Iterator) loadPageLocked() error {
	buf := make([]byte, it.wal.pageSize)
	if err := it.wal.file.ReadPage(it.pageIdx, buf); err != nil {
		return err
	}
	it.pageBuf = buf
	it.recordsInPage = binary.LittleEndian.Uint64(buf[0:8])
	it.recordsRead = 0
	it.offset = headerPrefixSize
	return nil
}
