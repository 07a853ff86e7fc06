// Package walrecord encodes and decodes the fixed-layout WAL records that
// make up a header page's record stream: one byte of kind, followed by the
// kind's fixed fields, little-endian throughout.
package walrecord

import (
	"encoding/binary"

	"github.com/kasuganosora/kuzugraph/pkg/graphid"
	"github.com/kasuganosora/kuzugraph/pkg/kerr"
)

// Kind tags which of the three record shapes a record is.
type Kind uint8

const (
	KindStructNodeProp    Kind = 0
	KindStructAdjColProp  Kind = 1
	KindCommit            Kind = 2
)

// Sizes in bytes of each kind's fixed payload, not counting the leading
// kind byte.
const (
	StructNodePropPayloadSize   = 20
	StructAdjColPropPayloadSize = 28
	CommitPayloadSize           = 8
)

// StructNodePropRecord logs that a structured node property page has a
// staged update in the WAL shadow file.
type StructNodePropRecord struct {
	NodeTableID       graphid.TableID
	PropertyID        graphid.PropertyID
	PageIdxOriginal   uint32
	WALShadowPageIdx  uint32
}

// StructAdjColPropRecord logs that a structured adjacency-column property
// page has a staged update in the WAL shadow file.
type StructAdjColPropRecord struct {
	SrcNodeTableID    graphid.TableID
	RelTableID        graphid.TableID
	PropertyID        graphid.PropertyID
	PageIdxOriginal   uint32
	WALShadowPageIdx  uint32
}

// CommitRecord marks a transaction's commit point; a WAL is only considered
// durable through the last record if the last record logged is a commit.
type CommitRecord struct {
	TxnID uint64
}

// Record is the decoded form of any one of the three kinds; exactly one of
// the three pointer fields is non-nil.
type Record struct {
	Kind         Kind
	NodeProp     *StructNodePropRecord
	AdjColProp   *StructAdjColPropRecord
	Commit       *CommitRecord
}

// EncodedSize returns the total on-disk size, including the leading kind
// byte, of a record with the given kind.
func EncodedSize(k Kind) (int, error) {
	switch k {
	case KindStructNodeProp:
		return 1 + StructNodePropPayloadSize, nil
	case KindStructAdjColProp:
		return 1 + StructAdjColPropPayloadSize, nil
	case KindCommit:
		return 1 + CommitPayloadSize, nil
	default:
		return 0, kerr.Logic("unknown WAL record kind %d", k)
	}
}

// EncodeStructNodeProp encodes a StructNodePropRecord.
func EncodeStructNodeProp(r StructNodePropRecord) []byte {
	buf := make([]byte, 1+StructNodePropPayloadSize)
	buf[0] = byte(KindStructNodeProp)
	binary.LittleEndian.PutUint64(buf[1:9], uint64(r.NodeTableID))
	binary.LittleEndian.PutUint32(buf[9:13], uint32(r.PropertyID))
	binary.LittleEndian.PutUint32(buf[13:17], r.PageIdxOriginal)
	binary.LittleEndian.PutUint32(buf[17:21], r.WALShadowPageIdx)
	return buf
}

// EncodeStructAdjColProp encodes a StructAdjColPropRecord.
func EncodeStructAdjColProp(r StructAdjColPropRecord) []byte {
	buf := make([]byte, 1+StructAdjColPropPayloadSize)
	buf[0] = byte(KindStructAdjColProp)
	binary.LittleEndian.PutUint64(buf[1:9], uint64(r.SrcNodeTableID))
	binary.LittleEndian.PutUint64(buf[9:17], uint64(r.RelTableID))
	binary.LittleEndian.PutUint32(buf[17:21], uint32(r.PropertyID))
	binary.LittleEndian.PutUint32(buf[21:25], r.PageIdxOriginal)
	binary.LittleEndian.PutUint32(buf[25:29], r.WALShadowPageIdx)
	return buf
}

// EncodeCommit encodes a CommitRecord.
func EncodeCommit(r CommitRecord) []byte {
	buf := make([]byte, 1+CommitPayloadSize)
	buf[0] = byte(KindCommit)
	binary.LittleEndian.PutUint64(buf[1:9], r.TxnID)
	return buf
}

// Decode reads one record starting at buf[0], returning the decoded Record
// and the number of bytes consumed.
func Decode(buf []byte) (*Record, int, error) {
	if len(buf) < 1 {
		return nil, 0, kerr.Recovery(nil, "empty buffer, cannot read record kind")
	}
	kind := Kind(buf[0])

	size, err := EncodedSize(kind)
	if err != nil {
		return nil, 0, kerr.Recovery(err, "malformed WAL record kind byte 0x%x", buf[0])
	}
	if len(buf) < size {
		return nil, 0, kerr.Recovery(nil, "truncated WAL record: need %d bytes, have %d", size, len(buf))
	}

	switch kind {
	case KindStructNodeProp:
		p := buf[1:size]
		rec := &StructNodePropRecord{
			NodeTableID:      graphid.TableID(binary.LittleEndian.Uint64(p[0:8])),
			PropertyID:       graphid.PropertyID(binary.LittleEndian.Uint32(p[8:12])),
			PageIdxOriginal:  binary.LittleEndian.Uint32(p[12:16]),
			WALShadowPageIdx: binary.LittleEndian.Uint32(p[16:20]),
		}
		return &Record{Kind: kind, NodeProp: rec}, size, nil
	case KindStructAdjColProp:
		p := buf[1:size]
		rec := &StructAdjColPropRecord{
			SrcNodeTableID:   graphid.TableID(binary.LittleEndian.Uint64(p[0:8])),
			RelTableID:       graphid.TableID(binary.LittleEndian.Uint64(p[8:16])),
			PropertyID:       graphid.PropertyID(binary.LittleEndian.Uint32(p[16:20])),
			PageIdxOriginal:  binary.LittleEndian.Uint32(p[20:24]),
			WALShadowPageIdx: binary.LittleEndian.Uint32(p[24:28]),
		}
		return &Record{Kind: kind, AdjColProp: rec}, size, nil
	case KindCommit:
		p := buf[1:size]
		rec := &CommitRecord{TxnID: binary.LittleEndian.Uint64(p[0:8])}
		return &Record{Kind: kind, Commit: rec}, size, nil
	default:
		return nil, 0, kerr.Recovery(nil, "unreachable: unknown kind %d survived EncodedSize", kind)
	}
}
