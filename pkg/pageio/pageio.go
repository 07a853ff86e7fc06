// Package pageio provides a fixed-page-size file handle and file-level
// helpers (an atomic rename of a shadow copy over its original, and a whole
// file copy). The checkpoint does not use the file-level helpers; it copies
// individual pages through PageFile.
package pageio

import (
	"fmt"
	"io"
	"os"

	"github.com/kasuganosora/kuzugraph/pkg/kerr"
)

// PageFile is a file accessed exclusively in fixed-size page units.
type PageFile struct {
	f        *os.File
	pageSize uint64
}

// Open opens (creating if necessary) a page file with the given page size.
func Open(path string, pageSize uint64) (*PageFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, kerr.IO(err, "failed to open page file %s", path)
	}
	return &PageFile{f: f, pageSize: pageSize}, nil
}

// NumPages returns the number of whole pages currently in the file.
func (p *PageFile) NumPages() (uint64, error) {
	info, err := p.f.Stat()
	if err != nil {
		return 0, kerr.IO(err, "failed to stat page file")
	}
	return uint64(info.Size()) / p.pageSize, nil
}

// ReadPage reads the page at pageIdx into buf, which must be exactly
// PageSize bytes.
func (p *PageFile) ReadPage(pageIdx uint64, buf []byte) error {
	if uint64(len(buf)) != p.pageSize {
		return kerr.Logic("ReadPage buffer size %d does not match page size %d", len(buf), p.pageSize)
	}
	offset := int64(pageIdx) * int64(p.pageSize)
	n, err := p.f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return kerr.IO(err, "failed to read page %d", pageIdx)
	}
	if n != len(buf) {
		for i := n; i < len(buf); i++ {
			buf[i] = 0
		}
	}
	return nil
}

// WritePage writes buf (exactly PageSize bytes) to the page at pageIdx,
// extending the file if necessary.
func (p *PageFile) WritePage(pageIdx uint64, buf []byte) error {
	if uint64(len(buf)) != p.pageSize {
		return kerr.Logic("WritePage buffer size %d does not match page size %d", len(buf), p.pageSize)
	}
	offset := int64(pageIdx) * int64(p.pageSize)
	if _, err := p.f.WriteAt(buf, offset); err != nil {
		return kerr.IO(err, "failed to write page %d", pageIdx)
	}
	return nil
}

// Flush fsyncs the file's contents to disk.
func (p *PageFile) Flush() error {
	if err := p.f.Sync(); err != nil {
		return kerr.IO(err, "failed to fsync page file")
	}
	return nil
}

// Close closes the underlying file.
func (p *PageFile) Close() error {
	return p.f.Close()
}

// PageSize returns the file's configured page size.
func (p *PageFile) PageSize() uint64 {
	return p.pageSize
}

// CommitShadow atomically replaces originalPath with shadowPath, swapping a
// staged shadow copy of a file into place over its original. Both paths
// must be on the same filesystem for the rename to be atomic.
func CommitShadow(shadowPath, originalPath string) error {
	if _, err := os.Stat(shadowPath); err != nil {
		return kerr.IO(err, "shadow file %s does not exist", shadowPath)
	}
	if err := os.Rename(shadowPath, originalPath); err != nil {
		return kerr.IO(err, "failed to rename shadow file %s over %s", shadowPath, originalPath)
	}
	return nil
}

// CopyFile copies the entire contents of src to dst and fsyncs dst.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return kerr.IO(err, "failed to open copy source %s", src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return kerr.IO(err, "failed to create copy destination %s", dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return kerr.IO(err, "failed to copy %s to %s", src, dst)
	}
	if err := out.Sync(); err != nil {
		return kerr.IO(err, "failed to fsync copy destination %s", dst)
	}
	return nil
}

// PathVariant suffixes path with the variant, e.g. "nodes.statistics" +
// "original" -> "nodes.statistics.original".
func PathVariant(base, variant string) string {
	return fmt.Sprintf("%s.%s", base, variant)
}
