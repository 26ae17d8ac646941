// Package pager implements the page cache and file-backed I/O layer
// (spec C3): fixed 4 KiB pages, loaded on demand, written back on
// Close. It never evicts mid-session and never reorders writes.
package pager

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/spf13/afero"
)

const (
	// PageSize is the fixed unit of I/O and the size of a Page buffer.
	PageSize = 4096
	// MaxPages bounds the page cache; page numbers beyond this are a
	// programming/layout error (spec §4.3).
	MaxPages = 100
)

// FatalError marks an error that the caller (engine/CLI) must treat as
// unrecoverable per spec §7: print a diagnostic and exit non-zero,
// rather than reporting it as a normal command failure.
type FatalError struct{ cause error }

func (e *FatalError) Error() string { return e.cause.Error() }
func (e *FatalError) Unwrap() error { return e.cause }

// Format delegates to the wrapped pkg/errors value, so that %+v prints
// its stack trace.
func (e *FatalError) Format(s fmt.State, verb rune) {
	if f, ok := e.cause.(fmt.Formatter); ok {
		f.Format(s, verb)
		return
	}
	fmt.Fprint(s, e.cause.Error())
}

func fatalf(format string, args ...interface{}) error {
	return &FatalError{cause: errors.Errorf(format, args...)}
}

// NewFatal constructs a FatalError for callers outside this package
// that hit an unimplemented or invariant-violating path spec §7 marks
// as fatal (e.g. the tree package's internal-node-split-not-supported
// branch).
func NewFatal(format string, args ...interface{}) error {
	return fatalf(format, args...)
}

func fatalWrap(err error, msg string) error {
	return &FatalError{cause: errors.Wrap(err, msg)}
}

// IsFatal reports whether err (or something it wraps) is a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// Pager owns the open file and every page buffer loaded from it.
type Pager struct {
	fs       afero.Fs
	file     afero.File
	log      *zap.Logger
	numPages uint32
	pages    [MaxPages]*[PageSize]byte
	dirty    [MaxPages]bool
}

// Open opens or creates path for read/write on fs and validates that
// its length is a whole multiple of PageSize (spec §4.3, §6 "File
// format"). A non-multiple length is a corrupt file and is fatal.
func Open(fs afero.Fs, path string, log *zap.Logger) (*Pager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	f, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fatalWrap(err, "open database file")
	}

	length, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fatalWrap(err, "seek to end of database file")
	}
	if length%PageSize != 0 {
		return nil, fatalf("db file is not a whole number of pages (length=%d)", length)
	}

	p := &Pager{
		fs:       fs,
		file:     f,
		log:      log,
		numPages: uint32(length / PageSize),
	}
	log.Info("pager opened", zap.String("path", path), zap.Uint32("num_pages", p.numPages))
	return p, nil
}

// NumPages returns the highest allocated page index plus one (spec
// Invariant 5).
func (p *Pager) NumPages() uint32 { return p.numPages }

// GetPage returns the in-memory buffer for page n, loading it from disk
// on first access. Accessing n >= MaxPages is fatal (spec §4.3).
func (p *Pager) GetPage(n uint32) (*[PageSize]byte, error) {
	if n >= MaxPages {
		return nil, fatalf("tried to fetch page %d out of bounds (max %d)", n, MaxPages)
	}
	if p.pages[n] == nil {
		buf := new([PageSize]byte)
		if n < p.numPages {
			if _, err := p.file.Seek(int64(n)*PageSize, io.SeekStart); err != nil {
				return nil, fatalWrap(err, "seek to read page")
			}
			if _, err := io.ReadFull(p.file, buf[:]); err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
				return nil, fatalWrap(err, "read page")
			}
		}
		p.pages[n] = buf
		if n >= p.numPages {
			p.numPages = n + 1
		}
		p.log.Debug("page cache miss", zap.Uint32("page", n))
	}
	return p.pages[n], nil
}

// MarkDirty records that page n must be written back on Flush/Close.
func (p *Pager) MarkDirty(n uint32) {
	if n < MaxPages {
		p.dirty[n] = true
	}
}

// Flush writes page n's buffer back to its slot in the file. The page
// must already be loaded; flushing an unloaded page is fatal (spec §7
// "flush of null page").
func (p *Pager) Flush(n uint32) error {
	if n >= MaxPages || p.pages[n] == nil {
		return fatalf("tried to flush null page %d", n)
	}
	if _, err := p.file.Seek(int64(n)*PageSize, io.SeekStart); err != nil {
		return fatalWrap(err, "seek to write page")
	}
	if _, err := p.file.Write(p.pages[n][:]); err != nil {
		return fatalWrap(err, "write page")
	}
	p.dirty[n] = false
	return nil
}

// UnusedPageNum returns the next page number the bump allocator would
// hand out. The caller materializes it by calling GetPage on the result.
func (p *Pager) UnusedPageNum() uint32 { return p.numPages }

// Close flushes every loaded page in ascending order, then closes the
// file. Flush errors are aggregated (not short-circuited) so a failure
// on one page doesn't hide failures on later ones.
func (p *Pager) Close() error {
	var errs error
	for n := uint32(0); n < MaxPages; n++ {
		if p.pages[n] == nil {
			continue
		}
		if err := p.Flush(n); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if err := p.file.Close(); err != nil {
		errs = multierr.Append(errs, fatalWrap(err, "close database file"))
	}
	if errs != nil {
		p.log.Error("pager close encountered errors", zap.Error(errs))
		return errs
	}
	p.log.Info("pager closed", zap.Uint32("num_pages", p.numPages))
	return nil
}
