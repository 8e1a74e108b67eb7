package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/h2non/filetype"
	"golang.org/x/time/rate"

	"jarsentry/classfile"
	"jarsentry/logger"
	"jarsentry/utils"
)

var DefaultExtensions = []string{".jar"}

const (
	DefaultMaxEntrySize = 64 << 20
	DefaultMmapMinSize  = 1 << 20
)

type Options struct {
	// Extensions lists accepted archive suffixes. Empty means DefaultExtensions.
	Extensions []string
	// Concurrency bounds the entry decoding workers. Zero uses GOMAXPROCS.
	Concurrency int
	// MaxEntrySize caps the bytes read from one entry. Zero uses DefaultMaxEntrySize.
	MaxEntrySize int64
	// EntriesPerSecond throttles entry dispatch. Zero disables throttling.
	EntriesPerSecond int
	// MmapMinSize is the archive size at which the file is memory mapped.
	// Negative disables mapping.
	MmapMinSize int64
	// Filter drops entries before they are read.
	Filter *utils.PatternMatcher
	// OnEntryError observes recovered entry failures. It may be called from
	// several goroutines.
	OnEntryError func(*EntryError)
}

type Loader struct {
	opts Options
}

func NewLoader(opts Options) *Loader {
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	if opts.MaxEntrySize <= 0 {
		opts.MaxEntrySize = DefaultMaxEntrySize
	}
	if opts.MmapMinSize == 0 {
		opts.MmapMinSize = DefaultMmapMinSize
	}
	return &Loader{opts: opts}
}

// Validate runs the pre-flight checks without opening the archive.
func (l *Loader) Validate(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, invalid(path, "file does not exist", nil)
		}
		return nil, invalid(path, "cannot read file", err)
	}
	if !info.Mode().IsRegular() {
		return nil, invalid(path, "cannot read file", errors.New("not a regular file"))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, invalid(path, "cannot read file", err)
	}
	_ = f.Close()
	if !utils.HasExtension(path, l.opts.Extensions) {
		return nil, invalid(path, "not a JAR file", nil)
	}
	if info.Size() == 0 {
		return nil, invalid(path, "empty JAR file", nil)
	}
	return info, nil
}

type entryTask struct {
	index int
	file  *zip.File
}

type entryResult struct {
	done  bool
	name  string
	data  []byte
	class *classfile.Class
	err   error
}

// Load validates and reads an archive into fresh Contents. Per-entry
// failures are recorded in Contents.Failed and do not fail the load.
func (l *Loader) Load(ctx context.Context, path string) (*Contents, error) {
	info, err := l.Validate(path)
	if err != nil {
		return nil, err
	}

	src, err := openSource(path, info.Size(), l.opts.MmapMinSize)
	if err != nil {
		return nil, invalid(path, "cannot read file", err)
	}
	defer src.Close()

	zr, err := zip.NewReader(src, info.Size())
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, invalid(path, "invalid or corrupted JAR file", describeContent(src, info.Size(), err))
	}

	contents := NewContents()
	contents.Path = path
	contents.Size = info.Size()

	for _, f := range zr.File {
		if isManifest(f.Name) {
			if data, err := l.readEntry(f); err == nil {
				contents.Manifest = parseManifest(data)
			} else {
				logger.Warnf("Failed to read manifest in %s: %v", path, err)
			}
			break
		}
	}

	results, err := l.readEntries(ctx, zr.File)
	if err != nil {
		return nil, err
	}
	for _, res := range results {
		switch {
		case !res.done:
		case res.class != nil:
			contents.Classes = append(contents.Classes, res.class)
			contents.ClassEntries[res.class.Name] = res.name
		case res.err != nil:
			contents.Failed[res.name] = struct{}{}
			contents.Resources[res.name] = res.data
		default:
			contents.Resources[res.name] = res.data
		}
	}
	logger.Debugf("Loaded %s: %d classes, %d resources, %d failed", path, len(contents.Classes), len(contents.Resources), len(contents.Failed))
	return contents, nil
}

func (l *Loader) readEntries(ctx context.Context, files []*zip.File) ([]entryResult, error) {
	results := make([]entryResult, len(files))
	total := len(files)

	var limiter *rate.Limiter
	if l.opts.EntriesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(l.opts.EntriesPerSecond), l.opts.EntriesPerSecond)
	}

	tasks := make(chan entryTask, l.opts.Concurrency)
	var wg sync.WaitGroup
	for range l.opts.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				results[task.index] = l.processEntry(task, total)
			}
		}()
	}

	var dispatchErr error
dispatch:
	for i, f := range files {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		if l.opts.Filter != nil && !l.opts.Filter.ShouldInclude(f.Name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			dispatchErr = err
			break dispatch
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				dispatchErr = err
				break dispatch
			}
		}
		select {
		case <-ctx.Done():
			dispatchErr = ctx.Err()
			break dispatch
		case tasks <- entryTask{index: i, file: f}:
		}
	}
	close(tasks)
	wg.Wait()
	if dispatchErr != nil {
		return nil, fmt.Errorf("load interrupted: %w", dispatchErr)
	}
	return results, nil
}

func (l *Loader) processEntry(task entryTask, total int) entryResult {
	name := task.file.Name
	res := entryResult{done: true, name: name}

	data, err := l.readEntry(task.file)
	res.data = data
	if err != nil {
		res.err = err
		l.reportEntryError(name, task.index, total, err)
		return res
	}
	if !strings.HasSuffix(name, ".class") {
		return res
	}

	cls, err := classfile.Decode(data)
	if err != nil {
		res.err = err
		l.reportEntryError(name, task.index, total, err)
		return res
	}
	if cls.Name == "" {
		res.err = fmt.Errorf("%w: class has no name", classfile.ErrMalformedClass)
		l.reportEntryError(name, task.index, total, res.err)
		return res
	}
	res.class = cls
	return res
}

func (l *Loader) readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, l.opts.MaxEntrySize+1))
	if err != nil {
		return data, err
	}
	if int64(len(data)) > l.opts.MaxEntrySize {
		return data[:l.opts.MaxEntrySize], fmt.Errorf("entry exceeds %d bytes", l.opts.MaxEntrySize)
	}
	return data, nil
}

func (l *Loader) reportEntryError(name string, index, total int, err error) {
	entryErr := &EntryError{Entry: name, Index: index + 1, Total: total, Err: err}
	logger.Warnf("%v", entryErr)
	if l.opts.OnEntryError != nil {
		l.opts.OnEntryError(entryErr)
	}
}

func describeContent(r io.ReaderAt, size int64, err error) error {
	kind, kerr := filetype.Match(readHead(r, size, sniffLen))
	if kerr != nil || kind == filetype.Unknown {
		return err
	}
	return fmt.Errorf("%w (content looks like %s)", err, kind.MIME.Value)
}
