package genbank

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/promoscan/internal/sequence"
)

// LoadError records a file that could not be turned into records.
type LoadError struct {
	Path string
	Err  error
}

func (e LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e LoadError) Unwrap() error { return e.Err }

// LoadResult holds the records parsed from a set of files and the files that
// were excluded because they failed to parse.
type LoadResult struct {
	Records  []*sequence.Record
	Failures []LoadError
}

// Loader parses GenBank files concurrently.
type Loader struct {
	workers int
	logger  *zap.Logger
}

// NewLoader creates a loader using up to workers goroutines.
// If workers is 0, runtime.GOMAXPROCS(0) is used.
func NewLoader(workers int) *Loader {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Loader{workers: workers, logger: zap.NewNop()}
}

// SetLogger sets the logger for progress and warning messages.
func (l *Loader) SetLogger(logger *zap.Logger) {
	l.logger = logger
}

// Load parses every file in paths. Records keep file order, and each file's
// records keep their order within the file. A file that fails to parse is
// excluded entirely and reported in Failures; only context cancellation is
// returned as an error.
func (l *Loader) Load(ctx context.Context, paths []string) (*LoadResult, error) {
	perFile := make([][]*sequence.Record, len(paths))

	var (
		mu       sync.Mutex
		failures []LoadError
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			recs, err := ParseFile(path)
			if err != nil {
				l.logger.Warn("excluding unparseable record file",
					zap.String("path", path),
					zap.Error(err))
				mu.Lock()
				failures = append(failures, LoadError{Path: path, Err: err})
				mu.Unlock()
				return nil
			}
			l.logger.Debug("parsed record file",
				zap.String("path", path),
				zap.Int("records", len(recs)))
			perFile[i] = recs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &LoadResult{}
	for _, recs := range perFile {
		res.Records = append(res.Records, recs...)
	}
	// Report failures in path order regardless of completion order.
	index := make(map[string]int, len(paths))
	for i, p := range paths {
		index[p] = i
	}
	sort.Slice(failures, func(a, b int) bool {
		return index[failures[a].Path] < index[failures[b].Path]
	})
	res.Failures = failures

	return res, nil
}

// ParseFile reads every record in a GenBank file.
func ParseFile(path string) ([]*sequence.Record, error) {
	p, err := NewParser(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	var recs []*sequence.Record
	for {
		rec, err := p.Next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			break
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return nil, &ParseError{Path: path, Line: p.LineNumber(), Message: "no records found"}
	}
	return recs, nil
}
