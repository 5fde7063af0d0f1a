package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/lucasew/contapila/pkg/parser"
)

// DefaultConcurrency bounds the files of a batch parsed at once.
const DefaultConcurrency = 4

// Worker answers parse requests. Every file gets its own parser built from
// the same configuration.
type Worker struct {
	cfg         parser.Config
	concurrency int
	logger      *slog.Logger
}

// Option configures a Worker.
type Option func(*Worker)

// WithConcurrency sets how many files of a batch are parsed at once.
func WithConcurrency(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// WithLogger sets the logger of the worker and of the parsers it builds.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a Worker for cfg.
func New(cfg parser.Config, opts ...Option) *Worker {
	w := &Worker{
		cfg:         cfg,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run answers requests from in until in is closed or ctx is done. Requests
// are handled one at a time, in arrival order.
func (w *Worker) Run(ctx context.Context, in <-chan Request, out chan<- Response) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-in:
			if !ok {
				return nil
			}
			w.Handle(ctx, req, func(resp Response) {
				select {
				case out <- resp:
				case <-ctx.Done():
				}
			})
		}
	}
}

// Handle answers a single request. emit receives any progress responses
// followed by exactly one terminal response. Calls to emit are serialized.
func (w *Worker) Handle(ctx context.Context, req Request, emit func(Response)) {
	switch req.Type {
	case RequestParse:
		entries, err := w.ParseFile(req.Data.File)
		if err != nil {
			emit(Response{ID: req.ID, Type: ResponseError, Message: err.Error()})
			return
		}
		emit(Response{ID: req.ID, Type: ResponseSuccess, Entries: entries})
	case RequestParseMultiple:
		results, err := w.ParseMultiple(ctx, req.Data.Files, func(p Progress) {
			emit(Response{ID: req.ID, Type: ResponseProgress, Progress: p})
		})
		if err != nil {
			emit(Response{ID: req.ID, Type: ResponseError, Message: err.Error()})
			return
		}
		emit(Response{ID: req.ID, Type: ResponseSuccess, Results: results})
	default:
		emit(Response{ID: req.ID, Type: ResponseError, Message: fmt.Sprintf("unknown request type: %s", req.Type)})
	}
}

// ParseFile parses one file with a parser named after it.
func (w *Worker) ParseFile(f File) ([]parser.Entry, error) {
	p, err := parser.New(w.cfg, parser.WithSourceName(f.Filename), parser.WithLogger(w.logger))
	if err != nil {
		return nil, err
	}
	return p.Parse(f.Text)
}

// ParseMultiple parses files concurrently. Results keep the order of files
// and a failing file is reported in its own result. progress is called once
// per finished file with an increasing count; it may be nil.
func (w *Worker) ParseMultiple(ctx context.Context, files []File, progress func(Progress)) ([]FileResult, error) {
	type indexed struct {
		index  int
		result FileResult
	}

	var mu sync.Mutex
	done := 0

	p := pool.NewWithResults[indexed]().WithMaxGoroutines(w.concurrency)
	for i, f := range files {
		p.Go(func() indexed {
			var result FileResult
			if err := ctx.Err(); err != nil {
				result = failed(f.Filename, err)
			} else if entries, err := w.ParseFile(f); err != nil {
				result = failed(f.Filename, err)
			} else {
				result = FileResult{Success: true, Entries: entries}
			}

			mu.Lock()
			done++
			if progress != nil {
				progress(Progress{Current: done, Total: len(files)})
			}
			mu.Unlock()

			return indexed{index: i, result: result}
		})
	}

	results := make([]FileResult, len(files))
	for _, r := range p.Wait() {
		results[r.index] = r.result
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failures := 0
	for _, r := range results {
		if !r.Success {
			failures++
		}
	}
	w.logger.Debug("parsed batch", "files", len(files), "failures", failures)

	return results, nil
}

func failed(filename string, err error) FileResult {
	msg := fmt.Sprintf("Error in file %s: %s", filename, err.Error())
	return FileResult{Success: false, Entries: []parser.Entry{}, Error: &msg, Err: err}
}
