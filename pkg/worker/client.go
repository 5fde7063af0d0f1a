package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/lucasew/contapila/pkg/parser"
)

// ErrClosed is returned for requests sent after Close or left pending when
// the response stream ends.
var ErrClosed = errors.New("worker client closed")

// Client sends requests to a worker and waits for their terminal
// responses. It is safe for concurrent use.
type Client struct {
	requests   chan<- Request
	nextID     atomic.Uint64
	onProgress func(id uint64, p Progress)

	// quit is closed by Close, done when the response stream ends.
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	// sendMu keeps Close from closing requests during a send.
	sendMu sync.RWMutex

	mu       sync.Mutex
	pending  map[uint64]chan Response
	finished bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithProgress registers a callback for batch progress. It runs on the
// client's dispatch goroutine.
func WithProgress(fn func(id uint64, p Progress)) ClientOption {
	return func(c *Client) {
		c.onProgress = fn
	}
}

// NewClient creates a Client writing to requests and reading responses
// until that channel is closed.
func NewClient(requests chan<- Request, responses <-chan Response, opts ...ClientOption) *Client {
	c := &Client{
		requests: requests,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		pending:  make(map[uint64]chan Response),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.dispatch(responses)
	return c
}

// Spawn starts w on its own goroutine and returns a client bound to it. The
// worker stops on Close or when ctx is done.
func Spawn(ctx context.Context, w *Worker, opts ...ClientOption) *Client {
	requests := make(chan Request)
	responses := make(chan Response)
	c := NewClient(requests, responses, opts...)

	go func() {
		defer close(responses)
		if err := w.Run(ctx, requests, responses); err != nil {
			w.logger.Debug("worker stopped", "error", err)
		}
	}()
	return c
}

// Parse parses one file through the worker.
func (c *Client) Parse(ctx context.Context, text, filename string) ([]parser.Entry, error) {
	resp, err := c.send(ctx, RequestParse, RequestData{File: File{Text: text, Filename: filename}})
	if err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// ParseMultiple parses a batch through the worker.
func (c *Client) ParseMultiple(ctx context.Context, files []File) ([]FileResult, error) {
	resp, err := c.send(ctx, RequestParseMultiple, RequestData{Files: files})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Pending returns the number of requests awaiting a terminal response.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close stops accepting requests and closes the request channel. Sends
// blocked on a stopped worker return ErrClosed.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.quit)
		c.sendMu.Lock()
		close(c.requests)
		c.sendMu.Unlock()
	})
}

func (c *Client) send(ctx context.Context, typ RequestType, data RequestData) (Response, error) {
	id := c.nextID.Add(1)
	reply := make(chan Response, 1)

	c.sendMu.RLock()
	select {
	case <-c.quit:
		c.sendMu.RUnlock()
		return Response{}, ErrClosed
	default:
	}

	c.mu.Lock()
	if c.finished {
		c.mu.Unlock()
		c.sendMu.RUnlock()
		return Response{}, ErrClosed
	}
	c.pending[id] = reply
	c.mu.Unlock()

	select {
	case c.requests <- Request{ID: id, Type: typ, Data: data}:
		c.sendMu.RUnlock()
	case <-ctx.Done():
		c.sendMu.RUnlock()
		c.forget(id)
		return Response{}, ctx.Err()
	case <-c.quit:
		c.sendMu.RUnlock()
		c.forget(id)
		return Response{}, ErrClosed
	case <-c.done:
		c.sendMu.RUnlock()
		c.forget(id)
		return Response{}, ErrClosed
	}

	select {
	case resp, ok := <-reply:
		if !ok {
			return Response{}, ErrClosed
		}
		if resp.Type == ResponseError {
			return Response{}, errors.New(resp.Message)
		}
		return resp, nil
	case <-ctx.Done():
		c.forget(id)
		return Response{}, ctx.Err()
	}
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) dispatch(responses <-chan Response) {
	for resp := range responses {
		if !resp.IsTerminal() {
			if c.onProgress != nil {
				c.onProgress(resp.ID, resp.Progress)
			}
			continue
		}

		c.mu.Lock()
		reply, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()

		if ok {
			reply <- resp
		}
	}

	c.mu.Lock()
	c.finished = true
	for id, reply := range c.pending {
		close(reply)
		delete(c.pending, id)
	}
	c.mu.Unlock()
	close(c.done)
}
