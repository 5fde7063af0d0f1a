// Package worker runs parse jobs off the caller's goroutine and exchanges
// requests and responses over channels.
package worker

import (
	"encoding/json"
	"fmt"

	"github.com/lucasew/contapila/pkg/parser"
)

// RequestType names a job.
type RequestType string

const (
	RequestParse         RequestType = "parse"
	RequestParseMultiple RequestType = "parseMultiple"
)

// ResponseType names a response. Progress is the only non-terminal one.
type ResponseType string

const (
	ResponseSuccess  ResponseType = "success"
	ResponseError    ResponseType = "error"
	ResponseProgress ResponseType = "progress"
)

// File is one source text and the name stamped into its locations.
type File struct {
	Text     string `json:"text"`
	Filename string `json:"filename"`
}

// Request is a job addressed by a correlation id.
type Request struct {
	ID   uint64      `json:"id"`
	Type RequestType `json:"type"`
	Data RequestData `json:"data"`
}

// RequestData carries a single file for parse and Files for parseMultiple.
type RequestData struct {
	File
	Files []File `json:"files,omitempty"`
}

// FileResult is the outcome of one file of a batch. A failing file does not
// stop the batch.
type FileResult struct {
	Success bool           `json:"success"`
	Entries []parser.Entry `json:"entries"`
	Error   *string        `json:"error"`
	// Err is the underlying error for in-process callers.
	Err error `json:"-"`
}

// Progress counts finished files of a batch.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Response answers the request with the same ID.
type Response struct {
	ID   uint64
	Type ResponseType

	Entries  []parser.Entry // success of parse
	Results  []FileResult   // success of parseMultiple
	Progress Progress
	Message  string // error
}

// IsTerminal reports whether no further responses follow for the request.
func (r Response) IsTerminal() bool {
	return r.Type != ResponseProgress
}

// MarshalJSON renders {"id", "type", "data"} where data depends on type.
func (r Response) MarshalJSON() ([]byte, error) {
	var data any
	switch r.Type {
	case ResponseSuccess:
		if r.Results != nil {
			data = r.Results
		} else {
			data = nonNilEntries(r.Entries)
		}
	case ResponseError:
		data = map[string]string{"message": r.Message}
	case ResponseProgress:
		data = r.Progress
	default:
		return nil, fmt.Errorf("unknown response type %q", r.Type)
	}

	return json.Marshal(struct {
		ID   uint64       `json:"id"`
		Type ResponseType `json:"type"`
		Data any          `json:"data"`
	}{r.ID, r.Type, data})
}

func nonNilEntries(entries []parser.Entry) []parser.Entry {
	if entries == nil {
		return []parser.Entry{}
	}
	return entries
}
