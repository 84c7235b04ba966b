// Package source turns user input (an uploaded file or a remote URL) into a
// decoded table.
//
// Exactly one branch runs per request. When both an upload and a URL are
// supplied the upload wins; when neither is, ErrNoInput is returned. Every
// failure inside a branch is wrapped in *Error so callers know which branch
// produced it.
package source

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/dataviz/internal/format"
	"github.com/JonMunkholm/dataviz/internal/table"
)

// Origin identifies the branch that produced a table or an error.
type Origin int

const (
	OriginNone Origin = iota
	OriginUpload
	OriginURL
)

func (o Origin) String() string {
	switch o {
	case OriginUpload:
		return "upload"
	case OriginURL:
		return "url"
	default:
		return "none"
	}
}

// RawInput is what the page submits. The upload is active when Data is
// non-empty, the URL when it is non-blank after trimming.
type RawInput struct {
	Data     []byte
	Filename string
	URL      string
}

// Origin reports which branch in selects.
func (in RawInput) Origin() Origin {
	switch {
	case len(in.Data) > 0:
		return OriginUpload
	case strings.TrimSpace(in.URL) != "":
		return OriginURL
	default:
		return OriginNone
	}
}

// Result is a successfully decoded input.
type Result struct {
	Table  *table.Table
	Origin Origin
	Name   string // file name or last URL path segment
	Format format.Tag
	Size   int // raw bytes decoded
}

var (
	// ErrNoInput is returned when neither an upload nor a URL was supplied.
	ErrNoInput = errors.New("no file or URL provided")

	// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrTooLarge is returned when a remote body exceeds the size limit.
	ErrTooLarge = errors.New("response body too large")
)

// Error wraps a failure from one input branch.
type Error struct {
	Origin Origin
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Origin, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FetchError describes a failed GET of a remote dataset.
type FetchError struct {
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("GET %s: HTTP %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
