package core

// error_messages.go turns load failures into the status line shown to users.
//
// # Status Codes Reference
//
// Every error status carries a code users can quote to support staff.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - Unsupported format: the extension is not .csv, .json, .xlsx or .parquet
//	FILE002 - Unreadable file: the parser rejected the contents
//	FILE003 - File too large: the request exceeded the upload size limit
//	FILE004 - No input: neither a file nor a URL was provided
//
// # URL Errors (URL001-URL099)
//
//	URL001 - Invalid URL: not an absolute http or https URL
//	URL002 - Remote error: the server answered with a non-success status
//	URL003 - Unreachable: the request failed or timed out
//	URL004 - Remote file too large: the body exceeded the download limit
//
// # Visualization Errors (VIZ001-VIZ099)
//
//	VIZ001 - Widget rejected the table
//
// # Load Errors (UPL001-UPL099)
//
//	UPL002 - System busy: too many loads in progress
//	UPL003 - Session expired
//	UPL004 - Request cancelled
//	UPL005 - Request timed out
//
// # Other
//
//	EXP001 - Nothing to export
//	EXP002 - Unknown export format
//	RATE001 - Rate limited
//	ERR000 - Unknown error; check the server log for the technical error

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/dataviz/internal/format"
	"github.com/JonMunkholm/dataviz/internal/source"
	"github.com/JonMunkholm/dataviz/internal/widget"
)

// Status line prefixes by failing stage.
const (
	uploadPrefix = "Error reading uploaded file: "
	urlPrefix    = "Error fetching/reading URL: "
	vizPrefix    = "Error creating visualization: "

	noInputMessage = "No file or URL provided."
	busyMessage    = "Server is busy loading other datasets. Please try again."
)

// StatusKind classifies a LoadStatus.
type StatusKind string

const (
	StatusNone    StatusKind = "none"
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// LoadStatus is the message shown above the output pane.
type LoadStatus struct {
	Kind    StatusKind `json:"kind"`
	Message string     `json:"message,omitempty"`
	Action  string     `json:"action,omitempty"`
	Code    string     `json:"code,omitempty"`
}

// SuccessStatus summarizes a displayed table.
func SuccessStatus(rows, cols int) LoadStatus {
	return LoadStatus{
		Kind:    StatusSuccess,
		Message: fmt.Sprintf("Loaded %d rows and %d columns.", rows, cols),
	}
}

// StatusFor converts any error from a load attempt into a status. The message
// prefix depends on which stage failed; the code and action on the cause.
func StatusFor(err error) LoadStatus {
	if err == nil {
		return LoadStatus{Kind: StatusNone}
	}

	if errors.Is(err, source.ErrNoInput) {
		return LoadStatus{
			Kind:    StatusError,
			Message: noInputMessage,
			Action:  "Choose a file or enter a URL, then press Load file",
			Code:    "FILE004",
		}
	}
	if errors.Is(err, ErrTooManyLoads) {
		return LoadStatus{
			Kind:    StatusError,
			Message: busyMessage,
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		}
	}

	var ce *widget.ConstructionError
	if errors.As(err, &ce) {
		return LoadStatus{
			Kind:    StatusError,
			Message: vizPrefix + ce.Err.Error(),
			Action:  "Check that the file has a header row and named columns",
			Code:    "VIZ001",
		}
	}

	var se *source.Error
	if errors.As(err, &se) {
		msg := branchMessage(se.Err)
		prefix := uploadPrefix
		if se.Origin == source.OriginURL {
			prefix = urlPrefix
		}
		return LoadStatus{
			Kind:    StatusError,
			Message: prefix + se.Err.Error(),
			Action:  msg.Action,
			Code:    msg.Code,
		}
	}

	msg := MapError(err)
	return LoadStatus{Kind: StatusError, Message: msg.Message, Action: msg.Action, Code: msg.Code}
}

// branchMessage picks the code and action for a failure inside one input branch.
func branchMessage(err error) UserMessage {
	var (
		de *format.DecodeError
		fe *source.FetchError
	)

	switch {
	case errors.Is(err, format.ErrUnsupportedFormat):
		return UserMessage{Code: "FILE001", Action: "Use a .csv, .json, .xlsx or .parquet file"}
	case errors.As(err, &de):
		return UserMessage{Code: "FILE002", Action: fmt.Sprintf("Check that the file is valid %s", de.Tag)}
	case errors.Is(err, source.ErrInvalidURL):
		return UserMessage{Code: "URL001", Action: "Enter a full address starting with http:// or https://"}
	case errors.Is(err, source.ErrTooLarge):
		return UserMessage{Code: "URL004", Action: "Download the file and upload a smaller extract"}
	case errors.As(err, &fe) && fe.StatusCode != 0:
		return UserMessage{Code: "URL002", Action: "Check that the URL points to a downloadable file"}
	case errors.Is(err, context.Canceled):
		return UserMessage{Code: "UPL004", Action: "Please try again"}
	case errors.As(err, &fe):
		return UserMessage{Code: "URL003", Action: "Check the address and your connection, then try again"}
	default:
		return MapError(err)
	}
}

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user
// messages for errors that carry no type information, mostly from the
// HTTP layer. The first match wins, so specific patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Upload a smaller file or load it from a URL",
			Code:    "FILE003",
		},
	},
	{
		pattern: "too many concurrent loads",
		msg: UserMessage{
			Message: busyMessage,
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Your session has expired",
			Action:  "Reload the page and load the dataset again",
			Code:    "UPL003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},
	{
		pattern: "no dataset loaded",
		msg: UserMessage{
			Message: "There is no dataset to export",
			Action:  "Load a dataset first",
			Code:    "EXP001",
		},
	},
	{
		pattern: "unknown export format",
		msg: UserMessage{
			Message: "Export format is not supported",
			Action:  "Choose csv, json, xlsx or parquet",
			Code:    "EXP002",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message using the
// pattern table. Unmatched errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
