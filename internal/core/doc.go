// Package core orchestrates dataset loads for the web UI.
//
// This package holds the load workflow independent of HTTP. It can be driven
// by web handlers, the CLI or tests without modification.
//
// # Architecture
//
//   - Controller: one per browser session. Owns the output slot and runs the
//     clear -> resolve -> build -> publish sequence of an attempt.
//   - Service: the session registry. Shares one [LoadLimiter], one
//     [LoadObserver] and the tracer between all controllers.
//   - Status: [StatusFor] is the single place errors become user messages.
//
// # Load Attempt
//
//  1. [Controller.Load] clears the previous output and status and numbers
//     the attempt.
//  2. A limiter slot is acquired; when none frees up in time the attempt
//     fails with [ErrTooManyLoads].
//  3. The resolver picks the upload or the URL and decodes it.
//  4. The view builder constructs the explorer from the whole table.
//  5. The outcome is published to subscribers, unless a newer attempt has
//     started in the meantime, in which case it is dropped.
//
// # Status Messages
//
// Error statuses carry a prefix naming the failing stage and a support code:
//
//	Error reading uploaded file: <err>   FILE001-FILE002
//	Error fetching/reading URL: <err>    URL001-URL004, FILE001-FILE002
//	Error creating visualization: <err>  VIZ001
//	No file or URL provided.             FILE004
//
// A successful attempt reports "Loaded N rows and M columns.".
package core
