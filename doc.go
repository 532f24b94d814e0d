// Package hirewire implements a server-rendered job board: accounts and
// cookie-based JWT sessions, job listings, and per-user job applications.
//
// Sessions:
//   - Auth state travels as a signed JWT in an HTTP-only cookie. Middleware
//     validates the token and enriches both the router locals and the request
//     context.Context, so workflows receive the session explicitly instead of
//     reading ambient state.
//
// Workflows:
//   - Job posting and job applications are modeled as messages with dedicated
//     handlers (PostJobMessage, ApplyToJobMessage). Handlers run inside a
//     repository transaction and return rich errors that map cleanly onto
//     HTTP status codes.
//
// Applications are unique per (job, user): the handler pre-checks for an
// existing row and the schema backs it with a unique index, so a concurrent
// double-submit surfaces as a conflict rather than a duplicate row.
package hirewire
