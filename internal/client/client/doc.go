// Package client contains the client-side building blocks for MindWell.
//
// # Overview
//
// The package provides:
//  1. The API contract used by the CLI (see the Client interface): Ping,
//     Submit, Status, CheckIn, ListCheckIns and DownloadAudio.
//  2. A concrete REST implementation (see HTTPClient) built on resty. It sets
//     the bearer token on every API call and decodes {message} error bodies.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) that opens the
//     SQLite history database and applies the embedded goose migrations.
//
// # Error Handling
//
// Requests that never reached the server wrap common.ErrNetwork. Non-2xx
// answers are returned as *APIError, which unwraps to the matching common
// sentinel (ErrValidation, ErrorUnauthorized, ErrorForbidden, ErrorNotFound)
// so callers can use errors.Is.
//
// Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. All operations accept a
// context.Context and honor cancellation.
//
// See Also
//
//   - Interface:  Client
//   - REST impl:  HTTPClient
//   - DB helpers: InitDatabase, RunMigrations
//   - Errors:     APIError, IsNetwork
package client
