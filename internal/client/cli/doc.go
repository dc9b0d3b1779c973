// Package cli provides the interactive MindWell command-line client.
//
// It wires configuration, the local submission history, the REST client and
// an interactive REPL. Typical flow: record a check-in from the microphone,
// upload it, then follow the processing job until the server reports the
// finished check-in or an error.
//
// Key features:
//   - record: capture from the microphone (Enter stops, Esc or q cancels)
//   - upload / text: submit an audio file or a text-only check-in
//   - status: resume following a job
//   - history / list / show / play: browse local and server-side check-ins
//   - token: replace the access token without restarting
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
