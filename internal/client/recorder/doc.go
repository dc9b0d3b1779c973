// Package recorder captures microphone audio for a voice check-in.
//
// # Overview
//
// A Recorder reads audio from a Device while counting elapsed whole seconds.
// Each Start opens a RecordingSession that owns the device stream and the
// one-second ticker; every exit path (Stop, Cancel, Dispose) releases both.
//
//   - Start opens the device. Denied access or a missing input device fails
//     with common.ErrPermission and leaves the recorder idle.
//   - Stop ends capture, joins the buffered chunks into the final blob and
//     hands a Capture to the OnStop listener. It is a no-op when nothing is
//     being recorded.
//   - Cancel ends capture and discards everything. Nothing is emitted.
//   - Dispose releases whatever is still held. It is safe to call repeatedly.
//
// # Devices
//
// CommandDevice runs an external capture program (ffmpeg by default) and
// reads its stdout. FileDevice streams an existing audio file, which lets the
// CLI submit a file through the same path as a live recording.
//
// # Concurrency
//
// Recorder methods are safe for concurrent use. Ticks and capture run on
// goroutines owned by the active session.
package recorder
