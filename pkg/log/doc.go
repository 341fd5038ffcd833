// Package log provides the structured logging abstraction used throughout
// shftk.
//
// The toolkit never logs through a process-wide singleton. Every component
// receives a [Logger] explicitly, so embedding applications keep full control
// over where instrument traffic is reported. Two implementations ship with
// the module:
//
//   - [ZerologAdapter]: wraps a caller-assembled zerolog.Logger
//   - [NoopLogger]: discards everything (the default for embedded use)
//
// Any other logging backend can be plugged in by implementing the four-method
// [Logger] interface.
package log
