// Package domain holds the error taxonomy shared by every shftk component.
//
// All errors returned by the public API either are one of the sentinel
// errors defined here or wrap one of them, so callers can classify failures
// with errors.Is without depending on message text. Errors that carry
// structured detail (notably [ValidationError]) additionally support
// errors.As.
package domain
