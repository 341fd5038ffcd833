package nodetree

import (
	"context"
	"strings"
)

// Node describes a single entry of the device setting tree as reported by
// the data server.
type Node struct {
	// Path is the full node path including the device serial,
	// e.g. "dev12000/qachannels/0/input/range".
	Path string `json:"path"`

	// Description is the human-readable node documentation.
	Description string `json:"description,omitempty"`

	// Type is the node value type, one of "Integer", "Double", "String"
	// or "Vector".
	Type string `json:"type"`

	// Properties lists the node capabilities as a comma-separated string,
	// e.g. "Read, Write, Setting".
	Properties string `json:"properties"`

	// Unit is the physical unit of the node value, e.g. "Hz" or "dBm".
	Unit string `json:"unit,omitempty"`

	// Options maps raw integer values to their keyword form for
	// enumerated nodes, e.g. 0 -> "internal", 1 -> "external".
	Options map[int64]string `json:"options,omitempty"`
}

// Writable reports whether the node accepts writes.
func (n Node) Writable() bool {
	return strings.Contains(n.Properties, "Write")
}

// Readable reports whether the node can be read.
func (n Node) Readable() bool {
	return strings.Contains(n.Properties, "Read")
}

// Client is the transport a Parameter uses to talk to the instrument.
// The data server adapter implements it; tests substitute fakes.
type Client interface {
	// Get reads the raw string value of a scalar node.
	Get(ctx context.Context, path string) (string, error)

	// Set writes the raw string value of a scalar node.
	Set(ctx context.Context, path string, value string) error

	// SetVector writes a large string payload (waveforms, command
	// tables) to a vector node in a single transfer.
	SetVector(ctx context.Context, path string, payload string) error

	// ListNodes returns the paths of all nodes below the given prefix.
	ListNodes(ctx context.Context, prefix string) ([]string, error)

	// NodeInfo returns the metadata of a single node.
	NodeInfo(ctx context.Context, path string) (Node, error)
}
