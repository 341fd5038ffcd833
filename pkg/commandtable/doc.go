// Package commandtable validates and uploads generator command tables.
//
// A command table is the instrument-side sequencing table a signal
// generator unit consumes: an ordered list of waveform-playback
// instructions wrapped in a small header. The package accepts the table
// in several shapes (JSON text, bare entries, or a complete document),
// normalizes it, validates it against the Draft-4 JSON Schema published
// for the instrument, and writes the serialized result to the
// generator's commandtable node in a single transfer. Documents the
// caller supplies as JSON text or a decoded mapping are validated and
// uploaded exactly as given; only bare entry lists get a header
// synthesized.
//
// Validation always precedes transmission: a table that fails validation
// never reaches the device. The schema is re-fetched on every Load so a
// revised schema takes effect immediately; callers that prefer caching
// can wrap the injected [SchemaFetcher].
package commandtable
