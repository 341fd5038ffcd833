// Package shfqa drives an SHF-class quantum analyzer through the
// instrument data server.
//
// The instrument is exposed as a [Device] composed of sub-units that
// mirror the hardware: a number of [Channel]s discovered at connect
// time, each owning a [Generator] and a [Sweeper], plus one [Scope].
// Every device setting is wired as a typed nodetree.Parameter with the
// bounds and granularity the hardware enforces, so invalid values are
// rejected on the host before any traffic reaches the instrument.
//
// Command tables are uploaded through the generator's commandtable
// loader, which validates every table against the published JSON Schema
// before transmission.
package shfqa
