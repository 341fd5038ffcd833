// Package ports holds interfaces that cut the toolkit loose from
// concrete infrastructure.
//
// Most boundaries are declared next to their consumers (the node client
// in pkg/nodetree, the schema fetcher in pkg/commandtable); this package
// carries only the contracts with no natural home there. Currently that
// is [HTTPClient], which the schema adapter accepts so tests and
// embedders can substitute the transport.
package ports
