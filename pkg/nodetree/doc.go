// Package nodetree models the hierarchical setting tree exposed by the
// instrument data server.
//
// Every readable or writable device setting is identified by a node path
// such as "dev12000/qachannels/0/centerfreq". The package wraps individual
// nodes in typed [Parameter] handles that validate values on the way in
// (bounds, granularity, keyword mappings) and translate raw wire strings
// on the way out. Device drivers compose parameters declaratively; the
// actual transport is abstracted behind the [Client] interface.
package nodetree
