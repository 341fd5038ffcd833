// Package shftk is a control toolkit for SHF-class quantum analyzers.
//
// It connects to the instrument data server, exposes the device as typed
// sub-unit objects (channels, generators, sweepers, scope) and validates
// generator command tables against the published JSON Schema before
// upload.
//
// Example usage:
//
//	cfg := shftk.DefaultConfig()
//	cfg.Serial = "dev12000"
//
//	session, err := shftk.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctx := context.Background()
//	if err := session.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	ch, _ := session.Device().Channel(0)
//	ch.CenterFreq.Set(ctx, 5.1e9)
//	ch.Generator().CommandTable().LoadAny(ctx, tableJSON)
//
// # Dependency Injection
//
// All collaborators are injected through options: [WithLogger] for
// structured logging (a no-op logger is the default), [WithHTTPClient]
// for schema fetches and [WithNodeClient] to substitute the device
// transport in tests.
package shftk
