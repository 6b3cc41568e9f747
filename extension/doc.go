// Package extension mounts a filer engine into a host application.
//
// The extension:
//   - Loads configuration from a YAML file and FILER_ environment variables
//   - Builds the engine on a configured store and runs its migrations
//   - Mounts the HTTP API under a configurable prefix, either on a plain
//     net/http mux or on a Forge router with OpenAPI metadata
//   - Starts and stops background status polling
//   - Reports health via store.Ping
//
// Usage:
//
//	cfg, err := extension.LoadConfig("filer.yaml")
//	ext := extension.New(
//	    extension.WithConfig(cfg),
//	    extension.WithStore(memory.New()),
//	)
//	if err := ext.Init(ctx); err != nil { ... }
//	mux.Handle(ext.Prefix()+"/", ext.Handler())
//	ext.Start(ctx)
//	defer ext.Stop(ctx)
package extension
