// Package app assembles a botkit process out of lifecycle modules.
//
// Each module owns one subsystem and the resources it creates. Resources are
// handed to later modules as narrow capabilities (store.Store has no Close,
// bot.Sender cannot stop the poller), so only the owner releases them.
//
// Container registers the modules in dependency order:
//
//	database → metrics → api-client → object-store → bot → admin → api → scheduler → server
//
// metrics, object-store and scheduler are optional and only registered when
// configured.
package app
