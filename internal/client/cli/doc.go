// Package cli provides the interactive GophFocus command-line client.
//
// It drives the session orchestrator from a REPL: profile management,
// start/stop handshakes (tags and codes are typed in place of scanning),
// breaks, background intents, emergency unblocks and family login. A
// background loop pings the sync server and reconciles profiles with the
// remote store.
//
// Bootstrap wires an App from config: the SQLite store, the chosen sync
// backend, optional MQTT notifications, the orchestrator and its scheduler.
// App.Run then blocks until the user exits or the context is cancelled.
package cli
