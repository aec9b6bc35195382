// Package cli provides the interactive gophstamp command-line client.
//
// It wires configuration, the local database, the API services and a
// read-eval-print loop. A session saved by an earlier run is restored on
// start; a background watcher keeps the online/offline indicator current.
//
// Key features:
//   - register / login, each confirmed with an emailed one-time code
//   - stamp a file, check a file online or offline against a saved receipt
//   - list, show, delete and download records
//   - fetch and cache the server certificate
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
