// Package cli provides the interactive terminal front end of the invoice
// client.
//
// It wires configuration, durable storage, the API client, the session,
// notification and localization state, and runs a REPL on top of them.
// Views are modelled as routes guarded the same way the web front end
// guards its pages: account commands need a session, login and register
// need its absence.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
