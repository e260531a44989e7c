// Package api exposes the ledger commands and queries over HTTP using
// go-router. It is the only place where ledger errors are turned into status
// codes and JSON envelopes.
package api
