// Package query exposes go-command Querier implementations for the ledger
// read side: token detail, wallet balances and transaction history.
package query
