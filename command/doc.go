// Package command holds the ledger write paths: issuing, transferring,
// revoking and expiring time tokens, plus member-authored activity entries.
// Every handler implements gocommand.Commander and is transport agnostic.
package command
