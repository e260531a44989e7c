// Package identity resolves bearer credentials and go-auth actor payloads into
// the user ids consumed by ledger commands. Resolvers receive their signing
// configuration as an explicit auth.Config value and never read the
// environment.
package identity
