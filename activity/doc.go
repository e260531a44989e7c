// Package activity provides the default audit trail for ledger workflows. The
// Repository implements both the ActivitySink (writes) and the
// ActivityRepository read side so issuance, transfers, expiry and revocation
// can be reviewed later. Payloads are masked with go-masker before they are
// stored. Host applications can swap the repository for another sink.
package activity
