package types

import (
	"errors"
	"fmt"
)

// Run errors. Typed errors below wrap one of these so callers can match
// with errors.Is.
var (
	ErrSourceNotFound     = errors.New("source not found")
	ErrUnknownTable       = errors.New("unknown table")
	ErrCapabilityMismatch = errors.New("table not enabled for source")
	ErrSchemaBuild        = errors.New("schema build failed")
	ErrBridge             = errors.New("bridge failed")
	ErrChunkTransfer      = errors.New("chunk transfer failed")
	ErrUnknownIECStorage  = errors.New("unknown iec storage type")
	ErrInvalidHarvest     = errors.New("invalid harvest")
)

// SchemaBuildError reports a failed DDL statement during a rebuild.
type SchemaBuildError struct {
	Table     string
	Statement string
	Err       error
}

func (e *SchemaBuildError) Error() string {
	return fmt.Sprintf("build table %s: %v", e.Table, e.Err)
}

func (e *SchemaBuildError) Unwrap() []error { return []error{ErrSchemaBuild, e.Err} }

// Bridge phases.
const (
	BridgeEstablish = "establish"
	BridgeTeardown  = "teardown"
	BridgeUpdate    = "update"
)

// BridgeError reports a failure while managing or using the bridge.
type BridgeError struct {
	Phase string
	Err   error
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("bridge %s: %v", e.Phase, e.Err)
}

func (e *BridgeError) Unwrap() []error { return []error{ErrBridge, e.Err} }

// TransferError reports a chunk failure. Committed holds the rows moved by
// the chunks that completed before the failure; those rows stay in place.
type TransferError struct {
	Table     string
	Chunk     int
	Committed int64
	Err       error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s: chunk %d failed after %d rows committed: %v",
		e.Table, e.Chunk, e.Committed, e.Err)
}

func (e *TransferError) Unwrap() []error { return []error{ErrChunkTransfer, e.Err} }
