package activity

import (
	"context"
	"strings"

	"github.com/goliatone/go-timebank/pkg/types"
)

// DataKeyRequestID is the metadata key used for request correlation ids.
const DataKeyRequestID = "request_id"

// Enricher returns an enriched copy of an ActivityRecord.
type Enricher interface {
	Enrich(ctx context.Context, record types.ActivityRecord) (types.ActivityRecord, error)
}

// EnricherFunc adapts a function into an Enricher.
type EnricherFunc func(ctx context.Context, record types.ActivityRecord) (types.ActivityRecord, error)

// Enrich executes the function and satisfies Enricher.
func (f EnricherFunc) Enrich(ctx context.Context, record types.ActivityRecord) (types.ActivityRecord, error) {
	return f(ctx, record)
}

// EnricherChain composes enrichers in order. The first failure returns the
// original record together with the error.
type EnricherChain []Enricher

// Enrich applies the chain sequentially.
func (c EnricherChain) Enrich(ctx context.Context, record types.ActivityRecord) (types.ActivityRecord, error) {
	current := record
	for _, enricher := range c {
		if enricher == nil {
			continue
		}
		next, err := enricher.Enrich(ctx, current)
		if err != nil {
			return record, err
		}
		current = next
	}
	return current, nil
}

// EnrichedSink enriches records before handing them to Sink. With
// BestEffort set, enrichment failures log the unenriched record instead of
// failing the write.
type EnrichedSink struct {
	Sink       types.ActivitySink
	Enricher   Enricher
	BestEffort bool
}

var _ types.ActivitySink = (*EnrichedSink)(nil)

// Log enriches the record (if configured) and forwards it to the sink.
func (s *EnrichedSink) Log(ctx context.Context, record types.ActivityRecord) error {
	if s == nil || s.Sink == nil {
		return types.ErrMissingActivitySink
	}
	if s.Enricher == nil {
		return s.Sink.Log(ctx, record)
	}
	enriched, err := s.Enricher.Enrich(ctx, record)
	if err != nil {
		if !s.BestEffort {
			return err
		}
		enriched = record
	}
	return s.Sink.Log(ctx, enriched)
}

type requestIDKey struct{}

// WithRequestID stores a correlation id on ctx for RequestIDEnricher.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the correlation id stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// RequestIDEnricher copies the request correlation id into record metadata
// under DataKeyRequestID. Existing values are kept.
func RequestIDEnricher() Enricher {
	return EnricherFunc(func(ctx context.Context, record types.ActivityRecord) (types.ActivityRecord, error) {
		requestID, ok := RequestIDFromContext(ctx)
		if !ok {
			return record, nil
		}
		return AttachData(record, DataKeyRequestID, requestID), nil
	})
}

// AttachData sets key on a copy of the record metadata when it is missing.
func AttachData(record types.ActivityRecord, key string, value any) types.ActivityRecord {
	key = strings.TrimSpace(key)
	if key == "" {
		return record
	}
	out := record
	out.Data = cloneMap(record.Data)
	if _, exists := out.Data[key]; exists {
		return out
	}
	out.Data[key] = value
	return out
}
