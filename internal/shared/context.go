package shared

import (
	"context"

	"github.com/google/uuid"
)

// RequestMetadata describes the request that triggered a ledger mutation. It
// is persisted alongside every audit entry.
type RequestMetadata struct {
	RequestID string `json:"request_id,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Source    string `json:"source,omitempty"`
}

type requestMetadataKey struct{}

// ContextWithRequestMetadata stores request metadata in context. A missing
// request id is generated so audit rows can always be correlated.
func ContextWithRequestMetadata(ctx context.Context, meta RequestMetadata) context.Context {
	if meta.RequestID == "" {
		meta.RequestID = uuid.NewString()
	}
	return context.WithValue(ctx, requestMetadataKey{}, meta)
}

// RequestMetadataFromContext extracts request metadata from context.
func RequestMetadataFromContext(ctx context.Context) (RequestMetadata, bool) {
	meta, ok := ctx.Value(requestMetadataKey{}).(RequestMetadata)
	return meta, ok
}
