package ocr

import "context"

// RequestMeta travels with the context into outgoing HTTP calls so that
// proxies in front of the model can correlate requests.
type RequestMeta struct {
	// Generation of the viewer selection the crop was taken from.
	Generation uint64
	// Source is the file or upload name of the loaded image.
	Source string
	// RequestID is the ID of the transport request that asked for the text.
	RequestID string
}

type requestMetaKey struct{}

// WithRequestMeta merges add into any meta already on ctx. Zero fields do
// not overwrite existing values.
func WithRequestMeta(ctx context.Context, add RequestMeta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	cur := RequestMetaFromContext(ctx)
	if add.Generation != 0 {
		cur.Generation = add.Generation
	}
	if add.Source != "" {
		cur.Source = add.Source
	}
	if add.RequestID != "" {
		cur.RequestID = add.RequestID
	}
	return context.WithValue(ctx, requestMetaKey{}, cur)
}

// RequestMetaFromContext returns the meta on ctx, or the zero value.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if ctx == nil {
		return RequestMeta{}
	}
	m, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return m
}
