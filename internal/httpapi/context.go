package httpapi

import "context"

type requestIDKey struct{}

func withRequestIDContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// requestIDFromContext returns the per-request correlation id, or "" if
// none was stamped (e.g. a handler invoked directly from a test without
// going through withRequestID).
func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type requestModelKey struct{}

// withRequestModelSlot injects a writable slot a handler can fill in with
// the model it resolved, so the request-logging middleware wrapping it can
// read that model back out once the handler returns.
func withRequestModelSlot(ctx context.Context) (context.Context, *string) {
	slot := new(string)
	return context.WithValue(ctx, requestModelKey{}, slot), slot
}

// setRequestModel records the resolved model id for the current request, if
// a slot was installed by the request-logging middleware.
func setRequestModel(ctx context.Context, model string) {
	if slot, ok := ctx.Value(requestModelKey{}).(*string); ok {
		*slot = model
	}
}
