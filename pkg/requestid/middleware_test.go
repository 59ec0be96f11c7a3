package requestid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/requestid"
)

// serve runs the middleware once and returns the id seen by the handler and
// the id echoed in the response.
func serve(t *testing.T, incoming string) (seen, echoed string) {
	t.Helper()

	h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestid.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/notifications", nil)
	if incoming != "" {
		req.Header.Set(requestid.Header, incoming)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	return seen, rec.Header().Get(requestid.Header)
}

func TestMiddleware_KeepsWellFormedID(t *testing.T) {
	t.Parallel()

	for _, id := range []string{
		"notif-7",
		"batch_2026_10",
		"Upstream-Gateway-01",
		"0192b4c1-6f3e-7a51-9d7e-3a2f1c0b9e44",
	} {
		t.Run(id, func(t *testing.T) {
			t.Parallel()
			seen, echoed := serve(t, id)
			assert.Equal(t, id, seen)
			assert.Equal(t, id, echoed)
		})
	}
}

func TestMiddleware_ReplacesMalformedID(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"missing":      "",
		"whitespace":   "two words",
		"path":         "a/b",
		"markup":       "<img src=x>",
		"email":        "ops@example.com",
		"over 128":     strings.Repeat("x", 129),
		"quote escape": `id"; drop`,
	}
	for name, id := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			seen, echoed := serve(t, id)
			require.NotEmpty(t, seen)
			assert.NotEqual(t, id, seen)
			assert.Equal(t, seen, echoed)

			parsed, err := uuid.Parse(seen)
			require.NoError(t, err)
			assert.Equal(t, uuid.Version(7), parsed.Version())
		})
	}
}

func TestMiddleware_GeneratesDistinctIDs(t *testing.T) {
	t.Parallel()

	first, _ := serve(t, "")
	second, _ := serve(t, "")
	assert.NotEqual(t, first, second)
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	assert.Empty(t, requestid.FromContext(context.Background()))

	ctx := requestid.WithContext(context.Background(), "req-1")
	assert.Equal(t, "req-1", requestid.FromContext(ctx))
	assert.Equal(t, "req-2", requestid.FromContext(requestid.WithContext(ctx, "req-2")))
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := requestid.LoggerExtractor()

	_, ok := extract(context.Background())
	assert.False(t, ok)

	attr, ok := extract(requestid.WithContext(context.Background(), "req-42"))
	require.True(t, ok)
	assert.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "req-42", attr.Value.String())
}
