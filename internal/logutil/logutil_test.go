package logutil

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestIsSensitiveLogField(t *testing.T) {
	t.Parallel()
	for _, key := range []string{"Authorization", "X-Api-Key", "Cookie", "db_password", "Refresh-Token", "client_secret"} {
		assert.True(t, IsSensitiveLogField(key), key)
	}
	for _, key := range []string{"Content-Type", "X-Request-Id", "title", "content"} {
		assert.False(t, IsSensitiveLogField(key), key)
	}
}

func TestFormatHeadersForLog_SortedAndRedacted(t *testing.T) {
	t.Parallel()
	h := http.Header{}
	h.Set("X-Request-Id", "req-1")
	h.Set("Authorization", "Bearer abc")
	h.Set("Content-Type", "application/json")

	got := FormatHeadersForLog(h)
	assert.Equal(t, `authorization="[REDACTED]"; content-type="application/json"; x-request-id="req-1"`, got)
	assert.Equal(t, "{}", FormatHeadersForLog(nil))
}

func testTruncateForLog_BoundedSingleLine(t *rapid.T) {
	value := rapid.StringMatching(`[a-z\n ]{0,300}`).Draw(t, "value")
	max := rapid.IntRange(1, 100).Draw(t, "max")

	got := TruncateForLog(value, max)
	if strings.Contains(got, "\n") {
		t.Fatalf("output contains newline: %q", got)
	}
	if len(got) > max+len("... [truncated]") {
		t.Fatalf("output too long: %d > %d", len(got), max)
	}
}

func TestTruncateForLog_BoundedSingleLine(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testTruncateForLog_BoundedSingleLine)
}
