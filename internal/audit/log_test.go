package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"clinidesk.app/internal/auth"
	"clinidesk.app/internal/obs"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	logger := obs.Logger()
	orig := logger.Writer()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(orig) })
	return &buf
}

func TestLogEventEnrichesWithContext(t *testing.T) {
	buf := captureLog(t)

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = auth.ContextWithPrincipal(ctx, auth.Principal{
		Employee: &auth.Employee{ID: "emp-1"},
	})

	if err := LogEvent(ctx, "security.whitelist.add", map[string]any{"pattern": "10.0.0.0/8"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
		t.Fatalf("not valid JSON: %v", err)
	}
	if entry["event"] != "security.whitelist.add" || entry["type"] != "audit" {
		t.Fatalf("bad entry: %v", entry)
	}
	if entry["request_id"] != "req-123" || entry["employee_id"] != "emp-1" {
		t.Fatalf("context not attached: %v", entry)
	}
	fields := entry["fields"].(map[string]any)
	if fields["pattern"] != "10.0.0.0/8" {
		t.Fatalf("fields not carried: %v", fields)
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for blank event")
	}
}
