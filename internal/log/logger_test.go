package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentDashboard, Output: &buf})
	l.Info("Dashboard built", FieldStart, "2011-01-01")

	out := buf.String()
	if !strings.Contains(out, "component=dashboard") || !strings.Contains(out, "start=2011-01-01") {
		t.Fatalf("unexpected output %q", out)
	}

	buf.Reset()
	l.WithComponent(ComponentExport).Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record written at info level: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestMiddlewareAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: slog.LevelInfo, Component: ComponentHTTP, Output: &buf})

	type key struct{}
	reqID := func(ctx context.Context) string {
		id, _ := ctx.Value(key{}).(string)
		return id
	}
	h := Middleware(base, reqID)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).InfoContext(r.Context(), "inside")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), key{}, "req_abc"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), "request_id=req_abc") {
		t.Fatalf("request id missing from %q", buf.String())
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if l := FromContext(context.Background()); l.Component() != "unknown" {
		t.Fatalf("Component() = %q", l.Component())
	}
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().WithComponent(ComponentImport).WithRows(731, 0).WithRequestID("").WithError(nil)
	if len(f) != 3 {
		t.Fatalf("unexpected fields %v", f)
	}
	if len(f.ToSlice()) != 6 {
		t.Fatalf("ToSlice() length = %d", len(f.ToSlice()))
	}
}
