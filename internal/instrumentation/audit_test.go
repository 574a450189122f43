package instrumentation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestToolInvocation_Complete(t *testing.T) {
	ti := NewToolInvocation("sheets_apply_filters").
		WithService(ServiceSheets, OperationUpdate).
		WithTarget("ss1")

	if ti.StartTime.IsZero() {
		t.Fatal("StartTime should be set")
	}

	ti.Complete(false, errors.New("permission denied"))

	if ti.Success {
		t.Error("Success should be false")
	}
	if ti.Status() != StatusError {
		t.Errorf("Status = %q, want %q", ti.Status(), StatusError)
	}
	if ti.Error != "permission denied" {
		t.Errorf("Error = %q", ti.Error)
	}
	if ti.Duration < 0 {
		t.Error("Duration should not be negative")
	}
}

func TestToolInvocation_LogAttrsOmitsEmpty(t *testing.T) {
	ti := NewToolInvocation("sheets_get_cells").Complete(true, nil)

	keys := map[string]bool{}
	for _, a := range ti.LogAttrs() {
		keys[a.Key] = true
	}

	for _, want := range []string{"tool", "duration", "success"} {
		if !keys[want] {
			t.Errorf("missing %q", want)
		}
	}
	for _, absent := range []string{"service", "operation", "target", "trace_id", "error"} {
		if keys[absent] {
			t.Errorf("unexpected %q", absent)
		}
	}
}

func TestAuditLogger(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		success bool
		want    []string
	}{
		{
			name:    "success",
			enabled: true,
			success: true,
			want:    []string{"level=INFO", "msg=tool_executed", "tool=gmail_send_message", "component=audit", "target=user:"},
		},
		{
			name:    "failure",
			enabled: true,
			success: false,
			want:    []string{"level=WARN", "msg=tool_failed", "error=quota"},
		},
		{
			name:    "disabled",
			enabled: false,
			success: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			al := NewAuditLogger(logger, AuditLoggingConfig{Enabled: tt.enabled})

			var err error
			if !tt.success {
				err = errors.New("quota")
			}
			ti := NewToolInvocation("gmail_send_message").
				WithService(ServiceGmail, OperationSend).
				WithTarget("user:0123456789abcdef").
				Complete(tt.success, err)
			al.LogToolInvocation(context.Background(), ti)

			out := buf.String()
			if len(tt.want) == 0 && out != "" {
				t.Fatalf("expected no output, got %q", out)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output %q does not contain %q", out, w)
				}
			}
		})
	}
}

func TestAuditLogger_Nil(t *testing.T) {
	var al *AuditLogger
	al.LogToolInvocation(context.Background(), NewToolInvocation("x"))
}
