package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVs(t *testing.T) {
	longAudio := "data:audio/wav;base64," + strings.Repeat("A", 200)

	out := sanitizeKVs([]interface{}{
		"api_key", "secret-value",
		"user_id", "0b5c3b0e-7f4e-4d57-9a4b-2d3c1b6a9f10",
		"explanation_audio", longAudio,
		"topic", "Fractions",
		"dangling",
	})

	if out[1] != "[REDACTED]" {
		t.Fatalf("expected api_key to be redacted, got %v", out[1])
	}
	if s, _ := out[3].(string); !strings.HasPrefix(s, "hash:") {
		t.Fatalf("expected user_id to be hashed, got %v", out[3])
	}
	if s, _ := out[5].(string); len(s) >= len(longAudio) {
		t.Fatalf("expected audio payload to be truncated")
	}
	if out[7] != "Fractions" {
		t.Fatalf("expected topic untouched, got %v", out[7])
	}
	if len(out) != 9 || out[8] != "dangling" {
		t.Fatalf("expected dangling key preserved, got %v", out)
	}
}
