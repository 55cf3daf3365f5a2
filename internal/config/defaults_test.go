package config

import (
	"errors"
	"testing"
)

func TestDefaultEntries(t *testing.T) {
	entries := DefaultEntries()

	requiredKeys := []string{
		"check.thread_count",
		"check.max_threads",
		"check.keyword",
		"check.timeout",
		"check.search",
		"check.discovery",
		"check.info",
		"check.toc",
		"check.content",
		"reader.chinese_converter_type",
		"reader.paragraph_indent",
		"fetch.timeout",
		"fetch.retries",
		"server.port",
		"telemetry.enabled",
	}

	keys := make(map[string]bool)
	for _, e := range entries {
		if keys[e.Key] {
			t.Errorf("duplicate key %s", e.Key)
		}
		keys[e.Key] = true
		if e.Description == "" {
			t.Errorf("key %s has no description", e.Key)
		}
	}

	for _, key := range requiredKeys {
		if !keys[key] {
			t.Errorf("DefaultEntries() missing required key: %s", key)
		}
	}
}

func TestGetDefault(t *testing.T) {
	t.Run("existing_key", func(t *testing.T) {
		entry := GetDefault("check.timeout")
		if entry == nil {
			t.Fatal("GetDefault() returned nil for existing key")
		}
		if entry.Value != "3m0s" {
			t.Errorf("GetDefault() Value = %v, want %q", entry.Value, "3m0s")
		}
	})

	t.Run("non_existent_key", func(t *testing.T) {
		if entry := GetDefault("does.not.exist"); entry != nil {
			t.Errorf("GetDefault() = %v, want nil for non-existent key", entry)
		}
	})
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"check.keyword", false},
		{"", true},
		{"check keyword", true},
		{".check", true},
		{"check.", true},
		{"check.unknown", true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidKey) {
				t.Errorf("expected ErrInvalidKey, got %v", err)
			}
		})
	}
}

func TestReset_UnknownKey(t *testing.T) {
	mgr, err := NewManager("", t.TempDir(), nil)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	if err := mgr.Reset("does.not.exist"); !errors.Is(err, ErrNoDefault) {
		t.Errorf("expected ErrNoDefault, got %v", err)
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	if len(keys) != len(DefaultEntries()) {
		t.Fatalf("expected %d keys, got %d", len(DefaultEntries()), len(keys))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Errorf("keys not sorted at %d: %s > %s", i, keys[i-1], keys[i])
		}
	}
}
