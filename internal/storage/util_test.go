package storage

import (
	"strings"
	"testing"
)

func TestGenerateAPIKey(t *testing.T) {
	key := generateAPIKey()
	if !strings.HasPrefix(key, "rp_key_") {
		t.Errorf("generateAPIKey() = %v, want rp_key_ prefix", key)
	}
	if len(key) != len("rp_key_")+48 {
		t.Errorf("generateAPIKey() length = %d, want %d", len(key), len("rp_key_")+48)
	}
	if key == generateAPIKey() {
		t.Error("generateAPIKey() returned the same key twice")
	}
}

func TestHashAPIKey(t *testing.T) {
	h1 := hashAPIKey("rp_key_abc")
	h2 := hashAPIKey("rp_key_abc")
	h3 := hashAPIKey("rp_key_def")

	if h1 != h2 {
		t.Error("hashAPIKey() is not deterministic")
	}
	if h1 == h3 {
		t.Error("hashAPIKey() collided for different keys")
	}
	if len(h1) != 64 {
		t.Errorf("hashAPIKey() length = %d, want 64 hex chars", len(h1))
	}
	if strings.Contains(h1, "rp_key") {
		t.Error("hashAPIKey() leaks the plaintext key")
	}
}
