package config

import (
	"os"
	"testing"
)

// memBackend is an in-memory ConfigBackend for testing.
type memBackend struct {
	strings map[string]string
	ints    map[string]int
}

func newMemBackend() *memBackend {
	return &memBackend{strings: make(map[string]string), ints: make(map[string]int)}
}

func (b *memBackend) GetString(key string) (string, bool, error) {
	v, ok := b.strings[key]
	return v, ok, nil
}

func (b *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.ints[key]
	return v, ok, nil
}

func (b *memBackend) SetString(key, val string) error {
	b.strings[key] = val
	return nil
}

func (b *memBackend) SetInt(key string, val int) error {
	b.ints[key] = val
	return nil
}

func (b *memBackend) Delete(key string) error {
	delete(b.strings, key)
	delete(b.ints, key)
	return nil
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}

	if cfg.Server.Port != 4200 {
		t.Errorf("Server.Port = %d, want 4200", cfg.Server.Port)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("Ollama.BaseURL = %q", cfg.Ollama.BaseURL)
	}
	if cfg.Ollama.TagModel != "qwen2.5" {
		t.Errorf("Ollama.TagModel = %q", cfg.Ollama.TagModel)
	}
	if cfg.Ollama.EmbedModel != "nomic-embed-text" {
		t.Errorf("Ollama.EmbedModel = %q", cfg.Ollama.EmbedModel)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("Retrieval.TopK = %d, want 5", cfg.Retrieval.TopK)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestBackendValues(t *testing.T) {
	clearEnv(t)

	b := newMemBackend()
	b.SetInt("server.port", 5100)
	b.SetString("ollama.tag_model", "llama3.2")
	b.SetString("storage.data_dir", "/tmp/kbready-test")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 5100 {
		t.Errorf("Server.Port = %d, want 5100", cfg.Server.Port)
	}
	if cfg.Ollama.TagModel != "llama3.2" {
		t.Errorf("Ollama.TagModel = %q", cfg.Ollama.TagModel)
	}
	if cfg.Storage.DataDir != "/tmp/kbready-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	clearEnv(t)

	b := newMemBackend()
	b.SetInt("server.port", 5100)
	b.SetString("ollama.base_url", "http://backend:11434")

	t.Setenv("KBREADY_SERVER_PORT", "6200")
	t.Setenv("KBREADY_OLLAMA_BASE_URL", "http://env:11434")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 6200 {
		t.Errorf("Server.Port = %d, want 6200", cfg.Server.Port)
	}
	if cfg.Ollama.BaseURL != "http://env:11434" {
		t.Errorf("Ollama.BaseURL = %q, want env value", cfg.Ollama.BaseURL)
	}
}

func TestEnvInvalidIntIgnored(t *testing.T) {
	clearEnv(t)

	t.Setenv("KBREADY_SERVER_PORT", "not-a-number")

	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 4200 {
		t.Errorf("Server.Port = %d, want default 4200", cfg.Server.Port)
	}
}

func TestShowAllCoversEverySpec(t *testing.T) {
	clearEnv(t)

	cfg := defaults()
	infos := ShowAll(cfg)
	if len(infos) != len(specs) {
		t.Errorf("ShowAll returned %d keys, want %d", len(infos), len(specs))
	}
	for _, info := range infos {
		if info.Key == "" || info.EnvVar == "" {
			t.Errorf("incomplete key info: %+v", info)
		}
	}
}

func TestEnsureAPIToken(t *testing.T) {
	dir := t.TempDir()

	token, err := EnsureAPIToken(dir)
	if err != nil {
		t.Fatalf("EnsureAPIToken: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(token))
	}

	again, err := EnsureAPIToken(dir)
	if err != nil {
		t.Fatalf("EnsureAPIToken second call: %v", err)
	}
	if again != token {
		t.Error("second call generated a different token")
	}

	got, err := GetAPIToken(dir)
	if err != nil {
		t.Fatalf("GetAPIToken: %v", err)
	}
	if got != token {
		t.Error("GetAPIToken returned a different token")
	}

	info, err := os.Stat(dir + "/token")
	if err != nil {
		t.Fatalf("stat token file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("token file mode = %o, want 600", info.Mode().Perm())
	}
}

func TestGetAPIToken_Missing(t *testing.T) {
	_, err := GetAPIToken(t.TempDir())
	if !os.IsNotExist(err) {
		t.Errorf("err = %v, want os.IsNotExist", err)
	}
}
