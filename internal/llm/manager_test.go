package llm

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{"XAI_API_KEY", "GROQ_API_KEY", "DASHSCOPE_API_KEY", "QWEN_API_KEY", "OPENAI_API_KEY"} {
		t.Setenv(env, "")
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(t.TempDir(), 5*time.Second, nil)
}

func writeModelConfig(t *testing.T, m *Manager, cfg RuntimeConfig) {
	t.Helper()
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(m.configPath, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSelectPrefersConfiguredModel(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("DASHSCOPE_API_KEY", "sk-real")
	t.Setenv("XAI_API_KEY", "sk-xai")

	m := newTestManager(t)
	writeModelConfig(t, m, RuntimeConfig{SelectedModel: "qwen-max"})

	p, key, err := m.Select()
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if p.ID != "qwen-max" || key != "sk-real" {
		t.Errorf("got %s/%s", p.ID, key)
	}
}

func TestSelectFallsThroughWhenSelectedHasNoKey(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("GROQ_API_KEY", "sk-groq")

	m := newTestManager(t)
	writeModelConfig(t, m, RuntimeConfig{SelectedModel: "qwen-max"})

	p, key, err := m.Select()
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if p.ID != "groq-llama3" || key != "sk-groq" {
		t.Errorf("got %s/%s, want priority fallback to groq-llama3", p.ID, key)
	}
}

func TestSelectSkipsDisabledModels(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("XAI_API_KEY", "sk-xai")
	t.Setenv("GROQ_API_KEY", "sk-groq")

	m := newTestManager(t)
	writeModelConfig(t, m, RuntimeConfig{Enabled: map[string]bool{"grok3-mini": false}})

	p, _, err := m.Select()
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if p.ID != "groq-llama3" {
		t.Errorf("got %s, want groq-llama3", p.ID)
	}
}

func TestSelectPlaceholderKeyIsAbsent(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("XAI_API_KEY", "test_key")
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	m := newTestManager(t)
	p, key, err := m.Select()
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	// The placeholder does not count as a grok key, but every model can
	// fall back to the openai key, so priority order still wins.
	if p.ID != "grok3-mini" || key != "sk-openai" {
		t.Errorf("got %s/%s", p.ID, key)
	}
}

func TestSelectNoKeysAnywhere(t *testing.T) {
	clearKeyEnv(t)
	m := newTestManager(t)

	p, _, err := m.Select()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
	if p.ID != defaultPriority[0] {
		t.Errorf("reported model = %s, want priority head", p.ID)
	}
}

func TestLoadConfigCorruptFileFallsBack(t *testing.T) {
	m := newTestManager(t)
	if err := os.WriteFile(m.configPath, []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := m.LoadConfig()
	if len(cfg.Priority) != len(defaultPriority) {
		t.Errorf("priority = %v, want defaults", cfg.Priority)
	}
}

func TestSaveConfigRejectsUnknownModel(t *testing.T) {
	m := newTestManager(t)
	if err := m.SaveConfig(RuntimeConfig{SelectedModel: "gpt-99"}); err == nil {
		t.Error("want error for unknown selected model")
	}
	if err := m.SaveConfig(RuntimeConfig{Priority: []string{"nope"}}); err == nil {
		t.Error("want error for unknown priority entry")
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	m := newTestManager(t)
	want := RuntimeConfig{
		SelectedModel: "qwen-turbo",
		Priority:      []string{"qwen-turbo", "openai-gpt4"},
		Enabled:       map[string]bool{"grok3-mini": false},
	}
	if err := m.SaveConfig(want); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	got := m.LoadConfig()
	if got.SelectedModel != "qwen-turbo" || len(got.Priority) != 2 || got.Enabled["grok3-mini"] {
		t.Errorf("LoadConfig = %+v", got)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(m.configPath), "models.json")); err != nil {
		t.Errorf("models.json not written: %v", err)
	}
}

func TestStatusMarksCurrentModel(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("GROQ_API_KEY", "sk-groq")

	m := newTestManager(t)
	statuses := m.Status()
	if len(statuses) != len(builtinProfiles) {
		t.Fatalf("statuses = %d, want %d", len(statuses), len(builtinProfiles))
	}
	var current string
	for _, s := range statuses {
		if s.Current {
			current = s.ID
		}
		if s.ID == "groq-llama3" && !s.HasKey {
			t.Error("groq-llama3 should report a key")
		}
		if s.ID == "grok3-mini" && s.HasKey {
			t.Error("grok3-mini should not report a key")
		}
	}
	if current != "groq-llama3" {
		t.Errorf("current = %q, want groq-llama3", current)
	}
}
