package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModelEntry describes one routable model binding.
type ModelEntry struct {
	Name          string  `yaml:"name"`
	Provider      string  `yaml:"provider"` // ollama | openai-compatible | openai
	BaseURL       string  `yaml:"base_url"`
	Model         string  `yaml:"model"`
	APIKeyEnv     string  `yaml:"api_key_env"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
}

// APIKey resolves the key from the environment at startup.
func (m ModelEntry) APIKey() string {
	if m.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(m.APIKeyEnv)
}

type ModelTable struct {
	Default string       `yaml:"default"`
	Models  []ModelEntry `yaml:"models"`
}

// LoadModelTable reads the routing table from path. A missing file falls back
// to the built-in table.
func LoadModelTable(path string) (*ModelTable, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultModelTable(getEnv("OLLAMA_BASE_URL", "http://localhost:11434")), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read model table: %w", err)
	}
	return ParseModelTable(raw)
}

func ParseModelTable(raw []byte) (*ModelTable, error) {
	var table ModelTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("parse model table: %w", err)
	}
	if table.Default == "" {
		return nil, errors.New("model table: default is required")
	}
	for i, m := range table.Models {
		if m.Name == "" || m.Provider == "" || m.Model == "" {
			return nil, fmt.Errorf("model table: entry %d needs name, provider and model", i)
		}
	}
	return &table, nil
}

func DefaultModelTable(ollamaURL string) *ModelTable {
	const (
		bigModel  = "https://open.bigmodel.cn/api/paas/v4"
		dashScope = "https://dashscope.aliyuncs.com/compatible-mode/v1"
		deepSeek  = "https://api.deepseek.com/v1"
		gemini    = "https://generativelanguage.googleapis.com/v1beta/openai"
	)
	return &ModelTable{
		Default: "glm:4flash",
		Models: []ModelEntry{
			{Name: "glm:4flash", Provider: "openai-compatible", BaseURL: bigModel, Model: "glm-4-flash", APIKeyEnv: "CHATGLM_API_KEY", RatePerSecond: 5, Burst: 5},
			{Name: "glm:z1flash", Provider: "openai-compatible", BaseURL: bigModel, Model: "glm-z1-flash", APIKeyEnv: "CHATGLM_API_KEY", RatePerSecond: 5, Burst: 5},
			{Name: "qwen3:235b", Provider: "openai-compatible", BaseURL: dashScope, Model: "qwen3-235b-a22b", APIKeyEnv: "DASHSCOPE_API_KEY"},
			{Name: "qwen3:plus", Provider: "openai-compatible", BaseURL: dashScope, Model: "qwen-plus", APIKeyEnv: "DASHSCOPE_API_KEY"},
			{Name: "qwen3:max", Provider: "openai-compatible", BaseURL: dashScope, Model: "qwen-max", APIKeyEnv: "DASHSCOPE_API_KEY"},
			{Name: "deepseek:r1", Provider: "openai", BaseURL: deepSeek, Model: "deepseek-reasoner", APIKeyEnv: "DEEPSEEK_API_KEY"},
			{Name: "deepseek:v3", Provider: "openai", BaseURL: deepSeek, Model: "deepseek-chat", APIKeyEnv: "DEEPSEEK_API_KEY"},
			{Name: "gemini:2.5flash", Provider: "openai", BaseURL: gemini, Model: "gemini-2.5-flash", APIKeyEnv: "GEMINI_API_KEY"},
			{Name: "qwen3:1.7b", Provider: "ollama", BaseURL: ollamaURL, Model: "qwen3:1.7b"},
			{Name: "qwen3:8b", Provider: "ollama", BaseURL: ollamaURL, Model: "qwen3:8b"},
			{Name: "qwen3:14b", Provider: "ollama", BaseURL: ollamaURL, Model: "qwen3:14b"},
		},
	}
}
