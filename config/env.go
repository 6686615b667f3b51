package config

import "os"

// Environment variables read by ApplyEnv.
const (
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvExaKey        = "EXA_API_KEY"
	EnvExaBaseURL    = "EXA_BASE_URL"
	EnvQdrantURL     = "QDRANT_URL"
	EnvQdrantKey     = "QDRANT_API_KEY"
	EnvIndexName     = "RAGLINE_INDEX_NAME"
)

// ApplyEnv overlays set, non-empty environment variables onto c.
func (c *Config) ApplyEnv() {
	c.ApplyEnvFrom(os.LookupEnv)
}

// ApplyEnvFrom overlays values from lookup onto c.
func (c *Config) ApplyEnvFrom(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvOpenAIKey, &c.AI.APIKey)
	set(EnvOpenAIBaseURL, &c.AI.Host)
	set(EnvExaKey, &c.Exa.APIKey)
	set(EnvExaBaseURL, &c.Exa.BaseURL)
	set(EnvIndexName, &c.Store.Index)
	set(EnvQdrantKey, &c.Store.Qdrant.APIKey)
	if v, ok := lookup(EnvQdrantURL); ok && v != "" {
		c.Store.Qdrant.URL = v
		c.Store.Type = StoreQdrant
	}
}
