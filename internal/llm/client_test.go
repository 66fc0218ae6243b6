package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{Model: "gpt-4o-mini"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient(Config{APIKey: "sk-test"})
	require.NoError(t, err)

	assert.NotEmpty(t, c.cfg.Model)
	assert.Equal(t, 800, c.cfg.MaxTokens)
	assert.Equal(t, 20*time.Second, c.cfg.Timeout)
}

func TestNewClientKeepsExplicitSettings(t *testing.T) {
	c, err := NewClient(Config{
		APIKey:      "sk-test",
		BaseURL:     "http://localhost:11434/v1",
		Model:       "qwen2.5-coder",
		Temperature: 0.2,
		MaxTokens:   300,
		Timeout:     5 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, "qwen2.5-coder", c.cfg.Model)
	assert.Equal(t, float32(0.2), c.cfg.Temperature)
	assert.Equal(t, 300, c.cfg.MaxTokens)
	assert.Equal(t, 5*time.Second, c.cfg.Timeout)
}
