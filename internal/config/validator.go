package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/repograph/gateway/internal/errors"
)

// ValidationContext specifies what configuration is required for a given
// entrypoint.
type ValidationContext string

const (
	ValidationContextIndex  ValidationContext = "index"
	ValidationContextServer ValidationContext = "server"
	ValidationContextAll    ValidationContext = "all"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}
	for _, warn := range vr.Warnings {
		sb.WriteString(fmt.Sprintf("  (warning) %s\n", warn))
	}
	return sb.String()
}

// Validate validates configuration for the given context with
// auto-detected deployment mode.
func (c *Config) Validate(ctx ValidationContext) *ValidationResult {
	return c.ValidateWithMode(ctx, DetectMode())
}

func (c *Config) ValidateWithMode(ctx ValidationContext, mode DeploymentMode) *ValidationResult {
	result := &ValidationResult{Valid: true}

	switch ctx {
	case ValidationContextIndex:
		c.validateStore(result, mode)
	case ValidationContextServer:
		c.validateStore(result, mode)
		c.validateLLM(result)
		c.validateRPC(result)
	case ValidationContextAll:
		c.validateStore(result, mode)
		c.validateLLM(result)
		c.validateRPC(result)
	}

	return result
}

// ValidateOrFatal validates configuration and panics with a ConfigError
// if invalid, so entrypoints fail fast on broken configuration.
func (c *Config) ValidateOrFatal(ctx ValidationContext) {
	result := c.Validate(ctx)
	if result.HasErrors() {
		panic(errors.ConfigError(result.Error()))
	}
}

func (c *Config) validateStore(result *ValidationResult, mode DeploymentMode) {
	if c.Store.URI == "" {
		result.AddError("store.uri (NEO4J_URI) is required")
	} else if _, err := url.Parse(c.Store.URI); err != nil {
		result.AddError("store.uri is invalid: %v", err)
	}
	if c.Store.User == "" {
		result.AddError("store.user (NEO4J_USER) is required")
	}
	if c.Store.Password == "" {
		result.AddError("store.password (NEO4J_PASSWORD) is required")
	} else if mode.RequiresSecureCredentials() {
		for _, insecure := range []string{"neo4j", "password", "changeme"} {
			if c.Store.Password == insecure {
				result.AddError("store.password uses an insecure default, not allowed in %s mode", mode)
			}
		}
	}
	if c.Store.Database == "" {
		result.AddWarning("store.database not set, will use 'neo4j'")
	}
}

func (c *Config) validateLLM(result *ValidationResult) {
	if c.LLM.APIKey == "" {
		result.AddWarning("llm.api_key not set; query_codebase/query_with_rag will return a translator error until configured")
	}
	if c.LLM.BaseURL != "" {
		if _, err := url.Parse(c.LLM.BaseURL); err != nil {
			result.AddError("llm.base_url is invalid: %v", err)
		}
	}
}

func (c *Config) validateRPC(result *ValidationResult) {
	if c.RPC.RowCapAbsolute > 1000 {
		result.AddError("rpc.row_cap_absolute must not exceed 1000")
	}
	if c.RPC.RowCapDefault > c.RPC.RowCapAbsolute {
		result.AddError("rpc.row_cap_default must not exceed rpc.row_cap_absolute")
	}
	if c.RPC.RateLimitRPM <= 0 {
		result.AddWarning("rpc.rate_limit_rpm <= 0, will use default (60)")
	}
}
