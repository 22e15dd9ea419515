package operations

import "time"

// Config controls how the Manager runs steps. A zero timeout means the
// step runs until it exits or the context is cancelled.
type Config struct {
	StageTimeouts   map[string]time.Duration `json:"stage_timeouts"`
	DefaultTimeout  time.Duration            `json:"default_timeout"`
	RetryConfig     RetryConfig              `json:"retry_config"`
	ContinueOnError bool                     `json:"continue_on_error"`
}

// NewConfig retries failed steps and stops at the first step that still fails.
func NewConfig() *Config {
	return &Config{
		StageTimeouts:  map[string]time.Duration{},
		DefaultTimeout: DefaultStageTimeout,
		RetryConfig:    NewRetryConfig(),
	}
}

// GetStageTimeout returns the timeout of stageID; zero means none.
func (c *Config) GetStageTimeout(stageID string) time.Duration {
	if timeout, ok := c.StageTimeouts[stageID]; ok {
		return timeout
	}
	return c.DefaultTimeout
}

type ConfigBuilder struct {
	config *Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{config: NewConfig()}
}

// WithStageTimeout overrides the timeout of one step.
func (b *ConfigBuilder) WithStageTimeout(stageID string, timeout time.Duration) *ConfigBuilder {
	b.config.StageTimeouts[stageID] = timeout
	return b
}

func (b *ConfigBuilder) WithDefaultTimeout(timeout time.Duration) *ConfigBuilder {
	b.config.DefaultTimeout = timeout
	return b
}

func (b *ConfigBuilder) WithRetryConfig(config RetryConfig) *ConfigBuilder {
	b.config.RetryConfig = config
	return b
}

func (b *ConfigBuilder) WithContinueOnError(continueOnError bool) *ConfigBuilder {
	b.config.ContinueOnError = continueOnError
	return b
}

func (b *ConfigBuilder) Build() *Config {
	return b.config
}

// NewSetupConfig is the fail-fast configuration used by the setup pipeline:
// single attempt per step and one timeout for every step.
func NewSetupConfig(stepTimeout time.Duration) *Config {
	return NewConfigBuilder().
		WithDefaultTimeout(stepTimeout).
		WithRetryConfig(NoRetry()).
		WithContinueOnError(false).
		Build()
}
