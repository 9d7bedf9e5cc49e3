package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the search backends.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the maximum number of results to return (default 5, capped at 10).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// EnableArxiv controls whether the arXiv backend joins general searches.
	EnableArxiv bool `json:"enable_arxiv" yaml:"enable_arxiv"`

	// TavilyAPIKey authenticates against the Tavily search API.
	TavilyAPIKey string `json:"tavily_api_key,omitempty" yaml:"tavily_api_key,omitempty"`
}

// FetchConfig holds settings for webpage retrieval and extraction.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxContentChars caps extracted page text (default 5000).
	MaxContentChars int `json:"max_content_chars" yaml:"max_content_chars"`

	// RequestsPerSecond throttles outbound page fetches (default 2).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// AgentConfig holds settings for the chat-completion research loop.
type AgentConfig struct {
	// Model is the chat model identifier (e.g. "gpt-4-turbo").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the chat API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint for OpenAI-compatible servers.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Temperature is the sampling temperature (default 0.3).
	Temperature float32 `json:"temperature" yaml:"temperature"`

	// MaxIterations bounds the tool-calling loop (default 10).
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// HistoryConfig holds settings for the local run history store.
type HistoryConfig struct {
	// Dir is the directory holding the history database (default "output/history").
	Dir string `json:"dir" yaml:"dir"`

	// MaxResults is the default maximum number of listed runs (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// Config groups all component configurations for the assistant.
type Config struct {
	Search  SearchConfig  `json:"search" yaml:"search"`
	Fetch   FetchConfig   `json:"fetch" yaml:"fetch"`
	Agent   AgentConfig   `json:"agent" yaml:"agent"`
	History HistoryConfig `json:"history" yaml:"history"`
}
