package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// Settings applied when neither the config file, environment, nor flags
// provide a value.
const (
	defaultModel             = "gpt-4-turbo"
	defaultTemperature       = 0.3
	defaultMaxIterations     = 10
	defaultMaxRetries        = 3
	defaultMaxSearchResults  = 5
	defaultMaxContentChars   = 5000
	defaultRequestsPerSecond = 2
	defaultRequestTimeout    = 30 * time.Second
	defaultUserAgent         = "Mozilla/5.0 (compatible; ResearchAssistant/1.0)"
	defaultHistoryDir        = "output/history"
	defaultHistoryResults    = 20
)

// buildConfig resolves the effective configuration from the config file,
// RESEARCH_ASSISTANT_* environment variables, loaded secrets, and the
// conventional variable names the assistant has always honored
// (OPENAI_API_KEY, TAVILY_API_KEY, AGENT_MODEL, ...).
func buildConfig() types.Config {
	httpCfg := types.HTTPConfig{
		Timeout:   requestTimeout(),
		UserAgent: stringSetting("user_agent", "", defaultUserAgent),
	}

	openaiKey := secretDefault("openai-api-key", viper.GetString("openai_api_key"))
	if openaiKey == "" {
		openaiKey = os.Getenv("OPENAI_API_KEY")
	}
	tavilyKey := secretDefault("tavily-api-key", viper.GetString("tavily_api_key"))
	if tavilyKey == "" {
		tavilyKey = os.Getenv("TAVILY_API_KEY")
	}

	enableArxiv := true
	if viper.IsSet("enable_arxiv") {
		enableArxiv = viper.GetBool("enable_arxiv")
	}

	return types.Config{
		Search: types.SearchConfig{
			HTTPConfig:   httpCfg,
			MaxResults:   intSetting("max_search_results", "MAX_SEARCH_RESULTS", defaultMaxSearchResults),
			EnableArxiv:  enableArxiv,
			TavilyAPIKey: tavilyKey,
		},
		Fetch: types.FetchConfig{
			HTTPConfig:        httpCfg,
			MaxContentChars:   intSetting("max_content_chars", "", defaultMaxContentChars),
			RequestsPerSecond: floatSetting("requests_per_second", "", defaultRequestsPerSecond),
		},
		Agent: types.AgentConfig{
			Model:         stringSetting("model", "AGENT_MODEL", defaultModel),
			APIKey:        openaiKey,
			BaseURL:       viper.GetString("openai_base_url"),
			Temperature:   float32(floatSetting("temperature", "AGENT_TEMPERATURE", defaultTemperature)),
			MaxIterations: intSetting("max_iterations", "", defaultMaxIterations),
			MaxRetries:    intSetting("max_retries", "", defaultMaxRetries),
		},
		History: types.HistoryConfig{
			Dir:        stringSetting("history_dir", "", defaultHistoryDir),
			MaxResults: intSetting("history_max_results", "", defaultHistoryResults),
		},
	}
}

// requireOpenAIKey fails fast with setup guidance instead of surfacing an
// HTTP 401 mid-run.
func requireOpenAIKey(cfg types.Config) error {
	if cfg.Agent.APIKey == "" {
		return fmt.Errorf("no OpenAI API key configured: set OPENAI_API_KEY (or put it in .env), or add an openai-api-key file under .secrets/")
	}
	return nil
}

// requestTimeout resolves the HTTP timeout. The config file takes a Go
// duration string; the REQUEST_TIMEOUT variable counts seconds.
func requestTimeout() time.Duration {
	if v := viper.GetString("request_timeout"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultRequestTimeout
}

func stringSetting(viperKey, envKey, fallback string) string {
	if v := viper.GetString(viperKey); v != "" {
		return v
	}
	if envKey != "" {
		if v := os.Getenv(envKey); v != "" {
			return v
		}
	}
	return fallback
}

func intSetting(viperKey, envKey string, fallback int) int {
	if v := viper.GetInt(viperKey); v > 0 {
		return v
	}
	if envKey != "" {
		if v, err := strconv.Atoi(os.Getenv(envKey)); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}

func floatSetting(viperKey, envKey string, fallback float64) float64 {
	if v := viper.GetFloat64(viperKey); v > 0 {
		return v
	}
	if envKey != "" {
		if v, err := strconv.ParseFloat(os.Getenv(envKey), 64); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}
