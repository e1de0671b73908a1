package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderDoubao = "doubao"
	ProviderQwen   = "qwen"
)

type Config struct {
	Server     ServerConfig               `mapstructure:"server"`
	Model      ModelConfig                `mapstructure:"model"`
	Gemini     GeminiConfig               `mapstructure:"gemini"`
	OpenAI     OpenAIConfig               `mapstructure:"openai"`
	Doubao     DoubaoConfig               `mapstructure:"doubao"`
	Qwen       QwenConfig                 `mapstructure:"qwen"`
	Assistants map[string]AssistantConfig `mapstructure:"assistants"`
	Chat       ChatConfig                 `mapstructure:"chat"`
	Session    SessionConfig              `mapstructure:"session"`
	Clipboard  ClipboardConfig            `mapstructure:"clipboard"`
	CORS       CORSConfig                 `mapstructure:"cors"`
	Log        LogConfig                  `mapstructure:"log"`
	Metrics    MetricsConfig              `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type ModelConfig struct {
	Provider string `mapstructure:"provider"`
}

type GeminiConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	APIVersion   string        `mapstructure:"api_version"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	DebugRequest bool          `mapstructure:"debug_request"`
}

type OpenAIConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Temperature  float32       `mapstructure:"temperature"`
	Timeout      time.Duration `mapstructure:"timeout"`
	DebugRequest bool          `mapstructure:"debug_request"`
}

type DoubaoConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryTimes   int           `mapstructure:"retry_times"`
	DebugRequest bool          `mapstructure:"debug_request"`
}

type QwenConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Temperature  float32       `mapstructure:"temperature"`
	TopP         float32       `mapstructure:"top_p"`
	Timeout      time.Duration `mapstructure:"timeout"`
	DebugRequest bool          `mapstructure:"debug_request"`
}

// AssistantConfig 描述一个助手页面：人设、欢迎语、预置问题和主题
type AssistantConfig struct {
	Title             string   `mapstructure:"title"`
	SystemInstruction string   `mapstructure:"system_instruction"`
	Greeting          string   `mapstructure:"greeting"`
	Prompts           []string `mapstructure:"prompts"`
	Theme             string   `mapstructure:"theme"`
}

type ChatConfig struct {
	CopyAckDuration   time.Duration `mapstructure:"copy_ack_duration"`
	NoResponseText    string        `mapstructure:"no_response_text"`
	ProviderErrorText string        `mapstructure:"provider_error_text"`
	NetworkErrorText  string        `mapstructure:"network_error_text"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type ClipboardConfig struct {
	// client 由前端写剪贴板（接口返回文本），system 使用宿主机剪贴板，none 表示不可用
	Backend string `mapstructure:"backend"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load 读取配置文件；configPath 为空时只使用默认值和环境变量
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.Assistants) == 0 {
		cfg.Assistants = DefaultAssistants()
	}

	// 配置文件优先，如果配置文件中没有设置，则使用环境变量
	applyEnvKeys(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Model.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderDoubao, ProviderQwen:
	default:
		return fmt.Errorf("unsupported model provider: %q", c.Model.Provider)
	}

	for name, a := range c.Assistants {
		if strings.TrimSpace(a.SystemInstruction) == "" {
			return fmt.Errorf("assistant %q: system_instruction is required", name)
		}
		if strings.TrimSpace(a.Greeting) == "" {
			return fmt.Errorf("assistant %q: greeting is required", name)
		}
	}

	if c.Chat.CopyAckDuration <= 0 {
		return fmt.Errorf("chat.copy_ack_duration must be positive")
	}

	return nil
}

func applyEnvKeys(cfg *Config) {
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
	}
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = firstEnv("OPENAI_API_KEY")
	}
	if cfg.Doubao.APIKey == "" {
		cfg.Doubao.APIKey = firstEnv("DOUBAO_API_KEY", "ARK_API_KEY")
	}
	if cfg.Qwen.APIKey == "" {
		cfg.Qwen.APIKey = firstEnv("DASHSCOPE_API_KEY", "QWEN_API_KEY")
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 2*time.Minute)
	v.SetDefault("server.max_header_bytes", 1<<20)

	v.SetDefault("model.provider", ProviderGemini)

	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/")
	v.SetDefault("gemini.api_version", "v1beta")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.timeout", 60*time.Second)

	v.SetDefault("doubao.base_url", "https://ark.cn-beijing.volces.com/api/v3")
	v.SetDefault("doubao.timeout", 60*time.Second)
	v.SetDefault("doubao.retry_times", 0)

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.timeout", 60*time.Second)

	v.SetDefault("qwen.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("qwen.model", "qwen-plus")
	v.SetDefault("qwen.max_tokens", 2048)
	v.SetDefault("qwen.temperature", 0.7)
	v.SetDefault("qwen.top_p", 0.9)
	v.SetDefault("qwen.timeout", 60*time.Second)

	v.SetDefault("chat.copy_ack_duration", 1500*time.Millisecond)
	v.SetDefault("chat.no_response_text", "No response.")
	v.SetDefault("chat.provider_error_text", "Sorry, the assistant could not answer right now. Please try again.")
	v.SetDefault("chat.network_error_text", "Network error: unable to reach the assistant. Please check your connection and try again.")
	v.SetDefault("chat.heartbeat_interval", 15*time.Second)

	v.SetDefault("session.ttl", 2*time.Hour)
	v.SetDefault("session.cleanup_interval", 10*time.Minute)

	v.SetDefault("clipboard.backend", "client")

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "Authorization"})
	v.SetDefault("cors.max_age", 600)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// DefaultAssistants 内置的两个助手配置
func DefaultAssistants() map[string]AssistantConfig {
	return map[string]AssistantConfig{
		"rights": {
			Title: "Know Your Rights",
			SystemInstruction: "You are a friendly community assistant that explains people's basic civil and human rights " +
				"in plain, neutral language. Keep answers short and practical. You are not a lawyer: when a question " +
				"depends on local law or a specific case, say so and suggest contacting a qualified professional or a local legal aid group.",
			Greeting: "Hi! I can help you understand your basic rights. What would you like to know?",
			Prompts: []string{
				"What are my basic rights?",
				"What should I do if I am stopped by the police?",
				"How do I report discrimination?",
			},
			Theme: "indigo",
		},
		"community": {
			Title: "Community Guide",
			SystemInstruction: "You are a helpful guide for an online community platform. Help members find or start " +
				"communities, plan events, and write clear, welcoming announcements. Be concise and encouraging.",
			Greeting: "Hello! I'm your community guide. Ask me about joining, creating or growing a community.",
			Prompts: []string{
				"How do I start a new community?",
				"Write a short announcement for our next meetup",
				"How can I get more members involved?",
			},
			Theme: "emerald",
		},
	}
}
