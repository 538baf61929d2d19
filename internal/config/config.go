// Package config loads service settings from an optional YAML file, a .env
// file and the process environment, in that order of precedence (env wins).
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	TTS       TTSConfig       `yaml:"tts"`
	STT       STTConfig       `yaml:"stt"`
	Customers CustomersConfig `yaml:"customers"`
}

type ServerConfig struct {
	Port      string `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
	IndexPath string `yaml:"index_path"`
}

type LLMConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type TTSConfig struct {
	APIKey  string        `yaml:"api_key"`
	VoiceID string        `yaml:"voice_id"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type STTConfig struct {
	WhisperURL string        `yaml:"whisper_url"`
	Locale     string        `yaml:"locale"`
	FFmpegPath string        `yaml:"ffmpeg_path"`
	Timeout    time.Duration `yaml:"timeout"`
}

type CustomersConfig struct {
	// Source is empty for the built-in seed, a .xlsx/.yaml path, or a postgres:// DSN.
	Source       string `yaml:"source"`
	StrictLookup bool   `yaml:"strict_lookup"`
}

// Defaults mirrors the values the assistant has always shipped with.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      "8080",
			StaticDir: "static",
			IndexPath: "templates/index.html",
		},
		LLM: LLMConfig{
			Model:   "gpt-3.5-turbo",
			Timeout: 30 * time.Second,
		},
		TTS: TTSConfig{
			VoiceID: "PKygEn0yFu7wfoOxDsFB",
			BaseURL: "https://api.elevenlabs.io",
			Timeout: 30 * time.Second,
		},
		STT: STTConfig{
			WhisperURL: "http://localhost:8081",
			Locale:     "es-ES",
			FFmpegPath: "ffmpeg",
			Timeout:    45 * time.Second,
		},
	}
}

// Load reads .env (if present), the YAML file named by CONFIG_FILE (if set)
// and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %q: %w", path, err)
		}
		defer f.Close()
		if err := decodeYAML(f, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}
	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes YAML on top of the defaults and validates. Env is not consulted.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Defaults()
	if err := decodeYAML(r, cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

// ApplyEnv overrides cfg with any variables lookup reports as set.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("PORT", &cfg.Server.Port)
	str("STATIC_DIR", &cfg.Server.StaticDir)
	str("INDEX_PATH", &cfg.Server.IndexPath)

	str("OPENAI_API_KEY", &cfg.LLM.APIKey)
	str("OPENAI_BASE_URL", &cfg.LLM.BaseURL)
	str("LLM_MODEL", &cfg.LLM.Model)
	dur("LLM_TIMEOUT", &cfg.LLM.Timeout)

	str("ELEVEN_API_KEY", &cfg.TTS.APIKey)
	str("ELEVEN_VOICE_ID", &cfg.TTS.VoiceID)
	str("ELEVEN_BASE_URL", &cfg.TTS.BaseURL)
	dur("TTS_TIMEOUT", &cfg.TTS.Timeout)

	str("WHISPER_URL", &cfg.STT.WhisperURL)
	str("SPEECH_LOCALE", &cfg.STT.Locale)
	str("FFMPEG_PATH", &cfg.STT.FFmpegPath)
	dur("STT_TIMEOUT", &cfg.STT.Timeout)

	str("CUSTOMERS_SOURCE", &cfg.Customers.Source)
	if v, ok := lookup("STRICT_CUSTOMER_LOOKUP"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: STRICT_CUSTOMER_LOOKUP: %w", err))
		} else {
			cfg.Customers.StrictLookup = b
		}
	}
	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func Validate(cfg *Config) error {
	var errs []error
	if _, err := strconv.Atoi(strings.TrimPrefix(cfg.Server.Port, ":")); err != nil {
		errs = append(errs, fmt.Errorf("server.port %q is not a number", cfg.Server.Port))
	}
	if cfg.Server.StaticDir == "" {
		errs = append(errs, errors.New("server.static_dir is required"))
	}
	if cfg.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	if cfg.TTS.VoiceID == "" {
		errs = append(errs, errors.New("tts.voice_id is required"))
	}
	for name, d := range map[string]time.Duration{
		"llm.timeout": cfg.LLM.Timeout,
		"tts.timeout": cfg.TTS.Timeout,
		"stt.timeout": cfg.STT.Timeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	return errors.Join(errs...)
}

// Addr is the listen address derived from the port.
func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Server.Port, ":")
}
