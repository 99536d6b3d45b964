package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	mdwerror "github.com/msto63/dolmetscher/pkg/core/error"
)

// EnvConfigPath names the environment variable pointing at the config file
const EnvConfigPath = "DOLMETSCHER_CONFIG"

// Config holds the complete application configuration
type Config struct {
	General     GeneralConfig     `toml:"general" yaml:"general"`
	Audio       AudioConfig       `toml:"audio" yaml:"audio"`
	Recognition RecognitionConfig `toml:"recognition" yaml:"recognition"`
	Translation TranslationConfig `toml:"translation" yaml:"translation"`
	Speech      SpeechConfig      `toml:"speech" yaml:"speech"`
	Pipeline    PipelineConfig    `toml:"pipeline" yaml:"pipeline"`
	Server      ServerConfig      `toml:"server" yaml:"server"`
	MQTT        MQTTConfig        `toml:"mqtt" yaml:"mqtt"`
	Prefs       PrefsConfig       `toml:"prefs" yaml:"prefs"`
}

// GeneralConfig holds general application settings
type GeneralConfig struct {
	Name      string `toml:"name" yaml:"name"`
	DataDir   string `toml:"data_dir" yaml:"data_dir"`
	LogLevel  string `toml:"log_level" yaml:"log_level"`
	LogFormat string `toml:"log_format" yaml:"log_format"`
}

// AudioConfig holds capture settings
type AudioConfig struct {
	SampleRate   int    `toml:"sample_rate" yaml:"sample_rate"`
	FrameSize    int    `toml:"frame_size" yaml:"frame_size"`
	QueueFrames  int    `toml:"queue_frames" yaml:"queue_frames"`
	InputDevice  string `toml:"input_device" yaml:"input_device"`
	OutputDevice string `toml:"output_device" yaml:"output_device"`
}

// RecognitionConfig holds speech recognition settings
type RecognitionConfig struct {
	Engine          string   `toml:"engine" yaml:"engine"` // whisper-cli or whisper-http
	ModelPath       string   `toml:"model_path" yaml:"model_path"`
	WhisperBinary   string   `toml:"whisper_binary" yaml:"whisper_binary"`
	ServerURL       string   `toml:"server_url" yaml:"server_url"`
	Language        string   `toml:"language" yaml:"language"`
	Threads         int      `toml:"threads" yaml:"threads"`
	VADMode         int      `toml:"vad_mode" yaml:"vad_mode"`
	VADRatio        float64  `toml:"vad_ratio" yaml:"vad_ratio"`
	Silence         Duration `toml:"silence" yaml:"silence"`
	MinSpeech       Duration `toml:"min_speech" yaml:"min_speech"`
	MaxUtterance    Duration `toml:"max_utterance" yaml:"max_utterance"`
	PreRoll         Duration `toml:"pre_roll" yaml:"pre_roll"`
	PartialInterval Duration `toml:"partial_interval" yaml:"partial_interval"`
	Timeout         Duration `toml:"timeout" yaml:"timeout"`
}

// TranslationConfig holds translation settings
type TranslationConfig struct {
	Backend   string       `toml:"backend" yaml:"backend"` // ollama or gemini
	Source    string       `toml:"source" yaml:"source"`
	Target    string       `toml:"target" yaml:"target"`
	Timeout   Duration     `toml:"timeout" yaml:"timeout"`
	CacheTTL  Duration     `toml:"cache_ttl" yaml:"cache_ttl"`
	CacheSize int          `toml:"cache_size" yaml:"cache_size"`
	Ollama    OllamaConfig `toml:"ollama" yaml:"ollama"`
	Gemini    GeminiConfig `toml:"gemini" yaml:"gemini"`
}

// OllamaConfig holds the local Ollama backend settings
type OllamaConfig struct {
	URL   string `toml:"url" yaml:"url"`
	Model string `toml:"model" yaml:"model"`
}

// GeminiConfig holds the Gemini backend settings
type GeminiConfig struct {
	APIKey string `toml:"api_key" yaml:"api_key"`
	Model  string `toml:"model" yaml:"model"`
}

// SpeechConfig holds speech synthesis settings
type SpeechConfig struct {
	Engine      string `toml:"engine" yaml:"engine"` // piper or say
	PiperBinary string `toml:"piper_binary" yaml:"piper_binary"`
	PiperModel  string `toml:"piper_model" yaml:"piper_model"`
	EspeakData  string `toml:"espeak_data" yaml:"espeak_data"`
	Voice       string `toml:"voice" yaml:"voice"`
	Rate        int    `toml:"rate" yaml:"rate"`
	SampleRate  int    `toml:"sample_rate" yaml:"sample_rate"`
	QueueSize   int    `toml:"queue_size" yaml:"queue_size"`
}

// PipelineConfig holds orchestrator settings
type PipelineConfig struct {
	StopGrace Duration `toml:"stop_grace" yaml:"stop_grace"`
}

// ServerConfig holds the optional status server settings
type ServerConfig struct {
	HTTPAddr     string   `toml:"http_addr" yaml:"http_addr"`
	GRPCAddr     string   `toml:"grpc_addr" yaml:"grpc_addr"`
	ReadTimeout  Duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout" yaml:"write_timeout"`
}

// MQTTConfig holds the optional MQTT status sink settings
type MQTTConfig struct {
	Broker   string `toml:"broker" yaml:"broker"`
	Topic    string `toml:"topic" yaml:"topic"`
	ClientID string `toml:"client_id" yaml:"client_id"`
	Username string `toml:"username" yaml:"username"`
	Password string `toml:"password" yaml:"password"`
	QoS      int    `toml:"qos" yaml:"qos"`
}

// PrefsConfig holds the device preference store settings
type PrefsConfig struct {
	Path string `toml:"path" yaml:"path"`
}

// Duration wraps time.Duration for TOML and YAML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a configuration with all defaults applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.expandEnvVars()
	return cfg
}

// Load loads configuration from a TOML or YAML file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, mdwerror.Newf("config file not found: %s", path).WithCode(mdwerror.CodeInvalidConfig)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, mdwerror.Wrap(err, "failed to parse config").WithCode(mdwerror.CodeInvalidConfig)
		}
	default:
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, mdwerror.Wrap(err, "failed to parse config").WithCode(mdwerror.CodeInvalidConfig)
		}
	}

	// Apply defaults
	cfg.applyDefaults()

	// Expand environment variables in paths and secrets
	cfg.expandEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DefaultPaths lists the locations searched when DOLMETSCHER_CONFIG is unset
func DefaultPaths() []string {
	return []string{
		"./configs/dolmetscher.toml",
		"./dolmetscher.toml",
		"./dolmetscher.yaml",
		filepath.Join(os.Getenv("HOME"), ".config/dolmetscher/config.toml"),
	}
}

// LoadFromEnv loads configuration from DOLMETSCHER_CONFIG or a default location.
// Without any config file the built-in defaults are returned.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv(EnvConfigPath)
	if path != "" {
		return Load(path)
	}

	for _, p := range DefaultPaths() {
		if _, err := os.Stat(p); err == nil {
			return Load(p)
		}
	}

	return Default(), nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// General
	if c.General.Name == "" {
		c.General.Name = "dolmetscher"
	}
	if c.General.DataDir == "" {
		c.General.DataDir = "$HOME/.local/share/dolmetscher"
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = "info"
	}
	if c.General.LogFormat == "" {
		c.General.LogFormat = "text"
	}

	// Audio
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.FrameSize == 0 {
		c.Audio.FrameSize = 2048
	}
	if c.Audio.QueueFrames == 0 {
		c.Audio.QueueFrames = 64
	}

	// Recognition
	if c.Recognition.Engine == "" {
		c.Recognition.Engine = "whisper-cli"
	}
	if c.Recognition.ModelPath == "" {
		c.Recognition.ModelPath = "$HOME/.local/share/dolmetscher/models/ggml-small.bin"
	}
	if c.Recognition.ServerURL == "" {
		c.Recognition.ServerURL = "http://localhost:8178"
	}
	if c.Recognition.Language == "" {
		c.Recognition.Language = "ru"
	}
	if c.Recognition.Threads == 0 {
		c.Recognition.Threads = 4
	}
	if c.Recognition.VADMode == 0 {
		c.Recognition.VADMode = 2
	}
	if c.Recognition.VADRatio == 0 {
		c.Recognition.VADRatio = 0.5
	}
	if c.Recognition.Silence.Duration == 0 {
		c.Recognition.Silence.Duration = 800 * time.Millisecond
	}
	if c.Recognition.MinSpeech.Duration == 0 {
		c.Recognition.MinSpeech.Duration = 300 * time.Millisecond
	}
	if c.Recognition.MaxUtterance.Duration == 0 {
		c.Recognition.MaxUtterance.Duration = 15 * time.Second
	}
	if c.Recognition.PreRoll.Duration == 0 {
		c.Recognition.PreRoll.Duration = 256 * time.Millisecond
	}
	if c.Recognition.Timeout.Duration == 0 {
		c.Recognition.Timeout.Duration = 30 * time.Second
	}

	// Translation
	if c.Translation.Backend == "" {
		c.Translation.Backend = "ollama"
	}
	if c.Translation.Source == "" {
		c.Translation.Source = "ru"
	}
	if c.Translation.Target == "" {
		c.Translation.Target = "en"
	}
	if c.Translation.Timeout.Duration == 0 {
		c.Translation.Timeout.Duration = 60 * time.Second
	}
	if c.Translation.CacheTTL.Duration == 0 {
		c.Translation.CacheTTL.Duration = 30 * time.Minute
	}
	if c.Translation.CacheSize == 0 {
		c.Translation.CacheSize = 512
	}
	if c.Translation.Ollama.URL == "" {
		c.Translation.Ollama.URL = "http://localhost:11434"
	}
	if c.Translation.Ollama.Model == "" {
		c.Translation.Ollama.Model = "qwen2.5:3b"
	}
	if c.Translation.Gemini.Model == "" {
		c.Translation.Gemini.Model = "gemini-1.5-flash"
	}
	if c.Translation.Gemini.APIKey == "" {
		c.Translation.Gemini.APIKey = "${GEMINI_API_KEY}"
	}

	// Speech
	if c.Speech.Engine == "" {
		c.Speech.Engine = "piper"
	}
	if c.Speech.Voice == "" {
		c.Speech.Voice = "Samantha"
	}
	if c.Speech.Rate == 0 {
		c.Speech.Rate = 180
	}
	if c.Speech.SampleRate == 0 {
		c.Speech.SampleRate = 22050
	}
	if c.Speech.QueueSize == 0 {
		c.Speech.QueueSize = 8
	}

	// Pipeline
	if c.Pipeline.StopGrace.Duration == 0 {
		c.Pipeline.StopGrace.Duration = 2 * time.Second
	}

	// Server
	if c.Server.ReadTimeout.Duration == 0 {
		c.Server.ReadTimeout.Duration = 10 * time.Second
	}
	if c.Server.WriteTimeout.Duration == 0 {
		c.Server.WriteTimeout.Duration = 10 * time.Second
	}

	// MQTT
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = "dolmetscher/status"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "dolmetscher"
	}

	// Prefs
	if c.Prefs.Path == "" {
		c.Prefs.Path = filepath.Join(c.General.DataDir, "prefs.db")
	}
}

// expandEnvVars expands environment variables in configuration values
func (c *Config) expandEnvVars() {
	c.General.DataDir = os.ExpandEnv(c.General.DataDir)
	c.Recognition.ModelPath = os.ExpandEnv(c.Recognition.ModelPath)
	c.Recognition.WhisperBinary = os.ExpandEnv(c.Recognition.WhisperBinary)
	c.Translation.Gemini.APIKey = os.ExpandEnv(c.Translation.Gemini.APIKey)
	c.Speech.PiperBinary = os.ExpandEnv(c.Speech.PiperBinary)
	c.Speech.PiperModel = os.ExpandEnv(c.Speech.PiperModel)
	c.Speech.EspeakData = os.ExpandEnv(c.Speech.EspeakData)
	c.MQTT.Password = os.ExpandEnv(c.MQTT.Password)
	c.Prefs.Path = os.ExpandEnv(c.Prefs.Path)
}

// Validate checks value ranges and enumerations
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return mdwerror.Newf(format, args...).WithCode(mdwerror.CodeInvalidConfig).WithOperation("config.Validate")
	}

	if c.Audio.SampleRate <= 0 {
		return invalid("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.FrameSize <= 0 {
		return invalid("audio.frame_size must be positive, got %d", c.Audio.FrameSize)
	}
	if c.Audio.QueueFrames <= 0 {
		return invalid("audio.queue_frames must be positive, got %d", c.Audio.QueueFrames)
	}

	switch c.Recognition.Engine {
	case "whisper-cli", "whisper-http":
	default:
		return invalid("recognition.engine must be whisper-cli or whisper-http, got %q", c.Recognition.Engine)
	}
	if c.Recognition.VADMode < 0 || c.Recognition.VADMode > 3 {
		return invalid("recognition.vad_mode must be 0-3, got %d", c.Recognition.VADMode)
	}
	if c.Recognition.VADRatio <= 0 || c.Recognition.VADRatio > 1 {
		return invalid("recognition.vad_ratio must be in (0,1], got %v", c.Recognition.VADRatio)
	}

	switch c.Translation.Backend {
	case "ollama", "gemini":
	default:
		return invalid("translation.backend must be ollama or gemini, got %q", c.Translation.Backend)
	}
	if c.Translation.Source == c.Translation.Target {
		return invalid("translation.source and translation.target must differ, both are %q", c.Translation.Source)
	}

	switch c.Speech.Engine {
	case "piper", "say":
	default:
		return invalid("speech.engine must be piper or say, got %q", c.Speech.Engine)
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return invalid("mqtt.qos must be 0-2, got %d", c.MQTT.QoS)
	}
	if c.Pipeline.StopGrace.Duration <= 0 {
		return invalid("pipeline.stop_grace must be positive")
	}

	return nil
}
