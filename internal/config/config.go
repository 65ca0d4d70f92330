package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for linenote. It is built once at
// startup and treated as read-only afterwards.
type Config struct {
	General   GeneralConfig   `json:"general"`
	Server    ServerConfig    `json:"server"`
	Line      LineConfig      `json:"line"`
	Providers ProvidersConfig `json:"providers"`
	Scrape    ScrapeConfig    `json:"scrape"`
	Knowledge KnowledgeConfig `json:"knowledge"`
	Storage   StorageConfig   `json:"storage"`
	Memory    MemoryConfig    `json:"memory"`
	Metrics   MetricsConfig   `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel    string `json:"logLevel" validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat   string `json:"logFormat" validate:"omitempty,oneof=text json"`
	Timezone    string `json:"timezone"`
	TempDir     string `json:"tempDir,omitempty"`
	PromptsFile string `json:"promptsFile,omitempty"` // optional YAML overriding the summary templates
}

type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port" validate:"min=0,max=65535"`
	CallbackPath string `json:"callbackPath" validate:"startswith=/"`
}

// LineConfig holds the Messaging API channel credentials.
type LineConfig struct {
	ChannelSecret string `json:"channelSecret" validate:"required"`
	AccessToken   string `json:"accessToken" validate:"required"`
	// AllowedUserID restricts the bot to one sender. Empty allows everyone.
	AllowedUserID string `json:"allowedUserId,omitempty"`
}

type ProvidersConfig struct {
	TimeoutSeconds int             `json:"timeoutSeconds" validate:"min=1,max=600"`
	Gemini         GeminiConfig    `json:"gemini"`
	OpenAI         OpenAIConfig    `json:"openai"`
	Apify          ApifyConfig     `json:"apify"`
	Firecrawl      FirecrawlConfig `json:"firecrawl"`
}

type GeminiConfig struct {
	APIKey          string `json:"apiKey,omitempty"`
	Model           string `json:"model"`
	VisionModel     string `json:"visionModel"`
	VisionMaxTokens int    `json:"visionMaxTokens" validate:"min=1"`
}

type OpenAIConfig struct {
	APIKey             string `json:"apiKey,omitempty"`
	APIBase            string `json:"apiBase,omitempty"`
	TranscriptionModel string `json:"transcriptionModel"`
	Language           string `json:"language"`
	Prompt             string `json:"prompt,omitempty"`
}

type ApifyConfig struct {
	Token          string `json:"token,omitempty"`
	ThreadsActor   string `json:"threadsActor"`
	InstagramActor string `json:"instagramActor"`
	FacebookActor  string `json:"facebookActor"`
}

type FirecrawlConfig struct {
	APIKey  string `json:"apiKey,omitempty"`
	APIBase string `json:"apiBase,omitempty"`
}

// ScrapeConfig configures the local fallback extractor.
type ScrapeConfig struct {
	Renderer   string `json:"renderer" validate:"oneof=http browser"`
	ProfileDir string `json:"profileDir,omitempty"`
	MaxChars   int    `json:"maxChars" validate:"min=0"`
	UserAgent  string `json:"userAgent,omitempty"`
}

type KnowledgeConfig struct {
	Backend string       `json:"backend" validate:"oneof=notion sqlite none"`
	Notion  NotionConfig `json:"notion"`
}

type NotionConfig struct {
	APIKey     string `json:"apiKey,omitempty"`
	DatabaseID string `json:"databaseId,omitempty"`
	APIBase    string `json:"apiBase,omitempty"`
}

type StorageConfig struct {
	Drive DriveConfig `json:"drive"`
}

type DriveConfig struct {
	CredentialsFile string `json:"credentialsFile,omitempty"`
	FolderID        string `json:"folderId"`
}

// MemoryConfig configures the local SQLite database holding the
// processed-event ledger and the sqlite knowledge backend.
type MemoryConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"dbPath"`
}

type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
}

// CallTimeout is the deadline applied to each outbound collaborator call.
func (p ProvidersConfig) CallTimeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// Location resolves the configured timezone. Validate has already
// checked it, so failures fall back to UTC.
func (g GeneralConfig) Location() *time.Location {
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Addr returns the listen address for the webhook server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DefaultConfigDir returns the default config directory (~/.linenote).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".linenote"
	}
	return filepath.Join(home, ".linenote")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads the config file, applies environment overrides and validates
// the result. A missing file is not an error: the bot can be configured
// from the environment alone.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		data = []byte(ExpandEnvVars(string(data)))
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	applyEnv(cfg)

	cfg.Memory.DBPath = ExpandPath(cfg.Memory.DBPath)
	cfg.Scrape.ProfileDir = ExpandPath(cfg.Scrape.ProfileDir)
	cfg.Storage.Drive.CredentialsFile = ExpandPath(cfg.Storage.Drive.CredentialsFile)
	cfg.General.PromptsFile = ExpandPath(cfg.General.PromptsFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// envOverrides maps environment variables onto config fields. They win over
// the file so deployments can keep secrets out of it.
func envOverrides(cfg *Config) map[string]*string {
	return map[string]*string{
		"LINE_CHANNEL_SECRET":       &cfg.Line.ChannelSecret,
		"LINE_CHANNEL_ACCESS_TOKEN": &cfg.Line.AccessToken,
		"ALLOWED_USER_ID":           &cfg.Line.AllowedUserID,
		"GEMINI_API_KEY":            &cfg.Providers.Gemini.APIKey,
		"OPENAI_API_KEY":            &cfg.Providers.OpenAI.APIKey,
		"APIFY_API_TOKEN":           &cfg.Providers.Apify.Token,
		"APIFY_THREADS_ACTOR":       &cfg.Providers.Apify.ThreadsActor,
		"FIRECRAWL_API_KEY":         &cfg.Providers.Firecrawl.APIKey,
		"NOTION_API_KEY":            &cfg.Knowledge.Notion.APIKey,
		"NOTION_DATABASE_ID":        &cfg.Knowledge.Notion.DatabaseID,
		"GDRIVE_FOLDER_ID":          &cfg.Storage.Drive.FolderID,
		"GDRIVE_CREDENTIALS_FILE":   &cfg.Storage.Drive.CredentialsFile,
	}
}

func applyEnv(cfg *Config) {
	for name, field := range envOverrides(cfg) {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			*field = val
		}
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// ${VAR:-default} uses "default" when VAR is unset or empty. Unknown
// variables without a default are left untouched.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if val, ok := os.LookupEnv(groups[1]); ok && val != "" {
			return val
		}
		if groups[2] != "" {
			return groups[2]
		}
		return match
	})
}

func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags first, then the rules tags cannot express.
// All problems are reported together.
func Validate(cfg *Config) error {
	var errs []string

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, describeFieldError(fe))
		}
	}

	if _, err := time.LoadLocation(cfg.General.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("general.timezone: unknown zone %q", cfg.General.Timezone))
	}
	if cfg.Knowledge.Backend == "sqlite" && !cfg.Memory.Enabled {
		errs = append(errs, "knowledge.backend=sqlite requires memory.enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// describeFieldError renders "line.channelSecret: required" style messages
// using the json names rather than the Go field path.
func describeFieldError(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = lowerFirst(p)
	}
	msg := strings.Join(parts, ".") + ": " + fe.Tag()
	if fe.Param() != "" {
		msg += "=" + fe.Param()
	}
	return msg
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
