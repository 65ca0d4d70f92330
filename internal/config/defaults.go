package config

const (
	DefaultThreadsActor   = "apify/threads-scraper"
	DefaultInstagramActor = "apify/instagram-post-scraper"
	DefaultFacebookActor  = "apify/facebook-posts-scraper"

	// DefaultDriveFolderID uploads into the service account's My Drive root
	// when no folder is configured.
	DefaultDriveFolderID = "root"

	defaultTranscriptionPrompt = "This is a personal voice memo for a note-taking app. " +
		"It may mix Mandarin and English technical terms."
)

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:  "info",
			LogFormat: "text",
			Timezone:  "Asia/Taipei",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8000,
			CallbackPath: "/callback",
		},
		Providers: ProvidersConfig{
			TimeoutSeconds: 60,
			Gemini: GeminiConfig{
				Model:           "gemini-2.5-flash",
				VisionModel:     "gemini-2.5-flash",
				VisionMaxTokens: 1024,
			},
			OpenAI: OpenAIConfig{
				TranscriptionModel: "whisper-1",
				Language:           "zh",
				Prompt:             defaultTranscriptionPrompt,
			},
			Apify: ApifyConfig{
				ThreadsActor:   DefaultThreadsActor,
				InstagramActor: DefaultInstagramActor,
				FacebookActor:  DefaultFacebookActor,
			},
			Firecrawl: FirecrawlConfig{
				APIBase: "https://api.firecrawl.dev",
			},
		},
		Scrape: ScrapeConfig{
			Renderer: "http",
			MaxChars: 30000,
		},
		Knowledge: KnowledgeConfig{
			Backend: "notion",
			Notion: NotionConfig{
				APIBase: "https://api.notion.com",
			},
		},
		Storage: StorageConfig{
			Drive: DriveConfig{
				FolderID: DefaultDriveFolderID,
			},
		},
		Memory: MemoryConfig{
			Enabled: true,
			DBPath:  "~/.linenote/linenote.db",
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
		},
	}
}
