package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

type Config struct {
	Port                       string
	AIProvider                 string
	OpenAIAPIKey               string
	OpenAIBaseURL              string
	TranscriptionModel         string
	CompletionModel            string
	GeminiAPIKey               string
	GeminiModel                string
	TranscriptionLanguage      string
	DefaultLang                string
	Store                      string
	DatabasePath               string
	PostgresURL                string
	UploadDir                  string
	PromptsPath                string
	LenientTranscriptionErrors bool
	ServerURL                  string
	FFmpegPath                 string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	provider := strings.ToLower(getEnv("AI_PROVIDER", ProviderOpenAI, false))
	switch provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		log.Fatalf("FATAL: Invalid AI_PROVIDER %q. It must be %q or %q.", provider, ProviderOpenAI, ProviderGemini)
	}

	store := strings.ToLower(getEnv("STORE", StoreSQLite, false))
	switch store {
	case StoreSQLite, StorePostgres:
	default:
		log.Fatalf("FATAL: Invalid STORE %q. It must be %q or %q.", store, StoreSQLite, StorePostgres)
	}

	lang, err := ParseTranscriptionLanguage(getEnv("TRANSCRIPTION_LANGUAGE", "pt", false))
	if err != nil {
		log.Fatalf("FATAL: Invalid TRANSCRIPTION_LANGUAGE. Error: %v", err)
	}

	lenient, err := strconv.ParseBool(getEnv("LENIENT_TRANSCRIPTION_ERRORS", "false", false))
	if err != nil {
		log.Fatalf("FATAL: Invalid LENIENT_TRANSCRIPTION_ERRORS. It must be a boolean. Error: %v", err)
	}

	return &Config{
		Port:                       getEnv("PORT", "3333", false),
		AIProvider:                 provider,
		OpenAIAPIKey:               getEnv("OPENAI_API_KEY", "", false),
		OpenAIBaseURL:              getEnv("OPENAI_BASE_URL", "", false),
		TranscriptionModel:         getEnv("TRANSCRIPTION_MODEL", "whisper-1", false),
		CompletionModel:            getEnv("COMPLETION_MODEL", "gpt-3.5-turbo-16k", false),
		GeminiAPIKey:               getEnv("GEMINI_API_KEY", "", false),
		GeminiModel:                getEnv("GEMINI_MODEL", "gemini-2.5-flash", false),
		TranscriptionLanguage:      lang,
		DefaultLang:                getEnv("DEFAULT_LANG", "en", false),
		Store:                      store,
		DatabasePath:               getEnv("DATABASE_PATH", "./upload_ai.db", false),
		PostgresURL:                getEnv("POSTGRES_URL", "", store == StorePostgres),
		UploadDir:                  getEnv("UPLOAD_DIR", "./tmp", false),
		PromptsPath:                getEnv("PROMPTS_PATH", "", false),
		LenientTranscriptionErrors: lenient,
		ServerURL:                  strings.TrimRight(getEnv("UPLOAD_AI_URL", "http://localhost:3333", false), "/"),
		FFmpegPath:                 getEnv("FFMPEG_PATH", "ffmpeg", false),
	}
}

// RequireAPIKey aborts when the selected provider has no credential. Only the
// server calls it; the client side never talks to the AI service directly.
func (c *Config) RequireAPIKey() {
	switch c.AIProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			log.Fatalf("FATAL: Required environment variable OPENAI_API_KEY is not set.")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			log.Fatalf("FATAL: Required environment variable GEMINI_API_KEY is not set.")
		}
	}
}

// ParseTranscriptionLanguage normalizes a BCP 47 tag to the ISO 639-1 code the
// speech service expects, e.g. "pt-BR" becomes "pt".
func ParseTranscriptionLanguage(value string) (string, error) {
	tag, err := language.Parse(value)
	if err != nil {
		return "", err
	}
	base, _ := tag.Base()
	return base.String(), nil
}

func getEnv(key, fallback string, required bool) string {
	value, exists := os.LookupEnv(key)

	if !exists {
		if required {
			log.Fatalf("FATAL: Required environment variable %s is not set.", key)
		}
		return fallback
	}

	if required && value == "" {
		log.Fatalf("FATAL: Required environment variable %s is set but empty.", key)
	}

	if value == "" {
		return fallback
	}
	return value
}
