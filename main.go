package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"upload-ai/internal/ai"
	"upload-ai/internal/client"
	"upload-ai/internal/config"
	"upload-ai/internal/i18n"
	"upload-ai/internal/pipeline"
	"upload-ai/internal/prompts"
	"upload-ai/internal/server"
	"upload-ai/internal/session"
	"upload-ai/internal/storage"
	"upload-ai/internal/transcode"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	translator := i18n.NewTranslator(cfg.DefaultLang)

	command := "serve"
	args := os.Args[1:]
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		serve(ctx, cfg, translator)
	case "process":
		if err := process(ctx, cfg, translator, args); err != nil {
			log.Fatalf("FATAL: %v", err)
		}
	default:
		log.Fatalf("FATAL: Unknown command %q. Use \"serve\" or \"process\".", command)
	}
}

func serve(ctx context.Context, cfg *config.Config, translator *i18n.Translator) {
	cfg.RequireAPIKey()

	dsn := cfg.DatabasePath
	if cfg.Store == config.StorePostgres {
		dsn = cfg.PostgresURL
	}
	store, err := storage.Open(ctx, cfg.Store, dsn)
	if err != nil {
		log.Fatalf("FATAL: Could not initialize %s store: %v", cfg.Store, err)
	}
	defer store.Close()

	files, err := storage.NewAudioFiles(cfg.UploadDir)
	if err != nil {
		log.Fatalf("FATAL: Could not initialize upload directory: %v", err)
	}

	var transcriber ai.Transcriber
	var completer ai.Completer
	switch cfg.AIProvider {
	case config.ProviderGemini:
		geminiService, err := ai.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("FATAL: Could not initialize Gemini service: %v", err)
		}
		defer geminiService.Close()
		transcriber, completer = geminiService, geminiService
	default:
		openAIService := ai.NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.TranscriptionModel, cfg.CompletionModel)
		transcriber, completer = openAIService, openAIService
	}

	catalog, err := prompts.Load(cfg.PromptsPath)
	if err != nil {
		log.Fatalf("FATAL: Could not load prompts: %v", err)
	}

	srv := server.New(
		pipeline.NewUploadStage(store, files),
		pipeline.NewTranscriptionStage(store, files, transcriber, cfg.TranscriptionLanguage),
		pipeline.NewCompletionStage(store, completer),
		catalog,
		translator,
		cfg.LenientTranscriptionErrors,
	)

	log.Printf("Server initialized with %s store and %s provider.", cfg.Store, cfg.AIProvider)
	if err := srv.Run(ctx, ":"+cfg.Port); err != nil {
		log.Fatalf("FATAL: Server stopped: %v", err)
	}
}

func process(ctx context.Context, cfg *config.Config, translator *i18n.Translator, args []string) error {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	videoPath := fs.String("video", "", "path of the video to transcribe (required)")
	keywords := fs.String("prompt", "", "keywords mentioned in the video, comma separated")
	templateID := fs.String("template-id", "", "id of a catalog prompt to run after transcription")
	template := fs.String("template", "", "custom prompt template; {transcription} is replaced with the text")
	temperature := fs.Float64("temperature", pipeline.DefaultTemperature, "creativity of the completion, between 0 and 1")
	fs.Parse(args)

	if *videoPath == "" {
		fs.Usage()
		return fmt.Errorf("-video is required")
	}

	api := client.New(cfg.ServerURL, nil)
	runner := client.NewRunner(api, transcode.NewFFmpeg(cfg.FFmpegPath), translator)

	machine := session.NewMachine(uuid.NewString())
	video, err := runner.Submit(ctx, machine, client.Submission{VideoPath: *videoPath, Prompt: *keywords})
	if err != nil {
		return fmt.Errorf("%s stopped at %s: %w", filepath.Base(*videoPath), machine.Status(), err)
	}
	log.Printf("Video %s transcribed.", video.ID)

	if *templateID != "" {
		list, err := api.ListPrompts(ctx)
		if err != nil {
			return fmt.Errorf("failed to list prompts: %w", err)
		}
		found := false
		for _, p := range list {
			if p.ID == *templateID {
				*template, found = p.Template, true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s", prompts.ErrPromptNotFound, *templateID)
		}
	}
	if *template == "" {
		fmt.Println(*video.Transcription)
		return nil
	}

	if err := runner.Generate(ctx, video.ID, *template, *temperature, os.Stdout); err != nil {
		return fmt.Errorf("completion failed: %w", err)
	}
	fmt.Println()
	return nil
}
