package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tale-forge/taleforge/internal/config"
	"github.com/tale-forge/taleforge/internal/credentials"
	"github.com/tale-forge/taleforge/internal/handlers"
	"github.com/tale-forge/taleforge/internal/orchestrator"
	"github.com/tale-forge/taleforge/internal/playback"
	"github.com/tale-forge/taleforge/internal/provider/image"
	"github.com/tale-forge/taleforge/internal/provider/text"
	"github.com/tale-forge/taleforge/internal/provider/voice"
	"github.com/tale-forge/taleforge/internal/storage"
	"github.com/tale-forge/taleforge/internal/story"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Starting TaleForge")

	creds, err := credentials.NewFileStore(cfg.CredentialPath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open credential store")
	}

	var assets storage.AssetStore
	if cfg.S3Bucket != "" {
		assets, err = storage.NewS3Store(
			cfg.S3Endpoint, cfg.S3Region, cfg.S3Bucket,
			cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3PublicURL,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 storage")
		}
	} else {
		assets, err = storage.NewDirStore(cfg.MediaDir(), "/media")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize media directory")
		}
	}

	client := &http.Client{Timeout: cfg.RequestTimeout}

	ollamaEndpoint := cfg.OllamaEndpoint
	if v, ok := creds.Get(credentials.KeyOllamaEndpoint); ok && v != "" {
		ollamaEndpoint = v
	}

	texts := []text.Generator{
		text.NewOllama(ollamaEndpoint, client),
		text.NewOpenAI(creds, client),
		text.NewGemini(creds, client),
		text.NewMistral(creds, client),
		text.NewDeepseek(creds, client),
	}
	images := []image.Generator{
		image.NewReplicate(creds, client),
		image.NewDallE(creds, client),
		image.NewStability(creds, client, assets),
		image.NewLocalDiffusion(ollamaEndpoint, client, assets),
	}

	orch := orchestrator.New(creds, texts, images, orchestrator.DefaultFallback())

	repo, err := story.NewFileRepository(cfg.StoryPath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open story repository")
	}
	stories := story.NewService(repo, orch)

	narrator := voice.NewNarrator(
		creds,
		voice.NewElevenLabs(creds, client, assets),
		voice.NewLocalTTS(assets),
	)
	engine := playback.NewEngine(narrator, playback.NewBeepPlayer(cfg.MediaDir()), cfg.DefaultVoice, cfg.DefaultVolume)
	defer engine.Close()

	h := handlers.NewHandler(stories, creds, engine)

	r := mux.NewRouter()
	r.PathPrefix("/media/").Handler(
		http.StripPrefix("/media/", http.FileServer(http.Dir(cfg.MediaDir()))),
	)

	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/stories", h.ListStories).Methods("GET")
	api.HandleFunc("/stories/generate", h.GenerateStory).Methods("POST")
	api.HandleFunc("/stories/{id}", h.GetStory).Methods("GET")
	api.HandleFunc("/stories/{id}", h.SaveStory).Methods("PUT")
	api.HandleFunc("/stories/{id}", h.DeleteStory).Methods("DELETE")
	api.HandleFunc("/stories/{id}/images/{index}/regenerate", h.RegenerateImage).Methods("POST")
	api.HandleFunc("/stories/{id}/voice", h.SetStoryVoice).Methods("PUT")
	api.HandleFunc("/credentials", h.ListCredentials).Methods("GET")
	api.HandleFunc("/credentials/{key}", h.SetCredential).Methods("PUT")
	api.HandleFunc("/credentials/{key}", h.DeleteCredential).Methods("DELETE")
	api.HandleFunc("/voices", h.ListVoices).Methods("GET")
	api.HandleFunc("/playback/ws", h.PlaybackWS).Methods("GET")

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // generation responses can outlast any sane write timeout
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("TaleForge listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down TaleForge...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("TaleForge exited")
}
