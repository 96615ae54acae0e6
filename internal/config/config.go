package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Server
	HTTPAddr string
	LogLevel string

	// Data directory: credential file, story collection and generated media
	// all live underneath it.
	DataDir string

	// Providers
	OllamaEndpoint string        // default endpoint; the credential store entry overrides it
	RequestTimeout time.Duration // per-call HTTP timeout for provider adapters

	// Playback
	DefaultVoice  string
	DefaultVolume float64

	// S3/Storage — optional; when S3Bucket is empty generated media is kept
	// in DataDir/media and served from there.
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
}

// Load reads configuration from TALEFORGE_* environment variables with
// sensible defaults for a single-user local deployment.
func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix("taleforge")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("data.dir", ".taleforge")
	v.SetDefault("ollama.endpoint", "http://localhost:11434")
	v.SetDefault("request.timeout", 120*time.Second)
	v.SetDefault("playback.voice", "onyx")
	v.SetDefault("playback.volume", 0.7)
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.public_url", "")

	return &Config{
		HTTPAddr:       v.GetString("http.addr"),
		LogLevel:       v.GetString("log.level"),
		DataDir:        v.GetString("data.dir"),
		OllamaEndpoint: v.GetString("ollama.endpoint"),
		RequestTimeout: v.GetDuration("request.timeout"),
		DefaultVoice:   v.GetString("playback.voice"),
		DefaultVolume:  v.GetFloat64("playback.volume"),
		S3Endpoint:     v.GetString("s3.endpoint"),
		S3Region:       v.GetString("s3.region"),
		S3Bucket:       v.GetString("s3.bucket"),
		S3AccessKey:    v.GetString("s3.access_key"),
		S3SecretKey:    v.GetString("s3.secret_key"),
		S3PublicURL:    v.GetString("s3.public_url"),
	}
}

// CredentialPath returns the location of the persisted credential file.
func (c *Config) CredentialPath() string {
	return filepath.Join(c.DataDir, "credentials.json")
}

// StoryPath returns the location of the persisted story collection.
func (c *Config) StoryPath() string {
	return filepath.Join(c.DataDir, "stories.json")
}

// MediaDir returns the directory for locally stored generated media.
func (c *Config) MediaDir() string {
	return filepath.Join(c.DataDir, "media")
}
