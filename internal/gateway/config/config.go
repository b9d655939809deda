package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	// GeminiAPIKey is the fallback credential for requests that carry none.
	GeminiAPIKey string
	// Fake swaps the provider for the offline fake client.
	Fake bool
	// OutputDir is the FileStore root, used when S3 is not configured.
	OutputDir   string
	MaxFileSize int64

	PollInterval   time.Duration
	VideoTimeout   time.Duration
	RefusalPhrases string

	SessionCacheSize int
	Lineage          LineageConfig
	Retry            RetryConfig
	RateLimit        RateLimitConfig
	Models           ModelConfig
	Artifact         ArtifactConfig
}

type LineageConfig struct {
	MaxEntries int
	TTL        time.Duration
}

type RetryConfig struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// ModelConfig overrides provider model names; blanks keep the defaults.
type ModelConfig struct {
	Image     string
	Analysis  string
	Video     string
	FastVideo string
	Extend    string
}

type ArtifactConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// CanUseS3 reports whether every field needed to reach a bucket is set.
func (c ArtifactConfig) CanUseS3() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != "" && c.Bucket != ""
}

// Load reads .env, the command line and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse(os.Args[1:], os.Getenv)
}

// Parse builds a Config from args and getenv. Environment values win over
// flags, matching how PORT is set by container platforms.
func Parse(args []string, getenv func(string) string) (*Config, error) {
	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	port := fs.String("port", ":8000", "server port")
	outputs := fs.String("outputs", "outputs", "directory for generated files")
	fake := fs.Bool("fake", false, "use the offline fake media client")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	env := func(key string) string { return strings.TrimSpace(getenv(key)) }
	p := &parser{env: env}

	if envPort := env("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	cfg := &Config{
		Port:         *port,
		Env:          firstNonEmpty(env("APP_ENV"), "local"),
		LogLevel:     firstNonEmpty(env("LOG_LEVEL"), "info"),
		GeminiAPIKey: env("GEMINI_API_KEY"),
		Fake:         p.bool("MEDIA_FAKE", *fake),
		OutputDir:    firstNonEmpty(env("UPLOAD_FOLDER"), *outputs),
		MaxFileSize:  p.int64("MAX_FILE_SIZE", 100*1024*1024),

		PollInterval:   p.duration("POLL_INTERVAL", 10*time.Second),
		VideoTimeout:   p.duration("VIDEO_TIMEOUT", 10*time.Minute),
		RefusalPhrases: env("REFUSAL_PHRASES"),

		SessionCacheSize: p.int("SESSION_CACHE_SIZE", 0),
		Lineage: LineageConfig{
			MaxEntries: p.int("LINEAGE_MAX_ENTRIES", 0),
			TTL:        p.duration("LINEAGE_TTL", 0),
		},
		Retry: RetryConfig{
			Attempts: p.int("DOWNLOAD_RETRY_ATTEMPTS", 3),
			Base:     p.duration("DOWNLOAD_RETRY_BASE", 4*time.Second),
			Max:      p.duration("DOWNLOAD_RETRY_MAX", 10*time.Second),
		},
		RateLimit: RateLimitConfig{
			RPS:   p.float("GEMINI_RPS", 0),
			Burst: p.int("GEMINI_BURST", 1),
		},
		Models: ModelConfig{
			Image:     env("GEMINI_IMAGE_MODEL"),
			Analysis:  env("GEMINI_ANALYSIS_MODEL"),
			Video:     env("VEO_MODEL"),
			FastVideo: env("VEO_FAST_MODEL"),
			Extend:    env("VEO_EXTEND_MODEL"),
		},
		Artifact: ArtifactConfig{
			Endpoint:  env("ARTIFACT_S3_ENDPOINT"),
			Region:    firstNonEmpty(env("ARTIFACT_S3_REGION"), "us-east-1"),
			AccessKey: firstNonEmpty(env("ARTIFACT_S3_ACCESS_KEY"), env("MINIO_ROOT_USER")),
			SecretKey: firstNonEmpty(env("ARTIFACT_S3_SECRET_KEY"), env("MINIO_ROOT_PASSWORD")),
			Bucket:    firstNonEmpty(env("ARTIFACT_S3_BUCKET"), "genstudio-artifacts"),
			Prefix:    env("ARTIFACT_S3_PREFIX"),
			UseSSL:    p.bool("ARTIFACT_S3_USE_SSL", true),
		},
	}
	if p.err != nil {
		return nil, p.err
	}
	return cfg, nil
}

// parser keeps the first malformed value so Parse can report it once.
type parser struct {
	env func(string) string
	err error
}

func (p *parser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, raw, err)
	}
}

func (p *parser) int(key string, def int) int {
	raw := p.env(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) int64(key string, def int64) int64 {
	raw := p.env(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) float(key string, def float64) float64 {
	raw := p.env(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) bool(key string, def bool) bool {
	raw := p.env(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

// duration accepts Go durations ("90s") or bare seconds ("90").
func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := p.env(key)
	if raw == "" {
		return def
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
