package app

import (
	"context"
	"fmt"

	artifactcache "genstudio/internal/cache/artifact"
	"genstudio/internal/cache/lineage"
	"genstudio/internal/gateway/config"
	artifactrepo "genstudio/internal/gateway/repository/artifact"
	"genstudio/internal/gateway/service/generation"
	"genstudio/internal/log"
	"genstudio/internal/mediaclient"
)

// initArtifactStore picks S3 when it is fully configured and the local
// output directory otherwise. S3 reads go through the in-process cache.
func initArtifactStore(cfg *config.Config) (artifactrepo.Store, error) {
	if cfg.Artifact.CanUseS3() {
		s3Cfg := artifactrepo.S3Config{
			Endpoint:  cfg.Artifact.Endpoint,
			Region:    cfg.Artifact.Region,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			Bucket:    cfg.Artifact.Bucket,
			UseSSL:    cfg.Artifact.UseSSL,
			Prefix:    cfg.Artifact.Prefix,
		}
		s3Store, err := artifactrepo.NewS3Store(s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize artifact s3 store: %w", err)
		}
		log.Infof("artifact store: s3 bucket=%s endpoint=%s", s3Cfg.Bucket, s3Cfg.Endpoint)
		return artifactcache.NewCachedStore(s3Store, artifactcache.DefaultCacheConfig()), nil
	}
	if cfg.Artifact.Endpoint != "" {
		log.Warnf("artifact store: s3 config incomplete, using %s", cfg.OutputDir)
	}
	fileStore, err := artifactrepo.NewFileStore(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize artifact file store: %w", err)
	}
	log.Infof("artifact store: files under %s", fileStore.Root())
	return fileStore, nil
}

// newClientFactory builds the per-credential provider client with rate
// limiting, download retries and call logging layered on.
func newClientFactory(cfg *config.Config) generation.ClientFactory {
	models := mediaclient.Models{
		Image:     cfg.Models.Image,
		Analysis:  cfg.Models.Analysis,
		Video:     cfg.Models.Video,
		FastVideo: cfg.Models.FastVideo,
		Extend:    cfg.Models.Extend,
	}
	mws := []mediaclient.Middleware{
		mediaclient.WithLogging(log.Named("mediaclient")),
		mediaclient.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		mediaclient.Retry(cfg.Retry.Attempts, cfg.Retry.Base, cfg.Retry.Max),
	}
	if cfg.Fake {
		log.Warnf("media client: fake mode, no provider calls are made")
		return func(context.Context, string) (mediaclient.Client, error) {
			return mediaclient.Wrap(mediaclient.NewFakeClient(), mws...), nil
		}
	}
	return func(ctx context.Context, apiKey string) (mediaclient.Client, error) {
		c, err := mediaclient.NewGeminiClient(ctx, apiKey, models)
		if err != nil {
			return nil, err
		}
		return mediaclient.Wrap(c, mws...), nil
	}
}

func lineageOptions(cfg *config.Config) lineage.Options {
	return lineage.Options{MaxEntries: cfg.Lineage.MaxEntries, TTL: cfg.Lineage.TTL}
}

func uploadLimits(cfg *config.Config) artifactrepo.Limits {
	return artifactrepo.Limits{MaxFileSize: cfg.MaxFileSize}
}
