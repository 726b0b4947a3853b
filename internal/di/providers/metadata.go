package providers

import (
	"github.com/samber/do/v2"

	"github.com/marginalia-app/marginalia-server/internal/config"
	"github.com/marginalia-app/marginalia-server/internal/logger"
	"github.com/marginalia-app/marginalia-server/internal/media/images"
	"github.com/marginalia-app/marginalia-server/internal/metadata/openlibrary"
	"github.com/marginalia-app/marginalia-server/internal/ratelimit"
	"github.com/marginalia-app/marginalia-server/internal/service"
)

// RateLimiterHandle wraps the outbound rate limiter with shutdown capability.
type RateLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RateLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideRateLimiter provides the per-host rate limiter for outbound metadata requests.
func ProvideRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)

	limiter := ratelimit.New(cfg.Covers.FetchRPS, 1)

	return &RateLimiterHandle{KeyedRateLimiter: limiter}, nil
}

// ProvideOpenLibraryClient provides the Open Library API client.
func ProvideOpenLibraryClient(i do.Injector) (*openlibrary.Client, error) {
	log := do.MustInvoke[*logger.Logger](i)
	limiterHandle := do.MustInvoke[*RateLimiterHandle](i)

	client := openlibrary.New(limiterHandle.KeyedRateLimiter, log.Logger)
	log.Info("Open Library client initialized")

	return client, nil
}

// ProvideCoverService provides the cover fetching service.
func ProvideCoverService(i do.Injector) (*service.CoverService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	client := do.MustInvoke[*openlibrary.Client](i)
	coverStorage := do.MustInvoke[*images.Storage](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	svc := service.NewCoverService(
		client,
		coverStorage,
		storeHandle.Store,
		sseHandle.Manager,
		cfg.Covers.Enabled,
		log.Logger,
	)

	log.Info("Cover service initialized", "enabled", cfg.Covers.Enabled)

	return svc, nil
}
