// Package di provides dependency injection configuration for the Marginalia server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/marginalia-app/marginalia-server/internal/config"
	"github.com/marginalia-app/marginalia-server/internal/di/providers"
	"github.com/marginalia-app/marginalia-server/internal/logger"
	"github.com/marginalia-app/marginalia-server/internal/media/images"
	"github.com/marginalia-app/marginalia-server/internal/metadata/openlibrary"
	"github.com/marginalia-app/marginalia-server/internal/reconcile"
	"github.com/marginalia-app/marginalia-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Storage layer
	do.Provide(injector, providers.ProvideCoverStorage)

	// Metadata layer
	do.Provide(injector, providers.ProvideRateLimiter)
	do.Provide(injector, providers.ProvideOpenLibraryClient)
	do.Provide(injector, providers.ProvideCoverService)

	// Reconciliation
	do.Provide(injector, providers.ProvideReconcileEngine)

	// Business services
	do.Provide(injector, providers.ProvideUploadService)
	do.Provide(injector, providers.ProvideBookService)
	do.Provide(injector, providers.ProvideHighlightService)
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideFlashcardService)

	// Workers
	do.Provide(injector, providers.ProvideImporter)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)
	do.Provide(injector, providers.ProvideMDNSService)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*images.Storage](injector)
	_ = do.MustInvoke[*providers.RateLimiterHandle](injector)
	_ = do.MustInvoke[*openlibrary.Client](injector)
	_ = do.MustInvoke[*service.CoverService](injector)
	_ = do.MustInvoke[*reconcile.Engine](injector)

	// Business services
	_ = do.MustInvoke[*service.UploadService](injector)
	_ = do.MustInvoke[*service.BookService](injector)
	_ = do.MustInvoke[*service.HighlightService](injector)
	_ = do.MustInvoke[*service.TagService](injector)
	_ = do.MustInvoke[*service.FlashcardService](injector)

	// Workers
	_ = do.MustInvoke[*providers.ImporterHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)
	_ = do.MustInvoke[*providers.MDNSServiceHandle](injector)

	return nil
}
