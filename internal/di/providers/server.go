package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/marginalia-app/marginalia-server/internal/api"
	"github.com/marginalia-app/marginalia-server/internal/config"
	"github.com/marginalia-app/marginalia-server/internal/importer"
	"github.com/marginalia-app/marginalia-server/internal/logger"
	"github.com/marginalia-app/marginalia-server/internal/mdns"
	"github.com/marginalia-app/marginalia-server/internal/service"
	"github.com/marginalia-app/marginalia-server/internal/sse"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	uploadService := do.MustInvoke[*service.UploadService](i)
	bookService := do.MustInvoke[*service.BookService](i)
	highlightService := do.MustInvoke[*service.HighlightService](i)
	tagService := do.MustInvoke[*service.TagService](i)
	flashcardService := do.MustInvoke[*service.FlashcardService](i)
	coverService := do.MustInvoke[*service.CoverService](i)

	services := &api.Services{
		Upload:    uploadService,
		Book:      bookService,
		Highlight: highlightService,
		Tag:       tagService,
		Flashcard: flashcardService,
		Cover:     coverService,
	}

	sseHandler := sse.NewHandler(sseHandle.Manager, log.Logger)

	handler := api.NewServer(cfg, storeHandle.Store, services, sseHandler, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}

// MDNSServiceHandle wraps mdns.Service with Shutdownable.
type MDNSServiceHandle struct {
	*mdns.Service
	started bool
}

// Shutdown implements do.Shutdownable.
func (h *MDNSServiceHandle) Shutdown() error {
	if h.started && h.Service != nil {
		h.Stop()
	}
	return nil
}

// ProvideMDNSService provides the mDNS advertisement service.
func ProvideMDNSService(i do.Injector) (*MDNSServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Server.AdvertiseMDNS {
		log.Info("mDNS advertisement disabled by configuration")
		return &MDNSServiceHandle{Service: nil, started: false}, nil
	}

	svc := mdns.NewService(log.Logger)

	// Parse port
	port := 8080
	if _, err := fmt.Sscanf(cfg.Server.Port, "%d", &port); err != nil {
		log.Warn("Failed to parse server port for mDNS, using default", "port", cfg.Server.Port)
	}

	if err := svc.Start(cfg.Server.Name, port); err != nil {
		log.Warn("mDNS advertisement unavailable", "error", err)
		// Non-fatal: server works without mDNS (e.g., Docker, cloud)
		return &MDNSServiceHandle{Service: svc, started: false}, nil
	}

	return &MDNSServiceHandle{Service: svc, started: true}, nil
}

// ImporterHandle wraps the drop-directory importer with shutdown capability.
type ImporterHandle struct {
	*importer.Importer
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *ImporterHandle) Shutdown() error {
	if h.Importer == nil {
		return nil
	}
	h.cancel()
	return h.Importer.Stop()
}

// ProvideImporter provides the drop-directory importer. An empty watch
// path disables it.
func ProvideImporter(i do.Injector) (*ImporterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Import.WatchPath == "" {
		log.Info("Import watch directory not configured, importer disabled")
		return &ImporterHandle{Importer: nil, cancel: func() {}}, nil
	}

	uploadService := do.MustInvoke[*service.UploadService](i)

	imp, err := importer.New(cfg.Import.WatchPath, uploadService, log.Logger)
	if err != nil {
		return nil, err
	}

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := imp.Start(ctx); err != nil {
			log.Error("Importer error", "error", err)
		}
	}()

	log.Info("Importer started", "path", cfg.Import.WatchPath)

	return &ImporterHandle{Importer: imp, cancel: cancel}, nil
}
