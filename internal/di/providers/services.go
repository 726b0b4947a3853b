package providers

import (
	"github.com/samber/do/v2"

	"github.com/marginalia-app/marginalia-server/internal/logger"
	"github.com/marginalia-app/marginalia-server/internal/reconcile"
	"github.com/marginalia-app/marginalia-server/internal/service"
)

// ProvideReconcileEngine provides the upload reconciliation engine.
func ProvideReconcileEngine(i do.Injector) (*reconcile.Engine, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return reconcile.NewEngine(storeHandle.Store, log.Logger), nil
}

// ProvideUploadService provides the highlight upload service.
func ProvideUploadService(i do.Injector) (*service.UploadService, error) {
	engine := do.MustInvoke[*reconcile.Engine](i)
	coverService := do.MustInvoke[*service.CoverService](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUploadService(engine, coverService, sseHandle.Manager, log.Logger), nil
}

// ProvideBookService provides the book service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookService(storeHandle.Store, log.Logger), nil
}

// ProvideHighlightService provides the highlight service.
func ProvideHighlightService(i do.Injector) (*service.HighlightService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewHighlightService(storeHandle.Store, sseHandle.Manager, log.Logger), nil
}

// ProvideTagService provides the tag service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTagService(storeHandle.Store, sseHandle.Manager, log.Logger), nil
}

// ProvideFlashcardService provides the flashcard service.
func ProvideFlashcardService(i do.Injector) (*service.FlashcardService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewFlashcardService(storeHandle.Store, log.Logger), nil
}
