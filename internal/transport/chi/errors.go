package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lorekeeper/internal/domain"
	"github.com/kailas-cloud/lorekeeper/internal/logger"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// errorHandlers is ordered: the first matching sentinel decides the response.
var errorHandlers = []errorHandler{
	validationHandler,
	sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
	sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway, CodeGenerationFailed),
	sentinelHandler(domain.ErrVectorStore, http.StatusServiceUnavailable, CodeVectorStoreUnavailable),
	sentinelHandler(domain.ErrPassageNotFound, http.StatusNotFound, CodeNotFound),
}

// validationHandler echoes validation messages, which never carry internals.
func validationHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrInvalidRequest) {
		return false
	}
	writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The client sees only the sentinel text.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
