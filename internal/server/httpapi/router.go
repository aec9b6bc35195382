// Package httpapi serves the public, unauthenticated HTTP surface: health,
// Prometheus metrics, certificate export and verification of documents.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophstamp/internal/common"
	"github.com/dmitrijs2005/gophstamp/internal/logging"
	"github.com/dmitrijs2005/gophstamp/internal/server/metrics"
	"github.com/dmitrijs2005/gophstamp/internal/server/ratelimit"
	"github.com/dmitrijs2005/gophstamp/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type verifier interface {
	VerifyTimestamp(ctx context.Context, content []byte) (*services.VerifyResult, error)
	Certificate() []byte
}

// Options tune the router.
type Options struct {
	// Limit applies per client IP to every route but /healthz and /metrics.
	Limit          ratelimit.Rule
	MaxUploadBytes int64
}

type handler struct {
	stamps         verifier
	log            logging.Logger
	maxUploadBytes int64
}

// NewRouter builds the handler tree. The returned stop function releases
// the rate limiter.
func NewRouter(stamps verifier, log logging.Logger, opts Options) (http.Handler, func()) {
	h := &handler{stamps: stamps, log: log, maxUploadBytes: opts.MaxUploadBytes}
	if h.maxUploadBytes <= 0 {
		h.maxUploadBytes = 32 << 20
	}
	limiter := ratelimit.NewKeyed(opts.Limit)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(metrics.Middleware)

	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(ipRateLimiter(limiter))
		r.Get("/certificate", h.certificate)
		r.Post("/verify", h.verify)
	})

	return r, limiter.Stop
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) certificate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-pem-file")
	w.Header().Set("Content-Disposition", `attachment; filename="gophstamp.crt"`)
	_, _ = w.Write(h.stamps.Certificate())
}

// record is a timestamp as returned by /api/verify.
type record struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	Fingerprint string    `json:"fingerprint"`
	Signature   string    `json:"signature"`
	CreatedAt   time.Time `json:"created_at"`
	Owner       string    `json:"owner"`
}

type verifyResponse struct {
	Verified     bool   `json:"verified"`
	OriginalName string `json:"original_name"`
	Record       record `json:"record"`
}

// verify accepts the document either as a multipart "file" field or as the
// raw request body.
func (h *handler) verify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	content, err := h.readDocument(r)
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			writeError(w, http.StatusRequestEntityTooLarge, "document too large")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	res, err := h.stamps.VerifyTimestamp(r.Context(), content)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeError(w, http.StatusNotFound, "document not found in archive")
			return
		}
		h.log.Error(r.Context(), "verify failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	rec := res.Record
	writeJSON(w, http.StatusOK, verifyResponse{
		Verified:     res.Valid,
		OriginalName: rec.FileName,
		Record: record{
			ID:          rec.ID,
			FileName:    rec.FileName,
			Fingerprint: rec.Fingerprint,
			Signature:   rec.Signature,
			CreatedAt:   rec.CreatedAt.UTC(),
			Owner:       rec.OwnerName,
		},
	})
}

var errNoDocument = errors.New("no document in request")

func (h *handler) readDocument(r *http.Request) ([]byte, error) {
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		f, _, err := r.FormFile("file")
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				return nil, err
			}
			return nil, errNoDocument
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	// an empty body is the empty document
	return io.ReadAll(r.Body)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
