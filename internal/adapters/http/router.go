package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ledgerscan/intake/internal/core/domain"
	"github.com/ledgerscan/intake/internal/core/ports"
	"github.com/ledgerscan/intake/internal/observability/metrics"
)

// Router exposes the upload endpoint and the read models the dashboard
// polls. The record fields serialized here are the public contract with the
// presentation layer.
type Router struct {
	uploader ports.DocumentUploader
	reader   ports.DocumentReader
	metrics  *metrics.HTTPServerMetrics
	service  string
}

func NewRouter(
	uploader ports.DocumentUploader,
	reader ports.DocumentReader,
	httpMetrics *metrics.HTTPServerMetrics,
	service string,
) *Router {
	return &Router{
		uploader: uploader,
		reader:   reader,
		metrics:  httpMetrics,
		service:  service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.documents)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = accessLogMiddleware(mux)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) documents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.uploadDocument(w, r)
	case http.MethodGet:
		rt.listDocuments(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	kind := mediaKindFor(r.FormValue("kind"), contentType)

	doc, err := rt.uploader.Upload(r.Context(), fileHeader.Filename, contentType, kind, file)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordUpload(rt.service, string(kind))
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	status := domain.DocumentStatus(r.URL.Query().Get("status"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	docs, err := rt.reader.ListByStatus(r.Context(), status, limit)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// mediaKindFor resolves the declared kind: an explicit form value wins and is
// validated downstream, otherwise audio content types select the audio variant.
func mediaKindFor(declared, contentType string) domain.MediaKind {
	if trimmed := strings.ToLower(strings.TrimSpace(declared)); trimmed != "" {
		return domain.MediaKind(trimmed)
	}
	if strings.HasPrefix(strings.ToLower(contentType), "audio/") {
		return domain.MediaKindAudio
	}
	return domain.MediaKindDocument
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
