package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/fcv-grader.net/internal/domain"
	"gitlab.com/fcv-grader.net/internal/handlers/response"
)

// HealthHandler reports liveness and the configured execution backend
type HealthHandler struct {
	serviceName string
	sandbox     string
	runtimes    map[domain.Language]*domain.RuntimeProfile
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(serviceName, sandbox string, runtimes map[domain.Language]*domain.RuntimeProfile) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		sandbox:     sandbox,
		runtimes:    runtimes,
	}
}

// RegisterRoutes registers the API routes for HealthHandler
func (h *HealthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/health", h.Health).Methods(http.MethodGet)
}

type runtimeInfo struct {
	Language domain.Language `json:"language"`
	Name     string          `json:"name"`
	Binary   string          `json:"binary"`
	Image    string          `json:"image,omitempty"`
}

type healthResponse struct {
	Status   string        `json:"status"`
	Service  string        `json:"service"`
	Sandbox  string        `json:"sandbox"`
	Runtimes []runtimeInfo `json:"runtimes"`
}

// Health handles liveness probes
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Service: h.serviceName,
		Sandbox: h.sandbox,
	}
	for _, lang := range []domain.Language{domain.LanguagePython, domain.LanguageJavaScript} {
		p, ok := h.runtimes[lang]
		if !ok {
			continue
		}
		resp.Runtimes = append(resp.Runtimes, runtimeInfo{
			Language: lang,
			Name:     p.DisplayName,
			Binary:   p.Binary,
			Image:    p.Image,
		})
	}
	response.WriteSuccess(w, resp)
}
