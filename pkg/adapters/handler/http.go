package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wadjakorntonsri/shortlink/pkg/config"
	"github.com/wadjakorntonsri/shortlink/pkg/core/clientinfo"
	"github.com/wadjakorntonsri/shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink/pkg/ports"
)

type HTTPHandler struct {
	service     ports.LinkService
	baseURL     string
	frontendURL string
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewHTTPHandler(service ports.LinkService, cfg *config.Config, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{
		service:     service,
		baseURL:     cfg.BaseURL,
		frontendURL: cfg.FrontendURL,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger,
	}
}

// CreateLinkRequest payload
type CreateLinkRequest struct {
	URL           string `json:"url" validate:"required,max=2048"`
	Alias         string `json:"alias,omitempty" validate:"omitempty,max=64"`
	Password      string `json:"password,omitempty" validate:"omitempty,max=72"`
	ExpiresInDays int    `json:"expires_in_days,omitempty" validate:"gte=0,lte=3650"`
}

type BulkCreateRequest struct {
	URLs []string `json:"urls" validate:"required,min=1,max=100"`
}

type VerifyPasswordRequest struct {
	Code     string `json:"code" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

type LinkResponse struct {
	ShortURL  string     `json:"short_url"`
	ShortCode string     `json:"short_code"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type BulkItemResponse struct {
	Original  string `json:"original"`
	ShortURL  string `json:"short_url,omitempty"`
	ShortCode string `json:"short_code,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Redirect resolves a code and always answers with a redirect, never an
// error page.
func (h *HTTPHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	res, err := h.service.Resolve(r.Context(), code, clientinfo.FromHeaders(r.Header))
	if err != nil {
		h.logger.Error("resolve failed", "code", code, "error", err)
		http.Redirect(w, r, h.frontendURL+"/", http.StatusFound)
		return
	}

	switch res.Outcome {
	case domain.OutcomeGranted:
		http.Redirect(w, r, res.URL, http.StatusFound)
	case domain.OutcomeExpired:
		http.Redirect(w, r, h.frontendURL+"/?expired=true", http.StatusFound)
	case domain.OutcomePasswordRequired:
		http.Redirect(w, r, h.frontendURL+"/p/"+url.PathEscape(code), http.StatusFound)
	default:
		http.Redirect(w, r, h.frontendURL+"/", http.StatusFound)
	}
}

func (h *HTTPHandler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	var req VerifyPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.VerifyPassword(r.Context(), req.Code, req.Password, clientinfo.FromHeaders(r.Header))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	// A wrong password and an unknown code get the same answer.
	if res.Outcome != domain.OutcomeGranted {
		writeError(w, http.StatusUnauthorized, "invalid code or password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": res.URL})
}

// Create Link
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if !h.decode(w, r, &req) {
		return
	}

	link, err := h.service.Shorten(r.Context(), domain.ShortenInput{
		URL:           req.URL,
		Alias:         req.Alias,
		Password:      req.Password,
		ExpiresInDays: req.ExpiresInDays,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, LinkResponse{
		ShortURL:  h.shortURL(link),
		ShortCode: link.Code(),
		ExpiresAt: link.ExpiresAt,
	})
}

func (h *HTTPHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	var req BulkCreateRequest
	if !h.decode(w, r, &req) {
		return
	}

	results, err := h.service.BulkShorten(r.Context(), req.URLs)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]BulkItemResponse, 0, len(results))
	for _, res := range results {
		item := BulkItemResponse{Original: res.Original, Error: res.Error}
		if res.Link != nil {
			item.ShortURL = h.shortURL(res.Link)
			item.ShortCode = res.Link.Code()
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": items})
}

// List Links
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	search := r.URL.Query().Get("search")

	links, count, err := h.service.ListLinks(r.Context(), page, limit, search)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if links == nil {
		links = []domain.Link{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":  links,
		"total": count,
		"page":  page,
		"limit": limit,
	})
}

// Stats for a link, looked up by short code or alias.
func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context(), r.PathValue("code"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *HTTPHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeactivateLink(r.Context(), r.PathValue("code")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) shortURL(link *domain.Link) string {
	return h.baseURL + "/" + link.Code()
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeError(w, http.StatusBadRequest, "invalid field: "+verrs[0].Field())
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAliasTaken):
		writeError(w, http.StatusConflict, "alias already taken")
	case domain.IsNotFound(err):
		writeError(w, http.StatusNotFound, "link not found")
	default:
		h.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
