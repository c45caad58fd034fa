// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/socialcamp/campauth/internal/auth"
	"github.com/socialcamp/campauth/pkg/errutil"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// AuthService is the subset of auth.Service the handlers call.
type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.Identity, error)
	Authenticate(ctx context.Context, in auth.SigninInput) (*auth.Identity, error)
	Signout(ctx context.Context, publicID string)
	CheckLogin(ctx context.Context, publicID string) (*auth.Identity, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	PublicIDExists(ctx context.Context, publicID string) (bool, error)
}

// RequestObserver records one completed HTTP request.
type RequestObserver interface {
	ObserveRequest(route string, status int)
}

type noopObserver struct{}

func (noopObserver) ObserveRequest(string, int) {}

// Handler serves the /auth/users endpoints.
type Handler struct {
	svc            AuthService
	logger         *slog.Logger
	metrics        RequestObserver
	secureCookies  bool
	allowedOrigins []string
	limiter        *RateLimiter
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for server-side failures.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics sets the request observer.
func WithMetrics(m RequestObserver) Option {
	return func(h *Handler) {
		if m != nil {
			h.metrics = m
		}
	}
}

// WithSecureCookies marks identity cookies Secure.
func WithSecureCookies(secure bool) Option {
	return func(h *Handler) { h.secureCookies = secure }
}

// WithAllowedOrigins enables credentialed CORS for the given origins.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Handler) { h.allowedOrigins = origins }
}

// WithRateLimiter throttles register and signin per client. The caller
// owns the limiter and closes it.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(h *Handler) { h.limiter = rl }
}

// NewHandler creates a Handler. svc is required.
func NewHandler(svc AuthService, opts ...Option) (*Handler, error) {
	if svc == nil {
		return nil, oops.Errorf("auth service is required")
	}
	h := &Handler{
		svc:     svc,
		logger:  slog.New(slog.DiscardHandler),
		metrics: noopObserver{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

type registerRequest struct {
	Email    string `json:"email"`
	PublicID string `json:"publicId"`
	Password string `json:"password"`
	IsMaster bool   `json:"isMaster"`
}

type signinRequest struct {
	Email    string `json:"email"`
	PublicID string `json:"publicId"`
	Password string `json:"password"`
}

type emailProbeRequest struct {
	Email string `json:"email"`
}

type publicIDProbeRequest struct {
	PublicID string `json:"publicId"`
}

type identityResponse struct {
	PublicID string `json:"publicId"`
	IsMaster bool   `json:"isMaster"`
}

type duplicateEmailResponse struct {
	DuplicateEmail bool `json:"duplicateEmail"`
}

type duplicatePublicIDResponse struct {
	DuplicatePublicID bool `json:"duplicatePublicId"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.svc.Register(r.Context(), auth.RegisterInput{
		Email:    req.Email,
		PublicID: req.PublicID,
		Password: req.Password,
		IsMaster: req.IsMaster,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.setIdentityCookies(w, id)
	h.writeJSON(w, http.StatusOK, identityResponse{PublicID: id.PublicID, IsMaster: id.IsMaster})
}

func (h *Handler) signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.svc.Authenticate(r.Context(), auth.SigninInput{
		Email:    req.Email,
		PublicID: req.PublicID,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.setIdentityCookies(w, id)
	h.writeJSON(w, http.StatusOK, identityResponse{PublicID: id.PublicID, IsMaster: id.IsMaster})
}

func (h *Handler) signout(w http.ResponseWriter, r *http.Request) {
	h.svc.Signout(r.Context(), publicIDFrom(r))
	h.clearIdentityCookies(w)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) checkLogin(w http.ResponseWriter, r *http.Request) {
	id, err := h.svc.CheckLogin(r.Context(), publicIDFrom(r))
	if err != nil {
		if auth.HasCode(err, auth.CodeNotAuthenticated) {
			h.clearIdentityCookies(w)
		}
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, identityResponse{PublicID: id.PublicID, IsMaster: id.IsMaster})
}

func (h *Handler) duplicateEmail(w http.ResponseWriter, r *http.Request) {
	var req emailProbeRequest
	if !h.decode(w, r, &req) {
		return
	}
	taken, err := h.svc.EmailExists(r.Context(), req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, duplicateEmailResponse{DuplicateEmail: taken})
}

func (h *Handler) duplicatePublicID(w http.ResponseWriter, r *http.Request) {
	var req publicIDProbeRequest
	if !h.decode(w, r, &req) {
		return
	}
	taken, err := h.svc.PublicIDExists(r.Context(), req.PublicID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, duplicatePublicIDResponse{DuplicatePublicID: taken})
}

// decode reads a single JSON object into dst, rejecting unknown fields and
// trailing data. It writes the 400 response itself and reports false on
// failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err == nil && !errors.Is(dec.Decode(&struct{}{}), io.EOF) {
		err = errors.New("body must contain a single JSON object")
	}
	if err != nil {
		h.writeError(w, r, oops.Code(auth.CodeInvalidInput).
			With("operation", "decode request").
			Wrap(err))
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := publicCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		errutil.LogErrorContext(r.Context(), h.logger, "request failed", err)
	}
	h.writeJSON(w, status, errorResponse{Code: code, Message: errorMessages[code]})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("failed to write response", "error", err.Error())
	}
}
