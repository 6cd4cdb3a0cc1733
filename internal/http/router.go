package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/splax/tasktrack/internal/domain"
	"github.com/splax/tasktrack/internal/repository"
	"github.com/splax/tasktrack/internal/service/auth"
	"github.com/splax/tasktrack/internal/service/task"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	auth     auth.Service
	tasks    task.Service
	dbHealth func(context.Context) error
}

const healthCheckTimeout = 2 * time.Second

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc auth.Service, taskSvc task.Service, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		logger:   logger,
		auth:     authSvc,
		tasks:    taskSvc,
		dbHealth: dbHealth,
	}
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit(r.handleHealthz))
	r.mux.HandleFunc("/api/auth/register", r.audit(r.handleRegister))
	r.mux.HandleFunc("/api/auth/login", r.audit(r.handleLogin))
	r.mux.HandleFunc("/api/auth/me", r.audit(r.requireAuth(r.handleMe)))
	r.mux.HandleFunc("/api/tasks", r.audit(r.requireAuth(r.handleTasks)))
	r.mux.HandleFunc("/api/tasks/", r.audit(r.requireAuth(r.handleTaskByID)))
	r.mux.HandleFunc("/", r.audit(r.handleUnmatched))
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	user, tokens, err := r.auth.Register(req.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		var ve *auth.ValidationError
		switch {
		case errors.As(err, &ve):
			writeError(w, http.StatusBadRequest, ve.Reason)
		case errors.Is(err, auth.ErrEmailTaken):
			writeError(w, http.StatusConflict, err.Error())
		default:
			r.internalError(w, req, err)
		}
		return
	}
	writeSuccess(w, http.StatusCreated, "Registration successful", map[string]any{
		"user":         userPayload(user),
		"accessToken":  tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
	})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	user, tokens, err := r.auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		var ve *auth.ValidationError
		switch {
		case errors.As(err, &ve):
			writeError(w, http.StatusBadRequest, ve.Reason)
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, err.Error())
		default:
			r.internalError(w, req, err)
		}
		return
	}
	writeSuccess(w, http.StatusOK, "Login successful", map[string]any{
		"user":         userPayload(user),
		"accessToken":  tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
	})
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.requireIdentity(w, req)
	if !ok {
		return
	}
	user, err := r.auth.GetUser(req.Context(), info.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		r.internalError(w, req, err)
		return
	}
	writeSuccess(w, http.StatusOK, "User fetched successfully", map[string]any{
		"user": userPayload(user),
	})
}

func (r *Router) handleTasks(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.handleListTasks(w, req)
	case http.MethodPost:
		r.handleCreateTask(w, req)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleListTasks(w http.ResponseWriter, req *http.Request) {
	info, ok := r.requireIdentity(w, req)
	if !ok {
		return
	}
	tasks, err := r.tasks.List(req.Context(), info.UserID)
	if err != nil {
		r.internalError(w, req, err)
		return
	}
	payload := make([]map[string]any, 0, len(tasks))
	for i := range tasks {
		payload = append(payload, taskPayload(&tasks[i]))
	}
	writeSuccess(w, http.StatusOK, "Tasks retrieved successfully", payload)
}

func (r *Router) handleCreateTask(w http.ResponseWriter, req *http.Request) {
	info, ok := r.requireIdentity(w, req)
	if !ok {
		return
	}
	var payload struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	created, err := r.tasks.Create(req.Context(), info.UserID, task.CreateInput{
		Title:       payload.Title,
		Description: payload.Description,
	})
	if err != nil {
		r.writeTaskError(w, req, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Task created successfully", taskPayload(created))
}

func (r *Router) handleTaskByID(w http.ResponseWriter, req *http.Request) {
	taskID := strings.TrimPrefix(req.URL.Path, "/api/tasks/")
	if taskID == "" || strings.Contains(taskID, "/") {
		r.notFound(w)
		return
	}
	info, ok := r.requireIdentity(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodPut:
		r.handleUpdateTask(w, req, info, taskID)
	case http.MethodDelete:
		r.handleDeleteTask(w, req, info, taskID)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleUpdateTask(w http.ResponseWriter, req *http.Request, info authInfo, taskID string) {
	var payload struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Completed   *bool   `json:"completed"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	updated, err := r.tasks.Update(req.Context(), info.UserID, taskID, task.UpdateInput{
		Title:       payload.Title,
		Description: payload.Description,
		Completed:   payload.Completed,
	})
	if err != nil {
		r.writeTaskError(w, req, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Task updated successfully", taskPayload(updated))
}

func (r *Router) handleDeleteTask(w http.ResponseWriter, req *http.Request, info authInfo, taskID string) {
	if err := r.tasks.Delete(req.Context(), info.UserID, taskID); err != nil {
		r.writeTaskError(w, req, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Task deleted successfully", nil)
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) handleUnmatched(w http.ResponseWriter, req *http.Request) {
	writeError(w, http.StatusNotFound, "Route not found")
}

// requireIdentity fetches the identity the auth gate attached. The gate runs
// on every protected route, so a miss here means broken middleware wiring.
func (r *Router) requireIdentity(w http.ResponseWriter, req *http.Request) (authInfo, bool) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing", "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return authInfo{}, false
	}
	return info, true
}

// writeTaskError translates anticipated task service errors to envelope
// responses; anything unanticipated surfaces as an opaque 500.
func (r *Router) writeTaskError(w http.ResponseWriter, req *http.Request, err error) {
	var ve *task.ValidationError
	switch {
	case errors.Is(err, task.ErrInvalidID), errors.Is(err, task.ErrTitleRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Reason)
	case errors.Is(err, task.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, task.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		r.internalError(w, req, err)
	}
}

func (r *Router) internalError(w http.ResponseWriter, req *http.Request, err error) {
	r.logger.Error("request failed", "method", req.Method, "path", req.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "Route not found")
}

// userPayload builds the wire shape for a user. The password hash never
// leaves the process.
func userPayload(u *domain.User) map[string]any {
	return map[string]any{
		"id":        u.ID,
		"name":      u.Name,
		"email":     u.Email,
		"createdAt": u.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updatedAt": u.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func taskPayload(t *domain.Task) map[string]any {
	return map[string]any{
		"id":          t.ID,
		"userId":      t.UserID,
		"title":       t.Title,
		"description": t.Description,
		"completed":   t.Completed,
		"createdAt":   t.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updatedAt":   t.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", info.UserID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
