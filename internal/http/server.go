// Package http exposes the portfolio REST API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/auth"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/config"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/crypto"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/errs"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/model"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/repository"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/resets"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/storage"
)

type Server struct {
	cfg    config.Config
	store  *repository.Store
	files  *storage.Store
	resets *resets.Store
	policy auth.Policy
	logger *zap.Logger
}

// NewServer wires the API. resetStore may be nil when Redis is not configured;
// the forgot-password endpoint then only returns its uniform response.
func NewServer(cfg config.Config, store *repository.Store, files *storage.Store, resetStore *resets.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:    cfg,
		store:  store,
		files:  files,
		resets: resetStore,
		policy: auth.DefaultPolicy(),
		logger: logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.recoverMiddleware)
	r.Use(s.logMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.authGate)
	r.Use(s.policyMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/auth/register", s.handleRegister)
	r.Post("/api/auth/login", s.handleLogin)
	r.Post("/api/auth/forgot-password", s.handleForgotPassword)

	r.Get("/api/artefatos", s.handleListArtefatos)
	r.Get("/api/artefatos/pendentes", s.handleListPendentes)
	r.Post("/api/artefatos", s.handleCreateArtefato)
	r.Get("/api/artefatos/{id}", s.handleGetArtefato)
	r.Put("/api/artefatos/{id}", s.handleUpdateArtefato)
	r.Delete("/api/artefatos/{id}", s.handleDeleteArtefato)
	r.Put("/api/artefatos/{id}/aprovar", s.handleAprovar)
	r.Put("/api/artefatos/{id}/reprovar", s.handleReprovar)
	r.Get("/api/artefatos/{id}/comentarios", s.handleListComentarios)
	r.Post("/api/artefatos/{id}/comentarios", s.handleCreateComentario)

	r.Get("/api/users", s.handleListUsers)
	r.Get("/api/users/alunos", s.handleListAlunos)
	r.Get("/api/users/me", s.handleGetMe)
	r.Put("/api/users/me", s.handleUpdateMe)
	r.Post("/api/users/me/photo", s.handleUploadPhoto)

	r.Post("/api/files/upload", s.handleUploadFile)
	r.Get("/api/files/{name}", s.handleServeFile)

	return r
}

// --- middleware ---

// authGate runs once per request. A missing or invalid bearer token leaves the
// request anonymous; the policy middleware decides whether that is enough. The
// only hard failure here is a valid token whose subject no longer exists.
func (s *Server) authGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		subject, err := auth.ParseSubject(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.store.GetUserByEmail(r.Context(), subject)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "user_not_found")
				return
			}
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, &user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) policyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := identityFromContext(r.Context())

		switch s.policy.Required(r.Method, r.URL.Path) {
		case auth.LevelPublic:
		case auth.LevelAuthenticated:
			if identity == nil {
				writeError(w, http.StatusUnauthorized, "missing_token")
				return
			}
		case auth.LevelAdmin:
			if identity == nil {
				writeError(w, http.StatusUnauthorized, "missing_token")
				return
			}
			if identity.Role != model.RoleAdmin {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
		default:
			if identity == nil {
				writeError(w, http.StatusUnauthorized, "missing_token")
				return
			}
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && origin == s.cfg.CORSAllowedOrigin {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("http",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("dur", time.Since(start)),
			zap.String("remote", r.RemoteAddr),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic",
					zap.Any("reason", rec),
					zap.ByteString("stack", debug.Stack()),
					zap.String("path", r.URL.Path),
				)
				writeError(w, http.StatusInternalServerError, "server_error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

type identityKey struct{}

func identityFromContext(ctx context.Context) *model.User {
	value := ctx.Value(identityKey{})
	user, _ := value.(*model.User)
	return user
}

// --- auth handlers ---

type registerRequest struct {
	NomeCompleto string  `json:"nomeCompleto"`
	Email        string  `json:"email"`
	Password     string  `json:"password"`
	Curso        *string `json:"curso,omitempty"`
	Turno        *string `json:"turno,omitempty"`
}

type userSummary struct {
	ID           int64   `json:"id"`
	NomeCompleto string  `json:"nomeCompleto"`
	Email        string  `json:"email"`
	FotoURL      *string `json:"fotoUrl"`
	Curso        *string `json:"curso"`
	Turno        *string `json:"turno"`
	Role         string  `json:"role"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.NomeCompleto = strings.TrimSpace(req.NomeCompleto)
	if req.Email == "" || req.Password == "" || req.NomeCompleto == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "password_hash_failed")
		return
	}

	// Every self-registered account is a regular aluno; the role never comes
	// from the request.
	user := model.User{
		NomeCompleto: req.NomeCompleto,
		Email:        req.Email,
		PasswordHash: hash,
		Curso:        req.Curso,
		Turno:        req.Turno,
		Role:         model.RoleAluno,
	}
	if err := s.store.CreateUser(r.Context(), &user); err != nil {
		if errors.Is(err, errs.ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, "email_taken")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusCreated, mapUserSummary(user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if err := crypto.CheckPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	token, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.TokenTTL, user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token, TokenType: "Bearer"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// handleForgotPassword answers identically whether or not the account exists,
// so it cannot be used to probe for registered emails.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Email != "" && s.resets != nil {
		if user, err := s.store.GetUserByEmail(r.Context(), req.Email); err == nil {
			if _, err := s.resets.Create(r.Context(), user.ID); err != nil {
				s.logger.Error("reset token store failed", zap.Error(err))
			} else {
				s.logger.Info("password reset token issued", zap.Int64("user_id", user.ID))
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Se o email existir, um link para redefinição de senha foi enviado.",
	})
}

// --- artefato handlers ---

// artefatoRequest carries the client-writable fields. Status is accepted in
// the payload but never read: creation forces PENDENTE and edits keep the
// stored value.
type artefatoRequest struct {
	Titulo      string      `json:"titulo"`
	Descricao   string      `json:"descricao"`
	URLImagem   *string     `json:"urlImagem,omitempty"`
	Autor       string      `json:"autor"`
	Curso       *string     `json:"curso,omitempty"`
	Campus      *string     `json:"campus,omitempty"`
	Categoria   *string     `json:"categoria,omitempty"`
	Semestre    *int        `json:"semestre,omitempty"`
	DataInicial *model.Date `json:"dataInicial,omitempty"`
	DataFinal   *model.Date `json:"dataFinal,omitempty"`
	Status      string      `json:"status,omitempty"`
}

func (s *Server) handleListArtefatos(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repository.SearchFilter{
		Busca:     strings.TrimSpace(query.Get("busca")),
		Curso:     strings.TrimSpace(query.Get("curso")),
		Campus:    strings.TrimSpace(query.Get("campus")),
		Categoria: strings.TrimSpace(query.Get("categoria")),
	}
	if raw := query.Get("semestre"); raw != "" {
		semestre, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_semestre")
			return
		}
		filter.Semestre = &semestre
	}
	if raw := query.Get("dataInicial"); raw != "" {
		date, err := model.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date")
			return
		}
		filter.DataInicial = &date
	}
	if raw := query.Get("dataFinal"); raw != "" {
		date, err := model.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date")
			return
		}
		filter.DataFinal = &date
	}

	artefatos, err := s.store.SearchArtefatos(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, artefatos)
}

func (s *Server) handleGetArtefato(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	artefato, err := s.store.GetArtefato(r.Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "artefato_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, artefato)
}

func (s *Server) handleCreateArtefato(w http.ResponseWriter, r *http.Request) {
	var req artefatoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Semestre != nil && *req.Semestre > 10 {
		writeError(w, http.StatusBadRequest, "semester_too_large")
		return
	}

	artefato := model.Artefato{
		Titulo:      strings.TrimSpace(req.Titulo),
		Descricao:   req.Descricao,
		URLImagem:   req.URLImagem,
		Autor:       strings.TrimSpace(req.Autor),
		Curso:       req.Curso,
		Campus:      req.Campus,
		Categoria:   req.Categoria,
		Semestre:    req.Semestre,
		DataInicial: req.DataInicial,
		DataFinal:   req.DataFinal,
		Status:      model.StatusPendente,
	}
	if err := s.store.CreateArtefato(r.Context(), &artefato); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, artefato)
}

func (s *Server) handleUpdateArtefato(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req artefatoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Semestre != nil && *req.Semestre > 10 {
		writeError(w, http.StatusBadRequest, "semester_too_large")
		return
	}

	artefato, err := s.store.UpdateArtefato(r.Context(), id, repository.ArtefatoUpdate{
		Titulo:      strings.TrimSpace(req.Titulo),
		Descricao:   req.Descricao,
		URLImagem:   req.URLImagem,
		Autor:       strings.TrimSpace(req.Autor),
		Curso:       req.Curso,
		Campus:      req.Campus,
		Categoria:   req.Categoria,
		Semestre:    req.Semestre,
		DataInicial: req.DataInicial,
		DataFinal:   req.DataFinal,
	})
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "artefato_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, artefato)
}

func (s *Server) handleDeleteArtefato(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteArtefato(r.Context(), id); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "artefato_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListPendentes(w http.ResponseWriter, r *http.Request) {
	artefatos, err := s.store.ListArtefatosByStatus(r.Context(), model.StatusPendente)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, artefatos)
}

func (s *Server) handleAprovar(w http.ResponseWriter, r *http.Request) {
	s.moderate(w, r, model.StatusAprovado)
}

func (s *Server) handleReprovar(w http.ResponseWriter, r *http.Request) {
	s.moderate(w, r, model.StatusReprovado)
}

func (s *Server) moderate(w http.ResponseWriter, r *http.Request, to model.Status) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	artefato, err := s.store.SetArtefatoStatus(r.Context(), id, to)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrNotFound):
			writeError(w, http.StatusNotFound, "artefato_not_found")
		case errors.Is(err, errs.ErrNotPending):
			writeError(w, http.StatusBadRequest, "not_pending")
		default:
			writeError(w, http.StatusInternalServerError, "server_error")
		}
		return
	}
	writeJSON(w, http.StatusOK, artefato)
}

// --- comentario handlers ---

type comentarioRequest struct {
	Nome             string  `json:"nome"`
	FuncaoEmpresa    *string `json:"funcaoEmpresa,omitempty"`
	Texto            string  `json:"texto"`
	AvaliacaoSolucao *int    `json:"avaliacaoSolucao,omitempty"`
	AvaliacaoVideo   *int    `json:"avaliacaoVideo,omitempty"`
	AvaliacaoImpacto *int    `json:"avaliacaoImpacto,omitempty"`
}

func (s *Server) handleListComentarios(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	exists, err := s.store.ArtefatoExists(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "artefato_not_found")
		return
	}

	comentarios, err := s.store.ListComentarios(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, comentarios)
}

func (s *Server) handleCreateComentario(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	exists, err := s.store.ArtefatoExists(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "artefato_not_found")
		return
	}

	var req comentarioRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Nome = strings.TrimSpace(req.Nome)
	req.Texto = strings.TrimSpace(req.Texto)
	if req.Nome == "" || req.Texto == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	for _, rating := range []*int{req.AvaliacaoSolucao, req.AvaliacaoVideo, req.AvaliacaoImpacto} {
		if rating != nil && (*rating < 1 || *rating > 5) {
			writeError(w, http.StatusBadRequest, "invalid_rating")
			return
		}
	}

	comentario := model.Comentario{
		ArtefatoID:       id,
		Nome:             req.Nome,
		FuncaoEmpresa:    req.FuncaoEmpresa,
		Texto:            req.Texto,
		AvaliacaoSolucao: req.AvaliacaoSolucao,
		AvaliacaoVideo:   req.AvaliacaoVideo,
		AvaliacaoImpacto: req.AvaliacaoImpacto,
	}
	if err := s.store.CreateComentario(r.Context(), &comentario); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, comentario)
}

// --- user handlers ---

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, mapUserSummaries(users))
}

func (s *Server) handleListAlunos(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsersByRole(r.Context(), model.RoleAluno)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, mapUserSummaries(users))
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	writeJSON(w, http.StatusOK, mapUserSummary(*identity))
}

type updateMeRequest struct {
	NomeCompleto string  `json:"nomeCompleto"`
	Email        string  `json:"email"`
	Curso        *string `json:"curso,omitempty"`
	Turno        *string `json:"turno,omitempty"`
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	var req updateMeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.NomeCompleto = strings.TrimSpace(req.NomeCompleto)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.NomeCompleto == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	user, err := s.store.UpdateUserProfile(r.Context(), identity.ID, repository.ProfileUpdate{
		NomeCompleto: req.NomeCompleto,
		Email:        req.Email,
		Curso:        req.Curso,
		Turno:        req.Turno,
	})
	if err != nil {
		if errors.Is(err, errs.ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, "email_taken")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, mapUserSummary(user))
}

func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	filename, ok := s.saveUpload(w, r)
	if !ok {
		return
	}
	if err := s.store.SetUserPhoto(r.Context(), identity.ID, filename); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"filename": filename})
}

// --- file handlers ---

const maxUploadBytes = 10 << 20

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	filename, ok := s.saveUpload(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"filename": filename})
}

func (s *Server) saveUpload(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing_file")
		return "", false
	}
	defer file.Close()

	filename, err := s.files.Save(file, header.Filename)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error")
		return "", false
	}
	return filename, true
}

func (s *Server) handleServeFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	f, err := s.files.Open(name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "file_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	w.Header().Set("Content-Disposition", `inline; filename="`+name+`"`)
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// --- helpers ---

func mapUserSummary(user model.User) userSummary {
	return userSummary{
		ID:           user.ID,
		NomeCompleto: user.NomeCompleto,
		Email:        user.Email,
		FotoURL:      user.FotoURL,
		Curso:        user.Curso,
		Turno:        user.Turno,
		Role:         string(user.Role),
	}
}

func mapUserSummaries(users []model.User) []userSummary {
	summaries := make([]userSummary, 0, len(users))
	for _, user := range users {
		summaries = append(summaries, mapUserSummary(user))
	}
	return summaries
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "artefato_not_found")
		return 0, false
	}
	return id, true
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
