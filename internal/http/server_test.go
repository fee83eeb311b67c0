package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"go.uber.org/zap"

	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/auth"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/config"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/crypto"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/model"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/repository"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/storage"
)

const (
	testSecret = "test-secret"
	testIssuer = "uniguacu-portifolio"
)

func newTestServer(t *testing.T) (http.Handler, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)

	files, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}

	cfg := config.Config{
		JWTSecret:         testSecret,
		JWTIssuer:         testIssuer,
		TokenTTL:          time.Hour,
		CORSAllowedOrigin: "http://localhost:3000",
	}
	server := NewServer(cfg, repository.NewStore(mock), files, nil, zap.NewNop())
	return server.Router(), mock
}

func bearer(t *testing.T, email string) string {
	t.Helper()
	token, err := auth.NewAccessToken(testSecret, testIssuer, time.Hour, email)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return "Bearer " + token
}

func userRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "nome_completo", "email", "password", "foto_url", "curso", "turno", "role",
	})
}

func expectUserLookup(t *testing.T, mock pgxmock.PgxPoolIface, email string, role model.Role) {
	t.Helper()
	hash, err := crypto.HashPassword("segredo123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	mock.ExpectQuery(regexp.QuoteMeta("FROM usuarios")).
		WithArgs(email).
		WillReturnRows(userRows().AddRow(int64(1), "Maria Souza", email, hash,
			(*string)(nil), (*string)(nil), (*string)(nil), role))
}

func artefatoRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "titulo", "descricao", "url_imagem", "autor", "curso", "campus",
		"categoria", "semestre", "data_inicial", "data_final", "status",
	})
}

func addArtefatoRow(rows *pgxmock.Rows, id int64, status model.Status) *pgxmock.Rows {
	return rows.AddRow(id, "Horta automatizada", "Irrigação com sensores", (*string)(nil),
		"Maria Souza", (*string)(nil), (*string)(nil), (*string)(nil), (*int)(nil),
		(*time.Time)(nil), (*time.Time)(nil), status)
}

func doJSON(t *testing.T, handler http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return payload["error"]
}

func TestRegisterForcesAlunoRole(t *testing.T) {
	handler, mock := newTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO usuarios")).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(9)))

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/register", "",
		`{"nomeCompleto":"Maria Souza","email":"MARIA@uniguacu.edu.br","password":"segredo123"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["role"] != string(model.RoleAluno) {
		t.Errorf("role = %v, want %s", resp["role"], model.RoleAluno)
	}
	if resp["email"] != "maria@uniguacu.edu.br" {
		t.Errorf("email not normalized: %v", resp["email"])
	}
	if _, leaked := resp["password"]; leaked {
		t.Error("password field present in response")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	handler, mock := newTestServer(t)

	expectUserLookup(t, mock, "maria@uniguacu.edu.br", model.RoleAluno)

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/login", "",
		`{"email":"maria@uniguacu.edu.br","password":"errada"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "invalid_credentials" {
		t.Errorf("error = %q", code)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	handler, mock := newTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM usuarios")).
		WithArgs("ghost@uniguacu.edu.br").
		WillReturnRows(userRows())

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/login", "",
		`{"email":"ghost@uniguacu.edu.br","password":"qualquer"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "invalid_credentials" {
		t.Errorf("error = %q", code)
	}
}

func TestLoginIssuesBearerToken(t *testing.T) {
	handler, mock := newTestServer(t)

	expectUserLookup(t, mock, "maria@uniguacu.edu.br", model.RoleAluno)

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/login", "",
		`{"email":"maria@uniguacu.edu.br","password":"segredo123"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TokenType != "Bearer" {
		t.Errorf("tokenType = %q", resp.TokenType)
	}
	subject, err := auth.ParseSubject(testSecret, testIssuer, resp.AccessToken)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if subject != "maria@uniguacu.edu.br" {
		t.Errorf("subject = %q", subject)
	}
}

func TestCreateArtefatoForcesPendente(t *testing.T) {
	handler, mock := newTestServer(t)

	expectUserLookup(t, mock, "maria@uniguacu.edu.br", model.RoleAluno)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO artefato")).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(4)))

	// a client-supplied status must be ignored
	rec := doJSON(t, handler, http.MethodPost, "/api/artefatos",
		bearer(t, "maria@uniguacu.edu.br"),
		`{"titulo":"Horta automatizada","descricao":"Irrigação","autor":"Maria","status":"APROVADO"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var artefato model.Artefato
	if err := json.Unmarshal(rec.Body.Bytes(), &artefato); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if artefato.Status != model.StatusPendente {
		t.Errorf("status = %s, want %s", artefato.Status, model.StatusPendente)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateArtefatoSemestreTooLarge(t *testing.T) {
	handler, mock := newTestServer(t)

	expectUserLookup(t, mock, "maria@uniguacu.edu.br", model.RoleAluno)

	rec := doJSON(t, handler, http.MethodPost, "/api/artefatos",
		bearer(t, "maria@uniguacu.edu.br"),
		`{"titulo":"X","descricao":"Y","autor":"Z","semestre":11}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "semester_too_large" {
		t.Errorf("error = %q", code)
	}
}

func TestCreateArtefatoRequiresToken(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/artefatos", "",
		`{"titulo":"X","descricao":"Y","autor":"Z"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "missing_token" {
		t.Errorf("error = %q", code)
	}
}

func TestAprovarRequiresAdmin(t *testing.T) {
	handler, mock := newTestServer(t)

	expectUserLookup(t, mock, "maria@uniguacu.edu.br", model.RoleAluno)

	rec := doJSON(t, handler, http.MethodPut, "/api/artefatos/3/aprovar",
		bearer(t, "maria@uniguacu.edu.br"), "")

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "forbidden" {
		t.Errorf("error = %q", code)
	}
}

func TestAprovarPendingArtefato(t *testing.T) {
	handler, mock := newTestServer(t)

	expectUserLookup(t, mock, "admin@uniguacu.edu.br", model.RoleAdmin)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE artefato SET status")).
		WithArgs(model.StatusAprovado, int64(3), model.StatusPendente).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM artefato")).
		WithArgs(int64(3)).
		WillReturnRows(addArtefatoRow(artefatoRows(), 3, model.StatusAprovado))

	rec := doJSON(t, handler, http.MethodPut, "/api/artefatos/3/aprovar",
		bearer(t, "admin@uniguacu.edu.br"), "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var artefato model.Artefato
	if err := json.Unmarshal(rec.Body.Bytes(), &artefato); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if artefato.Status != model.StatusAprovado {
		t.Errorf("status = %s", artefato.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestReprovarAlreadyModerated(t *testing.T) {
	handler, mock := newTestServer(t)

	expectUserLookup(t, mock, "admin@uniguacu.edu.br", model.RoleAdmin)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE artefato SET status")).
		WithArgs(model.StatusReprovado, int64(3), model.StatusPendente).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM artefato")).
		WithArgs(int64(3)).
		WillReturnRows(addArtefatoRow(artefatoRows(), 3, model.StatusAprovado))

	rec := doJSON(t, handler, http.MethodPut, "/api/artefatos/3/reprovar",
		bearer(t, "admin@uniguacu.edu.br"), "")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "not_pending" {
		t.Errorf("error = %q", code)
	}
}

func TestPublicListIgnoresGarbageToken(t *testing.T) {
	handler, mock := newTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM artefato")).
		WithArgs(model.StatusAprovado).
		WillReturnRows(addArtefatoRow(artefatoRows(), 12, model.StatusAprovado))

	rec := doJSON(t, handler, http.MethodGet, "/api/artefatos", "Bearer not-a-jwt", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestListArtefatosRejectsBadDate(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/artefatos?dataInicial=15-03-2024", "", "")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "invalid_date" {
		t.Errorf("error = %q", code)
	}
}

func TestPreflightBypassesAuth(t *testing.T) {
	handler, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/artefatos/3/aprovar", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow-origin = %q", got)
	}
}

func TestCORSSkipsUnknownOrigin(t *testing.T) {
	handler, mock := newTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM artefato")).
		WithArgs(model.StatusAprovado).
		WillReturnRows(artefatoRows())

	req := httptest.NewRequest(http.MethodGet, "/api/artefatos", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow-origin leaked to %q", got)
	}
}

func TestCreateComentarioOnMissingArtefato(t *testing.T) {
	handler, mock := newTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	rec := doJSON(t, handler, http.MethodPost, "/api/artefatos/99/comentarios", "",
		`{"nome":"João","texto":"Ótimo trabalho"}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "artefato_not_found" {
		t.Errorf("error = %q", code)
	}
}

func TestCreateComentarioRejectsBadRating(t *testing.T) {
	handler, mock := newTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	rec := doJSON(t, handler, http.MethodPost, "/api/artefatos/3/comentarios", "",
		`{"nome":"João","texto":"Ótimo","avaliacaoSolucao":6}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "invalid_rating" {
		t.Errorf("error = %q", code)
	}
}

func TestGetMeRequiresToken(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/users/me", "", "")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGetMe(t *testing.T) {
	handler, mock := newTestServer(t)

	expectUserLookup(t, mock, "maria@uniguacu.edu.br", model.RoleAluno)

	rec := doJSON(t, handler, http.MethodGet, "/api/users/me",
		bearer(t, "maria@uniguacu.edu.br"), "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp userSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Email != "maria@uniguacu.edu.br" {
		t.Errorf("email = %q", resp.Email)
	}
}

func TestListUsersOmitsPassword(t *testing.T) {
	handler, mock := newTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM usuarios")).
		WillReturnRows(userRows().AddRow(int64(1), "Maria Souza", "maria@uniguacu.edu.br",
			"$2a$10$hash", (*string)(nil), (*string)(nil), (*string)(nil), model.RoleAluno))

	rec := doJSON(t, handler, http.MethodGet, "/api/users", "", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var users []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("len = %d", len(users))
	}
	for _, key := range []string{"password", "passwordHash"} {
		if _, leaked := users[0][key]; leaked {
			t.Errorf("%s field present in response", key)
		}
	}
}

func TestListPendentesRequiresAdmin(t *testing.T) {
	handler, mock := newTestServer(t)

	expectUserLookup(t, mock, "maria@uniguacu.edu.br", model.RoleAluno)

	rec := doJSON(t, handler, http.MethodGet, "/api/artefatos/pendentes",
		bearer(t, "maria@uniguacu.edu.br"), "")

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestTokenForDeletedUser(t *testing.T) {
	handler, mock := newTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM usuarios")).
		WithArgs("gone@uniguacu.edu.br").
		WillReturnRows(userRows())

	rec := doJSON(t, handler, http.MethodGet, "/api/users/me",
		bearer(t, "gone@uniguacu.edu.br"), "")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "user_not_found" {
		t.Errorf("error = %q", code)
	}
}

func TestForgotPasswordUniformResponse(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/forgot-password", "",
		`{"email":"ghost@uniguacu.edu.br"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["message"] == "" {
		t.Error("expected uniform message body")
	}
}
