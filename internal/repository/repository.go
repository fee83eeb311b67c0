// Package repository persists users, artefatos and comentarios in Postgres.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/db"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/errs"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/model"
)

type Store struct {
	pool db.Pool
}

func NewStore(pool db.Pool) *Store {
	return &Store{pool: pool}
}

const userColumns = `id, nome_completo, email, password, foto_url, curso, turno, role`

// CreateUser inserts the user and fills in the generated id.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO usuarios (nome_completo, email, password, foto_url, curso, turno, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, user.NomeCompleto, user.Email, user.PasswordHash, user.FotoURL, user.Curso, user.Turno, user.Role)
	if err := row.Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return errs.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM usuarios
		WHERE email = $1
	`, email)
	return scanUser(row)
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM usuarios
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (s *Store) ListUsersByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM usuarios
		WHERE role = $1
		ORDER BY id
	`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

// ProfileUpdate carries the self-service profile fields. Role and password are
// deliberately not updatable through it.
type ProfileUpdate struct {
	NomeCompleto string
	Email        string
	Curso        *string
	Turno        *string
}

func (s *Store) UpdateUserProfile(ctx context.Context, userID int64, update ProfileUpdate) (model.User, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE usuarios
		SET nome_completo = $1, email = $2, curso = $3, turno = $4
		WHERE id = $5
		RETURNING `+userColumns+`
	`, update.NomeCompleto, update.Email, update.Curso, update.Turno, userID)
	user, err := scanUser(row)
	if err != nil && isUniqueViolation(err) {
		return model.User{}, errs.ErrEmailTaken
	}
	return user, err
}

func (s *Store) SetUserPhoto(ctx context.Context, userID int64, filename string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE usuarios SET foto_url = $1 WHERE id = $2
	`, filename, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

const artefatoColumns = `id, titulo, descricao, url_imagem, autor, curso, campus, categoria, semestre, data_inicial, data_final, status`

// CreateArtefato inserts the artefato and fills in the generated id. The
// caller is responsible for having forced status to PENDENTE.
func (s *Store) CreateArtefato(ctx context.Context, a *model.Artefato) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO artefato (titulo, descricao, url_imagem, autor, curso, campus, categoria, semestre, data_inicial, data_final, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, a.Titulo, a.Descricao, a.URLImagem, a.Autor, a.Curso, a.Campus, a.Categoria, a.Semestre,
		dateArg(a.DataInicial), dateArg(a.DataFinal), a.Status)
	return row.Scan(&a.ID)
}

func (s *Store) GetArtefato(ctx context.Context, id int64) (model.Artefato, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+artefatoColumns+`
		FROM artefato
		WHERE id = $1
	`, id)
	return scanArtefato(row)
}

// ArtefatoUpdate carries the content fields. Status is not among them: content
// edits never change moderation state.
type ArtefatoUpdate struct {
	Titulo      string
	Descricao   string
	URLImagem   *string
	Autor       string
	Curso       *string
	Campus      *string
	Categoria   *string
	Semestre    *int
	DataInicial *model.Date
	DataFinal   *model.Date
}

func (s *Store) UpdateArtefato(ctx context.Context, id int64, update ArtefatoUpdate) (model.Artefato, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE artefato
		SET titulo = $1, descricao = $2, url_imagem = $3, autor = $4, curso = $5, campus = $6, categoria = $7, semestre = $8, data_inicial = $9, data_final = $10
		WHERE id = $11
		RETURNING `+artefatoColumns+`
	`, update.Titulo, update.Descricao, update.URLImagem, update.Autor, update.Curso, update.Campus,
		update.Categoria, update.Semestre, dateArg(update.DataInicial), dateArg(update.DataFinal), id)
	return scanArtefato(row)
}

func (s *Store) DeleteArtefato(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM artefato WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *Store) ListArtefatosByStatus(ctx context.Context, status model.Status) ([]model.Artefato, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+artefatoColumns+`
		FROM artefato
		WHERE status = $1
		ORDER BY id
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectArtefatos(rows)
}

// SearchFilter restricts the public listing. Every field is optional; the
// status restriction to APROVADO is not.
type SearchFilter struct {
	Busca       string
	Curso       string
	Campus      string
	Categoria   string
	Semestre    *int
	DataInicial *model.Date
	DataFinal   *model.Date
}

// SearchArtefatos returns approved artefatos matching the filter. The text
// search covers titulo and autor, case-insensitively.
func (s *Store) SearchArtefatos(ctx context.Context, filter SearchFilter) ([]model.Artefato, error) {
	conditions := []string{"status = $1"}
	args := []any{model.StatusAprovado}

	addCondition := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.Busca != "" {
		args = append(args, filter.Busca)
		n := len(args)
		// one placeholder serves both sides of the OR
		conditions = append(conditions, fmt.Sprintf("(titulo ILIKE '%%' || $%d || '%%' OR autor ILIKE '%%' || $%d || '%%')", n, n))
	}
	if filter.Curso != "" {
		addCondition("curso = $%d", filter.Curso)
	}
	if filter.Campus != "" {
		addCondition("campus = $%d", filter.Campus)
	}
	if filter.Categoria != "" {
		addCondition("categoria = $%d", filter.Categoria)
	}
	if filter.Semestre != nil {
		addCondition("semestre = $%d", *filter.Semestre)
	}
	if filter.DataInicial != nil {
		addCondition("data_inicial >= $%d", filter.DataInicial.Time)
	}
	if filter.DataFinal != nil {
		addCondition("data_final <= $%d", filter.DataFinal.Time)
	}

	query := `
		SELECT ` + artefatoColumns + `
		FROM artefato
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY id DESC
	`
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectArtefatos(rows)
}

// SetArtefatoStatus performs the moderation transition as a single conditional
// update so two concurrent moderation actions cannot both win. When no row
// changes, a second query distinguishes "gone" from "already moderated".
func (s *Store) SetArtefatoStatus(ctx context.Context, id int64, to model.Status) (model.Artefato, error) {
	if !model.StatusPendente.CanTransition(to) {
		return model.Artefato{}, errs.ErrNotPending
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE artefato SET status = $1 WHERE id = $2 AND status = $3
	`, to, id, model.StatusPendente)
	if err != nil {
		return model.Artefato{}, err
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetArtefato(ctx, id); err != nil {
			return model.Artefato{}, err
		}
		return model.Artefato{}, errs.ErrNotPending
	}
	return s.GetArtefato(ctx, id)
}

func (s *Store) ArtefatoExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM artefato WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

const comentarioColumns = `id, artefato_id, nome, funcao_empresa, texto, avaliacao_solucao, avaliacao_video, avaliacao_impacto, data_criacao`

// CreateComentario inserts the comment; id and data_criacao come back from the
// database so the creation timestamp is always server-assigned.
func (s *Store) CreateComentario(ctx context.Context, c *model.Comentario) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO comentario (artefato_id, nome, funcao_empresa, texto, avaliacao_solucao, avaliacao_video, avaliacao_impacto)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, data_criacao
	`, c.ArtefatoID, c.Nome, c.FuncaoEmpresa, c.Texto, c.AvaliacaoSolucao, c.AvaliacaoVideo, c.AvaliacaoImpacto)
	return row.Scan(&c.ID, &c.DataCriacao)
}

func (s *Store) ListComentarios(ctx context.Context, artefatoID int64) ([]model.Comentario, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+comentarioColumns+`
		FROM comentario
		WHERE artefato_id = $1
		ORDER BY data_criacao DESC
	`, artefatoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comentarios := make([]model.Comentario, 0)
	for rows.Next() {
		var c model.Comentario
		if err := rows.Scan(&c.ID, &c.ArtefatoID, &c.Nome, &c.FuncaoEmpresa, &c.Texto,
			&c.AvaliacaoSolucao, &c.AvaliacaoVideo, &c.AvaliacaoImpacto, &c.DataCriacao); err != nil {
			return nil, err
		}
		comentarios = append(comentarios, c)
	}
	return comentarios, rows.Err()
}

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.NomeCompleto,
		&user.Email,
		&user.PasswordHash,
		&user.FotoURL,
		&user.Curso,
		&user.Turno,
		&user.Role,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, errs.ErrNotFound
	}
	return user, err
}

func collectUsers(rows pgx.Rows) ([]model.User, error) {
	users := make([]model.User, 0)
	for rows.Next() {
		var user model.User
		if err := rows.Scan(&user.ID, &user.NomeCompleto, &user.Email, &user.PasswordHash,
			&user.FotoURL, &user.Curso, &user.Turno, &user.Role); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func scanArtefato(row pgx.Row) (model.Artefato, error) {
	var a model.Artefato
	var dataInicial, dataFinal *time.Time
	err := row.Scan(
		&a.ID,
		&a.Titulo,
		&a.Descricao,
		&a.URLImagem,
		&a.Autor,
		&a.Curso,
		&a.Campus,
		&a.Categoria,
		&a.Semestre,
		&dataInicial,
		&dataFinal,
		&a.Status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Artefato{}, errs.ErrNotFound
	}
	if err != nil {
		return model.Artefato{}, err
	}
	a.DataInicial = wrapDate(dataInicial)
	a.DataFinal = wrapDate(dataFinal)
	return a, nil
}

func collectArtefatos(rows pgx.Rows) ([]model.Artefato, error) {
	artefatos := make([]model.Artefato, 0)
	for rows.Next() {
		var a model.Artefato
		var dataInicial, dataFinal *time.Time
		if err := rows.Scan(&a.ID, &a.Titulo, &a.Descricao, &a.URLImagem, &a.Autor, &a.Curso,
			&a.Campus, &a.Categoria, &a.Semestre, &dataInicial, &dataFinal, &a.Status); err != nil {
			return nil, err
		}
		a.DataInicial = wrapDate(dataInicial)
		a.DataFinal = wrapDate(dataFinal)
		artefatos = append(artefatos, a)
	}
	return artefatos, rows.Err()
}

func wrapDate(t *time.Time) *model.Date {
	if t == nil {
		return nil
	}
	return &model.Date{Time: *t}
}

func dateArg(d *model.Date) *time.Time {
	if d == nil {
		return nil
	}
	return &d.Time
}

func isUniqueViolation(err error) bool {
	var pg *pgconn.PgError
	return errors.As(err, &pg) && pg.Code == "23505"
}
