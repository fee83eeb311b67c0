package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of user roles. Values match the original data so
// existing rows keep working.
type Role string

const (
	RoleAluno Role = "ROLE_ALUNO"
	RoleAdmin Role = "ROLE_ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAluno || r == RoleAdmin
}

// Status is the moderation state of an artefato.
type Status string

const (
	StatusPendente  Status = "PENDENTE"
	StatusAprovado  Status = "APROVADO"
	StatusReprovado Status = "REPROVADO"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPendente, StatusAprovado, StatusReprovado:
		return true
	}
	return false
}

// CanTransition reports whether the moderation state machine allows s -> to.
// The only edges are PENDENTE -> APROVADO and PENDENTE -> REPROVADO; approved
// and rejected are terminal.
func (s Status) CanTransition(to Status) bool {
	return s == StatusPendente && (to == StatusAprovado || to == StatusReprovado)
}

type User struct {
	ID           int64
	NomeCompleto string
	Email        string
	PasswordHash string
	FotoURL      *string
	Curso        *string
	Turno        *string
	Role         Role
}

type Artefato struct {
	ID          int64   `json:"id"`
	Titulo      string  `json:"titulo"`
	Descricao   string  `json:"descricao"`
	URLImagem   *string `json:"urlImagem"`
	Autor       string  `json:"autor"`
	Curso       *string `json:"curso"`
	Campus      *string `json:"campus"`
	Categoria   *string `json:"categoria"`
	Semestre    *int    `json:"semestre"`
	DataInicial *Date   `json:"dataInicial"`
	DataFinal   *Date   `json:"dataFinal"`
	Status      Status  `json:"status"`
}

type Comentario struct {
	ID               int64     `json:"id"`
	ArtefatoID       int64     `json:"artefatoId"`
	Nome             string    `json:"nome"`
	FuncaoEmpresa    *string   `json:"funcaoEmpresa"`
	Texto            string    `json:"texto"`
	AvaliacaoSolucao *int      `json:"avaliacaoSolucao"`
	AvaliacaoVideo   *int      `json:"avaliacaoVideo"`
	AvaliacaoImpacto *int      `json:"avaliacaoImpacto"`
	DataCriacao      time.Time `json:"dataCriacao"`
}

const dateLayout = "2006-01-02"

// Date is a calendar date serialized as "2006-01-02", matching what the
// frontend sends for dataInicial/dataFinal.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(value string) (Date, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", d.Format(dateLayout))), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		return nil
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
