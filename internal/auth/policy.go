package auth

import (
	"net/http"
	"strings"

	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/model"
)

// Level is the access requirement attached to a route.
type Level int

const (
	// LevelDeny rejects every caller; it is the fallback for unlisted routes.
	LevelDeny Level = iota
	// LevelPublic requires no identity.
	LevelPublic
	// LevelAuthenticated requires any valid identity.
	LevelAuthenticated
	// LevelAdmin requires an identity with the admin role.
	LevelAdmin
)

// Rule binds an HTTP method and a path pattern to a required level. A method
// of "*" matches every method. Patterns are /-segmented; a "{x}" segment
// matches any single segment and a trailing "**" matches the rest of the path.
type Rule struct {
	Method  string
	Pattern string
	Level   Level
}

// Policy is an ordered rule list evaluated first-match-wins.
type Policy []Rule

// DefaultPolicy mirrors the route table of the portfolio API. Order matters:
// /api/artefatos/pendentes must precede /api/artefatos/{id}.
func DefaultPolicy() Policy {
	return Policy{
		{"*", "/api/auth/**", LevelPublic},
		{http.MethodGet, "/api/artefatos", LevelPublic},
		{http.MethodGet, "/api/artefatos/pendentes", LevelAdmin},
		{http.MethodGet, "/api/artefatos/{id}", LevelPublic},
		{http.MethodGet, "/api/artefatos/{id}/comentarios", LevelPublic},
		{http.MethodPost, "/api/artefatos/{id}/comentarios", LevelPublic},
		{http.MethodGet, "/api/users", LevelPublic},
		{http.MethodGet, "/api/users/alunos", LevelPublic},
		{http.MethodGet, "/api/users/me", LevelAuthenticated},
		{http.MethodPut, "/api/users/me", LevelAuthenticated},
		{http.MethodPost, "/api/users/me/photo", LevelAuthenticated},
		{http.MethodGet, "/api/files/**", LevelPublic},
		{http.MethodPost, "/api/files/upload", LevelAuthenticated},
		{http.MethodPost, "/api/artefatos", LevelAuthenticated},
		{http.MethodPut, "/api/artefatos/{id}/aprovar", LevelAdmin},
		{http.MethodPut, "/api/artefatos/{id}/reprovar", LevelAdmin},
		{http.MethodPut, "/api/artefatos/{id}", LevelAdmin},
		{http.MethodDelete, "/api/artefatos/{id}", LevelAdmin},
		{http.MethodGet, "/health", LevelPublic},
		{http.MethodGet, "/metrics", LevelPublic},
	}
}

// Required returns the level for (method, path). CORS preflights are always
// public because browsers send them without credentials. Anything no rule
// matches is denied.
func (p Policy) Required(method, path string) Level {
	if method == http.MethodOptions {
		return LevelPublic
	}
	for _, rule := range p {
		if rule.Method != "*" && rule.Method != method {
			continue
		}
		if matchPattern(rule.Pattern, path) {
			return rule.Level
		}
	}
	return LevelDeny
}

// Allows is the capability check for an already-resolved caller. A nil role
// pointer means anonymous.
func (p Policy) Allows(method, path string, role *model.Role) bool {
	switch p.Required(method, path) {
	case LevelPublic:
		return true
	case LevelAuthenticated:
		return role != nil
	case LevelAdmin:
		return role != nil && *role == model.RoleAdmin
	default:
		return false
	}
}

func matchPattern(pattern, path string) bool {
	want := strings.Split(strings.Trim(pattern, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")

	for i, segment := range want {
		if segment == "**" {
			// "/api/auth/**" also matches "/api/auth" itself.
			return len(got) >= i
		}
		if i >= len(got) {
			return false
		}
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			continue
		}
		if segment != got[i] {
			return false
		}
	}
	return len(got) == len(want)
}
