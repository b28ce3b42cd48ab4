package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/GoArmGo/GeoPhoto/internal/domain"
)

// Access — класс маршрута
type Access int

const (
	Protected Access = iota
	Public
)

func (a Access) String() string {
	if a == Public {
		return "public"
	}
	return "protected"
}

// Rule — правило классификации. Пустой Method подходит к любому методу.
// Path с завершающим "/" сравнивается как префикс, иначе как точный путь;
// пустой Path подходит к любому пути.
type Rule struct {
	Method string
	Path   string
	Access Access
}

func (r Rule) matches(method, path string) bool {
	if r.Method != "" && r.Method != method {
		return false
	}
	switch {
	case r.Path == "":
		return true
	case strings.HasSuffix(r.Path, "/"):
		return strings.HasPrefix(path, r.Path)
	default:
		return path == r.Path
	}
}

// DefaultRules — порядок важен, срабатывает первое совпадение.
// /api/auth/me защищён, хотя лежит под публичным /api/auth/.
var DefaultRules = []Rule{
	{Method: http.MethodOptions, Access: Public},
	{Path: "/api/auth/me", Access: Protected},
	{Path: "/api/auth/", Access: Public},
	{Path: domain.LegacyURLPrefix, Access: Public},
	{Path: domain.ImageURLPrefix, Access: Public},
	{Path: "/health", Access: Public},
}

// Classify возвращает класс запроса; ни одно правило не подошло — Protected.
func Classify(rules []Rule, method, path string) Access {
	for _, r := range rules {
		if r.matches(method, path) {
			return r.Access
		}
	}
	return Protected
}

// TokenValidator проверяет bearer-токен
type TokenValidator interface {
	Validate(token string) Outcome
}

// UserLookup находит пользователя по имени; (nil, nil) — не найден
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

// Gate — middleware аутентификации. Для защищённых маршрутов с валидным
// токеном кладёт Principal в контекст запроса; во всех остальных случаях
// пропускает запрос дальше без принципала. Отказ выносит Require.
type Gate struct {
	rules  []Rule
	tokens TokenValidator
	users  UserLookup
	logger *slog.Logger
}

func NewGate(rules []Rule, tokens TokenValidator, users UserLookup, logger *slog.Logger) *Gate {
	return &Gate{rules: rules, tokens: tokens, users: users, logger: logger}
}

// Middleware подключается к роутеру до всех обработчиков.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Classify(g.rules, r.Method, r.URL.Path) == Public {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := BearerToken(r.Header.Get("Authorization"))
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		outcome := g.resolve(r.Context(), token)
		if !outcome.OK() {
			g.logger.Debug("bearer token rejected", "path", r.URL.Path, "outcome", outcome.Kind.String())
			next.ServeHTTP(w, r)
			return
		}

		p := domain.Principal{UserID: outcome.UserID, Username: outcome.Username, Role: outcome.role}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// resolution — Outcome плюс роль, известная только после поиска пользователя
type resolution struct {
	Outcome
	role domain.Role
}

// resolve проверяет токен и находит пользователя. Пользователь удалён,
// отключён или его id не совпадает с subject токена — OutcomeUnknownUser.
func (g *Gate) resolve(ctx context.Context, token string) resolution {
	outcome := g.tokens.Validate(token)
	if !outcome.OK() {
		return resolution{Outcome: outcome}
	}

	user, err := g.users.GetUserByUsername(ctx, outcome.Username)
	if err != nil {
		g.logger.Warn("principal lookup failed", "username", outcome.Username, "error", err)
		return resolution{Outcome: Outcome{Kind: OutcomeUnknownUser}}
	}
	if user == nil || !user.Enabled || user.ID != outcome.UserID {
		return resolution{Outcome: Outcome{Kind: OutcomeUnknownUser}}
	}

	return resolution{Outcome: outcome, role: user.Role}
}

// BearerToken достаёт токен из заголовка вида "Bearer <token>".
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

type principalKey struct{}

// WithPrincipal кладёт принципала в контекст
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom достаёт принципала, положенного шлюзом
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	if !ok || p.UserID == uuid.Nil {
		return domain.Principal{}, false
	}
	return p, true
}
