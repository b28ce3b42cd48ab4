// Package auth содержит сервис bearer-токенов и шлюз аутентификации,
// через который проходит каждый HTTP-запрос.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/GoArmGo/GeoPhoto/internal/domain"
)

// OutcomeKind — результат проверки токена
type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeMalformed
	OutcomeExpired
	OutcomeInvalid
	OutcomeUnknownUser
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeExpired:
		return "expired"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeUnknownUser:
		return "unknown_user"
	default:
		return "unknown"
	}
}

// Outcome — результат Validate. UserID и Username заполнены только при OutcomeOK.
type Outcome struct {
	Kind     OutcomeKind
	UserID   uuid.UUID
	Username string
}

// OK сообщает, прошёл ли токен проверку
func (o Outcome) OK() bool {
	return o.Kind == OutcomeOK
}

type claims struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenService выпускает и проверяет HS256 JWT.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenService создаёт сервис токенов
func NewTokenService(secret string, ttl time.Duration, issuer string) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

// WithClock подменяет часы (для тестов)
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Mint выпускает токен для принципала и возвращает его вместе со сроком действия.
func (s *TokenService) Mint(p domain.Principal) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: p.Username,
		Role:     p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: не удалось подписать токен: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate проверяет токен. Некорректный ввод — не ошибка, а Outcome с причиной.
func (s *TokenService) Validate(token string) Outcome {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return Outcome{Kind: OutcomeMalformed}
	case errors.Is(err, jwt.ErrTokenExpired):
		return Outcome{Kind: OutcomeExpired}
	default:
		return Outcome{Kind: OutcomeInvalid}
	}

	id, err := uuid.Parse(c.Subject)
	if err != nil || c.Username == "" {
		return Outcome{Kind: OutcomeMalformed}
	}
	return Outcome{Kind: OutcomeOK, UserID: id, Username: c.Username}
}
