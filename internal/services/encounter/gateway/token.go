package gateway

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/JakeHR99/Stryder-TTRPG/internal/platform/errors"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/command"
)

const (
	defaultTokenIssuer = "stryder-encounter"
	defaultTokenTTL    = 12 * time.Hour
)

// Role is the table role a participant token grants.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleGM          Role = "gm"
)

func (r Role) valid() bool {
	return r == RoleParticipant || r == RoleGM
}

func (r Role) actorType() command.ActorType {
	if r == RoleGM {
		return command.ActorTypeGM
	}
	return command.ActorTypeParticipant
}

// Participant is the verified caller behind an intent.
type Participant struct {
	ID   string
	Role Role
}

type participantClaims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

// TokenIssuer signs participant tokens with an HS256 shared secret.
type TokenIssuer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

// Issue returns a signed token naming participantID with role.
func (i TokenIssuer) Issue(participantID string, role Role) (string, error) {
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return "", errors.New("participant id is required")
	}
	if !role.valid() {
		return "", fmt.Errorf("role %q is invalid", role)
	}
	if len(i.Secret) == 0 {
		return "", errors.New("token secret is required")
	}
	now := time.Now
	if i.Now != nil {
		now = i.Now
	}
	ttl := i.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	issuedAt := now().UTC()
	claims := participantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerOrDefault(i.Issuer),
			Subject:   participantID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
		Role: role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.Secret)
	if err != nil {
		return "", fmt.Errorf("sign participant token: %w", err)
	}
	return signed, nil
}

// TokenVerifier checks participant tokens signed by a TokenIssuer with the
// same secret and issuer.
type TokenVerifier struct {
	Secret []byte
	Issuer string
	Now    func() time.Time
}

// Verify returns the participant named by token. Failures are
// PERMISSION_DENIED errors.
func (v TokenVerifier) Verify(token string) (Participant, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Participant{}, denied("participant token is required")
	}
	if len(v.Secret) == 0 {
		return Participant{}, errors.New("token verifier is not configured")
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}

	var claims participantClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerOrDefault(v.Issuer)),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Participant{}, apperrors.Wrap(apperrors.CodePermissionDenied, "participant token expired", err)
		}
		return Participant{}, apperrors.Wrap(apperrors.CodePermissionDenied, "participant token invalid", err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Participant{}, denied("participant token has no subject")
	}
	if !claims.Role.valid() {
		return Participant{}, denied("participant token role is invalid")
	}
	return Participant{ID: strings.TrimSpace(claims.Subject), Role: claims.Role}, nil
}

func issuerOrDefault(issuer string) string {
	if issuer = strings.TrimSpace(issuer); issuer != "" {
		return issuer
	}
	return defaultTokenIssuer
}

func denied(message string) error {
	return apperrors.New(apperrors.CodePermissionDenied, message)
}
