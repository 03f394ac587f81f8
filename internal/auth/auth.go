package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultLeeway = 30 * time.Second

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrInvalidToken   = errors.New("invalid token")
	ErrMissingSubject = errors.New("token missing subject")
	ErrEmptyJWTSecret = errors.New("jwt secret cannot be empty")
)

// Claims are the fields PortIQ reads from a BaaS access token.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

type TokenVerifier interface {
	Verify(tokenString string) (*Identity, error)
}

// Verifier validates access tokens issued by the auth provider.
type Verifier struct {
	parser  *jwt.Parser
	keyfunc jwt.Keyfunc
}

// NewVerifier checks HS256 tokens signed with the project's shared JWT secret.
func NewVerifier(secret, audience string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrEmptyJWTSecret
	}
	key := []byte(secret)
	return &Verifier{
		parser: newParser(audience, []string{jwt.SigningMethodHS256.Name}),
		keyfunc: func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return key, nil
		},
	}, nil
}

// NewJWKSVerifier checks asymmetric tokens against the provider's JWKS endpoint.
func NewJWKSVerifier(jwksURL, audience string) (*Verifier, error) {
	if jwksURL == "" {
		return nil, errors.New("jwks url must be set")
	}
	keyProvider, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to init JWKS keyfunc: %w", err)
	}
	return &Verifier{
		parser: newParser(audience, []string{
			jwt.SigningMethodRS256.Name,
			jwt.SigningMethodES256.Name,
		}),
		keyfunc: keyProvider.Keyfunc,
	}, nil
}

func newParser(audience string, methods []string) *jwt.Parser {
	opts := []jwt.ParserOption{
		jwt.WithLeeway(defaultLeeway),
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return jwt.NewParser(opts...)
}

func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, v.keyfunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a uuid", ErrInvalidToken)
	}

	return &Identity{
		UserID: userID,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}

// SignToken issues an HS256 token shaped like the provider's access tokens.
// The service never hands these out; local tooling and tests use it.
func SignToken(userID uuid.UUID, email, secret, audience string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptyJWTSecret
	}
	now := time.Now()
	claims := &Claims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Audience:  []string{audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
