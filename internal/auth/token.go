package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// clockSkew is tolerated on exp and nbf between host callers and this service.
const clockSkew = 30 * time.Second

type hostClaims struct {
	jwt.RegisteredClaims
	Organization string   `json:"org,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
}

// TokenService handles JWT creation and validation.
type TokenService struct {
	signingKey []byte
	issuer     string
	expiry     time.Duration
}

func NewTokenService(signingKey, issuer string, expiry time.Duration) *TokenService {
	return &TokenService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		expiry:     expiry,
	}
}

func (s *TokenService) CreateToken(identity *Identity) (string, error) {
	if identity == nil || identity.Subject == "" {
		return "", errors.New("identity subject is required")
	}
	now := time.Now()

	claims := hostClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   identity.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
		Organization: identity.Organization,
		Scopes:       identity.Scopes,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.signingKey)
}

func (s *TokenService) ValidateToken(tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &hostClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired(), jwt.WithLeeway(clockSkew))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*hostClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return &Identity{
		Subject:      claims.Subject,
		Organization: claims.Organization,
		Scopes:       claims.Scopes,
	}, nil
}
