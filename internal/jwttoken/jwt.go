// Package jwttoken issues and validates the HS256 access tokens minted after
// a successful one-time-code verification.
package jwttoken

import (
	"errors"
	"time"

	dErrors "civicwatch/pkg/domain-errors"
	id "civicwatch/pkg/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the access token claims. Role is carried in the token so the
// transport layer can guard moderator-only routes without a user lookup.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Service handles access token creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
}

const (
	accessTokenTTL  = time.Hour
	refreshTokenTTL = 30 * 24 * time.Hour
)

// TokenPair is the access/refresh pair minted on successful code
// verification. ExpiresIn is the access token lifetime in seconds.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func NewService(signingKey string, issuer string, audience string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

func (s *Service) GenerateAccessToken(userID id.UserID, role string, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID.String(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// GenerateTokenPair mints the access/refresh pair for a verified user.
func (s *Service) GenerateTokenPair(userID id.UserID, role string) (TokenPair, error) {
	access, err := s.GenerateAccessToken(userID, role, accessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.GenerateAccessToken(userID, role, refreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
	}, nil
}

func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return claims, nil
}

// ExtractUserID validates the token and parses its subject user ID.
func (s *Service) ExtractUserID(tokenString string) (id.UserID, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return id.UserID{}, err
	}
	return id.ParseUserID(claims.UserID)
}
