package mirotalk

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a join token fails validation.
var ErrInvalidToken = errors.New("invalid join token")

// TokenService issues signed join tokens for conference rooms.
type TokenService struct {
	baseURL string
	key     []byte
	ttl     time.Duration
	now     func() time.Time
}

// NewTokenService creates a token service for the MiroTalk instance at baseURL.
func NewTokenService(baseURL, key string, ttl time.Duration) *TokenService {
	return &TokenService{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     []byte(key),
		ttl:     ttl,
		now:     time.Now,
	}
}

// JoinClaims is the payload MiroTalk expects inside a join token.
type JoinClaims struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Presenter string `json:"presenter"`
	jwt.RegisteredClaims
}

// IssueToken signs a join token for username. Presenters can manage the room.
func (s *TokenService) IssueToken(username, password string, presenter bool) (string, error) {
	now := s.now()
	presenterFlag := "false"
	if presenter {
		presenterFlag = "true"
	}
	claims := JoinClaims{
		Username:  username,
		Password:  password,
		Presenter: presenterFlag,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign join token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a join token, returning its claims.
func (s *TokenService) ValidateToken(tokenString string) (*JoinClaims, error) {
	claims := &JoinClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// JoinURL builds the conference join link for a room and a signed token.
func (s *TokenService) JoinURL(roomID, token, displayName string) string {
	values := url.Values{}
	values.Set("room", roomID)
	values.Set("token", token)
	if displayName != "" {
		values.Set("name", displayName)
	}
	return s.baseURL + "/join?" + values.Encode()
}
