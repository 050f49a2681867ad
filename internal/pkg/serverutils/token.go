package serverutils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"storefront-chat-be/internal/entity"
	"storefront-chat-be/pkg/room"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// JWTAuthenticator resolves the identity carried by tokens issued by the
// auth service.
type JWTAuthenticator struct {
	secret []byte
}

func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret)}
}

func (a *JWTAuthenticator) Authenticate(tokenStr string) (entity.Identity, error) {
	return ParseIdentity(tokenStr, a.secret)
}

func ParseIdentity(tokenStr string, secret []byte) (entity.Identity, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return entity.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return entity.Identity{}, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}

	userId, ok := claimUserId(claims["user_id"])
	if !ok {
		return entity.Identity{}, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	if !room.ValidUserID(userId) {
		return entity.Identity{}, fmt.Errorf("%w: user_id %q contains %q", ErrInvalidToken, userId, room.Separator)
	}

	identity := entity.Identity{UserId: userId}
	identity.Username, _ = claims["username"].(string)
	identity.DisplayName, _ = claims["display_name"].(string)
	return identity, nil
}

// claimUserId accepts string ids and the numeric ids older tokens carry.
func claimUserId(v interface{}) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, id != ""
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	default:
		return "", false
	}
}

// IssueToken signs an HS256 token with the claims ParseIdentity expects.
func IssueToken(secret string, identity entity.Identity, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id":      identity.UserId,
		"username":     identity.Username,
		"display_name": identity.DisplayName,
		"exp":          time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
