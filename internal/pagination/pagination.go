// Package pagination implements the opaque page tokens used by the list
// RPCs. A token is a signed JWT carrying the keyset position of the last
// item on the previous page, so concurrent inserts and deletes never skip
// or duplicate rows the way raw offsets would.
package pagination

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidCursor covers every bad-token case: tampered signature,
// foreign secret, malformed claims, wrong resource. Callers map it to a
// 400 response.
var ErrInvalidCursor = errors.New("invalid page token")

var tokenSecret string

func InitTokenSecret() error {
	tokenSecret = os.Getenv("PAGE_TOKEN_SECRET")
	if tokenSecret == "" {
		return fmt.Errorf("PAGE_TOKEN_SECRET environment variable is not set")
	}
	return nil
}

// SetTokenSecretForTest overrides the signing secret outside of main.
func SetTokenSecretForTest(secret string) {
	tokenSecret = secret
}

// Cursor is the decoded position of a page boundary. CreatedAtMicros is
// unix microseconds: it matches the timestamp precision Postgres stores,
// and JSON numbers round-trip through float64, whose exact-integer range
// covers microseconds where nanoseconds would overflow it.
type Cursor struct {
	WorkspaceID     uint
	Resource        string
	CreatedAtMicros int64
	ID              uint
	Limit           int
}

// Encode signs the cursor into an opaque token.
func Encode(c Cursor) (string, error) {
	if tokenSecret == "" {
		return "", fmt.Errorf("page token secret is not initialized")
	}

	claims := jwt.MapClaims{
		"ws":  c.WorkspaceID,
		"res": c.Resource,
		"ca":  c.CreatedAtMicros,
		"id":  c.ID,
		"lim": c.Limit,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(tokenSecret))
}

// Decode verifies and unpacks a token. The caller's workspace and the
// resource being listed must match what the token was minted for;
// mismatches are indistinguishable from tampering.
func Decode(tokenString string, workspaceID uint, resource string) (Cursor, error) {
	if tokenSecret == "" {
		return Cursor{}, fmt.Errorf("page token secret is not initialized")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(tokenSecret), nil
	})
	if err != nil || !token.Valid {
		return Cursor{}, ErrInvalidCursor
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Cursor{}, ErrInvalidCursor
	}

	ws, ok := claimUint(claims, "ws")
	if !ok {
		return Cursor{}, ErrInvalidCursor
	}
	res, ok := claims["res"].(string)
	if !ok {
		return Cursor{}, ErrInvalidCursor
	}
	ca, ok := claimInt64(claims, "ca")
	if !ok {
		return Cursor{}, ErrInvalidCursor
	}
	id, ok := claimUint(claims, "id")
	if !ok {
		return Cursor{}, ErrInvalidCursor
	}
	lim, ok := claimInt64(claims, "lim")
	if !ok {
		return Cursor{}, ErrInvalidCursor
	}

	if ws != workspaceID || res != resource {
		return Cursor{}, ErrInvalidCursor
	}

	return Cursor{
		WorkspaceID:     ws,
		Resource:        res,
		CreatedAtMicros: ca,
		ID:              id,
		Limit:           int(lim),
	}, nil
}

func claimUint(claims jwt.MapClaims, key string) (uint, bool) {
	f, ok := claims[key].(float64)
	if !ok || f < 0 {
		return 0, false
	}
	return uint(f), true
}

func claimInt64(claims jwt.MapClaims, key string) (int64, bool) {
	f, ok := claims[key].(float64)
	if !ok {
		return 0, false
	}
	return int64(f), true
}
