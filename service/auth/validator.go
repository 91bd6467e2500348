package auth

import (
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Claims is the identity extracted from a verified credential. It lives
// for the duration of one handshake and is never persisted.
type Claims struct {
	UserID    int64
	IsAdmin   bool
	IsManager bool
	ExpiresAt time.Time
}

// Validator verifies HMAC-signed JWTs. Verification fails closed: any
// parse, signature or expiry problem yields an error, never a partial
// Claims value.
type Validator struct {
	secret []byte
}

func NewValidator(secret []byte) *Validator {
	return &Validator{secret: secret}
}

func (v *Validator) Validate(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty token")
	}

	parsed, err := jwtlib.Parse(raw, func(t *jwtlib.Token) (interface{}, error) {
		// HMAC family only; reject anything else before touching the key
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwtlib.WithExpirationRequired())
	if err != nil {
		return nil, errors.Wrap(err, "parse token")
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}

	mc, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("claims type mismatch")
	}

	userID, err := subjectID(mc)
	if err != nil {
		return nil, err
	}
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, errors.New("missing exp claim")
	}

	return &Claims{
		UserID:    userID,
		IsAdmin:   boolClaim(mc, "isAdmin"),
		IsManager: boolClaim(mc, "isManager"),
		ExpiresAt: exp.Time,
	}, nil
}

func subjectID(mc jwtlib.MapClaims) (int64, error) {
	switch sub := mc["sub"].(type) {
	case string:
		id, err := strconv.ParseInt(sub, 10, 64)
		if err != nil || id <= 0 {
			return 0, errors.Errorf("bad subject %q", sub)
		}
		return id, nil
	case float64:
		if sub <= 0 {
			return 0, errors.Errorf("bad subject %v", sub)
		}
		return int64(sub), nil
	default:
		return 0, errors.New("missing sub claim")
	}
}

func boolClaim(mc jwtlib.MapClaims, name string) bool {
	b, _ := mc[name].(bool)
	return b
}
