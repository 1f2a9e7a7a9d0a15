package utils // package utils provides signing, verification and hashing primitives for tokens

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the payload shared by access and refresh tokens.  The subject
// carries the numeric user id as a decimal string.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject back into the numeric id.
func (c Claims) UserID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

var (
	// ErrSignature covers malformed tokens, wrong algorithms and bad MACs.
	ErrSignature = errors.New("token signature invalid")
	// ErrExpired is returned by ValidateClaims once exp has passed.
	ErrExpired = errors.New("token expired")
)

// SignToken builds and signs an HS256 JWT for a user.  Every token gets a
// random jti so two tokens minted in the same second for the same user are
// still distinct strings (the refresh store indexes on their hash).
func SignToken(secret []byte, userID uint64, email, role string, ttl time.Duration, now time.Time) (string, *Claims, error) {
	claims := &Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// VerifySignature checks structure, algorithm and MAC only.  Time-based
// claims are deliberately not looked at; callers must pass the result
// through ValidateClaims before trusting it.
func VerifySignature(secret []byte, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, ErrSignature
	}
	return claims, nil
}

// ValidateClaims applies expiry and issued-at rules at now.
func ValidateClaims(c *Claims, now time.Time) error {
	v := jwt.NewValidator(
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err := v.Validate(c); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpired
		}
		return ErrSignature
	}
	if _, err := c.UserID(); err != nil {
		return ErrSignature
	}
	return nil
}

// HashToken returns the SHA-256 hash of the raw refresh token as a hex
// string.  Only the hash is stored, so a leaked table cannot be replayed.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
