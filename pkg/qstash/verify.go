package qstash

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidSignature = errors.New("invalid qstash signature")

const issuer = "Upstash"

type signatureClaims struct {
	Body string `json:"body"`
	jwt.RegisteredClaims
}

// Verifier checks Upstash-Signature JWTs against the current signing key
// and, during key rotation, the next one.
type Verifier struct {
	keys   []string
	leeway time.Duration
}

func NewVerifier(currentKey, nextKey string) *Verifier {
	v := &Verifier{leeway: 5 * time.Second}
	for _, k := range []string{currentKey, nextKey} {
		if k = strings.TrimSpace(k); k != "" {
			v.keys = append(v.keys, k)
		}
	}
	return v
}

// Verify validates signature for body delivered to destinationURL. An empty
// destinationURL skips the subject check.
func (v *Verifier) Verify(signature string, body []byte, destinationURL string) error {
	if v == nil || len(v.keys) == 0 {
		return fmt.Errorf("%w: no signing keys configured", ErrInvalidSignature)
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return fmt.Errorf("%w: missing %s header", ErrInvalidSignature, SignatureHeader)
	}

	var lastErr error
	for _, key := range v.keys {
		err := v.verifyWithKey(signature, body, destinationURL, key)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", ErrInvalidSignature, lastErr)
}

func (v *Verifier) verifyWithKey(signature string, body []byte, destinationURL, key string) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if destinationURL != "" {
		opts = append(opts, jwt.WithSubject(destinationURL))
	}

	claims := &signatureClaims{}
	_, err := jwt.ParseWithClaims(signature, claims, func(*jwt.Token) (any, error) {
		return []byte(key), nil
	}, opts...)
	if err != nil {
		return err
	}

	if trimPadding(claims.Body) != trimPadding(BodyHash(body)) {
		return errors.New("body hash mismatch")
	}
	return nil
}

// BodyHash is the base64url SHA-256 digest carried in the body claim.
func BodyHash(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.URLEncoding.EncodeToString(sum[:])
}

func trimPadding(s string) string {
	return strings.TrimRight(s, "=")
}
