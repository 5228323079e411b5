package rights

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"

	"voxguard/pkg/domain"
	dErrors "voxguard/pkg/domain-errors"
)

const handleIssuer = "voxguard-rights"

// handleClaims identifies one export bundle. The registered ID is the
// single-use jti.
type handleClaims struct {
	RequestID string `json:"rid"`
	jwt.RegisteredClaims
}

// handles mints and verifies download handles for export bundles.
type handles struct {
	signingKey []byte
	ttl        time.Duration
}

func (h handles) issue(requestID domain.RequestID, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(h.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, handleClaims{
		RequestID: requestID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    handleIssuer,
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(h.signingKey)
	if err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign download handle")
	}
	return signed, expiresAt, nil
}

func (h handles) verify(raw string, now time.Time) (*handleClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &handleClaims{}, func(token *jwt.Token) (any, error) {
		return h.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(handleIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeExpired, "download handle has expired")
		}
		return nil, dErrors.New(dErrors.CodeForbidden, "invalid download handle")
	}
	claims, ok := parsed.Claims.(*handleClaims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, dErrors.New(dErrors.CodeForbidden, "invalid download handle")
	}
	return claims, nil
}

// sealer encrypts export bundles at rest with XChaCha20-Poly1305. The
// request id is bound as additional data so a bundle cannot be replayed
// under another request.
type sealer struct {
	key []byte
}

func newSealer(key []byte) (sealer, error) {
	if len(key) != chacha20poly1305.KeySize {
		return sealer{}, dErrors.New(dErrors.CodeValidation, "export sealing key must be 32 bytes")
	}
	return sealer{key: key}, nil
}

func (s sealer) seal(plaintext []byte, id domain.RequestID, nonce []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, []byte(id.String())), nil
}

func (s sealer) open(sealed []byte, id domain.RequestID) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("sealed bundle too short")
	}
	nonce, ct := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, ct, []byte(id.String()))
}
