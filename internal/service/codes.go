package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/famlink/assist-server-go/internal/config"
	"github.com/famlink/assist-server-go/internal/database"
	apperrors "github.com/famlink/assist-server-go/internal/errors"
)

const (
	// Excludes easily confused glyphs (O/0, I/1, l).
	inviteCodeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	inviteCodePrefix = "FL"

	supportCodeChars = "abcdefghijklmnopqrstuvwxyz0123456789"

	// The standard base58 alphabet: drops 0, O, I and l.
	cameraTokenChars  = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ123456789"
	CameraTokenLength = 32
)

// GenerateSessionCode returns a uniform random 6-digit numeric string in
// [100000, 999999]. Uniqueness among open sessions is the store's job, not
// the generator's.
func GenerateSessionCode() string {
	n, _ := rand.Int(rand.Reader, big.NewInt(900000))
	return fmt.Sprintf("%06d", n.Int64()+100000)
}

// GenerateInviteCode returns a code like FL-XK7M2Q drawn from an
// unambiguous alphabet.
func GenerateInviteCode() string {
	return inviteCodePrefix + "-" + randomFrom(inviteCodeChars, 6)
}

// GenerateSupportCode returns a 6-character upper-cased alphanumeric code.
func GenerateSupportCode() string {
	return strings.ToUpper(randomFrom(supportCodeChars, 6))
}

// GenerateCameraToken returns an opaque capability string.
func GenerateCameraToken(length int) string {
	if length <= 0 {
		length = CameraTokenLength
	}
	return randomFrom(cameraTokenChars, length)
}

func randomFrom(alphabet string, length int) string {
	chars := []byte(alphabet)
	out := make([]byte, length)
	for i := range out {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		out[i] = chars[n.Int64()]
	}
	return string(out)
}

// HashToken returns the hex HMAC-SHA256 of a token under the deployment
// secret, the form stored in the auth_sessions table. Keying the hash means
// a leaked table dump cannot be checked against candidate tokens offline.
func HashToken(secret, token string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// insertWithUniqueRetry runs the generate-then-insert loop: generate a code,
// attempt the insert, and on a unique-constraint collision regenerate and try
// again up to maxAttempts times. Any other error aborts immediately. A
// retry budget of zero or less falls back to the configured default.
func insertWithUniqueRetry[T any](
	ctx context.Context,
	maxAttempts int,
	generate func() string,
	insert func(ctx context.Context, code string) (*T, error),
) (*T, error) {
	if maxAttempts <= 0 {
		maxAttempts = config.CodeRetryAttempts
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		code := generate()
		result, err := insert(ctx, code)
		if err == nil {
			return result, nil
		}
		if !database.IsUniqueViolation(err) {
			return nil, err
		}
	}

	return nil, apperrors.CodeExhausted()
}
