// Package auth builds the signed identity headers attached to every request.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// EmptyBodyHash is sha256(""), the body hash used when a request carries no
// body.
const EmptyBodyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// BodyHash returns the hex SHA-256 of the raw request body. A nil or empty
// body hashes to EmptyBodyHash.
func BodyHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// CanonicalMessage deterministically serializes a request into the signing
// payload: UPPER(method)|path|hex(sha256(body))|timestampMillis.
//
// The path is truncated at the first '?': the server canonicalizes on the
// path alone, and signing the query string invalidates verification.
func CanonicalMessage(method, path string, body []byte, timestampMillis int64) string {
	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}
	return fmt.Sprintf("%s|%s|%s|%d", strings.ToUpper(method), path, BodyHash(body), timestampMillis)
}
