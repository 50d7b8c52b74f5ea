package nav

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

const (
	timestampLayout       = "2006-01-02T15:04:05Z"
	maskedTimestampLayout = "20060102150405"
)

var reTimestamp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`)

// FormatError reports a timestamp that is not in YYYY-MM-DDTHH:MM:SSZ form.
type FormatError struct {
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("timestamp %q does not match YYYY-MM-DDTHH:MM:SSZ", e.Value)
}

// FormatTimestamp renders t in UTC at second precision with a Z suffix.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(timestampLayout)
}

// PasswordHash is the uppercase hex SHA-512 digest of the password.
func PasswordHash(password string) string {
	sum := sha512.Sum512([]byte(password))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// MaskedTimestamp turns 2024-01-08T00:00:00Z into 20240108000000.
func MaskedTimestamp(timestamp string) (string, error) {
	if !reTimestamp.MatchString(timestamp) {
		return "", &FormatError{Value: timestamp}
	}

	t, err := time.Parse(timestampLayout, timestamp)
	if err != nil {
		return "", &FormatError{Value: timestamp}
	}

	return t.Format(maskedTimestampLayout), nil
}

// RequestSignature is the uppercase hex SHA3-512 digest of
// requestID + masked timestamp + signature key.
func RequestSignature(requestID, timestamp, signatureKey string) (string, error) {
	masked, err := MaskedTimestamp(timestamp)
	if err != nil {
		return "", err
	}

	sum := sha3.Sum512([]byte(requestID + masked + signatureKey))
	return strings.ToUpper(hex.EncodeToString(sum[:])), nil
}
