// Package signature authenticates requests sent to the filing authority with
// an HMAC-SHA256 over the request body, keyed by the certificate's signing key.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Request headers carrying the signature material.
const (
	HeaderSignature   = "X-Filer-Signature"
	HeaderTimestamp   = "X-Filer-Timestamp"
	HeaderSubject     = "X-Filer-Subject"
	HeaderCertificate = "X-Filer-Certificate"
)

var (
	// ErrMissingSignature is returned when a request carries no signature headers.
	ErrMissingSignature = errors.New("filer: missing request signature")

	// ErrInvalidSignature is returned when a signature does not match the body.
	ErrInvalidSignature = errors.New("filer: invalid request signature")

	// ErrStaleTimestamp is returned when the signed timestamp is outside the tolerance.
	ErrStaleTimestamp = errors.New("filer: stale request timestamp")
)

// Sign generates the HMAC-SHA256 signature for body.
// The content to sign is "{timestamp}.{subject}.{body}".
// Returns a versioned signature in the format "v1=<hex>".
func Sign(body []byte, subject, key string, timestamp int64) string {
	content := fmt.Sprintf("%d.%s.%s", timestamp, subject, body)
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(content))
	return "v1=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks sig against the expected signature in constant time.
func Verify(body []byte, subject, key string, timestamp int64, sig string) bool {
	expected := Sign(body, subject, key, timestamp)
	return hmac.Equal([]byte(expected), []byte(sig))
}

// Credentials identifies the signer of a request.
type Credentials struct {
	Subject      string
	SerialNumber string
	Key          string
}

// SignRequest sets the signature headers on req for body.
func SignRequest(req *http.Request, body []byte, c Credentials, now time.Time) {
	ts := now.Unix()
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderSubject, c.Subject)
	if c.SerialNumber != "" {
		req.Header.Set(HeaderCertificate, c.SerialNumber)
	}
	req.Header.Set(HeaderSignature, Sign(body, c.Subject, c.Key, ts))
}

// VerifyRequest checks the signature headers of r against body. A zero
// tolerance disables the timestamp window check.
func VerifyRequest(r *http.Request, body []byte, key string, now time.Time, tolerance time.Duration) error {
	sig := r.Header.Get(HeaderSignature)
	rawTS := r.Header.Get(HeaderTimestamp)
	if sig == "" || rawTS == "" {
		return ErrMissingSignature
	}

	ts, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed timestamp", ErrInvalidSignature)
	}
	if tolerance > 0 {
		skew := now.Sub(time.Unix(ts, 0))
		if skew < 0 {
			skew = -skew
		}
		if skew > tolerance {
			return ErrStaleTimestamp
		}
	}

	if !Verify(body, r.Header.Get(HeaderSubject), key, ts, sig) {
		return ErrInvalidSignature
	}
	return nil
}
