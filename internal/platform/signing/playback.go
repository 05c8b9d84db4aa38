// Package signing issues HMAC-signed playback URLs for streaming links so
// the raw provider URL, the viewer and the expiry cannot be tampered with.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Signer struct {
	Secret []byte
}

type Signed struct {
	URL     string
	Exp     int64
	UID     string
	Sig     string
	Headers map[string]string
}

func New(secret string) *Signer {
	return &Signer{Secret: []byte(secret)}
}

func (s *Signer) Sign(rawURL, userID string, exp time.Time) Signed {
	sig := s.signValue(rawURL, userID, exp.Unix())
	return Signed{URL: rawURL, Exp: exp.Unix(), UID: userID, Sig: sig}
}

// SignWithHeaders signs like Sign and additionally carries provider headers
// the player must send when fetching the stream. Headers are not part of the
// signature; they are a transport hint, not a credential.
func (s *Signer) SignWithHeaders(rawURL, userID string, exp time.Time, headers map[string]string) Signed {
	signed := s.Sign(rawURL, userID, exp)
	signed.Headers = headers
	return signed
}

func (s *Signer) Verify(rawURL, userID string, exp int64, sig string) bool {
	if time.Now().Unix() > exp {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(s.signValue(rawURL, userID, exp)))
}

func (s *Signer) signValue(rawURL, userID string, exp int64) string {
	mac := hmac.New(sha256.New, s.Secret)
	mac.Write([]byte(rawURL))
	mac.Write([]byte("|"))
	mac.Write([]byte(userID))
	mac.Write([]byte("|"))
	mac.Write([]byte(strconv.FormatInt(exp, 10)))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func BuildSignedURL(base string, signed Signed) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("url", signed.URL)
	q.Set("exp", strconv.FormatInt(signed.Exp, 10))
	q.Set("uid", signed.UID)
	q.Set("sig", signed.Sig)
	if len(signed.Headers) > 0 {
		b, err := json.Marshal(signed.Headers)
		if err != nil {
			return "", err
		}
		q.Set("hdr", base64.RawURLEncoding.EncodeToString(b))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func ExtractSigned(query url.Values) (string, string, int64, string, error) {
	rawURL := strings.TrimSpace(query.Get("url"))
	uid := strings.TrimSpace(query.Get("uid"))
	expStr := strings.TrimSpace(query.Get("exp"))
	sig := strings.TrimSpace(query.Get("sig"))
	if rawURL == "" || uid == "" || expStr == "" || sig == "" {
		return "", "", 0, "", fmt.Errorf("missing signed params")
	}
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return "", "", 0, "", err
	}
	return rawURL, uid, exp, sig, nil
}

// ExtractHeaders decodes the optional hdr param. Returns nil when absent or
// malformed; playback simply proceeds without extra headers.
func ExtractHeaders(query url.Values) map[string]string {
	raw := strings.TrimSpace(query.Get("hdr"))
	if raw == "" {
		return nil
	}
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var hdrs map[string]string
	if err := json.Unmarshal(b, &hdrs); err != nil {
		return nil
	}
	return hdrs
}
