// Package subsonicapi implements the REST contract boundary of the
// Subsonic-compatible server: authentication parameter signing, request
// key canonicalisation, the per-endpoint TTL policy, and the typed
// responses ApiCache, PreloadCache, and PlaybackController fetch through.
package subsonicapi

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"net/url"
)

const protocolVersion = "1.16.1"

// Credentials identifies the account used to sign every request.
type Credentials struct {
	Username string
	Password string
	ClientID string // client name sent as the "c" parameter
}

// saltFunc generates the per-request salt; overridable in tests for
// deterministic signatures.
type saltFunc func() (string, error)

func randomSalt() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// SignParams returns the mandatory authentication query parameters for a
// Subsonic request: u, s, t (md5(password||salt)), v, c, f=xml.
func SignParams(creds Credentials) (url.Values, error) {
	return signParamsWithSalt(creds, randomSalt)
}

func signParamsWithSalt(creds Credentials, salt saltFunc) (url.Values, error) {
	s, err := salt()
	if err != nil {
		return nil, err
	}
	sum := md5.Sum([]byte(creds.Password + s))
	token := hex.EncodeToString(sum[:])

	v := url.Values{}
	v.Set("u", creds.Username)
	v.Set("s", s)
	v.Set("t", token)
	v.Set("v", protocolVersion)
	v.Set("c", creds.ClientID)
	v.Set("f", "xml")
	return v, nil
}
