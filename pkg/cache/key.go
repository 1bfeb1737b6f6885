package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/Sternrassler/graph-batch-client/pkg/request"
)

// Key identifies a cached sub-response. Two sub-requests share an
// entry only when they target the same relative URL under the same
// token scope: identical paths queried with different tokens can
// return different data and must never alias.
type Key struct {
	// Scope is the access token the batch is sent under ("" for public).
	Scope string

	// Method is the sub-request method (only GET results are cached).
	Method string

	// RelativeURL is the normalized relative URL of the sub-request.
	RelativeURL string
}

// NewKey builds the cache key for one wire entry sent under scope.
// Credential parameters embedded in the relative URL are digested the
// same way the scope is, so per-call tokens never reach the keyspace
// either.
func NewKey(scope string, w request.Wire) Key {
	return Key{
		Scope:       scope,
		Method:      string(w.Method),
		RelativeURL: redactCredentials(w.RelativeURL),
	}
}

// String generates a deterministic Redis key. The scope is digested so
// tokens never appear verbatim in the keyspace.
//
// Format: graph:<scope-digest>:<method>:<relative-url>
func (k Key) String() string {
	return strings.Join([]string{"graph", scopeDigest(k.Scope), k.Method, k.RelativeURL}, ":")
}

// scopeDigest maps a token scope to a short stable identifier.
func scopeDigest(scope string) string {
	if scope == "" {
		return "public"
	}
	sum := sha256.Sum256([]byte(scope))
	return hex.EncodeToString(sum[:6])
}

// redactCredentials replaces token-bearing query parameters with their
// digests. URL encoding stays canonical because url.Values.Encode sorts
// keys, the same normalization the wire builder applies.
func redactCredentials(rel string) string {
	path, rawQuery, found := strings.Cut(rel, "?")
	if !found {
		return rel
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rel
	}
	changed := false
	for _, param := range []string{"access_token", "input_token"} {
		if v := query.Get(param); v != "" {
			query.Set(param, scopeDigest(v))
			changed = true
		}
	}
	if !changed {
		return rel
	}
	return path + "?" + query.Encode()
}
