package request

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Header is a per-entry header attached to a wire entry, for example
// If-None-Match on conditional sub-requests. Headers are transport
// decoration and take no part in request identity.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Wire is the normalized, wire-ready form of one logical request: the
// entry that ends up in the provider's batch array.
type Wire struct {
	Method      Method
	RelativeURL string
	Body        Body
	Headers     []Header
}

// Equal reports whether two wire entries describe the same logical
// request. Headers are ignored.
func (w Wire) Equal(o Wire) bool {
	return w.Method == o.Method &&
		w.RelativeURL == o.RelativeURL &&
		bodyEqual(w.Body, o.Body)
}

// BuildOptions carries the session-wide overrides applied during
// normalization, after all per-call logic.
type BuildOptions struct {
	// Migrations is serialized to JSON and attached as the
	// migrations_override query parameter when non-empty.
	Migrations map[string]bool

	// RewritePath, when set, receives the assembled relative URL as the
	// final normalization step and returns the URL to send.
	RewritePath func(string) string
}

// Build normalizes a Descriptor into its wire entry.
func Build(d Descriptor, opts BuildOptions) (Wire, error) {
	method := d.Method
	path, query, err := splitPath(d.Path)
	if err != nil {
		return Wire{}, err
	}

	if method == MethodTokenIntrospect {
		// The credential travels as input_token on the fixed
		// introspection path; the descriptor path is discarded and the
		// usual access_token parameter is not attached.
		if d.Token == "" {
			return Wire{}, fmt.Errorf("token introspection requires a token")
		}
		method = MethodGet
		path = IntrospectionPath
		query = url.Values{}
		query.Set("input_token", d.Token)
	} else if d.Token != "" {
		query.Set("access_token", d.Token)
	}

	var body Body = NoBody{}
	if method == MethodPost {
		body, err = buildPostBody(d.Params)
		if err != nil {
			return Wire{}, err
		}
	} else {
		for _, key := range sortedKeys(d.Params) {
			if _, ok := d.Params[key].(FilePart); ok {
				return Wire{}, fmt.Errorf("file parameter %q requires POST", key)
			}
			val, err := paramString(key, d.Params[key])
			if err != nil {
				return Wire{}, err
			}
			query.Set(key, val)
		}
	}

	if len(opts.Migrations) > 0 {
		raw, err := json.Marshal(opts.Migrations)
		if err != nil {
			return Wire{}, fmt.Errorf("encode migrations: %w", err)
		}
		query.Set("migrations_override", string(raw))
	}

	relative := path
	if len(query) > 0 {
		relative += "?" + query.Encode()
	}
	if opts.RewritePath != nil {
		relative = opts.RewritePath(relative)
	}

	return Wire{Method: method, RelativeURL: relative, Body: body}, nil
}

// buildPostBody partitions POST parameters into URL-encoded form fields
// and file parts.
func buildPostBody(params Params) (Body, error) {
	fields := url.Values{}
	var files []FilePart

	for _, key := range sortedKeys(params) {
		if f, ok := params[key].(FilePart); ok {
			f.Field = key
			files = append(files, f)
			continue
		}
		val, err := paramString(key, params[key])
		if err != nil {
			return nil, err
		}
		fields.Set(key, val)
	}

	encoded := fields.Encode()
	switch {
	case len(files) > 0:
		return MultipartBody{Encoded: encoded, Files: files}, nil
	case encoded != "":
		return FormBody{Encoded: encoded}, nil
	default:
		return NoBody{}, nil
	}
}

// splitPath separates an embedded query string from the path. Pagination
// links arrive with the query already attached; those parameters keep the
// lowest precedence so later normalization steps can override them.
func splitPath(p string) (string, url.Values, error) {
	p = strings.TrimLeft(p, "/")
	path, rawQuery, found := strings.Cut(p, "?")
	if !found {
		return path, url.Values{}, nil
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", nil, fmt.Errorf("parse query of %q: %w", p, err)
	}
	return path, query, nil
}

func sortedKeys(params Params) []string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
