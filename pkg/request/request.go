package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Method identifies the logical request method.
type Method string

const (
	// MethodGet is a plain HTTP GET.
	MethodGet Method = "GET"

	// MethodPost is an HTTP POST carrying form fields and optional files.
	MethodPost Method = "POST"

	// MethodPut is an HTTP PUT.
	MethodPut Method = "PUT"

	// MethodDelete is an HTTP DELETE.
	MethodDelete Method = "DELETE"

	// MethodTokenIntrospect asks the provider to describe a credential.
	// It is normalized to a GET against IntrospectionPath with the
	// credential passed as input_token instead of access_token.
	MethodTokenIntrospect Method = "TOKEN_INTROSPECT"
)

// IntrospectionPath is the fixed endpoint for credential introspection.
const IntrospectionPath = "debug_token"

// Params holds per-call parameters. Values may be strings, bools, integer
// and float kinds, json.Number, fmt.Stringer implementations, or FilePart
// (POST only).
type Params map[string]any

// Descriptor is an immutable description of one logical call. Descriptors
// compare by their normalized wire form, not field by field; see Build.
type Descriptor struct {
	Method Method
	Path   string // relative resource path, may embed a query string
	Params Params
	Token  string // opaque credential, empty means absent
}

// FilePart is a binary attachment for a POST request. The form field name
// is taken from the Params key the part was stored under.
type FilePart struct {
	Field       string
	Name        string
	ContentType string
	Content     []byte
}

// File builds a FilePart for use as a Params value.
func File(name, contentType string, content []byte) FilePart {
	return FilePart{Name: name, ContentType: contentType, Content: content}
}

// Equal reports whether two file parts carry the same field, name, content
// type and content bytes.
func (f FilePart) Equal(o FilePart) bool {
	return f.Field == o.Field &&
		f.Name == o.Name &&
		f.ContentType == o.ContentType &&
		bytes.Equal(f.Content, o.Content)
}

// paramString renders a parameter value for the query string or form body.
func paramString(key string, v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case json.Number:
		return t.String(), nil
	case fmt.Stringer:
		return t.String(), nil
	default:
		return "", fmt.Errorf("parameter %q has unsupported type %T", key, v)
	}
}
