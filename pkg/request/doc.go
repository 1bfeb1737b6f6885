// Package request describes single logical Graph API calls and normalizes
// them into wire-ready batch entries.
//
// A Descriptor captures what the caller asked for (method, path, parameters,
// credential). Build turns a Descriptor into a Wire entry: the final
// relative URL with a deterministic, sorted query string plus a tagged
// request body. Two descriptors that normalize to the same Wire entry are
// the same logical request, which is what the batch queue's deduplication
// relies on.
//
// # Normalization rules
//
//   - TOKEN_INTROSPECT becomes a GET against the fixed introspection path,
//     with the credential passed as the input_token query parameter.
//   - Otherwise a present token becomes the access_token query parameter.
//   - Non-POST parameters are merged into the query string; the query is
//     always serialized sorted by key.
//   - POST parameters are partitioned into a URL-encoded form body and
//     binary file parts.
//   - Global overrides (migrations_override, the path-rewrite hook) are
//     applied last so they can override anything.
package request
