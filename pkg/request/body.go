package request

// Body is the normalized request body of a wire entry. It is a closed set:
// NoBody, FormBody or MultipartBody.
type Body interface {
	isBody()
}

// NoBody marks an entry without a request body.
type NoBody struct{}

func (NoBody) isBody() {}

// FormBody is a URL-encoded form payload, serialized with keys sorted.
type FormBody struct {
	Encoded string
}

func (FormBody) isBody() {}

// MultipartBody carries URL-encoded form fields plus binary file parts.
// Files are ordered by field name. Encoded may be empty when the request
// consists of files only.
type MultipartBody struct {
	Encoded string
	Files   []FilePart
}

func (MultipartBody) isBody() {}

// bodyEqual compares two normalized bodies, including file content.
func bodyEqual(a, b Body) bool {
	switch at := a.(type) {
	case NoBody:
		_, ok := b.(NoBody)
		return ok
	case FormBody:
		bt, ok := b.(FormBody)
		return ok && at.Encoded == bt.Encoded
	case MultipartBody:
		bt, ok := b.(MultipartBody)
		if !ok || at.Encoded != bt.Encoded || len(at.Files) != len(bt.Files) {
			return false
		}
		for i := range at.Files {
			if !at.Files[i].Equal(bt.Files[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
