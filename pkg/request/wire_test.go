package request

import (
	"strings"
	"testing"
)

func TestBuildSortsQueryParams(t *testing.T) {
	wire, err := Build(Descriptor{
		Method: MethodGet,
		Path:   "me/friends",
		Params: Params{"zeta": "1", "alpha": "2", "limit": 25},
		Token:  "tok-123",
	}, BuildOptions{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := "me/friends?access_token=tok-123&alpha=2&limit=25&zeta=1"
	if wire.RelativeURL != want {
		t.Errorf("RelativeURL = %q, want %q", wire.RelativeURL, want)
	}
	if wire.Method != MethodGet {
		t.Errorf("Method = %q, want GET", wire.Method)
	}
	if _, ok := wire.Body.(NoBody); !ok {
		t.Errorf("Body = %T, want NoBody", wire.Body)
	}
}

func TestBuildTrimsLeadingSlash(t *testing.T) {
	wire, err := Build(Descriptor{Method: MethodGet, Path: "/me"}, BuildOptions{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if wire.RelativeURL != "me" {
		t.Errorf("RelativeURL = %q, want %q", wire.RelativeURL, "me")
	}
}

func TestBuildTokenIntrospection(t *testing.T) {
	t.Run("replaces path and passes input_token", func(t *testing.T) {
		wire, err := Build(Descriptor{
			Method: MethodTokenIntrospect,
			Path:   "v2.12/ignored",
			Token:  "tok-xyz",
		}, BuildOptions{})
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if wire.Method != MethodGet {
			t.Errorf("Method = %q, want GET", wire.Method)
		}
		want := "debug_token?input_token=tok-xyz"
		if wire.RelativeURL != want {
			t.Errorf("RelativeURL = %q, want %q", wire.RelativeURL, want)
		}
		if strings.Contains(wire.RelativeURL, "access_token") {
			t.Error("introspection must not carry access_token")
		}
	})

	t.Run("per-call params override input_token", func(t *testing.T) {
		wire, err := Build(Descriptor{
			Method: MethodTokenIntrospect,
			Token:  "own-token",
			Params: Params{"input_token": "other-token"},
		}, BuildOptions{})
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		want := "debug_token?input_token=other-token"
		if wire.RelativeURL != want {
			t.Errorf("RelativeURL = %q, want %q", wire.RelativeURL, want)
		}
	})

	t.Run("requires a token", func(t *testing.T) {
		_, err := Build(Descriptor{Method: MethodTokenIntrospect}, BuildOptions{})
		if err == nil {
			t.Fatal("Build() error = nil, want error")
		}
	})
}

func TestBuildPostBodies(t *testing.T) {
	tests := []struct {
		name      string
		params    Params
		wantBody  string
		wantFiles int
	}{
		{
			name:     "form fields only",
			params:   Params{"message": "hi there", "published": false},
			wantBody: "message=hi+there&published=false",
		},
		{
			name: "files only",
			params: Params{
				"source": File("pic.jpg", "image/jpeg", []byte{0xff, 0xd8}),
			},
			wantFiles: 1,
		},
		{
			name: "mixed fields and files",
			params: Params{
				"caption": "sunset",
				"source":  File("pic.jpg", "image/jpeg", []byte{0xff, 0xd8}),
			},
			wantBody:  "caption=sunset",
			wantFiles: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire, err := Build(Descriptor{
				Method: MethodPost,
				Path:   "me/feed",
				Params: tt.params,
			}, BuildOptions{})
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}

			switch body := wire.Body.(type) {
			case FormBody:
				if tt.wantFiles != 0 {
					t.Fatalf("Body = FormBody, want MultipartBody")
				}
				if body.Encoded != tt.wantBody {
					t.Errorf("Encoded = %q, want %q", body.Encoded, tt.wantBody)
				}
			case MultipartBody:
				if tt.wantFiles == 0 {
					t.Fatalf("Body = MultipartBody, want FormBody")
				}
				if body.Encoded != tt.wantBody {
					t.Errorf("Encoded = %q, want %q", body.Encoded, tt.wantBody)
				}
				if len(body.Files) != tt.wantFiles {
					t.Errorf("len(Files) = %d, want %d", len(body.Files), tt.wantFiles)
				}
				if len(body.Files) > 0 && body.Files[0].Field != "source" {
					t.Errorf("Files[0].Field = %q, want %q", body.Files[0].Field, "source")
				}
			default:
				t.Fatalf("Body = %T, want FormBody or MultipartBody", wire.Body)
			}
		})
	}
}

func TestBuildEmptyPostHasNoBody(t *testing.T) {
	wire, err := Build(Descriptor{Method: MethodPost, Path: "me/feed"}, BuildOptions{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if _, ok := wire.Body.(NoBody); !ok {
		t.Errorf("Body = %T, want NoBody", wire.Body)
	}
}

func TestBuildRejectsFileOnGet(t *testing.T) {
	_, err := Build(Descriptor{
		Method: MethodGet,
		Path:   "me",
		Params: Params{"source": File("pic.jpg", "image/jpeg", nil)},
	}, BuildOptions{})
	if err == nil {
		t.Fatal("Build() error = nil, want error")
	}
}

func TestBuildRejectsUnsupportedParamType(t *testing.T) {
	_, err := Build(Descriptor{
		Method: MethodGet,
		Path:   "me",
		Params: Params{"fields": []string{"id", "name"}},
	}, BuildOptions{})
	if err == nil {
		t.Fatal("Build() error = nil, want error")
	}
}

func TestBuildGlobalOverridesApplyLast(t *testing.T) {
	opts := BuildOptions{
		Migrations: map[string]bool{"strict_mode": true},
		RewritePath: func(rel string) string {
			return "rewritten/" + rel
		},
	}

	wire, err := Build(Descriptor{Method: MethodGet, Path: "me", Token: "tok"}, opts)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if !strings.HasPrefix(wire.RelativeURL, "rewritten/me?") {
		t.Errorf("RelativeURL = %q, want rewritten/me?... (hook applied last)", wire.RelativeURL)
	}
	if !strings.Contains(wire.RelativeURL, "migrations_override=") {
		t.Errorf("RelativeURL = %q, want migrations_override parameter", wire.RelativeURL)
	}
}

func TestBuildKeepsEmbeddedQuery(t *testing.T) {
	// Pagination links arrive with the query string already attached.
	wire, err := Build(Descriptor{
		Method: MethodGet,
		Path:   "me/friends?after=abc&limit=2",
	}, BuildOptions{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	want := "me/friends?after=abc&limit=2"
	if wire.RelativeURL != want {
		t.Errorf("RelativeURL = %q, want %q", wire.RelativeURL, want)
	}
}

func TestWireEqual(t *testing.T) {
	base := Descriptor{
		Method: MethodGet,
		Path:   "me",
		Params: Params{"fields": "id,name"},
		Token:  "tok",
	}

	tests := []struct {
		name  string
		a, b  Descriptor
		equal bool
	}{
		{
			name:  "identical descriptors",
			a:     base,
			b:     base,
			equal: true,
		},
		{
			name:  "param order is irrelevant",
			a:     Descriptor{Method: MethodGet, Path: "me", Params: Params{"a": "1", "b": "2"}},
			b:     Descriptor{Method: MethodGet, Path: "me", Params: Params{"b": "2", "a": "1"}},
			equal: true,
		},
		{
			name:  "different tokens differ",
			a:     base,
			b:     Descriptor{Method: MethodGet, Path: "me", Params: Params{"fields": "id,name"}, Token: "other"},
			equal: false,
		},
		{
			name:  "different methods differ",
			a:     Descriptor{Method: MethodGet, Path: "me"},
			b:     Descriptor{Method: MethodDelete, Path: "me"},
			equal: false,
		},
		{
			name: "file content differs",
			a: Descriptor{Method: MethodPost, Path: "photos", Params: Params{
				"source": File("a.jpg", "image/jpeg", []byte{1, 2}),
			}},
			b: Descriptor{Method: MethodPost, Path: "photos", Params: Params{
				"source": File("a.jpg", "image/jpeg", []byte{1, 3}),
			}},
			equal: false,
		},
		{
			name: "same file content equal",
			a: Descriptor{Method: MethodPost, Path: "photos", Params: Params{
				"source": File("a.jpg", "image/jpeg", []byte{1, 2}),
			}},
			b: Descriptor{Method: MethodPost, Path: "photos", Params: Params{
				"source": File("a.jpg", "image/jpeg", []byte{1, 2}),
			}},
			equal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wa, err := Build(tt.a, BuildOptions{})
			if err != nil {
				t.Fatalf("Build(a) error = %v", err)
			}
			wb, err := Build(tt.b, BuildOptions{})
			if err != nil {
				t.Fatalf("Build(b) error = %v", err)
			}
			if got := wa.Equal(wb); got != tt.equal {
				t.Errorf("Equal() = %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestWireEqualIgnoresHeaders(t *testing.T) {
	a := Wire{Method: MethodGet, RelativeURL: "me", Body: NoBody{}}
	b := Wire{Method: MethodGet, RelativeURL: "me", Body: NoBody{},
		Headers: []Header{{Name: "If-None-Match", Value: `"abc"`}}}
	if !a.Equal(b) {
		t.Error("Equal() = false, want true (headers are transport decoration)")
	}
}
