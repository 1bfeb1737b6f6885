package batch

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Sternrassler/graph-batch-client/pkg/request"
)

func TestResolveBodyNormalization(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantData any
	}{
		{
			name:     "envelope with data key kept as is",
			body:     `{"data": ["a", "b"], "paging": {"next": "x"}}`,
			wantData: []any{"a", "b"},
		},
		{
			name:     "envelope with error key kept as is",
			body:     `{"error": {"code": 1}}`,
			wantData: nil,
		},
		{
			name:     "plain mapping wrapped under data",
			body:     `{"name": "Leia", "id": "42"}`,
			wantData: map[string]any{"name": "Leia", "id": "42"},
		},
		{
			name:     "list wrapped under data",
			body:     `[1, 2]`,
			wantData: []any{float64(1), float64(2)},
		},
		{
			name:     "string wrapped under data",
			body:     `"ok"`,
			wantData: "ok",
		},
		{
			name:     "bool wrapped under data",
			body:     `true`,
			wantData: true,
		},
		{
			name:     "number wrapped under data",
			body:     `42`,
			wantData: float64(42),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := newTestQueue(t, nil)
			// Quiet keeps the error-envelope row from short-circuiting the
			// data accessor; normalization is identical either way.
			c := mustCall(t, q, getDesc("me"), Quiet())

			c.resolve(okResult(tt.body))

			if !c.Completed() {
				t.Fatal("call not completed after resolve")
			}
			data, err := c.Data(context.Background())
			if err != nil {
				t.Fatalf("Data() error = %v", err)
			}
			if !reflect.DeepEqual(data, tt.wantData) {
				t.Errorf("Data() = %#v, want %#v", data, tt.wantData)
			}
		})
	}
}

func TestResolveEnvelopeExtrasStayAccessible(t *testing.T) {
	q, _ := newTestQueue(t, nil)
	c := mustCall(t, q, getDesc("me"), NoAutoPage())

	c.resolve(okResult(`{"data": [1], "paging": {"next": "https://graph.test/me?after=1"}}`))

	resp, err := c.Response(context.Background())
	if err != nil {
		t.Fatalf("Response() error = %v", err)
	}
	if resp.Field("paging") == nil {
		t.Error("paging field lost during normalization")
	}
}

func TestResolveNilBodyKeepsStatus(t *testing.T) {
	q, _ := newTestQueue(t, nil)
	c := mustCall(t, q, getDesc("me"))

	c.resolve(&Result{Code: 302, Headers: []request.Header{{Name: "Location", Value: "https://example.test/"}}})

	if err := c.Err(context.Background()); err != nil {
		t.Fatalf("Err() = %v, want nil", err)
	}
	resp, err := c.Response(context.Background())
	if err != nil {
		t.Fatalf("Response() error = %v", err)
	}
	if resp.Code != 302 {
		t.Errorf("Code = %d, want 302", resp.Code)
	}
	if data := resp.Data(); data != nil {
		t.Errorf("Data() = %v, want nil", data)
	}
	if len(resp.Headers) != 1 {
		t.Errorf("Headers = %v, want the Location header", resp.Headers)
	}
}

func TestResolveInvalidBodyStoresDecodeError(t *testing.T) {
	q, _ := newTestQueue(t, nil)
	c := mustCall(t, q, getDesc("me"))

	c.resolve(okResult(`<html>not json</html>`))

	err := c.Err(context.Background())
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("Err() = %v, want decode error", err)
	}
	// The partial response survives next to the error.
	resp, respErr := c.Response(context.Background())
	if respErr != nil {
		t.Fatalf("Response() error = %v", respErr)
	}
	if resp == nil || resp.Code != 200 {
		t.Errorf("Response() = %+v, want code 200", resp)
	}
	if _, dataErr := c.Data(context.Background()); !errors.Is(dataErr, ErrDecode) {
		t.Errorf("Data() error = %v, want decode error", dataErr)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	q, _ := newTestQueue(t, nil)
	c := mustCall(t, q, getDesc("me"))

	c.resolve(okResult(`{"data": "first"}`))
	c.resolve(okResult(`{"data": "second"}`))

	data, err := c.Data(context.Background())
	if err != nil {
		t.Fatalf("Data() error = %v", err)
	}
	if data != "first" {
		t.Errorf("Data() = %v, want %q (later resolutions ignored)", data, "first")
	}
}

func TestHooksRunOncePerResolution(t *testing.T) {
	q, _ := newTestQueue(t, nil)
	var seen []*Call
	c := mustCall(t, q, getDesc("me"), WithHook(func(resolved *Call) {
		seen = append(seen, resolved)
	}))

	c.resolve(okResult(`{"data": 1}`))
	c.resolve(okResult(`{"data": 2}`))

	if len(seen) != 1 {
		t.Fatalf("hook ran %d times, want 1", len(seen))
	}
	if seen[0] != c {
		t.Error("hook received a different call handle")
	}
}

func TestErrorSurfacesAtFirstReadNotIssuance(t *testing.T) {
	q, _ := newTestQueue(t, func(entries []request.Wire) ([]*Result, error) {
		return []*Result{okResult(`{"error": {"message": "bad token", "type": "OAuthException", "code": 190}}`)}, nil
	})

	// Issuing and queueing the doomed request reports nothing.
	c := q.Append(mustCall(t, q, getDesc("me")), true)
	if c.Completed() {
		t.Fatal("call completed before any read")
	}

	_, err := c.Data(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Data() error = %v, want *APIError", err)
	}
	if apiErr.Code != 190 {
		t.Errorf("Code = %d, want 190", apiErr.Code)
	}
	if apiErr.Message != "bad token" {
		t.Errorf("Message = %q, want %q", apiErr.Message, "bad token")
	}
}

func TestQuietCallKeepsErrorOutOfAccessors(t *testing.T) {
	q, _ := newTestQueue(t, func(entries []request.Wire) ([]*Result, error) {
		return []*Result{okResult(`{"error": {"message": "gone", "type": "GraphMethodException", "code": 100}}`)}, nil
	})

	c := q.Append(mustCall(t, q, getDesc("gone"), Quiet()), true)

	data, err := c.Data(context.Background())
	if err != nil {
		t.Fatalf("Data() error = %v, want nil on quiet call", err)
	}
	if data != nil {
		t.Errorf("Data() = %v, want nil", data)
	}

	// Err reports the stored error regardless of quiet.
	var apiErr *APIError
	if err := c.Err(context.Background()); !errors.As(err, &apiErr) {
		t.Fatalf("Err() = %v, want *APIError", err)
	}

	// The raw envelope stays inspectable.
	envelope, err := c.ErrorField(context.Background())
	if err != nil {
		t.Fatalf("ErrorField() error = %v", err)
	}
	m, ok := envelope.(map[string]any)
	if !ok || m["message"] != "gone" {
		t.Errorf("ErrorField() = %v, want the raw error mapping", envelope)
	}
}

func TestResponseNeverSurfacesStoredError(t *testing.T) {
	q, _ := newTestQueue(t, func(entries []request.Wire) ([]*Result, error) {
		return []*Result{okResult(`{"error": {"message": "nope", "code": 10}}`)}, nil
	})

	c := q.Append(mustCall(t, q, getDesc("me")), true)

	resp, err := c.Response(context.Background())
	if err != nil {
		t.Fatalf("Response() error = %v, want nil", err)
	}
	if resp == nil {
		t.Fatal("Response() = nil, want the partial response")
	}
}

func TestFieldAndContains(t *testing.T) {
	q, _ := newTestQueue(t, func(entries []request.Wire) ([]*Result, error) {
		return []*Result{okResult(`{"name": "Leia", "id": "42"}`)}, nil
	})

	c := q.Append(mustCall(t, q, getDesc("me")), true)
	ctx := context.Background()

	name, err := c.Field(ctx, "name")
	if err != nil {
		t.Fatalf("Field() error = %v", err)
	}
	if name != "Leia" {
		t.Errorf("Field(name) = %v, want %q", name, "Leia")
	}

	ok, err := c.Contains(ctx, "id")
	if err != nil {
		t.Fatalf("Contains() error = %v", err)
	}
	if !ok {
		t.Error("Contains(id) = false, want true")
	}
	ok, err = c.Contains(ctx, "missing")
	if err != nil {
		t.Fatalf("Contains() error = %v", err)
	}
	if ok {
		t.Error("Contains(missing) = true, want false")
	}
}

func TestFieldOnListDataFails(t *testing.T) {
	q, _ := newTestQueue(t, func(entries []request.Wire) ([]*Result, error) {
		return []*Result{okResult(`{"data": [1, 2]}`)}, nil
	})

	c := q.Append(mustCall(t, q, getDesc("me/friends")), true)
	if _, err := c.Field(context.Background(), "name"); err == nil {
		t.Error("Field() on list data returned nil error")
	}
}

func TestLenCountsCurrentPageOnly(t *testing.T) {
	q, tr := newTestQueue(t, func(entries []request.Wire) ([]*Result, error) {
		results := make([]*Result, len(entries))
		for i := range entries {
			results[i] = okResult(`{"data": ["a", "b"], "paging": {"next": "https://graph.test/items?after=2&limit=2"}}`)
		}
		return results, nil
	})

	c := q.Append(mustCall(t, q, request.Descriptor{
		Method: request.MethodGet,
		Path:   "items",
		Params: request.Params{"limit": 2},
	}), true)

	n, err := c.Len(context.Background())
	if err != nil {
		t.Fatalf("Len() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Len() = %d, want 2", n)
	}
	// The follow-up page is queued, not fetched.
	if len(tr.batches) != 1 {
		t.Errorf("physical batches = %d, want 1", len(tr.batches))
	}
	if q.Len() != 1 {
		t.Errorf("queue length = %d, want the queued follow-up", q.Len())
	}
}

func TestItemWithinCurrentPage(t *testing.T) {
	q, _ := newTestQueue(t, func(entries []request.Wire) ([]*Result, error) {
		return []*Result{okResult(`{"data": ["a", "b", "c"]}`)}, nil
	})

	c := q.Append(mustCall(t, q, getDesc("items")), true)

	item, err := c.Item(context.Background(), 1)
	if err != nil {
		t.Fatalf("Item() error = %v", err)
	}
	if item != "b" {
		t.Errorf("Item(1) = %v, want %q", item, "b")
	}

	if _, err := c.Item(context.Background(), 7); err == nil {
		t.Error("Item(7) past the final page returned nil error")
	}
}

func TestCancelBeforeSend(t *testing.T) {
	q, _ := newTestQueue(t, nil)
	c := mustCall(t, q, getDesc("me"))

	if err := c.Cancel(); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if !c.Completed() {
		t.Error("cancelled call not completed")
	}
	err := c.Err(context.Background())
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("Err() = %v, want cancellation error", err)
	}
}

func TestCancelAfterResolutionFails(t *testing.T) {
	q, _ := newTestQueue(t, nil)
	c := mustCall(t, q, getDesc("me"))
	c.resolve(okResult(`{"data": 1}`))

	if err := c.Cancel(); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("Cancel() error = %v, want ErrAlreadyResolved", err)
	}
	if err := c.Err(context.Background()); err != nil {
		t.Errorf("Err() = %v, want nil (resolution untouched)", err)
	}
}

func TestCallEqual(t *testing.T) {
	q, _ := newTestQueue(t, nil)

	build := func(path string, opts ...CallOption) *Call {
		return mustCall(t, q, getDesc(path), opts...)
	}

	t.Run("same request unresolved", func(t *testing.T) {
		if !build("me").Equal(build("me")) {
			t.Error("Equal() = false, want true")
		}
	})

	t.Run("different path", func(t *testing.T) {
		if build("me").Equal(build("you")) {
			t.Error("Equal() = true, want false")
		}
	})

	t.Run("nil other", func(t *testing.T) {
		if build("me").Equal(nil) {
			t.Error("Equal(nil) = true, want false")
		}
	})

	t.Run("hook on either side", func(t *testing.T) {
		hooked := build("me", WithHook(func(*Call) {}))
		plain := build("me")
		if hooked.Equal(plain) || plain.Equal(hooked) {
			t.Error("Equal() = true for a hooked call, want false")
		}
	})

	t.Run("resolved against unresolved", func(t *testing.T) {
		done := build("me")
		done.resolve(okResult(`{"data": 1}`))
		if done.Equal(build("me")) {
			t.Error("Equal() = true across completion states, want false")
		}
	})

	t.Run("resolved with same payload", func(t *testing.T) {
		a := build("me")
		b := build("me")
		a.resolve(okResult(`{"data": 1}`))
		b.resolve(okResult(`{"data": 1}`))
		if !a.Equal(b) {
			t.Error("Equal() = false for identical resolutions, want true")
		}
	})

	t.Run("resolved with different payload", func(t *testing.T) {
		a := build("me")
		b := build("me")
		a.resolve(okResult(`{"data": 1}`))
		b.resolve(okResult(`{"data": 2}`))
		if a.Equal(b) {
			t.Error("Equal() = true for differing resolutions, want false")
		}
	})

	t.Run("resolved with different errors", func(t *testing.T) {
		a := build("me")
		b := build("me")
		a.resolve(okResult(`{"error": {"code": 1, "message": "x"}}`))
		b.resolve(okResult(`{"error": {"code": 1, "message": "x"}}`))
		if a.Equal(b) {
			t.Error("Equal() = true for distinct error instances, want false")
		}
	})
}
