package serverfn

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

type todoArgs struct {
	Title    string   `form:"title"`
	Priority int      `form:"priority"`
	Done     bool     `form:"done"`
	Tags     []string `form:"tag"`
	Ignored  string   `form:"-"`
}

type todoResult struct {
	ID    int    `json:"id" cbor:"id"`
	Title string `json:"title" cbor:"title"`
}

func TestNew_URLEncodedArgs(t *testing.T) {
	var got todoArgs
	fn, err := New("add_todo", func(ctx context.Context, args todoArgs) (todoResult, error) {
		got = args
		return todoResult{ID: 1, Title: args.Title}, nil
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if fn.Path() != "add_todo" {
		t.Fatalf("Path = %q, want %q", fn.Path(), "add_todo")
	}
	if fn.Encoding() != EncodingURL {
		t.Fatalf("Encoding = %v, want EncodingURL", fn.Encoding())
	}

	data := url.Values{
		"title":    {"write tests"},
		"priority": {"3"},
		"done":     {"true"},
		"tag":      {"go", "edge"},
	}.Encode()

	payload, err := fn.Call(context.Background(), []byte(data))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}

	if got.Title != "write tests" || got.Priority != 3 || !got.Done {
		t.Fatalf("decoded args = %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "go" || got.Tags[1] != "edge" {
		t.Fatalf("decoded tags = %v", got.Tags)
	}

	if payload.Kind() != PayloadJSON {
		t.Fatalf("payload kind = %v, want json", payload.Kind())
	}
	var result todoResult
	if err := json.Unmarshal(payload.Body(), &result); err != nil {
		t.Fatalf("result not valid JSON: %v", err)
	}
	if result.ID != 1 || result.Title != "write tests" {
		t.Fatalf("result = %+v", result)
	}
}

func TestNew_EmptyArgsDecodeToZeroValue(t *testing.T) {
	fn := MustNew("noop", func(ctx context.Context, args todoArgs) (string, error) {
		if args.Title != "" || args.Priority != 0 {
			t.Fatalf("expected zero args, got %+v", args)
		}
		return "ok", nil
	})

	if _, err := fn.Call(context.Background(), nil); err != nil {
		t.Fatalf("Call with empty data: %v", err)
	}
}

func TestNew_BadArgumentValue(t *testing.T) {
	fn := MustNew("add_todo", func(ctx context.Context, args todoArgs) (todoResult, error) {
		return todoResult{}, nil
	})

	_, err := fn.Call(context.Background(), []byte("priority=not-a-number"))
	if err == nil {
		t.Fatal("expected decode error")
	}

	var argErr *ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("error type = %T, want *ArgumentError", err)
	}
	if argErr.StatusCode() != http.StatusBadRequest {
		t.Fatalf("StatusCode = %d, want 400", argErr.StatusCode())
	}
	if argErr.Path != "add_todo" {
		t.Fatalf("Path = %q", argErr.Path)
	}
}

func TestNew_CBORRoundTrip(t *testing.T) {
	fn := MustNew("stats", func(ctx context.Context, args todoArgs) (todoResult, error) {
		return todoResult{ID: 7, Title: args.Title}, nil
	}, WithEncoding(EncodingCBOR))

	in, err := cbor.Marshal(map[string]any{"Title": "from cbor"})
	if err != nil {
		t.Fatalf("marshal input: %v", err)
	}

	payload, err := fn.Call(context.Background(), in)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if payload.Kind() != PayloadBinary {
		t.Fatalf("payload kind = %v, want binary", payload.Kind())
	}

	var result todoResult
	if err := cbor.Unmarshal(payload.Body(), &result); err != nil {
		t.Fatalf("result not valid CBOR: %v", err)
	}
	if result.ID != 7 || result.Title != "from cbor" {
		t.Fatalf("result = %+v", result)
	}
}

func TestNew_GetEncodingsUseURLArgsAndPickResultCodec(t *testing.T) {
	for _, tc := range []struct {
		encoding Encoding
		wantKind PayloadKind
	}{
		{EncodingGetJSON, PayloadJSON},
		{EncodingGetCBOR, PayloadBinary},
	} {
		fn := MustNew("echo", func(ctx context.Context, args todoArgs) (string, error) {
			return args.Title, nil
		}, WithEncoding(tc.encoding))

		payload, err := fn.Call(context.Background(), []byte("title=hi"))
		if err != nil {
			t.Fatalf("%v: Call: %v", tc.encoding, err)
		}
		if payload.Kind() != tc.wantKind {
			t.Fatalf("%v: payload kind = %v, want %v", tc.encoding, payload.Kind(), tc.wantKind)
		}
	}
}

func TestNew_PayloadAndByteResultsPassThrough(t *testing.T) {
	raw := MustNew("raw", func(ctx context.Context, args todoArgs) ([]byte, error) {
		return []byte{0x01, 0x02}, nil
	})
	payload, err := raw.Call(context.Background(), nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if payload.Kind() != PayloadBinary || len(payload.Body()) != 2 {
		t.Fatalf("payload = %v %v", payload.Kind(), payload.Body())
	}

	form := MustNew("form", func(ctx context.Context, args todoArgs) (Payload, error) {
		return URLEncoded("a=1&b=2"), nil
	})
	payload, err = form.Call(context.Background(), nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if payload.Kind() != PayloadURLEncoded || string(payload.Body()) != "a=1&b=2" {
		t.Fatalf("payload = %v %q", payload.Kind(), payload.Body())
	}
}

func TestNew_HandlerErrorPropagates(t *testing.T) {
	wantErr := errors.New("boom")
	fn := MustNew("fail", func(ctx context.Context, args todoArgs) (todoResult, error) {
		return todoResult{}, wantErr
	})

	_, err := fn.Call(context.Background(), nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestNew_RejectsEmptyPathAndNonStructArgs(t *testing.T) {
	if _, err := New("", func(ctx context.Context, args todoArgs) (int, error) { return 0, nil }); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := New("bad", func(ctx context.Context, args int) (int, error) { return 0, nil }); err == nil {
		t.Fatal("expected error for non-struct args with url encoding")
	}
	// CBOR args have no struct restriction.
	if _, err := New("ok", func(ctx context.Context, args int) (int, error) { return 0, nil }, WithEncoding(EncodingCBOR)); err != nil {
		t.Fatalf("unexpected error for CBOR scalar args: %v", err)
	}
}

func TestNew_StripsLeadingSlash(t *testing.T) {
	fn := MustNew("/api_path", func(ctx context.Context, args todoArgs) (int, error) { return 0, nil })
	if fn.Path() != "api_path" {
		t.Fatalf("Path = %q, want %q", fn.Path(), "api_path")
	}
}

func TestEncodingProperties(t *testing.T) {
	cases := []struct {
		enc        Encoding
		body       bool
		urlArgs    bool
		resultKind PayloadKind
		name       string
	}{
		{EncodingURL, true, true, PayloadJSON, "url"},
		{EncodingGetJSON, false, true, PayloadJSON, "get-json"},
		{EncodingGetCBOR, false, true, PayloadBinary, "get-cbor"},
		{EncodingCBOR, true, false, PayloadBinary, "cbor"},
	}
	for _, tc := range cases {
		if got := tc.enc.UsesRequestBody(); got != tc.body {
			t.Errorf("%v.UsesRequestBody = %v, want %v", tc.enc, got, tc.body)
		}
		if got := tc.enc.HasURLEncodedArgs(); got != tc.urlArgs {
			t.Errorf("%v.HasURLEncodedArgs = %v, want %v", tc.enc, got, tc.urlArgs)
		}
		if got := tc.enc.ResultKind(); got != tc.resultKind {
			t.Errorf("%v.ResultKind = %v, want %v", tc.enc, got, tc.resultKind)
		}
		if got := tc.enc.String(); got != tc.name {
			t.Errorf("%v.String = %q, want %q", tc.enc, got, tc.name)
		}
	}
}
