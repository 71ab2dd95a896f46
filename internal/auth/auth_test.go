package auth

import (
	"errors"
	"testing"

	"github.com/danmuck/cdmctl/internal/testutil/testlog"
	"github.com/rs/zerolog/log"
)

func TestStaticTokenValidate(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		name    string
		stored  string
		input   string
		wantErr error
	}{
		{name: "empty token denied", stored: "", input: "abc", wantErr: ErrUnauthorized},
		{name: "mismatched token denied", stored: "abc", input: "xyz", wantErr: ErrUnauthorized},
		{name: "matching token accepted", stored: "abc", input: "abc", wantErr: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := (StaticToken{Token: tc.stored}).Validate(tc.input)
			log.Debug().Str("stored", tc.stored).Str("input", tc.input).AnErr("result", err).Msg("auth/static-token")
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{header: "Bearer abc", token: "abc", ok: true},
		{header: "bearer  abc ", token: "abc", ok: true},
		{header: "Basic abc", ok: false},
		{header: "Bearer", ok: false},
		{header: "Bearer   ", ok: false},
		{header: "", ok: false},
	}
	for _, tc := range tests {
		token, ok := BearerToken(tc.header)
		if ok != tc.ok || token != tc.token {
			t.Fatalf("BearerToken(%q)=(%q,%v) want (%q,%v)", tc.header, token, ok, tc.token, tc.ok)
		}
	}
}

func TestCheckWrapsValidatorError(t *testing.T) {
	testlog.Start(t)
	locked := errors.New("locked out")
	v := FuncValidator(func(token string) error {
		if token != "ok" {
			return locked
		}
		return nil
	})

	if err := Check(v, "Bearer ok"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	err := Check(v, "Bearer nope")
	if !errors.Is(err, ErrUnauthorized) || !errors.Is(err, locked) {
		t.Fatalf("expected unauthorized wrapping validator error, got %v", err)
	}
	if err := Check(v, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for missing header, got %v", err)
	}
}
