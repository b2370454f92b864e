package goSession

import (
	"errors"
	"fmt"
	"testing"

	"github.com/MrEthical07/goSession/vault"
)

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrTokenMissing, "token_missing"},
		{fmt.Errorf("%w: x", ErrTokenExpired), "token_expired"},
		{ErrTokenMalformed, "token_invalid"},
		{ErrTokenInvalid, "token_invalid"},
		{ErrRefreshReuseDetected, "refresh_reuse"},
		{ErrRefreshInvalid, "refresh_invalid"},
		{&MissingScopesError{Missing: []string{"youtube"}}, "scopes_missing"},
		{&vault.DecryptError{Reason: vault.ReasonAuthenticationFailed}, "decrypt_failed"},
		{fmt.Errorf("%w: dial tcp", ErrSessionBackendUnavailable), "session_unavailable"},
		{errors.New("boom"), "internal_error"},
	}
	for _, tc := range cases {
		if got := ErrorCode(tc.err); got != tc.want {
			t.Fatalf("ErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestIsRetryableOnlyForBackend(t *testing.T) {
	if !IsRetryable(fmt.Errorf("%w: timeout", ErrSessionBackendUnavailable)) {
		t.Fatal("backend failure must be retryable")
	}
	for _, err := range []error{ErrRefreshReuseDetected, ErrTokenExpired, ErrCredentialRevoked, nil} {
		if IsRetryable(err) {
			t.Fatalf("%v must not be retryable", err)
		}
	}
}

func TestMissingScopesError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &MissingScopesError{Missing: []string{"a", "b"}})
	if !errors.Is(err, ErrScopesMissing) {
		t.Fatal("expected errors.Is match")
	}
	if got := MissingScopes(err); len(got) != 2 || got[0] != "a" {
		t.Fatalf("unexpected missing %v", got)
	}
	if MissingScopes(ErrTokenMissing) != nil {
		t.Fatal("expected nil for unrelated error")
	}
}
