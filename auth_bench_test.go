package goSession

import (
	"context"
	"testing"
	"time"
)

func BenchmarkValidateAccess(b *testing.B) {
	e, done := newTestEngine(b, testConfig())
	defer done()

	pair := loginAlice(b, e, nil)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.ValidateAccess(pair.AccessToken); err != nil {
			b.Fatalf("validate failed: %v", err)
		}
	}
}

func BenchmarkRefresh(b *testing.B) {
	e, done := newTestEngine(b, testConfig())
	defer done()

	pair := loginAlice(b, e, nil)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		next, err := e.Refresh(context.Background(), pair.RefreshToken)
		if err != nil {
			b.Fatalf("refresh failed: %v", err)
		}
		pair = next
	}
}

func BenchmarkCompleteLogin(b *testing.B) {
	e, done := newTestEngine(b, testConfig())
	defer done()

	tokens := &ProviderTokens{
		AccessToken:  "provider-access",
		RefreshToken: "provider-refresh",
		Expiry:       time.Now().Add(time.Hour),
		Scopes:       []string{"openid", "email"},
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		loginAlice(b, e, tokens)
	}
}

func BenchmarkRequireScopes(b *testing.B) {
	e, done := newTestEngine(b, testConfig())
	defer done()

	loginAlice(b, e, &ProviderTokens{
		AccessToken: "provider-access",
		Expiry:      time.Now().Add(time.Hour),
		Scopes:      []string{"openid", "email", "youtube.readonly"},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := e.RequireScopes(context.Background(), "alice", "youtube.readonly"); err != nil {
			b.Fatalf("require scopes failed: %v", err)
		}
	}
}
