package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseScopes(t *testing.T) {
	set := ParseScopes("  openid email\temail\nprofile ")
	assert.Equal(t, []string{"email", "openid", "profile"}, set.Slice())
	assert.Equal(t, "email openid profile", set.String())
	assert.Empty(t, ParseScopes("").Slice())
}

func TestScopeSetMissing(t *testing.T) {
	granted := NewScopeSet("openid", "email")

	assert.Empty(t, granted.Missing(NewScopeSet()))
	assert.Empty(t, granted.Missing(nil))
	assert.Empty(t, granted.Missing(NewScopeSet("openid")))
	assert.Equal(t, []string{"youtube"}, granted.Missing(NewScopeSet("openid", "email", "youtube")))
	assert.Equal(t, []string{"b"}, NewScopeSet("a").Missing(NewScopeSet("a", "b")))
	assert.Equal(t, []string{"a", "b"}, ScopeSet(nil).Missing(NewScopeSet("b", "a")))
}
