package accounts_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-accounts"
)

var hexToken = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestIssueOpaqueToken(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		token, err := accounts.IssueOpaqueToken("mike@x.com")
		require.NoError(t, err)
		assert.Len(t, token, accounts.OpaqueTokenLength)
		assert.Regexp(t, hexToken, token)

		_, dup := seen[token]
		assert.False(t, dup, "token issued twice")
		seen[token] = struct{}{}
	}
}

func TestNewUID(t *testing.T) {
	a := accounts.NewUID()
	b := accounts.NewUID()

	assert.Len(t, a, accounts.UIDLength)
	assert.Len(t, b, accounts.UIDLength)
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^[0-9A-Za-z]+$`, a)
}
