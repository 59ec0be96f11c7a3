package transport_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/transport"
)

func TestOverride_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "default", transport.Override{}.String())

	o := transport.Override{From: "billing@example.com", Username: "billing", Password: "hunter2", Token: "tok"}
	s := o.String()
	assert.Contains(t, s, "from=billing@example.com")
	assert.Contains(t, s, "user=billing")
	assert.NotContains(t, s, "hunter2")
	assert.NotContains(t, s, "tok,")
	assert.True(t, strings.HasSuffix(s, "token=***"))
}

func TestLoadAccounts(t *testing.T) {
	t.Parallel()

	t.Run("valid file", func(t *testing.T) {
		t.Parallel()
		accounts, err := transport.LoadAccounts(strings.NewReader(`
accounts:
  billing:
    from: billing@example.com
    username: billing
    password: secret
  marketing:
    token: server-token
`))
		require.NoError(t, err)
		require.Len(t, accounts, 2)

		billing, ok := accounts.Lookup("billing")
		require.True(t, ok)
		assert.Equal(t, "billing@example.com", billing.From)
		assert.Equal(t, "secret", billing.Password)

		marketing, ok := accounts.Lookup("marketing")
		require.True(t, ok)
		assert.Equal(t, "server-token", marketing.Token)

		_, ok = accounts.Lookup("support")
		assert.False(t, ok)

		def, ok := accounts.Lookup("")
		assert.True(t, ok)
		assert.True(t, def.IsZero())
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		accounts, err := transport.LoadAccounts(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, accounts)
	})

	t.Run("account without fields", func(t *testing.T) {
		t.Parallel()
		_, err := transport.LoadAccounts(strings.NewReader("accounts:\n  empty: {}\n"))
		assert.ErrorIs(t, err, transport.ErrInvalidConfig)
		assert.Contains(t, err.Error(), `"empty"`)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()
		_, err := transport.LoadAccounts(strings.NewReader("accounts: [unclosed"))
		assert.ErrorIs(t, err, transport.ErrInvalidConfig)
	})
}
