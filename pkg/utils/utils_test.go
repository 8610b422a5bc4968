package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/statio/backend/internal/apperr"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Acme Corp":              "acme-corp",
		"  Acme   Corp  ":        "acme-corp",
		"Hello, World!":          "hello-world",
		"snake_case_name":        "snake-case-name",
		"--Already-Slugged--":    "already-slugged",
		"Café Münster":           "café-münster",
		"!!!":                    "",
		"Status Page (Internal)": "status-page-internal",
		"Cafe\u0301 Noe\u0308l":  "cafe\u0301-noe\u0308l",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestHasControl(t *testing.T) {
	assert.False(t, HasControl("DB down in eu-west-1"))
	assert.False(t, HasControl("Café Noe\u0308l"))
	assert.True(t, HasControl("DB down\r\nBcc: x@y.z"))
	assert.True(t, HasControl("tab\there"))
	assert.True(t, HasControl("nul\x00"))
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	digest, err := h.Hash("s3cret-pass")
	require.NoError(t, err)

	assert.NotEqual(t, "s3cret-pass", digest)
	assert.True(t, h.Verify("s3cret-pass", digest))
	assert.False(t, h.Verify("wrong", digest))
}

func TestNewToken(t *testing.T) {
	a, err := NewToken(32)
	require.NoError(t, err)
	b, err := NewToken(32)
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}

func TestParsePage(t *testing.T) {
	p, err := ParsePage("", "", 20, 100)
	require.NoError(t, err)
	assert.Equal(t, Page{Skip: 0, Limit: 20}, p)

	p, err = ParsePage("40", "100", 20, 100)
	require.NoError(t, err)
	assert.Equal(t, Page{Skip: 40, Limit: 100}, p)

	for _, bad := range [][2]string{{"-1", ""}, {"", "0"}, {"", "101"}, {"x", ""}, {"", "ten"}} {
		_, err := ParsePage(bad[0], bad[1], 20, 100)
		assert.True(t, errors.Is(err, apperr.ErrValidation), bad)
	}
}
