package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogoExtension(t *testing.T) {
	ext, ok := LogoExtension("image/PNG")
	assert.True(t, ok)
	assert.Equal(t, ".png", ext)

	_, ok = LogoExtension("application/pdf")
	assert.False(t, ok)
}

func TestLogoKey(t *testing.T) {
	assert.Equal(t, "logos/org-1/abc.svg", LogoKey("org-1", "abc", ".svg"))
}

func TestPresignExpireDefault(t *testing.T) {
	s := &S3{cfg: S3Config{}}
	assert.Equal(t, "15m0s", s.PresignExpire().String())
}
