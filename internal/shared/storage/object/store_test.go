package object

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashUserKey(t *testing.T) {
	got := HashUserKey("user-123")
	assert.Equal(t, got, HashUserKey("user-123"))
	assert.Len(t, got, 64)
	for _, ch := range got {
		assert.True(t, (ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9'), "non-hex %c", ch)
	}
}

func TestUploadKey(t *testing.T) {
	key, err := UploadKey("user-1", "my/cv.pdf")
	require.NoError(t, err)

	parts := strings.Split(key, "/")
	require.Len(t, parts, 3)
	assert.Equal(t, "uploads", parts[0])
	assert.Equal(t, HashUserKey("user-1"), parts[1])
	assert.True(t, strings.HasSuffix(parts[2], "_my_cv.pdf"), parts[2])

	other, err := UploadKey("user-1", "my/cv.pdf")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	anon, err := UploadKey("", "cv.pdf")
	require.NoError(t, err)
	assert.Contains(t, anon, HashUserKey("anonymous"))
}

func TestSanitizeAndCleanKeyRejectTraversal(t *testing.T) {
	_, err := SanitizeFileName("../../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = SanitizeFileName("   ")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = CleanKey("../x")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = CleanKey("")
	assert.ErrorIs(t, err, ErrInvalidKey)

	clean, err := CleanKey("/uploads//a/b.pdf")
	require.NoError(t, err)
	assert.Equal(t, "uploads/a/b.pdf", clean)
}
