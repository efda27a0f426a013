package utils

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalImageStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalImageStore(dir)
	require.NoError(t, err)

	url, err := s.SaveImage(context.Background(), "scans/u1/a..jpg", "image/jpeg", []byte("img"))
	require.NoError(t, err)
	require.Equal(t, "/uploads/scans/u1/a..jpg", url)

	data, err := os.ReadFile(filepath.Join(dir, "scans", "u1", "a..jpg"))
	require.NoError(t, err)
	require.Equal(t, []byte("img"), data)

	url, err = s.SaveImage(context.Background(), "../../etc/passwd", "", []byte("x"))
	require.NoError(t, err)
	require.Equal(t, "/uploads/etc/passwd", url)
	_, err = os.Stat(filepath.Join(dir, "etc", "passwd"))
	require.NoError(t, err)

	_, err = s.SaveImage(context.Background(), "", "", nil)
	require.Error(t, err)
}

func TestR2ConfigEnabled(t *testing.T) {
	require.False(t, R2Config{}.Enabled())
	require.True(t, R2Config{AccountID: "a", AccessKeyID: "k", AccessKeySecret: "s", Bucket: "b"}.Enabled())
}
