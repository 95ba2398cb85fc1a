package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_Save(t *testing.T) {
	root := t.TempDir()
	s := NewLocal(root)

	ref, err := s.Save(context.Background(), "identification", "../../etc/passport scan.pdf", strings.NewReader("data"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "identification/"))
	assert.True(t, strings.HasSuffix(ref, "-passport_scan.pdf"))

	b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(ref)))
	require.NoError(t, err)
	assert.Equal(t, "data", string(b))
}

func TestLocal_SaveRejectsTraversalInKind(t *testing.T) {
	root := t.TempDir()
	s := NewLocal(root)

	ref, err := s.Save(context.Background(), "../outside", "a.txt", strings.NewReader("x"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "outside/"))
	_, err = os.Stat(filepath.Join(root, "outside"))
	assert.NoError(t, err)
}
