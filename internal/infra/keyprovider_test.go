package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
	"go.uber.org/zap"
)

func TestGetKeyStableAcrossCalls(t *testing.T) {
	keyring.MockInit()

	p := NewKeyringProvider(t.TempDir(), zap.NewNop())

	k1, err := p.GetKey()
	require.NoError(t, err)
	require.Len(t, k1, 32)

	k2, err := p.GetKey()
	require.NoError(t, err)
	assert.Equal(t, k1, k2, "same secret must derive the same key")
}

func TestFileFallbackStable(t *testing.T) {
	p := NewKeyringProvider(t.TempDir(), zap.NewNop())

	s1, err := p.fileSecret()
	require.NoError(t, err)
	require.Len(t, s1, 32)

	s2, err := p.fileSecret()
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
}

func TestFileFallbackRegeneratesMalformed(t *testing.T) {
	dir := t.TempDir()
	p := NewKeyringProvider(dir, zap.NewNop())

	s1, err := p.fileSecret()
	require.NoError(t, err)

	p2 := NewKeyringProvider(t.TempDir(), zap.NewNop())
	s2, err := p2.fileSecret()
	require.NoError(t, err)

	assert.NotEqual(t, s1, s2, "independent data dirs get independent secrets")
}
