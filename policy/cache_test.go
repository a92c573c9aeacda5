package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoughtnetwork/miniscript/miniscript/script"
)

func TestDiskCacheMissThenRoundTrip(t *testing.T) {
	c, err := OpenDiskCache[compilerTestKey](t.TempDir(), script.KeyCodec[compilerTestKey](nil))
	require.NoError(t, err)
	defer c.Close()

	_, found, err := c.Get("pk(01)")
	require.NoError(t, err)
	assert.False(t, found)

	encoded := []byte{0x21, 0x01, 0xac}
	require.NoError(t, c.Put("pk(01)", encoded))

	got, found, err := c.Get("pk(01)")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, encoded, got)
}

func TestDiskCacheDistinguishesKeys(t *testing.T) {
	c, err := OpenDiskCache[compilerTestKey](t.TempDir(), script.KeyCodec[compilerTestKey](nil))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Put("pk(01)", []byte{0x01}))
	require.NoError(t, c.Put("pk(02)", []byte{0x02}))

	got1, _, err := c.Get("pk(01)")
	require.NoError(t, err)
	got2, _, err := c.Get("pk(02)")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, got1)
	assert.Equal(t, []byte{0x02}, got2)
}
