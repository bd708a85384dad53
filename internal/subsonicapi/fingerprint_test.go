package subsonicapi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalKey_OrderIndependent(t *testing.T) {
	a := CanonicalKey("getAlbumList2", map[string]string{"type": "recent", "size": "500"})
	b := CanonicalKey("getAlbumList2", map[string]string{"size": "500", "type": "recent"})
	require.Equal(t, a, b)
	require.Equal(t, "getAlbumList2?size=500&type=recent", a)
}

func TestCanonicalKey_MissingParamsEqualEmpty(t *testing.T) {
	require.Equal(t, "getArtists?", CanonicalKey("getArtists", nil))
	require.Equal(t, "getArtists?", CanonicalKey("getArtists", map[string]string{}))
}
