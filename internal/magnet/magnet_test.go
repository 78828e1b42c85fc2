package magnet

import (
	"bytes"
	"testing"

	"github.com/WendelHime/metatorrent/internal/shared/models"
	"github.com/anacrolix/torrent/metainfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	v1 := models.Hash(bytes.Repeat([]byte{0xab}, 20))
	v2 := models.Hash(bytes.Repeat([]byte{0xcd}, 32))

	var tests = []struct {
		name     string
		hashes   models.InfoHashSet
		dn       string
		trackers []string
		assert   func(t *testing.T, actual string, err error)
	}{
		{
			name:     "v1 hash with trackers",
			hashes:   models.InfoHashSet{V1: v1},
			dn:       "file1.dat",
			trackers: []string{"https://example.com/announce", "https://example1.com/announce"},
			assert: func(t *testing.T, actual string, err error) {
				require.NoError(t, err)
				assert.Equal(t, "magnet:?xt=urn:btih:"+v1.String()+
					"&dn=file1.dat"+
					"&tr=https%3A%2F%2Fexample.com%2Fannounce"+
					"&tr=https%3A%2F%2Fexample1.com%2Fannounce", actual)
			},
		},
		{
			name:   "hybrid prefers v1",
			hashes: models.InfoHashSet{V1: v1, V2: v2},
			dn:     "tname",
			assert: func(t *testing.T, actual string, err error) {
				require.NoError(t, err)
				assert.Equal(t, "magnet:?xt=urn:btih:"+v1.String()+"&dn=tname", actual)
			},
		},
		{
			name:   "v2 only uses the full v2 hex digest",
			hashes: models.InfoHashSet{V2: v2},
			dn:     "my file & more",
			assert: func(t *testing.T, actual string, err error) {
				require.NoError(t, err)
				assert.Equal(t, "magnet:?xt=urn:btih:"+v2.String()+"&dn=my+file+%26+more", actual)
				assert.Len(t, v2.String(), 64)
			},
		},
		{
			name:   "empty name omits dn",
			hashes: models.InfoHashSet{V1: v1},
			assert: func(t *testing.T, actual string, err error) {
				require.NoError(t, err)
				assert.NotContains(t, actual, "dn=")
			},
		},
		{
			name: "no hash",
			dn:   "x",
			assert: func(t *testing.T, actual string, err error) {
				assert.ErrorIs(t, err, ErrNoInfoHash)
				assert.Empty(t, actual)
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			actual, err := Build(tt.hashes, tt.dn, tt.trackers)
			tt.assert(t, actual, err)
		})
	}
}

func TestBuildParsesWithAnacrolix(t *testing.T) {
	hash := models.Hash(bytes.Repeat([]byte{0x12, 0x34}, 10))
	trackers := []string{"udp://tracker.example.org:6969/announce", "https://example.com/announce?key=a&b=c"}
	uri, err := Build(models.InfoHashSet{V1: hash}, "some name.iso", trackers)
	require.NoError(t, err)

	m, err := metainfo.ParseMagnetUri(uri)
	require.NoError(t, err)
	assert.Equal(t, hash.String(), m.InfoHash.HexString())
	assert.Equal(t, "some name.iso", m.DisplayName)
	assert.Equal(t, trackers, m.Trackers)
}
