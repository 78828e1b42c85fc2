package logic

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/WendelHime/metatorrent/internal/metainfo"
	"github.com/WendelHime/metatorrent/internal/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTree(t *testing.T, files map[string]int) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "content")
	require.NoError(t, os.MkdirAll(root, 0o755))
	for name, size := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		data := make([]byte, size)
		for i := range data {
			data[i] = byte(i)
		}
		require.NoError(t, os.WriteFile(path, data, 0o644))
	}
	return root
}

func TestCreate(t *testing.T) {
	creator := NewCreator(discardLogger())

	var tests = []struct {
		name   string
		given  func(t *testing.T) string
		opts   CreateOptions
		assert func(t *testing.T, torrent *metainfo.Torrent, err error)
	}{
		{
			name: "directory as v1",
			given: func(t *testing.T) string {
				return writeTree(t, map[string]int{"a.bin": 40000, "sub/b.bin": 100})
			},
			opts: CreateOptions{Announce: "udp://tracker.example.org:6969"},
			assert: func(t *testing.T, torrent *metainfo.Torrent, err error) {
				require.NoError(t, err)
				assert.Equal(t, "content", torrent.Name())
				assert.Equal(t, models.ProtocolV1, torrent.Protocol())
				assert.Equal(t, models.FileModeMulti, torrent.FileMode())
				assert.Equal(t, "udp://tracker.example.org:6969", torrent.Announce())
				assert.GreaterOrEqual(t, torrent.PieceLength(), int64(16384))
				_, ok := torrent.CreationDate()
				assert.True(t, ok)

				count, err := torrent.FileCount()
				require.NoError(t, err)
				assert.Equal(t, 2, count)
				size, err := torrent.Size()
				require.NoError(t, err)
				assert.Equal(t, int64(40100), size)
			},
		},
		{
			name: "directory as hybrid",
			given: func(t *testing.T) string {
				return writeTree(t, map[string]int{"a.bin": 40000, "sub/b.bin": 100, "z.bin": 0})
			},
			opts: CreateOptions{
				Protocol:    models.ProtocolHybrid,
				PieceLength: 16384,
				NoDate:      true,
				Private:     true,
				Source:      "SRC",
			},
			assert: func(t *testing.T, torrent *metainfo.Torrent, err error) {
				require.NoError(t, err)
				assert.Equal(t, models.ProtocolHybrid, torrent.Protocol())
				assert.Len(t, torrent.InfoHashV1(), 20)
				assert.Len(t, torrent.InfoHashV2(), 32)
				assert.True(t, torrent.Private())
				assert.Equal(t, "SRC", torrent.Source())
				_, ok := torrent.CreationDate()
				assert.False(t, ok)

				count, err := torrent.FileCount()
				require.NoError(t, err)
				assert.Equal(t, 3, count)
			},
		},
		{
			name: "single file as v2",
			given: func(t *testing.T) string {
				return filepath.Join(writeTree(t, map[string]int{"movie.mkv": 70000}), "movie.mkv")
			},
			opts: CreateOptions{Protocol: models.ProtocolV2},
			assert: func(t *testing.T, torrent *metainfo.Torrent, err error) {
				require.NoError(t, err)
				assert.Equal(t, "movie.mkv", torrent.Name())
				assert.Equal(t, models.FileModeSingle, torrent.FileMode())
				assert.Equal(t, models.ProtocolV2, torrent.Protocol())
			},
		},
		{
			name: "empty directory",
			given: func(t *testing.T) string {
				return writeTree(t, nil)
			},
			assert: func(t *testing.T, torrent *metainfo.Torrent, err error) {
				assert.ErrorIs(t, err, ErrEmptyContent)
				assert.Nil(t, torrent)
			},
		},
		{
			name: "missing path",
			given: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "nope")
			},
			assert: func(t *testing.T, torrent *metainfo.Torrent, err error) {
				assert.ErrorIs(t, err, os.ErrNotExist)
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			torrent, err := creator.Create(tt.given(t), tt.opts)
			tt.assert(t, torrent, err)
		})
	}
}
