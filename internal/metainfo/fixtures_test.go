package metainfo

import (
	"bytes"
	"crypto/sha1"
	"testing"

	"github.com/WendelHime/metatorrent/internal/bencode"
	"github.com/WendelHime/metatorrent/internal/merkle"
	"github.com/WendelHime/metatorrent/internal/shared/models"
	"github.com/stretchr/testify/require"
)

const (
	fixtureAnnounce     = "https://example.com/announce"
	fixtureComment      = "Rhilip"
	fixtureCreatedBy    = "qBittorrent v4.4.2"
	fixtureCreationDate = 1648385760
	fixtureURLList      = "https://example.com/webseed"
	fixturePieceLength  = 65536
	fixtureSource       = "Rhilip"
	fixtureFileSize     = 16 * 1024 * 1024
)

var fixtureAnnounceList = [][]string{
	{"https://example.com/announce"},
	{"https://example1.com/announce"},
}

type fixtureCase struct {
	protocol models.Protocol
	mode     models.FileMode
}

var fixtureCases = []fixtureCase{
	{models.ProtocolV1, models.FileModeSingle},
	{models.ProtocolV1, models.FileModeMulti},
	{models.ProtocolV2, models.FileModeSingle},
	{models.ProtocolV2, models.FileModeMulti},
	{models.ProtocolHybrid, models.FileModeSingle},
	{models.ProtocolHybrid, models.FileModeMulti},
}

func (c fixtureCase) String() string {
	return string(c.protocol) + "-" + string(c.mode)
}

func (c fixtureCase) name() string {
	if c.mode == models.FileModeMulti {
		return "tname"
	}
	return "file1.dat"
}

func (c fixtureCase) size() int64 {
	if c.mode == models.FileModeMulti {
		return 2 * fixtureFileSize
	}
	return fixtureFileSize
}

// zeroFile describes a fixtureFileSize file of zero bytes.
func zeroFile(t *testing.T) (pieceSHA1 []byte, root merkle.Hash, layer []byte) {
	t.Helper()
	piece := make([]byte, fixturePieceLength)
	sum := sha1.Sum(piece)
	h, err := merkle.NewFileHasher(fixturePieceLength)
	require.NoError(t, err)
	for i := 0; i < fixtureFileSize/fixturePieceLength; i++ {
		h.Write(piece)
	}
	root, hashes, err := h.Sum()
	require.NoError(t, err)
	return sum[:], root, merkle.Concat(hashes)
}

func fixtureDict(t *testing.T, c fixtureCase) bencode.Dict {
	t.Helper()
	pieceSHA1, root, layer := zeroFile(t)

	info := bencode.Dict{
		"name":         bencode.NewString(c.name()),
		"piece length": bencode.NewInt(fixturePieceLength),
		"source":       bencode.NewString(fixtureSource),
	}
	rootDict := bencode.Dict{
		"announce":      bencode.NewString(fixtureAnnounce),
		"comment":       bencode.NewString(fixtureComment),
		"created by":    bencode.NewString(fixtureCreatedBy),
		"creation date": bencode.NewInt(fixtureCreationDate),
		"url-list":      bencode.NewString(fixtureURLList),
		"info":          info,
	}
	tiers := bencode.List{}
	for _, tier := range fixtureAnnounceList {
		tiers = append(tiers, bencode.StringList(tier...))
	}
	rootDict["announce-list"] = tiers

	if c.protocol.HasV1() {
		pieces := int(c.size() / fixturePieceLength)
		info["pieces"] = bencode.ByteString(bytes.Repeat(pieceSHA1, pieces))
		if c.mode == models.FileModeMulti {
			info["files"] = bencode.List{
				bencode.Dict{"length": bencode.NewInt(fixtureFileSize), "path": bencode.StringList("dict", "file2.dat")},
				bencode.Dict{"length": bencode.NewInt(fixtureFileSize), "path": bencode.StringList("file1.dat")},
			}
		} else {
			info["length"] = bencode.NewInt(fixtureFileSize)
		}
	}
	if c.protocol.HasV2() {
		leaf := func() bencode.Dict {
			return bencode.Dict{"": bencode.Dict{
				"length":      bencode.NewInt(fixtureFileSize),
				"pieces root": bencode.ByteString(root[:]),
			}}
		}
		info["meta version"] = bencode.NewInt(2)
		if c.mode == models.FileModeMulti {
			info["file tree"] = bencode.Dict{
				"dict":      bencode.Dict{"file2.dat": leaf()},
				"file1.dat": leaf(),
			}
		} else {
			info["file tree"] = bencode.Dict{"file1.dat": leaf()}
		}
		rootDict["piece layers"] = bencode.Dict{string(root[:]): bencode.ByteString(layer)}
	}
	return rootDict
}

func loadFixture(t *testing.T, c fixtureCase) *Torrent {
	t.Helper()
	torrent, err := Load(bencode.Encode(fixtureDict(t, c)))
	require.NoError(t, err)
	return torrent
}
