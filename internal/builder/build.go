// Package builder authors new torrents from file contents supplied by a
// Source.
package builder

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"hash"
	"io"
	"slices"
	"strconv"

	"github.com/WendelHime/metatorrent/internal/bencode"
	"github.com/WendelHime/metatorrent/internal/merkle"
	"github.com/WendelHime/metatorrent/internal/metainfo"
	"github.com/WendelHime/metatorrent/internal/shared/models"
)

var (
	ErrNoFiles         = errors.New("builder: no files to hash")
	ErrShortRead       = errors.New("builder: source ended before the declared file size")
	ErrUnknownProtocol = errors.New("builder: unknown protocol")
)

// Source supplies the content of each file named in Options.Files.
type Source interface {
	Open(path []string) (io.ReadCloser, error)
}

type Options struct {
	// Name is the torrent name. A single file whose path is [Name] produces
	// a single-file torrent.
	Name        string
	PieceLength int64
	// Protocol defaults to v1.
	Protocol models.Protocol
	Files    []models.FileEntry

	Announce     string
	AnnounceList [][]string
	Comment      string
	CreatedBy    string
	// CreationDate in Unix seconds; zero leaves it unset.
	CreationDate int64
	Private      bool
	Source       string
	URLList      []string

	// OnProgress receives the number of content bytes hashed since the
	// previous call.
	OnProgress func(n int64)
}

// Build hashes every file and returns a parsed torrent.
func Build(opts Options, src Source) (*metainfo.Torrent, error) {
	if len(opts.Files) == 0 {
		return nil, ErrNoFiles
	}
	protocol := opts.Protocol
	if protocol == "" {
		protocol = models.ProtocolV1
	}
	if !protocol.HasV1() && !protocol.HasV2() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, protocol)
	}
	if _, err := metainfo.TotalSize(opts.Files); err != nil {
		return nil, err
	}

	t := metainfo.New()
	if err := t.SetName(opts.Name); err != nil {
		return nil, err
	}
	if err := t.SetPieceLength(opts.PieceLength); err != nil {
		return nil, err
	}
	if protocol.HasV2() {
		if _, err := merkle.BlocksPerPiece(opts.PieceLength); err != nil {
			return nil, err
		}
	}

	files := slices.Clone(opts.Files)
	single := len(files) == 1 && len(files[0].Path) == 1 && files[0].Path[0] == opts.Name
	if protocol.HasV2() {
		// v1 piece order has to follow the v2 tree order in a hybrid
		slices.SortFunc(files, comparePaths)
	}

	h := &hasher{
		src:         src,
		protocol:    protocol,
		pieceLength: opts.PieceLength,
		pieces:      newPieceHasher(opts.PieceLength),
		layers:      bencode.Dict{},
		progress:    opts.OnProgress,
	}
	for i, f := range files {
		if err := h.addFile(f, i == len(files)-1); err != nil {
			return nil, err
		}
	}

	if protocol.HasV1() {
		t.SetInfoField("pieces", bencode.ByteString(h.pieces.sum()))
		if single {
			t.SetInfoField("length", bencode.NewInt(files[0].Size))
		} else {
			t.SetInfoField("files", h.v1Files)
		}
	}
	if protocol.HasV2() {
		tree, err := metainfo.NestFiles(h.v2Files)
		if err != nil {
			return nil, err
		}
		t.SetInfoField("meta version", bencode.NewInt(2))
		t.SetInfoField("file tree", tree)
		if len(h.layers) > 0 {
			t.SetRootField("piece layers", h.layers)
		}
	}

	t.SetPrivate(opts.Private)
	t.SetSource(opts.Source)
	t.SetAnnounce(opts.Announce)
	t.SetAnnounceList(opts.AnnounceList)
	t.SetComment(opts.Comment)
	t.SetCreatedBy(opts.CreatedBy)
	if opts.CreationDate != 0 {
		t.SetCreationDate(opts.CreationDate)
	}
	t.SetURLList(opts.URLList...)

	if err := t.Parse(); err != nil {
		return nil, err
	}
	return t, nil
}

func comparePaths(a, b models.FileEntry) int {
	return slices.CompareFunc(a.Path, b.Path, bencode.CompareKeys)
}

type hasher struct {
	src         Source
	protocol    models.Protocol
	pieceLength int64
	pieces      *pieceHasher
	layers      bencode.Dict
	progress    func(int64)

	v1Files bencode.List
	v2Files []models.FileEntry
}

// addFile reads f once, feeding the v1 piece stream and the v2 merkle tree
// together.
func (h *hasher) addFile(f models.FileEntry, last bool) error {
	var tree *merkle.FileHasher
	if h.protocol.HasV2() && f.Size > 0 {
		var err error
		if tree, err = merkle.NewFileHasher(h.pieceLength); err != nil {
			return err
		}
	}
	if f.Size > 0 {
		if err := h.read(f, tree); err != nil {
			return err
		}
	}

	if h.protocol.HasV2() {
		entry := models.FileEntry{Path: f.Path, Size: f.Size}
		if tree != nil {
			root, layer, err := tree.Sum()
			if err != nil {
				return err
			}
			entry.PiecesRoot = root[:]
			if layer != nil {
				h.layers[string(root[:])] = bencode.ByteString(merkle.Concat(layer))
			}
		}
		h.v2Files = append(h.v2Files, entry)
	}

	if h.protocol.HasV1() {
		h.v1Files = append(h.v1Files, bencode.Dict{
			"length": bencode.NewInt(f.Size),
			"path":   bencode.StringList(f.Path...),
		})
		// hybrids align every file to a piece boundary with a BEP 47 pad file
		if h.protocol == models.ProtocolHybrid && !last {
			if pad := h.pieces.padding(); pad > 0 {
				h.pieces.write(make([]byte, pad))
				h.v1Files = append(h.v1Files, bencode.Dict{
					"attr":   bencode.NewString("p"),
					"length": bencode.NewInt(pad),
					"path":   bencode.StringList(".pad", strconv.FormatInt(pad, 10)),
				})
			}
		}
	}
	return nil
}

func (h *hasher) read(f models.FileEntry, tree *merkle.FileHasher) error {
	rc, err := h.src.Open(f.Path)
	if err != nil {
		return err
	}
	defer rc.Close()

	r := &stallGuard{r: rc}
	block := make([]byte, merkle.BlockSize)
	for remaining := f.Size; remaining > 0; {
		n := min(remaining, merkle.BlockSize)
		if err := readBlock(r, block[:n]); err != nil {
			return fmt.Errorf("%s: %w", f.String(), err)
		}
		if h.protocol.HasV1() {
			h.pieces.write(block[:n])
		}
		if tree != nil {
			tree.Write(block[:n])
		}
		if h.progress != nil {
			h.progress(n)
		}
		remaining -= n
	}
	return nil
}

const maxEmptyReads = 100

// stallGuard fails with io.ErrNoProgress once a reader keeps returning no
// data and no error.
type stallGuard struct {
	r     io.Reader
	empty int
}

func (g *stallGuard) Read(p []byte) (int, error) {
	n, err := g.r.Read(p)
	if n > 0 || err != nil || len(p) == 0 {
		g.empty = 0
		return n, err
	}
	g.empty++
	if g.empty >= maxEmptyReads {
		return 0, io.ErrNoProgress
	}
	return 0, nil
}

// readBlock fills buf, reporting a source that ends early as ErrShortRead.
func readBlock(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrShortRead
	}
	return err
}

// pieceHasher hashes the v1 stream, which runs across file boundaries.
type pieceHasher struct {
	size    int64
	filled  int64
	current hash.Hash
	out     []byte
}

func newPieceHasher(pieceLength int64) *pieceHasher {
	return &pieceHasher{size: pieceLength, current: sha1.New()}
}

func (p *pieceHasher) write(data []byte) {
	for len(data) > 0 {
		n := min(int64(len(data)), p.size-p.filled)
		p.current.Write(data[:n])
		p.filled += n
		data = data[n:]
		if p.filled == p.size {
			p.out = p.current.Sum(p.out)
			p.current.Reset()
			p.filled = 0
		}
	}
}

// padding is the number of bytes left in the current piece.
func (p *pieceHasher) padding() int64 {
	if p.filled == 0 {
		return 0
	}
	return p.size - p.filled
}

func (p *pieceHasher) sum() []byte {
	if p.filled > 0 {
		p.out = p.current.Sum(p.out)
		p.current.Reset()
		p.filled = 0
	}
	return p.out
}
