package logic

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/WendelHime/metatorrent/internal/builder"
	"github.com/WendelHime/metatorrent/internal/merkle"
	"github.com/WendelHime/metatorrent/internal/metainfo"
	"github.com/WendelHime/metatorrent/internal/shared/models"
	anacrolix "github.com/anacrolix/torrent/metainfo"
	"github.com/schollz/progressbar/v3"
)

var ErrEmptyContent = errors.New("no files found")

type CreateOptions struct {
	Protocol models.Protocol
	// PieceLength of zero picks one from the content size.
	PieceLength  int64
	Announce     string
	AnnounceList [][]string
	Comment      string
	CreatedBy    string
	NoDate       bool
	Private      bool
	Source       string
	URLList      []string
	Progress     bool
}

type Creator interface {
	Create(root string, opts CreateOptions) (*metainfo.Torrent, error)
}

type creator struct {
	log *slog.Logger
}

func NewCreator(logger *slog.Logger) Creator {
	return &creator{log: logger}
}

func (c *creator) Create(root string, opts CreateOptions) (*metainfo.Torrent, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	c.log.Info("scanning content", slog.String("root", root))
	src, files, err := scan(root)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrEmptyContent
	}

	total, err := metainfo.TotalSize(files)
	if err != nil {
		return nil, err
	}
	pieceLength := opts.PieceLength
	if pieceLength == 0 {
		pieceLength = max(anacrolix.ChoosePieceLength(total), merkle.BlockSize)
	}
	c.log.Info("hashing content",
		slog.Int("files", len(files)),
		slog.Int64("bytes", total),
		slog.Int64("piece_length", pieceLength),
		slog.String("protocol", string(opts.Protocol)))

	bopts := builder.Options{
		Name:         filepath.Base(root),
		PieceLength:  pieceLength,
		Protocol:     opts.Protocol,
		Files:        files,
		Announce:     opts.Announce,
		AnnounceList: opts.AnnounceList,
		Comment:      opts.Comment,
		CreatedBy:    opts.CreatedBy,
		Private:      opts.Private,
		Source:       opts.Source,
		URLList:      opts.URLList,
	}
	if !opts.NoDate {
		bopts.CreationDate = time.Now().Unix()
	}
	var bar *progressbar.ProgressBar
	if opts.Progress {
		bar = progressbar.DefaultBytes(total, "hashing")
		bopts.OnProgress = func(n int64) {
			bar.Add64(n)
		}
	}

	t, err := builder.Build(bopts, src)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		c.log.Error("failed to build torrent", slog.Any("error", err))
		return nil, err
	}
	c.log.Info("torrent created",
		slog.String("name", t.Name()),
		slog.String("info_hash", t.InfoHash().String()))
	return t, nil
}

// osSource reads files below dir.
type osSource struct {
	dir string
}

func (s osSource) Open(path []string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(append([]string{s.dir}, path...)...))
}

// scan lists regular files below root in walk order. A root that is itself
// a file yields a single-file layout named after it.
func scan(root string) (osSource, []models.FileEntry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return osSource{}, nil, err
	}
	if !info.IsDir() {
		return osSource{dir: filepath.Dir(root)}, []models.FileEntry{{Path: []string{info.Name()}, Size: info.Size()}}, nil
	}

	var files []models.FileEntry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, models.FileEntry{
			Path: strings.Split(filepath.ToSlash(rel), "/"),
			Size: fi.Size(),
		})
		return nil
	})
	if err != nil {
		return osSource{}, nil, err
	}
	return osSource{dir: root}, files, nil
}
