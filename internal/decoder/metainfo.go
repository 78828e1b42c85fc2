package decoder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/WendelHime/metatorrent/internal/metainfo"
	"github.com/WendelHime/metatorrent/internal/shared/models"
)

type MetafileDecoder interface {
	Decode(r io.Reader, opts ...metainfo.ParseOption) (*metainfo.Torrent, error)
	Encode(w io.Writer, t *metainfo.Torrent) error
	Load(path string, opts ...metainfo.ParseOption) (*metainfo.Torrent, error)
	Dump(path string, t *metainfo.Torrent) error
}

type decoder struct {
	log *slog.Logger
}

func NewDecoder(logger *slog.Logger) MetafileDecoder {
	if logger == nil {
		logger = slog.Default()
	}
	return decoder{log: logger}
}

func (d decoder) Decode(r io.Reader, opts ...metainfo.ParseOption) (*metainfo.Torrent, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		d.log.Error("failed to read torrent", slog.Any("error", err))
		return nil, err
	}

	t, err := metainfo.Load(data, opts...)
	if err != nil {
		d.log.Error("failed to decode torrent", slog.Any("error", err))
		return nil, err
	}

	if d.log.Enabled(context.Background(), slog.LevelDebug) {
		d.logHeader(t)
	}
	return t, nil
}

func (d decoder) logHeader(t *metainfo.Torrent) {
	var header models.InfoHeader
	if err := t.UnmarshalInfo(&header); err != nil {
		d.log.Warn("failed to bind info dictionary", slog.Any("error", err))
		return
	}
	d.log.Debug("decoded torrent",
		slog.String("name", header.Name),
		slog.Int64("piece_length", header.PieceLength),
		slog.Bool("private", header.Private == 1),
		slog.String("source", header.Source),
		slog.Int64("meta_version", header.MetaVersion),
		slog.String("protocol", string(t.Protocol())),
		slog.String("info_hash", t.InfoHash().String()))
}

func (d decoder) Encode(w io.Writer, t *metainfo.Torrent) error {
	_, err := w.Write(t.Bytes())
	if err != nil {
		d.log.Error("failed to encode torrent", slog.Any("error", err))
	}
	return err
}

// Load reads and parses a .torrent file.
func (d decoder) Load(path string, opts ...metainfo.ParseOption) (*metainfo.Torrent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := d.Decode(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Dump writes the canonical encoding of t to path, replacing it.
func (d decoder) Dump(path string, t *metainfo.Torrent) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := d.Encode(f, t); err != nil {
		f.Close()
		return err
	}
	d.log.Info("torrent written", slog.String("path", path), slog.String("info_hash", t.InfoHash().String()))
	return f.Close()
}
