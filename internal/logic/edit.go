package logic

import (
	"io"
	"log/slog"

	"github.com/WendelHime/metatorrent/internal/decoder"
	"github.com/WendelHime/metatorrent/internal/metainfo"
)

// Edits lists the changes to apply. Nil fields are left alone; an empty
// string removes the field.
type Edits struct {
	Announce     *string
	AnnounceList [][]string
	Comment      *string
	Name         *string
	Private      *bool
	Source       *string
	URLList      []string
	// Clean drops every root field except info, announce and announce-list
	// before the other edits apply.
	Clean bool
}

type Editor interface {
	Edit(in io.Reader, out io.Writer, edits Edits) (*metainfo.Torrent, error)
	EditFile(in, out string, edits Edits) (*metainfo.Torrent, error)
}

type editor struct {
	d   decoder.MetafileDecoder
	log *slog.Logger
}

func NewEditor(d decoder.MetafileDecoder, logger *slog.Logger) Editor {
	return &editor{d: d, log: logger}
}

func (e *editor) Edit(in io.Reader, out io.Writer, edits Edits) (*metainfo.Torrent, error) {
	t, err := e.d.Decode(in)
	if err != nil {
		return nil, err
	}
	if err := e.apply(t, edits); err != nil {
		return nil, err
	}
	if err := e.d.Encode(out, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (e *editor) EditFile(in, out string, edits Edits) (*metainfo.Torrent, error) {
	t, err := e.d.Load(in)
	if err != nil {
		return nil, err
	}
	if err := e.apply(t, edits); err != nil {
		return nil, err
	}
	if err := e.d.Dump(out, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (e *editor) apply(t *metainfo.Torrent, edits Edits) error {
	before := t.InfoHash()

	if edits.Clean {
		t.CleanRootFields("announce", "announce-list")
		e.log.Info("root fields cleaned")
	}
	if edits.Name != nil {
		if err := t.SetName(*edits.Name); err != nil {
			return err
		}
		e.log.Info("name changed", slog.String("name", *edits.Name))
	}
	if edits.Announce != nil {
		t.SetAnnounce(*edits.Announce)
		e.log.Info("announce changed", slog.String("announce", *edits.Announce))
	}
	if edits.AnnounceList != nil {
		t.SetAnnounceList(edits.AnnounceList)
		e.log.Info("announce list changed", slog.Any("announce_list", edits.AnnounceList))
	}
	if edits.Comment != nil {
		t.SetComment(*edits.Comment)
	}
	if edits.URLList != nil {
		t.SetURLList(edits.URLList...)
	}
	if edits.Private != nil {
		t.SetPrivate(*edits.Private)
		e.log.Info("private flag changed", slog.Bool("private", *edits.Private))
	}
	if edits.Source != nil {
		t.SetSource(*edits.Source)
		e.log.Info("source changed", slog.String("source", *edits.Source))
	}

	if err := t.Parse(); err != nil {
		e.log.Error("edited torrent is invalid", slog.Any("error", err))
		return err
	}
	if after := t.InfoHash(); after.String() != before.String() {
		e.log.Warn("info hash changed", slog.String("from", before.String()), slog.String("to", after.String()))
	}
	return nil
}
