package metainfo

import (
	"strings"

	"github.com/WendelHime/metatorrent/internal/bencode"
)

// Fields that hashing and validation depend on.
var (
	v1InfoKeys = []string{"pieces", "length", "files"}
	v2InfoKeys = []string{"meta version", "file tree"}
)

func (t *Torrent) InfoField(key string) (bencode.Value, bool) {
	v, ok := t.info()[key]
	if !ok {
		return nil, false
	}
	return bencode.Clone(v), true
}

func (t *Torrent) SetInfoField(key string, v bencode.Value) {
	t.writableInfo()[key] = bencode.Clone(v)
	t.invalidate()
}

func (t *Torrent) UnsetInfoField(key string) {
	delete(t.writableInfo(), key)
	t.invalidate()
}

// CleanInfoFields drops every info key except name, piece length, the piece
// data of the torrent's protocol, and keep.
func (t *Torrent) CleanInfoFields(keep ...string) {
	protocol := t.Protocol()
	allowed := map[string]bool{"name": true, "piece length": true}
	if protocol.HasV1() {
		for _, k := range v1InfoKeys {
			allowed[k] = true
		}
	}
	if protocol.HasV2() {
		for _, k := range v2InfoKeys {
			allowed[k] = true
		}
	}
	for _, k := range keep {
		allowed[k] = true
	}
	info := t.writableInfo()
	for k := range info {
		if !allowed[k] {
			delete(info, k)
		}
	}
	t.invalidate()
}

func (t *Torrent) Name() string {
	s, _ := t.info().GetString("name")
	return s
}

func (t *Torrent) SetName(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	t.writableInfo()["name"] = bencode.NewString(name)
	t.invalidate()
	return nil
}

func checkName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if strings.ContainsAny(name, "/\x00") {
		return ErrInvalidName
	}
	return nil
}

func (t *Torrent) PieceLength() int64 {
	n, _ := t.info().GetInt("piece length")
	return n
}

func (t *Torrent) SetPieceLength(n int64) error {
	if n <= 0 {
		return ErrInvalidPieceLength
	}
	t.writableInfo()["piece length"] = bencode.NewInt(n)
	t.invalidate()
	return nil
}

// Private reports the BEP 27 flag.
func (t *Torrent) Private() bool {
	n, ok := t.info().GetInt("private")
	return ok && n == 1
}

func (t *Torrent) SetPrivate(private bool) {
	if private {
		t.writableInfo()["private"] = bencode.NewInt(1)
	} else {
		delete(t.writableInfo(), "private")
	}
	t.invalidate()
}

func (t *Torrent) Source() string {
	s, _ := t.info().GetString("source")
	return s
}

// SetSource removes the key when source is empty.
func (t *Torrent) SetSource(source string) {
	if source == "" {
		delete(t.writableInfo(), "source")
	} else {
		t.writableInfo()["source"] = bencode.NewString(source)
	}
	t.invalidate()
}

func (t *Torrent) MetaVersion() int64 {
	n, _ := t.info().GetInt("meta version")
	return n
}
