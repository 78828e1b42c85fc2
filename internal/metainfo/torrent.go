// Package metainfo is a typed view over a torrent's root bencode dictionary.
// A Torrent exclusively owns its dictionary tree and is not safe for
// concurrent use.
package metainfo

import (
	"github.com/WendelHime/metatorrent/internal/bencode"
	"github.com/WendelHime/metatorrent/internal/magnet"
	"github.com/WendelHime/metatorrent/internal/shared/models"
	zbencode "github.com/zeebo/bencode"
)

type Torrent struct {
	root bencode.Dict

	// memoised, reset by every info mutation
	hashes *models.InfoHashSet
	layout *layout
}

// ParseValidator is called once per file found during Parse with the file's
// leaf name and its path below the torrent root. A non-nil error aborts the
// parse.
type ParseValidator func(name string, path []string) error

type parseConfig struct {
	validator ParseValidator
}

type ParseOption func(*parseConfig)

func WithValidator(v ParseValidator) ParseOption {
	return func(c *parseConfig) {
		c.validator = v
	}
}

// Load decodes data and runs the structural parse.
func Load(data []byte, opts ...ParseOption) (*Torrent, error) {
	v, err := bencode.Decode(data)
	if err != nil {
		return nil, err
	}
	root, ok := v.(bencode.Dict)
	if !ok {
		return nil, schemaErrorf("torrent root must be a dictionary, got %s", v.Kind())
	}
	return FromDict(root, opts...)
}

// FromDict takes ownership of root.
func FromDict(root bencode.Dict, opts ...ParseOption) (*Torrent, error) {
	t := &Torrent{root: root}
	if err := t.Parse(opts...); err != nil {
		return nil, err
	}
	return t, nil
}

// New starts an empty torrent for authoring. It is not valid until a name,
// piece length and piece data are set.
func New() *Torrent {
	return &Torrent{root: bencode.Dict{"info": bencode.Dict{}}}
}

// Parse re-runs structural validation over the current dictionaries.
func (t *Torrent) Parse(opts ...ParseOption) error {
	var cfg parseConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	t.invalidate()
	l, err := inspect(t.root, cfg.validator)
	if err != nil {
		return err
	}
	t.layout = l
	return nil
}

// Bytes returns the canonical encoding of the whole torrent.
func (t *Torrent) Bytes() []byte {
	return bencode.Encode(t.root)
}

func (t *Torrent) invalidate() {
	t.hashes = nil
	t.layout = nil
}

func (t *Torrent) info() bencode.Dict {
	info, ok := t.root.GetDict("info")
	if !ok {
		return bencode.Dict{}
	}
	return info
}

func (t *Torrent) writableInfo() bencode.Dict {
	info, ok := t.root.GetDict("info")
	if !ok {
		info = bencode.Dict{}
		t.root["info"] = info
	}
	return info
}

func (t *Torrent) RootField(key string) (bencode.Value, bool) {
	v, ok := t.root[key]
	if !ok {
		return nil, false
	}
	return bencode.Clone(v), true
}

func (t *Torrent) SetRootField(key string, v bencode.Value) {
	t.root[key] = bencode.Clone(v)
	if key == "info" {
		t.invalidate()
	}
}

func (t *Torrent) UnsetRootField(key string) {
	delete(t.root, key)
	if key == "info" {
		t.invalidate()
	}
}

// CleanRootFields drops every root key except info, the piece layers a v2
// torrent needs, and keep.
func (t *Torrent) CleanRootFields(keep ...string) {
	allowed := map[string]bool{"info": true}
	if t.Protocol().HasV2() {
		allowed["piece layers"] = true
	}
	for _, k := range keep {
		allowed[k] = true
	}
	for k := range t.root {
		if !allowed[k] {
			delete(t.root, k)
		}
	}
}

func (t *Torrent) setRootString(key, value string) {
	if value == "" {
		delete(t.root, key)
		return
	}
	t.root[key] = bencode.NewString(value)
}

func (t *Torrent) Announce() string {
	s, _ := t.root.GetString("announce")
	return s
}

func (t *Torrent) SetAnnounce(announce string) {
	t.setRootString("announce", announce)
}

func (t *Torrent) AnnounceList() [][]string {
	tiers, ok := t.root.GetList("announce-list")
	if !ok {
		return nil
	}
	var out [][]string
	for _, tier := range tiers {
		urls := stringsOf(tier)
		if len(urls) > 0 {
			out = append(out, urls)
		}
	}
	return out
}

func (t *Torrent) SetAnnounceList(tiers [][]string) {
	if len(tiers) == 0 {
		delete(t.root, "announce-list")
		return
	}
	list := make(bencode.List, 0, len(tiers))
	for _, tier := range tiers {
		list = append(list, bencode.StringList(tier...))
	}
	t.root["announce-list"] = list
}

func (t *Torrent) Comment() string {
	s, _ := t.root.GetString("comment")
	return s
}

func (t *Torrent) SetComment(comment string) {
	t.setRootString("comment", comment)
}

func (t *Torrent) CreatedBy() string {
	s, _ := t.root.GetString("created by")
	return s
}

func (t *Torrent) SetCreatedBy(createdBy string) {
	t.setRootString("created by", createdBy)
}

// CreationDate is in Unix seconds.
func (t *Torrent) CreationDate() (int64, bool) {
	return t.root.GetInt("creation date")
}

func (t *Torrent) SetCreationDate(unix int64) {
	t.root["creation date"] = bencode.NewInt(unix)
}

// URLList returns BEP 19 web seeds; a single string is returned as one item.
func (t *Torrent) URLList() []string {
	if s, ok := t.root.GetString("url-list"); ok {
		return []string{s}
	}
	return stringsOf(t.root["url-list"])
}

func (t *Torrent) SetURLList(urls ...string) {
	switch len(urls) {
	case 0:
		delete(t.root, "url-list")
	case 1:
		t.root["url-list"] = bencode.NewString(urls[0])
	default:
		t.root["url-list"] = bencode.StringList(urls...)
	}
}

func (t *Torrent) HTTPSeeds() []string {
	return stringsOf(t.root["httpseeds"])
}

func (t *Torrent) SetHTTPSeeds(seeds []string) {
	if len(seeds) == 0 {
		delete(t.root, "httpseeds")
		return
	}
	t.root["httpseeds"] = bencode.StringList(seeds...)
}

// Nodes skips entries that are not [host, port] pairs.
func (t *Torrent) Nodes() []models.Node {
	list, ok := t.root.GetList("nodes")
	if !ok {
		return nil
	}
	var out []models.Node
	for _, item := range list {
		pair, ok := item.(bencode.List)
		if !ok || len(pair) != 2 {
			continue
		}
		host, ok := pair[0].(bencode.ByteString)
		if !ok {
			continue
		}
		port, ok := pair[1].(bencode.Integer)
		if !ok {
			continue
		}
		p, ok := port.Int64()
		if !ok {
			continue
		}
		out = append(out, models.Node{Host: string(host), Port: p})
	}
	return out
}

func (t *Torrent) SetNodes(nodes []models.Node) {
	if len(nodes) == 0 {
		delete(t.root, "nodes")
		return
	}
	list := make(bencode.List, 0, len(nodes))
	for _, n := range nodes {
		list = append(list, bencode.List{bencode.NewString(n.Host), bencode.NewInt(n.Port)})
	}
	t.root["nodes"] = list
}

// PieceLayers maps each v2 pieces root to its concatenated piece layer.
func (t *Torrent) PieceLayers() bencode.Dict {
	layers, ok := t.root.GetDict("piece layers")
	if !ok {
		return nil
	}
	return bencode.Clone(layers).(bencode.Dict)
}

// Trackers flattens announce and announce-list in order, without duplicates.
func (t *Torrent) Trackers() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(url string) {
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		out = append(out, url)
	}
	add(t.Announce())
	for _, tier := range t.AnnounceList() {
		for _, url := range tier {
			add(url)
		}
	}
	return out
}

func (t *Torrent) Magnet() (string, error) {
	return magnet.Build(t.InfoHashes(), t.Name(), t.Trackers())
}

// UnmarshalInfo binds the canonical info dictionary onto dst, which uses
// `bencode:"..."` struct tags.
func (t *Torrent) UnmarshalInfo(dst any) error {
	return zbencode.DecodeBytes(bencode.Encode(t.info()), dst)
}

func stringsOf(v bencode.Value) []string {
	list, ok := v.(bencode.List)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		if s, ok := item.(bencode.ByteString); ok {
			out = append(out, string(s))
		}
	}
	return out
}
