package metainfo

import (
	"math"
	"strings"

	"github.com/WendelHime/metatorrent/internal/bencode"
	"github.com/WendelHime/metatorrent/internal/shared/models"
)

func checkSegment(path []string, seg string) error {
	switch {
	case seg == "":
		return schemaErrorf("path %q contains an empty segment", strings.Join(path, "/"))
	case strings.ContainsAny(seg, "/\x00"):
		return schemaErrorf("path segment %q must not contain slashes and zero bytes", seg)
	}
	return nil
}

// FlattenTree walks a BEP 52 file tree depth-first in canonical key order
// and calls visit for every file. A file is a node whose only key is "".
func FlattenTree(tree bencode.Dict, visit func(models.FileEntry) error) error {
	return flattenDir(tree, nil, visit)
}

func flattenDir(dir bencode.Dict, prefix []string, visit func(models.FileEntry) error) error {
	if len(prefix) >= bencode.MaxDepth {
		return schemaErrorf("file tree is nested deeper than %d levels", bencode.MaxDepth)
	}
	for _, name := range dir.Keys() {
		path := append(append([]string(nil), prefix...), name)
		if err := checkSegment(path, name); err != nil {
			return err
		}
		node, ok := dir[name].(bencode.Dict)
		if !ok {
			return schemaErrorf("file tree node %q must be a dictionary", strings.Join(path, "/"))
		}
		leaf, isFile := node[""]
		if !isFile {
			if len(node) == 0 {
				return schemaErrorf("file tree directory %q is empty", strings.Join(path, "/"))
			}
			if err := flattenDir(node, path, visit); err != nil {
				return err
			}
			continue
		}
		if len(node) != 1 {
			return schemaErrorf("file tree node %q is both a file and a directory", strings.Join(path, "/"))
		}
		entry, err := leafEntry(path, leaf)
		if err != nil {
			return err
		}
		if err := visit(entry); err != nil {
			return err
		}
	}
	return nil
}

func leafEntry(path []string, leaf bencode.Value) (models.FileEntry, error) {
	attrs, ok := leaf.(bencode.Dict)
	if !ok {
		return models.FileEntry{}, schemaErrorf("file %q must be a dictionary", strings.Join(path, "/"))
	}
	if _, ok := attrs["length"]; !ok {
		return models.FileEntry{}, missingKey("length")
	}
	size, ok := attrs.GetInt("length")
	if !ok || size < 0 {
		return models.FileEntry{}, schemaErrorf("file %q has an invalid length", strings.Join(path, "/"))
	}
	entry := models.FileEntry{Path: path, Size: size}
	if root, ok := attrs.GetBytes("pieces root"); ok {
		entry.PiecesRoot = root
	}
	return entry, nil
}

// TotalSize sums file sizes, rejecting negative sizes and totals that do
// not fit in an int64.
func TotalSize(files []models.FileEntry) (int64, error) {
	var total int64
	for _, f := range files {
		if f.Size < 0 {
			return 0, schemaErrorf("file %q has a negative length", f.String())
		}
		if f.Size > math.MaxInt64-total {
			return 0, &SchemaError{Msg: ErrSizeOverflow.Error(), Err: ErrSizeOverflow}
		}
		total += f.Size
	}
	return total, nil
}

// NestFiles builds a BEP 52 file tree from flat entries. A path that is both
// a file and a directory, or that appears twice, is rejected.
func NestFiles(files []models.FileEntry) (bencode.Dict, error) {
	if _, err := TotalSize(files); err != nil {
		return nil, err
	}
	tree := bencode.Dict{}
	for _, f := range files {
		if len(f.Path) == 0 {
			return nil, schemaErrorf("file entry has an empty path")
		}
		dir := tree
		for i, seg := range f.Path {
			if err := checkSegment(f.Path, seg); err != nil {
				return nil, err
			}
			existing, exists := dir[seg]
			if i == len(f.Path)-1 {
				if exists {
					return nil, schemaErrorf("path %q conflicts with another file", f.String())
				}
				attrs := bencode.Dict{"length": bencode.NewInt(f.Size)}
				if !f.PiecesRoot.IsZero() {
					attrs["pieces root"] = bencode.ByteString(f.PiecesRoot)
				}
				dir[seg] = bencode.Dict{"": attrs}
				break
			}
			if !exists {
				sub := bencode.Dict{}
				dir[seg] = sub
				dir = sub
				continue
			}
			sub := existing.(bencode.Dict)
			if _, isFile := sub[""]; isFile {
				return nil, schemaErrorf("path %q conflicts with file %q", f.String(), strings.Join(f.Path[:i+1], "/"))
			}
			dir = sub
		}
	}
	return tree, nil
}

// flattenFiles reads a v1 "files" list. Padding entries (BEP 47 attr "p")
// are validated but not returned.
func flattenFiles(list bencode.List) ([]models.FileEntry, error) {
	var out []models.FileEntry
	for i, item := range list {
		f, ok := item.(bencode.Dict)
		if !ok {
			return nil, schemaErrorf("files[%d] must be a dictionary", i)
		}
		for _, key := range []string{"length", "path"} {
			if _, ok := f[key]; !ok {
				return nil, missingKey(key)
			}
		}
		size, ok := f.GetInt("length")
		if !ok || size < 0 {
			return nil, schemaErrorf("files[%d] has an invalid length", i)
		}
		segments, ok := f.GetList("path")
		if !ok || len(segments) == 0 {
			return nil, schemaErrorf("files[%d] has an invalid path", i)
		}
		path := make([]string, 0, len(segments))
		for _, s := range segments {
			seg, ok := s.(bencode.ByteString)
			if !ok {
				return nil, schemaErrorf("files[%d] has a non-string path segment", i)
			}
			path = append(path, string(seg))
		}
		for _, seg := range path {
			if err := checkSegment(path, seg); err != nil {
				return nil, err
			}
		}
		if attr, _ := f.GetString("attr"); strings.Contains(attr, "p") {
			continue
		}
		out = append(out, models.FileEntry{Path: path, Size: size})
	}
	return out, nil
}

func (t *Torrent) ensureLayout() (*layout, error) {
	if t.layout == nil {
		l, err := inspect(t.root, nil)
		if err != nil {
			return nil, err
		}
		t.layout = l
	}
	return t.layout, nil
}

// FileList has set semantics: v1 and v2 halves of a hybrid torrent may
// order files differently.
func (t *Torrent) FileList() ([]models.FileEntry, error) {
	l, err := t.ensureLayout()
	if err != nil {
		return nil, err
	}
	out := make([]models.FileEntry, len(l.files))
	for i, f := range l.files {
		out[i] = models.FileEntry{
			Path:       append([]string(nil), f.Path...),
			Size:       f.Size,
			PiecesRoot: append(models.Hash(nil), f.PiecesRoot...),
		}
	}
	return out, nil
}

func (t *Torrent) Size() (int64, error) {
	l, err := t.ensureLayout()
	if err != nil {
		return 0, err
	}
	return l.size, nil
}

func (t *Torrent) FileCount() (int, error) {
	l, err := t.ensureLayout()
	if err != nil {
		return 0, err
	}
	return len(l.files), nil
}

func (t *Torrent) FileMode() models.FileMode {
	info := t.info()
	if detectProtocol(info).HasV1() {
		if _, ok := info["files"]; ok {
			return models.FileModeMulti
		}
		return models.FileModeSingle
	}
	tree, _ := info.GetDict("file tree")
	if len(tree) == 1 {
		for _, node := range tree {
			if d, ok := node.(bencode.Dict); ok {
				if _, isFile := d[""]; isFile {
					return models.FileModeSingle
				}
			}
		}
	}
	return models.FileModeMulti
}

// FileTree nests the file list under the torrent name. Single-file torrents
// return the file itself.
func (t *Torrent) FileTree() (*models.FileNode, error) {
	files, err := t.FileList()
	if err != nil {
		return nil, err
	}
	if t.FileMode() == models.FileModeSingle && len(files) == 1 {
		f := files[0]
		return &models.FileNode{Name: f.Path[len(f.Path)-1], Size: f.Size}, nil
	}
	root := &models.FileNode{Name: t.Name(), Children: map[string]*models.FileNode{}}
	for _, f := range files {
		dir := root
		for _, seg := range f.Path[:len(f.Path)-1] {
			child, ok := dir.Children[seg]
			if !ok {
				child = &models.FileNode{Name: seg, Children: map[string]*models.FileNode{}}
				dir.Children[seg] = child
			}
			dir = child
		}
		leaf := f.Path[len(f.Path)-1]
		dir.Children[leaf] = &models.FileNode{Name: leaf, Size: f.Size}
	}
	return root, nil
}
