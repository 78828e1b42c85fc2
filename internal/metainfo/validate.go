package metainfo

import (
	"strings"

	"github.com/WendelHime/metatorrent/internal/bencode"
	"github.com/WendelHime/metatorrent/internal/merkle"
	"github.com/WendelHime/metatorrent/internal/shared/models"
)

type layout struct {
	protocol models.Protocol
	files    []models.FileEntry
	size     int64
}

// inspect is the structural parse pass. It never mutates root.
func inspect(root bencode.Dict, validate ParseValidator) (*layout, error) {
	infoValue, ok := root["info"]
	if !ok {
		return nil, missingKey("info")
	}
	info, ok := infoValue.(bencode.Dict)
	if !ok {
		return nil, schemaErrorf("info must be a dictionary, got %s", infoValue.Kind())
	}
	for _, key := range []string{"piece length", "name"} {
		if _, ok := info[key]; !ok {
			return nil, missingKey(key)
		}
	}
	pieceLength, ok := info.GetInt("piece length")
	if !ok || pieceLength <= 0 {
		return nil, schemaErrorf("piece length must be a positive integer")
	}
	name, ok := info.GetString("name")
	if !ok {
		return nil, schemaErrorf("name must be a string")
	}
	if err := checkName(name); err != nil {
		return nil, &SchemaError{Msg: err.Error(), Err: err}
	}

	l := &layout{protocol: detectProtocol(info)}
	if l.protocol == "" {
		return nil, schemaErrorf("info dictionary carries neither v1 nor v2 piece data")
	}

	var v1Files, v2Files []models.FileEntry
	var err error
	if l.protocol.HasV2() {
		v2Files, err = inspectV2(root, info, pieceLength, validate)
		if err != nil {
			return nil, err
		}
	}
	if l.protocol.HasV1() {
		// the v2 pass already reported each file to the validator
		v1Validate := validate
		if l.protocol.HasV2() {
			v1Validate = nil
		}
		v1Files, err = inspectV1(info, name, v1Validate)
		if err != nil {
			return nil, err
		}
	}

	switch l.protocol {
	case models.ProtocolHybrid:
		_, single := info["length"]
		if err := sameFiles(v1Files, v2Files, single); err != nil {
			return nil, err
		}
		l.files = v2Files
	case models.ProtocolV2:
		l.files = v2Files
	default:
		l.files = v1Files
	}
	if l.size, err = TotalSize(l.files); err != nil {
		return nil, err
	}
	return l, nil
}

func inspectV1(info bencode.Dict, name string, validate ParseValidator) ([]models.FileEntry, error) {
	if _, ok := info["pieces"]; !ok {
		return nil, missingKey("pieces")
	}
	pieces, ok := info.GetBytes("pieces")
	if !ok || len(pieces)%20 != 0 {
		return nil, schemaErrorf("pieces must be a string of 20-byte SHA-1 digests")
	}

	_, hasLength := info["length"]
	filesValue, hasFiles := info["files"]
	var files []models.FileEntry
	switch {
	case hasLength && hasFiles:
		return nil, schemaErrorf("info must not contain both length and files")
	case hasLength:
		size, ok := info.GetInt("length")
		if !ok || size < 0 {
			return nil, schemaErrorf("length must be a non-negative integer")
		}
		files = []models.FileEntry{{Path: []string{name}, Size: size}}
	case hasFiles:
		list, ok := filesValue.(bencode.List)
		if !ok {
			return nil, schemaErrorf("files must be a list")
		}
		var err error
		if files, err = flattenFiles(list); err != nil {
			return nil, err
		}
		// rejects a name used both as a file and as a directory
		if _, err := NestFiles(files); err != nil {
			return nil, err
		}
	default:
		return nil, schemaErrorf("info must contain either length or files")
	}

	if validate != nil {
		for _, f := range files {
			if err := validate(f.Path[len(f.Path)-1], f.Path); err != nil {
				return nil, rejected(err)
			}
		}
	}
	return files, nil
}

func inspectV2(root, info bencode.Dict, pieceLength int64, validate ParseValidator) ([]models.FileEntry, error) {
	tree, _ := info.GetDict("file tree")
	layers, _ := root.GetDict("piece layers")

	var files []models.FileEntry
	err := FlattenTree(tree, func(f models.FileEntry) error {
		if err := checkPieceLayer(f, layers, pieceLength); err != nil {
			return err
		}
		if validate != nil {
			if err := validate(f.Path[len(f.Path)-1], f.Path); err != nil {
				return rejected(err)
			}
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, schemaErrorf("file tree is empty")
	}
	return files, nil
}

func checkPieceLayer(f models.FileEntry, layers bencode.Dict, pieceLength int64) error {
	if f.Size == 0 {
		return nil
	}
	if len(f.PiecesRoot) != merkle.HashSize {
		return schemaErrorf("file %q needs a %d-byte pieces root", f.String(), merkle.HashSize)
	}
	if f.Size <= pieceLength {
		return nil
	}
	// piece layers only exist for power of two piece lengths
	if _, err := merkle.BlocksPerPiece(pieceLength); err != nil {
		return &SchemaError{Msg: "file " + f.String() + ": " + err.Error(), Err: err}
	}
	if layers == nil {
		return missingKey("piece layers")
	}
	layer, ok := layers.GetBytes(string(f.PiecesRoot))
	if !ok {
		return schemaErrorf("piece layers has no entry for file %q", f.String())
	}
	if err := merkle.VerifyLayer(f.PiecesRoot, layer, f.Size, pieceLength); err != nil {
		return &SchemaError{Msg: "file " + f.String() + ": " + err.Error(), Err: err}
	}
	return nil
}

// sameFiles compares the two halves of a hybrid torrent. A single v1 file
// takes the torrent name, so only its size is compared.
func sameFiles(v1, v2 []models.FileEntry, single bool) error {
	if len(v1) != len(v2) {
		return schemaErrorf("v1 and v2 file lists differ: %d and %d files", len(v1), len(v2))
	}
	if single {
		if v1[0].Size != v2[0].Size {
			return schemaErrorf("v1 and v2 file lists differ at %q", v1[0].String())
		}
		return nil
	}
	sizes := make(map[string]int64, len(v2))
	for _, f := range v2 {
		sizes[strings.Join(f.Path, "/")] = f.Size
	}
	for _, f := range v1 {
		size, ok := sizes[strings.Join(f.Path, "/")]
		if !ok || size != f.Size {
			return schemaErrorf("v1 and v2 file lists differ at %q", f.String())
		}
	}
	return nil
}
