// Package merkle builds and checks BEP 52 piece hash trees on top of the
// anacrolix merkle primitives.
package merkle

import (
	"errors"
	"fmt"
	"slices"

	amerkle "github.com/anacrolix/torrent/merkle"
	ameta "github.com/anacrolix/torrent/metainfo"
)

const (
	BlockSize = amerkle.BlockSize
	HashSize  = 32
)

type Hash = [HashSize]byte

var (
	ErrInvalidPieceLength = errors.New("piece length must be a power of two and at least 16 KiB")
	ErrEmptyFile          = errors.New("empty files have no pieces root")
)

// BlocksPerPiece validates pieceLength for v2 use.
func BlocksPerPiece(pieceLength int64) (int, error) {
	if pieceLength < BlockSize || pieceLength&(pieceLength-1) != 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPieceLength, pieceLength)
	}
	return int(pieceLength / BlockSize), nil
}

// FileHasher computes one file's pieces root and piece layer from its
// content. Write the whole file, then call Sum.
type FileHasher struct {
	pieceLength int64
	piece       *amerkle.Hash
	filled      int64
	size        int64
	layer       []Hash
}

func NewFileHasher(pieceLength int64) (*FileHasher, error) {
	if _, err := BlocksPerPiece(pieceLength); err != nil {
		return nil, err
	}
	return &FileHasher{pieceLength: pieceLength, piece: amerkle.NewHash()}, nil
}

func (f *FileHasher) Write(p []byte) (int, error) {
	written := len(p)
	for len(p) > 0 {
		n := min(int64(len(p)), f.pieceLength-f.filled)
		f.piece.Write(p[:n])
		f.filled += n
		f.size += n
		p = p[n:]
		if f.filled == f.pieceLength {
			f.layer = append(f.layer, Hash(f.piece.Sum(nil)))
			f.piece.Reset()
			f.filled = 0
		}
	}
	return written, nil
}

// Sum returns the pieces root and the piece layer. The layer is nil when the
// file fits in one piece, since such files carry no piece layers entry.
func (f *FileHasher) Sum() (Hash, []Hash, error) {
	if f.size == 0 {
		return Hash{}, nil, ErrEmptyFile
	}
	if len(f.layer) == 0 {
		// a file shorter than a piece pads only to its own block count
		return Hash(f.piece.Sum(nil)), nil, nil
	}
	if f.size == f.pieceLength {
		return f.layer[0], nil, nil
	}
	layer := slices.Clone(f.layer)
	if f.filled > 0 {
		layer = append(layer, Hash(f.piece.SumMinLength(nil, int(f.pieceLength))))
	}
	return RootOfLayer(layer, f.pieceLength), layer, nil
}

// RootOfLayer reduces piece hashes to the pieces root, padding with the hash
// of an all-zero piece.
func RootOfLayer(layer []Hash, pieceLength int64) Hash {
	return amerkle.RootWithPadHash(slices.Clone(layer), ameta.HashForPiecePad(pieceLength))
}

// RootFromLayer rebuilds the pieces root from a concatenated piece layer.
func RootFromLayer(layer []byte, pieceLength int64) (Hash, error) {
	if _, err := BlocksPerPiece(pieceLength); err != nil {
		return Hash{}, err
	}
	if len(layer) == 0 || len(layer)%HashSize != 0 {
		return Hash{}, fmt.Errorf("piece layer length %d is not a positive multiple of %d", len(layer), HashSize)
	}
	hashes, err := amerkle.CompactLayerToSliceHashes(string(layer))
	if err != nil {
		return Hash{}, err
	}
	return RootOfLayer(hashes, pieceLength), nil
}

// VerifyLayer checks a file's piece layer against its pieces root and size.
func VerifyLayer(root []byte, layer []byte, size, pieceLength int64) error {
	pieces := (size + pieceLength - 1) / pieceLength
	if int64(len(layer)) != pieces*HashSize {
		return fmt.Errorf("piece layer has %d bytes, want %d", len(layer), pieces*HashSize)
	}
	got, err := RootFromLayer(layer, pieceLength)
	if err != nil {
		return err
	}
	if len(root) != HashSize || Hash(root) != got {
		return fmt.Errorf("piece layer root %x does not match pieces root %x", got, root)
	}
	return nil
}

// Concat flattens hashes into a piece layers string.
func Concat(hashes []Hash) []byte {
	out := make([]byte, 0, len(hashes)*HashSize)
	for _, h := range hashes {
		out = append(out, h[:]...)
	}
	return out
}
