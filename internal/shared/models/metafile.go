package models

import (
	"encoding/hex"
	"strings"
)

type Protocol string

const (
	ProtocolV1     Protocol = "v1"
	ProtocolV2     Protocol = "v2"
	ProtocolHybrid Protocol = "hybrid"
)

func (p Protocol) HasV1() bool { return p == ProtocolV1 || p == ProtocolHybrid }
func (p Protocol) HasV2() bool { return p == ProtocolV2 || p == ProtocolHybrid }

type FileMode string

const (
	FileModeSingle FileMode = "single"
	FileModeMulti  FileMode = "multi"
)

// Hash is a raw digest. A nil Hash means absent.
type Hash []byte

func (h Hash) String() string {
	return hex.EncodeToString(h)
}

func (h Hash) IsZero() bool {
	return len(h) == 0
}

type InfoHashSet struct {
	V1 Hash // SHA-1, 20 bytes
	V2 Hash // SHA-256, 32 bytes
}

// Preferred returns V1 when present, else V2.
func (s InfoHashSet) Preferred() Hash {
	if !s.V1.IsZero() {
		return s.V1
	}
	return s.V2
}

// V2ForAnnounce is the V2 hash truncated to the 20 bytes trackers accept.
func (s InfoHashSet) V2ForAnnounce() Hash {
	if len(s.V2) < 20 {
		return nil
	}
	return s.V2[:20]
}

// AnnounceHash is the 20-byte hash sent to trackers: V1 when present, else
// the truncated V2.
func (s InfoHashSet) AnnounceHash() Hash {
	if !s.V1.IsZero() {
		return s.V1
	}
	return s.V2ForAnnounce()
}

type FileEntry struct {
	Path       []string
	Size       int64
	PiecesRoot Hash
}

func (f FileEntry) String() string {
	return strings.Join(f.Path, "/")
}

// FileNode is the nested view of a torrent's content. Files have no
// Children; directories have no Size of their own.
type FileNode struct {
	Name     string
	Size     int64
	Children map[string]*FileNode
}

func (n *FileNode) IsDir() bool {
	return n.Children != nil
}

// Node is a DHT bootstrap node from the root "nodes" list.
type Node struct {
	Host string
	Port int64
}

// InfoHeader holds the scalar fields of an info dictionary.
type InfoHeader struct {
	Name        string `bencode:"name"`
	PieceLength int64  `bencode:"piece length"`
	Private     int64  `bencode:"private"`
	Source      string `bencode:"source"`
	MetaVersion int64  `bencode:"meta version"`
}
