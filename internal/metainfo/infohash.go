package metainfo

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"

	"github.com/WendelHime/metatorrent/internal/bencode"
	"github.com/WendelHime/metatorrent/internal/shared/models"
)

func detectProtocol(info bencode.Dict) models.Protocol {
	v1 := false
	for _, k := range v1InfoKeys {
		if _, ok := info[k]; ok {
			v1 = true
		}
	}
	version, _ := info.GetInt("meta version")
	_, hasTree := info.GetDict("file tree")
	v2 := version == 2 && hasTree

	switch {
	case v1 && v2:
		return models.ProtocolHybrid
	case v2:
		return models.ProtocolV2
	case v1:
		return models.ProtocolV1
	default:
		return ""
	}
}

// Protocol is empty when the info dictionary carries no piece data.
func (t *Torrent) Protocol() models.Protocol {
	return detectProtocol(t.info())
}

// InfoHashes hashes the canonical encoding of the info dictionary once per
// protocol generation it carries.
func (t *Torrent) InfoHashes() models.InfoHashSet {
	if t.hashes == nil {
		info := t.info()
		protocol := detectProtocol(info)
		encoded := bencode.Encode(info)
		var set models.InfoHashSet
		if protocol.HasV1() {
			sum := sha1.Sum(encoded)
			set.V1 = sum[:]
		}
		if protocol.HasV2() {
			sum := sha256.Sum256(encoded)
			set.V2 = sum[:]
		}
		t.hashes = &set
	}
	return models.InfoHashSet{
		V1: models.Hash(bytes.Clone(t.hashes.V1)),
		V2: models.Hash(bytes.Clone(t.hashes.V2)),
	}
}

// InfoHash prefers the v1 hash for compatibility with v1-only tooling.
func (t *Torrent) InfoHash() models.Hash {
	return t.InfoHashes().Preferred()
}

func (t *Torrent) InfoHashV1() models.Hash {
	return t.InfoHashes().V1
}

func (t *Torrent) InfoHashV2() models.Hash {
	return t.InfoHashes().V2
}

func (t *Torrent) InfoHashV2ForAnnounce() models.Hash {
	return t.InfoHashes().V2ForAnnounce()
}
