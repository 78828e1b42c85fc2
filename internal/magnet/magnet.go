package magnet

import (
	"errors"
	"net/url"
	"strings"

	"github.com/WendelHime/metatorrent/internal/shared/models"
)

var ErrNoInfoHash = errors.New("magnet: no info hash")

// Build renders magnet:?xt=urn:btih:<hex>&dn=<name>&tr=<tracker>... using the
// v1 hash when present, else the v2 hash. Trackers keep their order.
func Build(hashes models.InfoHashSet, name string, trackers []string) (string, error) {
	hash := hashes.Preferred()
	if hash.IsZero() {
		return "", ErrNoInfoHash
	}
	var b strings.Builder
	b.WriteString("magnet:?xt=urn:btih:")
	b.WriteString(hash.String())
	if name != "" {
		b.WriteString("&dn=")
		b.WriteString(url.QueryEscape(name))
	}
	for _, tr := range trackers {
		b.WriteString("&tr=")
		b.WriteString(url.QueryEscape(tr))
	}
	return b.String(), nil
}
