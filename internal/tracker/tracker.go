// Package tracker asks trackers how many peers they know for a torrent,
// using the scrape convention over HTTP and UDP.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/WendelHime/metatorrent/internal/shared/models"
)

var (
	ErrUnsupportedProtocol = errors.New("unsupported tracker protocol")
	ErrScrapeUnsupported   = errors.New("tracker does not support scrape")
	ErrInvalidInfoHash     = errors.New("trackers need a 20-byte info hash")
	ErrUnknownTorrent      = errors.New("tracker does not know the torrent")
)

// Stats is one tracker's view of a swarm.
type Stats struct {
	Seeders   int64
	Leechers  int64
	Completed int64
}

type Tracker interface {
	Scrape(ctx context.Context, announce string, infoHash models.Hash) (Stats, error)
	WithHTTPClient(client *http.Client) Tracker
}

type StatsGetter interface {
	GetStats(ctx context.Context, announce string, infoHash models.Hash) (Stats, error)
}

type tracker struct {
	HTTPClient StatsGetter
	UDPClient  StatsGetter
	log        *slog.Logger
}

func NewTracker(logger *slog.Logger) Tracker {
	return &tracker{
		HTTPClient: NewHTTPGetter(&http.Client{Timeout: 60 * time.Second}),
		UDPClient:  NewUDPGetter(),
		log:        logger,
	}
}

func (t *tracker) WithHTTPClient(client *http.Client) Tracker {
	t.HTTPClient = NewHTTPGetter(client)
	return t
}

func (t *tracker) Scrape(ctx context.Context, announce string, infoHash models.Hash) (Stats, error) {
	if announce == "" {
		return Stats{}, fmt.Errorf("announce url is empty")
	}
	if len(infoHash) != 20 {
		return Stats{}, ErrInvalidInfoHash
	}
	switch {
	case strings.HasPrefix(announce, "http"):
		return t.HTTPClient.GetStats(ctx, announce, infoHash)
	case strings.HasPrefix(announce, "udp"):
		return t.UDPClient.GetStats(ctx, announce, infoHash)
	default:
		t.log.Error("unsupported protocol", slog.String("announce-url", announce))
		return Stats{}, ErrUnsupportedProtocol
	}
}
