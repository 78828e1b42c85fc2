package logic

import (
	"context"
	"log/slog"
	"sync"

	"github.com/WendelHime/metatorrent/internal/metainfo"
	"github.com/WendelHime/metatorrent/internal/tracker"
)

// TrackerReport is the scrape outcome for one tracker. Err is set when the
// tracker could not be scraped.
type TrackerReport struct {
	URL   string
	Stats tracker.Stats
	Err   error
}

type Checker interface {
	Check(ctx context.Context, t *metainfo.Torrent) []TrackerReport
}

type checker struct {
	t   tracker.Tracker
	log *slog.Logger
}

func NewChecker(t tracker.Tracker, logger *slog.Logger) Checker {
	return &checker{t: t, log: logger}
}

// Check scrapes every tracker concurrently. Reports keep tracker order.
func (c *checker) Check(ctx context.Context, t *metainfo.Torrent) []TrackerReport {
	hash := t.InfoHashes().AnnounceHash()
	urls := t.Trackers()
	reports := make([]TrackerReport, len(urls))

	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.log.Info("scraping tracker", slog.String("announce", url))
			stats, err := c.t.Scrape(ctx, url, hash)
			if err != nil {
				c.log.Warn("failed to scrape tracker", slog.String("announce", url), slog.Any("error", err))
			}
			reports[i] = TrackerReport{URL: url, Stats: stats, Err: err}
		}()
	}
	wg.Wait()

	return reports
}
