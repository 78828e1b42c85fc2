package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/WendelHime/metatorrent/internal/shared/models"
	"github.com/jackpal/bencode-go"
)

type HTTPGetter struct {
	client *http.Client
}

func NewHTTPGetter(client *http.Client) StatsGetter {
	return &HTTPGetter{client: client}
}

// ScrapeURL derives the scrape endpoint from an announce URL whose last
// path segment starts with "announce".
func ScrapeURL(announce string) (*url.URL, error) {
	tracker, err := url.Parse(announce)
	if err != nil {
		return nil, err
	}
	i := strings.LastIndex(tracker.Path, "/")
	last := tracker.Path[i+1:]
	if !strings.HasPrefix(last, "announce") {
		return nil, ErrScrapeUnsupported
	}
	tracker.Path = tracker.Path[:i+1] + "scrape" + strings.TrimPrefix(last, "announce")
	return tracker, nil
}

func (h *HTTPGetter) GetStats(ctx context.Context, announce string, infoHash models.Hash) (Stats, error) {
	tracker, err := ScrapeURL(announce)
	if err != nil {
		return Stats{}, err
	}

	query := tracker.Query()
	query.Add("info_hash", string(infoHash))
	tracker.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tracker.String(), nil)
	if err != nil {
		return Stats{}, err
	}
	response, err := h.client.Do(req)
	if err != nil {
		return Stats{}, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return Stats{}, fmt.Errorf("http error: %s", response.Status)
	}

	return decodeHTTPResponse(response.Body, infoHash)
}

func decodeHTTPResponse(response io.Reader, infoHash models.Hash) (Stats, error) {
	data, err := bencode.Decode(response)
	if err != nil {
		return Stats{}, err
	}
	resp, ok := data.(map[string]interface{})
	if !ok {
		return Stats{}, errors.New("scrape response is not a dictionary")
	}
	if reason, ok := resp["failure reason"].(string); ok {
		return Stats{}, fmt.Errorf("tracker failure: %s", reason)
	}
	files, _ := resp["files"].(map[string]interface{})
	file, ok := files[string(infoHash)].(map[string]interface{})
	if !ok {
		return Stats{}, ErrUnknownTorrent
	}

	count := func(key string) int64 {
		n, _ := file[key].(int64)
		return n
	}
	return Stats{
		Seeders:   count("complete"),
		Leechers:  count("incomplete"),
		Completed: count("downloaded"),
	}, nil
}
