// Package feed fetches the latest posts from the external content feed.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const requestTimeout = 10 * time.Second

// Post is one item of the feed: a display title plus the slug used to
// build its deep link.
type Post struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

type Client struct {
	url      string
	linkBase string
	http     *http.Client
	log      zerolog.Logger
}

func NewClient(feedURL, linkBase string, log zerolog.Logger) *Client {
	return &Client{
		url:      feedURL,
		linkBase: strings.TrimRight(linkBase, "/"),
		http:     &http.Client{Timeout: requestTimeout},
		log:      log,
	}
}

// Latest fetches the current feed, freshest first as served by the
// endpoint. Nothing is cached; every call hits the feed again.
func (c *Client) Latest(ctx context.Context) ([]Post, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("fetch feed: unexpected status %d", resp.StatusCode)
	}

	var posts []Post
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	c.log.Debug().Int("count", len(posts)).Msg("feed fetched")
	return posts, nil
}

// DeepLink builds the public URL for a post slug.
func (c *Client) DeepLink(slug string) string {
	return c.linkBase + "/" + strings.TrimLeft(slug, "/")
}
