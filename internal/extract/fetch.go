package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Client fetches portal pages with browser-like headers and a fixed delay
// between requests, matching what the portal tolerates from a session.
// Safe for concurrent use: requests are serialized so the pacing holds
// across goroutines.
type Client struct {
	http      *http.Client
	base      string
	userAgent string
	delay     time.Duration

	mu   sync.Mutex // serializes requests and guards last
	last time.Time
}

// NewClient returns a client for the given portal base URL. Zero delay
// means no pacing.
func NewClient(base string, delay time.Duration) *Client {
	return &Client{
		http:      &http.Client{Timeout: 30 * time.Second},
		base:      strings.TrimRight(base, "/"),
		userAgent: defaultUserAgent,
		delay:     delay,
	}
}

// SearchPageURL builds the results-page URL for a region slug and page
// number.
func (c *Client) SearchPageURL(regionSlug string, page, perPage int) string {
	return fmt.Sprintf(
		"%s/pl/wyniki/sprzedaz/mieszkanie/%s?limit=%d&ownerTypeSingleSelect=ALL&by=DEFAULT&direction=DESC&page=%d",
		c.base, regionSlug, perPage, page,
	)
}

// Fetch downloads one page as a string. Non-2xx statuses are errors; the
// caller decides whether to retry.
func (c *Client) Fetch(ctx context.Context, pageURL string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.delay > 0 && !c.last.IsZero() {
		wait := c.delay - time.Since(c.last)
		if wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pl-PL,pl;q=0.9,en;q=0.8")
	req.Header.Set("Referer", c.base+"/")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()
	c.last = time.Now()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch %s: unexpected status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", pageURL, err)
	}
	return string(body), nil
}

// reBannerCounts matches the results banner, e.g. "1-72 ogłoszeń z 2798".
var reBannerCounts = regexp.MustCompile(`(?i)(\d+)\s*[-–]\s*(\d+)\s+og(?:ł|l)osze(?:ń|n)\s+z\s+(\d+)`)

// ParseBannerCounts reads the (low, high, total) offer counts from a
// results page. ok is false when the banner is absent.
func ParseBannerCounts(html string) (lo, hi, total int, ok bool) {
	m := reBannerCounts.FindStringSubmatch(strings.ReplaceAll(html, "\u00a0", " "))
	if m == nil {
		return 0, 0, 0, false
	}
	lo, _ = strconv.Atoi(m[1])
	hi, _ = strconv.Atoi(m[2])
	total, _ = strconv.Atoi(m[3])
	return lo, hi, total, true
}
