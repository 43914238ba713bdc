package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/pricebot-pl/internal/listing"
)

// CollectListings walks a region's search pages, gathers offer links and
// extracts the address from each listing page, producing the raw records
// the batch reader consumes. Paging stops at maxPages, at the portal's
// reported total, or at the first page with no new links. A listing page
// that fails to download or yields no address is dropped; the run goes on.
func CollectListings(ctx context.Context, c *Client, regionSlug string, maxPages, perPage int) ([]listing.RawRecord, error) {
	if maxPages <= 0 {
		maxPages = 1
	}
	if perPage <= 0 {
		perPage = 72
	}

	seen := make(map[string]bool)
	var links []string
	total := -1

	for page := 1; page <= maxPages; page++ {
		html, err := c.Fetch(ctx, c.SearchPageURL(regionSlug, page, perPage))
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("failed to fetch first results page: %w", err)
			}
			break
		}
		if _, _, t, ok := ParseBannerCounts(html); ok {
			total = t
		}

		pageLinks, err := ParseListingLinks(html, c.base)
		if err != nil {
			return nil, fmt.Errorf("failed to parse results page %d: %w", page, err)
		}

		added := 0
		for _, link := range pageLinks {
			if !seen[link] {
				seen[link] = true
				links = append(links, link)
				added++
			}
		}
		if added == 0 {
			break
		}
		if total >= 0 && len(links) >= total {
			break
		}
	}

	var records []listing.RawRecord
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		html, err := c.Fetch(ctx, link)
		if err != nil {
			continue
		}
		parts, err := ParseAddress(html)
		if err != nil {
			continue
		}
		text := parts.Text()
		if text == "" {
			continue
		}
		records = append(records, listing.RawRecord{
			URL:        link,
			RawAddress: text,
			ScrapedAt:  time.Now().UTC(),
		})
	}
	return records, nil
}
