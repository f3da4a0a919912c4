package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/worthit/backend/internal/domain"
)

// CollyAdapter scrapes a search page with a synchronous colly collector.
// Visit blocks for the whole request and does not observe ctx once started,
// so these adapters are registered as blocking and run under the limiter.
// Requests share the client's per-host pacing and user agents.
type CollyAdapter struct {
	def     SiteDefinition
	client  *Client
	timeout time.Duration
}

// NewCollyAdapter wires a site definition to a collector factory. A nil
// client disables pacing and user agent rotation.
func NewCollyAdapter(def SiteDefinition, client *Client, timeout time.Duration) *CollyAdapter {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &CollyAdapter{def: def, client: client, timeout: timeout}
}

// Fetch returns the cheapest listing matching query
func (a *CollyAdapter) Fetch(ctx context.Context, query string) (*domain.ProductResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target := a.def.SearchURLFor(query)

	options := []colly.CollectorOption{}
	if a.client != nil {
		if err := a.client.Wait(ctx, target); err != nil {
			return nil, fmt.Errorf("%s: %w", a.def.Name, err)
		}
		options = append(options, colly.UserAgent(a.client.UserAgent()))
	}
	c := colly.NewCollector(options...)
	c.SetRequestTimeout(a.timeout)

	var (
		listings []Listing
		fetchErr error
	)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", "en-IN,en;q=0.9")
	})

	c.OnHTML(a.def.Selectors.Item, func(e *colly.HTMLElement) {
		listings = append(listings, extractListing(e.DOM, a.def.Selectors, e.Request.AbsoluteURL))
	})

	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("%w: status %d: %v", domain.ErrFetchFailed, r.StatusCode, err)
	})

	if err := c.Visit(target); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("%s: %w", a.def.Name, fetchErr)
	}
	return ToResult(listings, query), nil
}
