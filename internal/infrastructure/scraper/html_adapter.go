package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/worthit/backend/internal/domain"
)

// HTMLAdapter fetches a search page with the shared client and parses the
// product cards with goquery. It honors ctx.
type HTMLAdapter struct {
	def    SiteDefinition
	client *Client
}

// NewHTMLAdapter wires a site definition to an HTTP client
func NewHTMLAdapter(def SiteDefinition, client *Client) *HTMLAdapter {
	return &HTMLAdapter{def: def, client: client}
}

// Fetch returns the cheapest listing matching query
func (a *HTMLAdapter) Fetch(ctx context.Context, query string) (*domain.ProductResult, error) {
	target := a.def.SearchURLFor(query)

	body, err := a.client.Get(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.def.Name, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: parse html: %w", a.def.Name, err)
	}

	base, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.def.Name, err)
	}

	var listings []Listing
	doc.Find(a.def.Selectors.Item).Each(func(_ int, card *goquery.Selection) {
		listings = append(listings, extractListing(card, a.def.Selectors, resolveAgainst(base)))
	})

	return ToResult(listings, query), nil
}

// extractListing reads one product card. Missing parts stay empty.
func extractListing(card *goquery.Selection, sel Selectors, resolve func(string) string) Listing {
	l := Listing{
		Title: firstText(card, sel.Title),
		Price: CleanPrice(firstText(card, sel.Price)),
	}
	if sel.Rating != "" {
		l.Rating = firstText(card, sel.Rating)
	}

	href, ok := "", false
	if sel.Link != "" {
		href, ok = card.Find(sel.Link).First().Attr("href")
	}
	if !ok {
		href, ok = card.Attr("href")
	}
	if ok && href != "" {
		l.URL = resolve(href)
	}
	return l
}

func firstText(card *goquery.Selection, selector string) string {
	return strings.Join(strings.Fields(card.Find(selector).First().Text()), " ")
}

func resolveAgainst(base *url.URL) func(string) string {
	return func(href string) string {
		ref, err := url.Parse(href)
		if err != nil {
			return href
		}
		return base.ResolveReference(ref).String()
	}
}
