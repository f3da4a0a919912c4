package scraper

import (
	_ "embed"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/worthit/backend/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Scraping engines a site definition can use
const (
	EngineHTTP  = "http"
	EngineColly = "colly"
)

const queryPlaceholder = "{query}"

// Catalog lists how each retailer's search page is fetched and parsed
type Catalog struct {
	Sites []SiteDefinition `yaml:"sites"`
}

// SiteDefinition describes a single retailer's search page
type SiteDefinition struct {
	Name      string    `yaml:"name"`
	Engine    string    `yaml:"engine"`
	SearchURL string    `yaml:"search_url"`
	Selectors Selectors `yaml:"selectors"`
}

// Selectors locate the parts of a product card. Item scopes every other
// selector.
type Selectors struct {
	Item   string `yaml:"item"`
	Title  string `yaml:"title"`
	Price  string `yaml:"price"`
	Rating string `yaml:"rating"`
	Link   string `yaml:"link"`
}

// SearchURLFor renders the search URL for query
func (d SiteDefinition) SearchURLFor(query string) string {
	return strings.ReplaceAll(d.SearchURL, queryPlaceholder, url.QueryEscape(strings.TrimSpace(query)))
}

// LoadCatalog reads a catalog file; an empty path loads the built-in catalog
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return ParseCatalog(defaultCatalog)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: cannot read %s: %w", path, err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes and validates catalog YAML
func ParseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("catalog: cannot parse: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Sites) == 0 {
		return fmt.Errorf("catalog: no sites defined")
	}
	seen := make(map[string]bool, len(c.Sites))
	for i, s := range c.Sites {
		switch {
		case s.Name == "":
			return fmt.Errorf("catalog: site %d has no name", i)
		case seen[s.Name]:
			return fmt.Errorf("catalog: duplicate site %q", s.Name)
		case s.Engine != EngineHTTP && s.Engine != EngineColly:
			return fmt.Errorf("catalog: site %q: engine must be %q or %q, got: %q", s.Name, EngineHTTP, EngineColly, s.Engine)
		case !strings.Contains(s.SearchURL, queryPlaceholder):
			return fmt.Errorf("catalog: site %q: search_url must contain %s", s.Name, queryPlaceholder)
		case s.Selectors.Item == "" || s.Selectors.Title == "" || s.Selectors.Price == "":
			return fmt.Errorf("catalog: site %q: item, title and price selectors are required", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// Build creates one adapter per site. HTTP sites are async and share client;
// colly sites are blocking. Tier and policy are left for the caller.
func (c *Catalog) Build(client *Client, requestTimeout time.Duration, logger *slog.Logger) map[string]domain.Site {
	if logger == nil {
		logger = slog.Default()
	}
	sites := make(map[string]domain.Site, len(c.Sites))
	for _, def := range c.Sites {
		site := domain.Site{Name: def.Name}
		switch def.Engine {
		case EngineColly:
			site.Mode = domain.ModeBlocking
			site.Adapter = NewCollyAdapter(def, client, requestTimeout)
		default:
			site.Mode = domain.ModeAsync
			site.Adapter = NewHTMLAdapter(def, client)
		}
		logger.Debug("adapter registered", "site", def.Name, "engine", def.Engine, "mode", site.Mode.String())
		sites[def.Name] = site
	}
	return sites
}
