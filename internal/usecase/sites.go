package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/worthit/backend/internal/domain"
)

// Site identifiers
const (
	SiteCroma            = "Croma"
	SiteFlipkart         = "Flipkart"
	SiteAmazon           = "Amazon"
	SiteRelianceDigital  = "Reliance Digital"
	SitePoorvika         = "Poorvika"
	SitePaiInternational = "Pai International"
	SiteSangeetha        = "Sangeetha"
)

// ImmediateSites are streamed live, in launch order
var ImmediateSites = []string{SiteCroma, SiteFlipkart, SiteAmazon}

// BackgroundSites are fetched in the background and polled later
var BackgroundSites = []string{SiteRelianceDigital, SitePoorvika, SitePaiInternational, SiteSangeetha}

// SitePolicy is the per-site timeout and attempt budget
type SitePolicy struct {
	Timeout time.Duration
	Retries int
}

// Tier defaults for sites without an explicit policy
var (
	DefaultImmediatePolicy  = SitePolicy{Timeout: 30 * time.Second, Retries: 2}
	DefaultBackgroundPolicy = SitePolicy{Timeout: 60 * time.Second, Retries: 2}
)

// DefaultPolicies are the built-in per-site policies
var DefaultPolicies = map[string]SitePolicy{
	SiteCroma:            {Timeout: 25 * time.Second, Retries: 2},
	SiteFlipkart:         {Timeout: 30 * time.Second, Retries: 2},
	SiteAmazon:           {Timeout: 30 * time.Second, Retries: 2},
	SiteRelianceDigital:  {Timeout: 60 * time.Second, Retries: 2},
	SitePoorvika:         {Timeout: 60 * time.Second, Retries: 2},
	SitePaiInternational: {Timeout: 60 * time.Second, Retries: 2},
	SiteSangeetha:        {Timeout: 60 * time.Second, Retries: 2},
}

// BuildSites resolves names against the registered adapters and applies the
// matching policy. Policy keys are matched by SiteSlug, so "reliance_digital"
// and "Reliance Digital" name the same site; missing or zero fields fall back
// to the tier default.
func BuildSites(
	tier domain.Tier,
	names []string,
	adapters map[string]domain.Site,
	policies map[string]SitePolicy,
) ([]domain.Site, error) {
	fallback := DefaultImmediatePolicy
	if tier == domain.TierBackground {
		fallback = DefaultBackgroundPolicy
	}

	sites := make([]domain.Site, 0, len(names))
	for _, name := range names {
		registered, ok := adapters[name]
		if !ok || registered.Adapter == nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSite, name)
		}

		policy := lookupPolicy(policies, name)
		if policy.Timeout <= 0 {
			policy.Timeout = fallback.Timeout
		}
		if policy.Retries <= 0 {
			policy.Retries = fallback.Retries
		}

		registered.Name = name
		registered.Tier = tier
		registered.Timeout = policy.Timeout
		registered.Retries = policy.Retries
		sites = append(sites, registered)
	}
	return sites, nil
}

// WithPolicy returns copies of sites sharing one policy
func WithPolicy(sites []domain.Site, policy SitePolicy) []domain.Site {
	out := make([]domain.Site, len(sites))
	for i, s := range sites {
		s.Timeout = policy.Timeout
		s.Retries = policy.Retries
		out[i] = s
	}
	return out
}

// SiteSlug is the configuration key for a site name: lowercase, with spaces
// and hyphens turned into underscores ("Reliance Digital" -> "reliance_digital")
func SiteSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(slug)
}

func lookupPolicy(policies map[string]SitePolicy, name string) SitePolicy {
	if p, ok := policies[name]; ok {
		return p
	}
	slug := SiteSlug(name)
	for key, p := range policies {
		if SiteSlug(key) == slug {
			return p
		}
	}
	return SitePolicy{}
}
