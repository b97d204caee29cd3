// Package config holds the immutable BMM workflow configuration: regions,
// their venues, special-vote eligibility and accepted reasons.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	RegionNorthern = "Northern Region"
	RegionCentral  = "Central Region"
	RegionSouthern = "Southern Region"
)

// DefaultVenueCapacity is the nominal per-venue capacity used for utilization.
const DefaultVenueCapacity = 100

type Region struct {
	Name                string   `yaml:"name"`
	SpecialVoteEligible bool     `yaml:"special_vote_eligible"`
	Venues              []string `yaml:"venues"`
}

// Config is built once at startup and shared read-only.
type Config struct {
	regions       []Region
	reasons       []string
	venueCapacity int
	publicURL     string
}

type fileConfig struct {
	Regions            []Region `yaml:"regions"`
	SpecialVoteReasons []string `yaml:"special_vote_reasons"`
	VenueCapacity      int      `yaml:"venue_capacity"`
	PublicURL          string   `yaml:"public_url"`
}

// Default returns the built-in workflow configuration. It has no venue
// catalogue, so any venue a member prefers is accepted.
func Default() *Config {
	return &Config{
		regions: []Region{
			{Name: RegionNorthern},
			{Name: RegionCentral, SpecialVoteEligible: true},
			{Name: RegionSouthern, SpecialVoteEligible: true},
		},
		reasons:       []string{"ILLNESS", "DISABILITY", "WORK_COMMITMENTS", "DISTANCE", "CARER_RESPONSIBILITIES", "OTHER"},
		venueCapacity: DefaultVenueCapacity,
		publicURL:     "http://localhost:3000",
	}
}

// Load reads path as YAML over the defaults. An empty path returns Default().
// Sections absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow config: %w", err)
	}
	return Parse(raw, cfg)
}

// Parse overlays YAML onto base and validates the result.
func Parse(raw []byte, base *Config) (*Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("parse workflow config: %w", err)
	}
	cfg := *base
	if len(fc.Regions) > 0 {
		cfg.regions = fc.Regions
	}
	if len(fc.SpecialVoteReasons) > 0 {
		cfg.reasons = fc.SpecialVoteReasons
	}
	if fc.VenueCapacity > 0 {
		cfg.venueCapacity = fc.VenueCapacity
	}
	if fc.PublicURL != "" {
		cfg.publicURL = strings.TrimRight(fc.PublicURL, "/")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WithPublicURL returns a copy pointing member links at url.
func (c *Config) WithPublicURL(url string) *Config {
	cp := *c
	if url != "" {
		cp.publicURL = strings.TrimRight(url, "/")
	}
	return &cp
}

func (c *Config) validate() error {
	seen := map[string]bool{}
	for _, r := range c.regions {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("workflow config: region name is required")
		}
		if seen[r.Name] {
			return fmt.Errorf("workflow config: duplicate region %q", r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// Regions returns a copy of the configured regions.
func (c *Config) Regions() []Region {
	return slices.Clone(c.regions)
}

func (c *Config) region(name string) (Region, bool) {
	for _, r := range c.regions {
		if strings.EqualFold(r.Name, strings.TrimSpace(name)) {
			return r, true
		}
	}
	return Region{}, false
}

// IsKnownRegion reports whether name is configured.
func (c *Config) IsKnownRegion(name string) bool {
	_, ok := c.region(name)
	return ok
}

// CanonicalRegion returns the configured spelling of name, or name unchanged.
func (c *Config) CanonicalRegion(name string) string {
	if r, ok := c.region(name); ok {
		return r.Name
	}
	return strings.TrimSpace(name)
}

// IsSpecialVoteEligible reports whether members of region may request a special vote.
func (c *Config) IsSpecialVoteEligible(region string) bool {
	r, ok := c.region(region)
	return ok && r.SpecialVoteEligible
}

// VenuesFor lists a region's venues; nil when the region has none configured.
// An empty list places no restriction on member preferences.
func (c *Config) VenuesFor(region string) []string {
	r, ok := c.region(region)
	if !ok {
		return nil
	}
	return slices.Clone(r.Venues)
}

// IsVenueAllowed reports whether venue may be chosen in region. Regions
// without configured venues accept any venue.
func (c *Config) IsVenueAllowed(region, venue string) bool {
	r, ok := c.region(region)
	if !ok || len(r.Venues) == 0 {
		return true
	}
	return slices.ContainsFunc(r.Venues, func(v string) bool {
		return strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(venue))
	})
}

// IsValidReason reports whether reason is an accepted special-vote reason code.
func (c *Config) IsValidReason(reason string) bool {
	return slices.Contains(c.reasons, strings.ToUpper(strings.TrimSpace(reason)))
}

func (c *Config) SpecialVoteReasons() []string { return slices.Clone(c.reasons) }

func (c *Config) VenueCapacity() int { return c.venueCapacity }

func (c *Config) PublicURL() string { return c.publicURL }
