// Package catalog holds the static game content: sectors, catalogued objects,
// star milestones, badge rules and shop items. It is read-only input that the
// repository reconciles into the store.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"space_puzzle/model"
)

//go:embed default.yaml
var defaultCatalog []byte

type Catalog struct {
	Version    int         `yaml:"version"`
	Sectors    []Sector    `yaml:"sectors"`
	Objects    []Object    `yaml:"objects"`
	Milestones []Milestone `yaml:"milestones"`
	Badges     []Badge     `yaml:"badges"`
	Items      []Item      `yaml:"items"`
}

type Sector struct {
	Slug          string `yaml:"slug"`
	Name          string `yaml:"name"`
	Description   string `yaml:"description"`
	DisplayOrder  int    `yaml:"displayOrder"`
	RequiredStars int    `yaml:"requiredStars"`
}

type Object struct {
	NasaID       string `yaml:"nasaId"`
	Sector       string `yaml:"sector"`
	Title        string `yaml:"title"`
	NameEn       string `yaml:"nameEn"`
	Description  string `yaml:"description"`
	ImageURL     string `yaml:"imageUrl"`
	Category     string `yaml:"category"`
	Difficulty   string `yaml:"difficulty"`
	GridSize     int    `yaml:"gridSize"`
	RewardStars  int    `yaml:"rewardStars"`
	PuzzleType   string `yaml:"puzzleType"`
	DisplayOrder int    `yaml:"displayOrder"`
}

type Milestone struct {
	RequiredStars int    `yaml:"requiredStars"`
	RewardCredits int    `yaml:"rewardCredits"`
	RewardParts   int    `yaml:"rewardParts"`
	UnlockSector  string `yaml:"unlockSector"`
}

type Badge struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	IconURL     string `yaml:"iconUrl"`
	BadgeType   string `yaml:"badgeType"`
	Rules       []Rule `yaml:"rules"`
}

type Rule struct {
	Type    model.RuleType `yaml:"type"`
	Count   *int           `yaml:"count"`
	Seconds *float64       `yaml:"seconds"`
}

type Item struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	Cost int    `yaml:"cost"`
}

// Default the embedded catalog
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file; an empty path means the embedded default
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks key uniqueness and cross references
func (c *Catalog) Validate() error {
	slugs := make(map[string]bool, len(c.Sectors))
	for _, s := range c.Sectors {
		if s.Slug == "" {
			return fmt.Errorf("catalog: sector without slug")
		}
		if slugs[s.Slug] {
			return fmt.Errorf("catalog: duplicate sector %q", s.Slug)
		}
		slugs[s.Slug] = true
	}

	nasaIDs := make(map[string]bool, len(c.Objects))
	for _, o := range c.Objects {
		if o.NasaID == "" {
			return fmt.Errorf("catalog: object without nasaId")
		}
		if nasaIDs[o.NasaID] {
			return fmt.Errorf("catalog: duplicate object %q", o.NasaID)
		}
		nasaIDs[o.NasaID] = true
		if !slugs[o.Sector] {
			return fmt.Errorf("catalog: object %q references unknown sector %q", o.NasaID, o.Sector)
		}
	}

	thresholds := make(map[int]bool, len(c.Milestones))
	for _, m := range c.Milestones {
		if m.RequiredStars <= 0 {
			return fmt.Errorf("catalog: milestone threshold must be positive, got %d", m.RequiredStars)
		}
		if thresholds[m.RequiredStars] {
			return fmt.Errorf("catalog: duplicate milestone at %d stars", m.RequiredStars)
		}
		thresholds[m.RequiredStars] = true
		if m.UnlockSector != "" && !slugs[m.UnlockSector] {
			return fmt.Errorf("catalog: milestone %d unlocks unknown sector %q", m.RequiredStars, m.UnlockSector)
		}
	}

	badges := make(map[string]bool, len(c.Badges))
	for _, b := range c.Badges {
		if b.ID == "" {
			return fmt.Errorf("catalog: badge without id")
		}
		if badges[b.ID] {
			return fmt.Errorf("catalog: duplicate badge %q", b.ID)
		}
		badges[b.ID] = true
		for _, r := range b.Rules {
			switch r.Type {
			case model.RuleTotalClear:
				if r.Count == nil || *r.Count <= 0 {
					return fmt.Errorf("catalog: badge %q: TOTAL_CLEAR needs a positive count", b.ID)
				}
			case model.RuleFastClear:
				if r.Seconds == nil || *r.Seconds <= 0 {
					return fmt.Errorf("catalog: badge %q: FAST_CLEAR needs positive seconds", b.ID)
				}
			case model.RuleFirstClear:
			default:
				return fmt.Errorf("catalog: badge %q: unknown rule type %q", b.ID, r.Type)
			}
		}
	}

	items := make(map[string]bool, len(c.Items))
	for _, it := range c.Items {
		if it.ID == "" || items[it.ID] {
			return fmt.Errorf("catalog: missing or duplicate item id %q", it.ID)
		}
		items[it.ID] = true
	}
	return nil
}

// ConfigJSON stored form of a rule, as read back by model.BadgeRule.Predicate
func (r Rule) ConfigJSON() []byte {
	cfg := map[string]any{}
	if r.Count != nil {
		cfg["count"] = *r.Count
	}
	if r.Seconds != nil {
		cfg["seconds"] = *r.Seconds
	}
	data, _ := json.Marshal(cfg)
	return data
}
