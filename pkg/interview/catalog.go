package interview

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// GeneralStandards is the standards key used when a topic has none of its own.
const GeneralStandards = "general"

type Topic struct {
	Name      string                `yaml:"name"`
	Standards string                `yaml:"standards"`
	Opening   map[Difficulty]string `yaml:"opening"`
	KeyAreas  []string              `yaml:"key_areas"`
}

// Standards describes the architecture an organisation expects for a class of system.
type Standards struct {
	CoreComponents          []string          `yaml:"core_components" json:"core_components,omitempty"`
	PreferredPatterns       []string          `yaml:"preferred_patterns" json:"preferred_patterns,omitempty"`
	SecurityRequirements    []string          `yaml:"security_requirements" json:"security_requirements,omitempty"`
	ScalabilityPatterns     []string          `yaml:"scalability_patterns" json:"scalability_patterns,omitempty"`
	ReliabilityRequirements []string          `yaml:"reliability_requirements" json:"reliability_requirements,omitempty"`
	Notes                   map[string]string `yaml:"notes" json:"notes,omitempty"`
}

// Terms lists every named practice in the standards, used for keyword matching.
func (s Standards) Terms() []string {
	var out []string
	for _, group := range [][]string{s.CoreComponents, s.PreferredPatterns, s.SecurityRequirements, s.ScalabilityPatterns, s.ReliabilityRequirements} {
		out = append(out, group...)
	}
	keys := make([]string, 0, len(s.Notes))
	for k := range s.Notes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, s.Notes[k])
	}
	return out
}

type PhaseGuide struct {
	Description string   `yaml:"description"`
	Objectives  []string `yaml:"objectives"`
}

type Catalog struct {
	Topics    map[string]Topic     `yaml:"topics"`
	Standards map[string]Standards `yaml:"standards"`
	Phases    map[Phase]PhaseGuide `yaml:"phases"`
}

// ParseCatalog decodes a catalog document and checks that it is usable.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if _, ok := c.Standards[GeneralStandards]; !ok {
		return nil, fmt.Errorf("catalog: missing %q standards", GeneralStandards)
	}
	for key, t := range c.Topics {
		for d := range t.Opening {
			if !d.Valid() {
				return nil, fmt.Errorf("catalog: topic %s has opening for unknown difficulty %q", key, d)
			}
		}
	}
	for p := range c.Phases {
		if p.Rank() < 0 {
			return nil, fmt.Errorf("catalog: unknown phase %q", p)
		}
	}
	return &c, nil
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := ParseCatalog(catalogYAML)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// NormalizeTopic folds user input such as "Chat System" into a catalog key.
func NormalizeTopic(topic string) string {
	t := strings.ToLower(strings.TrimSpace(topic))
	t = strings.NewReplacer(" ", "_", "-", "_").Replace(t)
	return t
}

func (c *Catalog) Topic(topic string) (Topic, bool) {
	t, ok := c.Topics[NormalizeTopic(topic)]
	return t, ok
}

// OpeningQuestion returns the canned opening for topic at difficulty, if the catalog has one.
func (c *Catalog) OpeningQuestion(topic string, d Difficulty) (string, bool) {
	t, ok := c.Topic(topic)
	if !ok {
		return "", false
	}
	q, ok := t.Opening[d]
	return q, ok && q != ""
}

// StandardsFor falls back to the general standards for unknown topics.
func (c *Catalog) StandardsFor(topic string) Standards {
	key := NormalizeTopic(topic)
	if t, ok := c.Topics[key]; ok && t.Standards != "" {
		key = t.Standards
	}
	if s, ok := c.Standards[key]; ok {
		return s
	}
	return c.Standards[GeneralStandards]
}

// TopicKeys returns the catalog topics in stable order.
func (c *Catalog) TopicKeys() []string {
	keys := make([]string, 0, len(c.Topics))
	for k := range c.Topics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Catalog) PhaseGuide(p Phase) (PhaseGuide, bool) {
	g, ok := c.Phases[p]
	return g, ok
}
