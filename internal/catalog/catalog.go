// Package catalog loads the static questionnaire definitions the scoring
// engine runs on: items, facet membership, reversed items, domain
// composition, band tables and narrative rules.
//
// A Catalog is immutable once loaded. Accessors hand out copies, so a catalog
// can be shared by any number of concurrent scoring calls.
package catalog

import (
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Aggregation selects the facet statistic that gets classified.
type Aggregation string

const (
	AggregateMean Aggregation = "mean"
	AggregateSum  Aggregation = "sum"
)

// MissingPolicy selects how a facet with tolerated missing answers is scored.
type MissingPolicy string

const (
	// MissingNominal divides the answered sum by the nominal item count.
	MissingNominal MissingPolicy = "nominal"
	// MissingProrate rescales the raw sum to the nominal item count and
	// averages over answered items only.
	MissingProrate MissingPolicy = "prorate"
)

// OverallMethod selects how the overall severity is derived.
type OverallMethod string

const (
	OverallDomainMean OverallMethod = "domain_mean"
	OverallWorstFacet OverallMethod = "worst_facet"
)

// Narrative rule scopes.
const (
	ScopeFacet   = "facet"
	ScopeDomain  = "domain"
	ScopeTotal   = "total"
	ScopeOverall = "overall"
)

type Item struct {
	ID       int    `yaml:"id" json:"id"`
	Text     string `yaml:"text" json:"text"`
	Facet    string `yaml:"-" json:"facet"`
	Domain   string `yaml:"-" json:"domain,omitempty"`
	Reversed bool   `yaml:"-" json:"reversed"`
}

// Norm is a normative mean and standard deviation for a score.
type Norm struct {
	Mean float64 `yaml:"mean" json:"mean"`
	SD   float64 `yaml:"sd" json:"sd"`
}

type Facet struct {
	Name   string `yaml:"name" json:"name"`
	Domain string `yaml:"domain" json:"domain,omitempty"`
	Items  []int  `yaml:"items" json:"items"`
	Bands  string `yaml:"bands" json:"bands"`
	Norm   *Norm  `yaml:"norm" json:"norm,omitempty"`
}

// Domain is scored from exactly three primary facets.
type Domain struct {
	Name         string            `yaml:"name" json:"name"`
	Facets       []string          `yaml:"facets" json:"facets"`
	Bands        string            `yaml:"bands" json:"bands"`
	Norm         *Norm             `yaml:"norm" json:"norm,omitempty"`
	Descriptions map[string]string `yaml:"descriptions" json:"descriptions,omitempty"`
}

// Band is one row of a threshold table: scores >= Min get Label.
type Band struct {
	Min         float64 `yaml:"min" json:"min"`
	Label       string  `yaml:"label" json:"label"`
	Description string  `yaml:"description" json:"description,omitempty"`
}

type Overall struct {
	Method OverallMethod `yaml:"method" json:"method"`
	Bands  string        `yaml:"bands" json:"bands,omitempty"`
}

// Total is an optional summed score over every facet.
type Total struct {
	Label string `yaml:"label" json:"label"`
	Norm  *Norm  `yaml:"norm" json:"norm,omitempty"`
}

type Labels struct {
	FacetNonComputable   string `yaml:"facet_non_computable" json:"facet_non_computable"`
	DomainNonComputable  string `yaml:"domain_non_computable" json:"domain_non_computable"`
	OverallNonComputable string `yaml:"overall_non_computable" json:"overall_non_computable"`
}

// Rule emits a note and/or a recommendation when the score of its target
// reaches Min. Note and Recommendation are text/template sources.
type Rule struct {
	Scope          string  `yaml:"scope" json:"scope"`
	Target         string  `yaml:"target" json:"target,omitempty"`
	Min            float64 `yaml:"min" json:"min"`
	Note           string  `yaml:"note" json:"note,omitempty"`
	Recommendation string  `yaml:"recommendation" json:"recommendation,omitempty"`
}

type Narrative struct {
	NormalNote           string `yaml:"normal_note" json:"normal_note"`
	NormalRecommendation string `yaml:"normal_recommendation" json:"normal_recommendation"`
	IncompleteNote       string `yaml:"incomplete_note" json:"incomplete_note,omitempty"`
	ElevationNote        string `yaml:"elevation_note" json:"elevation_note,omitempty"`
	SummaryNote          string `yaml:"summary_note" json:"summary_note,omitempty"`
	Rules                []Rule `yaml:"rules" json:"rules,omitempty"`
}

type document struct {
	ID                string            `yaml:"id"`
	Title             string            `yaml:"title"`
	Description       string            `yaml:"description"`
	DurationMinutes   int               `yaml:"duration_minutes"`
	Aggregation       Aggregation       `yaml:"aggregation"`
	MaxValue          int               `yaml:"max_value"`
	MissingTolerance  float64           `yaml:"missing_tolerance"`
	MissingPolicy     MissingPolicy     `yaml:"missing_policy"`
	ClinicalThreshold float64           `yaml:"clinical_threshold"`
	Options           []string          `yaml:"options"`
	Reversed          []int             `yaml:"reversed"`
	Labels            Labels            `yaml:"labels"`
	Bands             map[string][]Band `yaml:"bands"`
	Overall           Overall           `yaml:"overall"`
	Domains           []Domain          `yaml:"domains"`
	Total             *Total            `yaml:"total"`
	Narrative         Narrative         `yaml:"narrative"`
	Facets            []Facet           `yaml:"facets"`
	Items             []Item            `yaml:"items"`
}

// Catalog is a validated, read-only questionnaire definition.
type Catalog struct {
	doc      document
	items    map[int]int
	facets   map[string]int
	domains  map[string]int
	reversed map[int]bool
}

var (
	builtinMu    sync.Mutex
	builtinCache = map[string]*Catalog{}
)

// Builtin returns the named embedded catalog. Each catalog is parsed once
// per process and shared afterwards.
func Builtin(name string) (*Catalog, error) {
	builtinMu.Lock()
	defer builtinMu.Unlock()
	if c, ok := builtinCache[name]; ok {
		return c, nil
	}
	data, err := builtinFS.ReadFile("builtin/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("catalog.Builtin: unknown catalog %q: %w", name, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog.Builtin: %q: %w", name, err)
	}
	builtinCache[name] = c
	return c, nil
}

// MustBuiltin is Builtin for package-level initialisation of known names.
func MustBuiltin(name string) *Catalog {
	c, err := Builtin(name)
	if err != nil {
		panic(err)
	}
	return c
}

// List returns the names of all embedded catalogs, sorted.
func List() ([]string, error) {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.HasSuffix(n, ".yaml") {
			names = append(names, strings.TrimSuffix(n, ".yaml"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// LoadFile parses a catalog from a YAML file on disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog.LoadFile: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog.LoadFile: %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	applyDefaults(&doc)
	c := &Catalog{doc: doc}
	if err := c.index(); err != nil {
		return nil, err
	}
	return c, nil
}

func applyDefaults(doc *document) {
	if doc.Aggregation == "" {
		doc.Aggregation = AggregateMean
	}
	if doc.MaxValue == 0 {
		doc.MaxValue = 3
	}
	if doc.MissingTolerance == 0 {
		doc.MissingTolerance = 0.25
	}
	if doc.MissingPolicy == "" {
		doc.MissingPolicy = MissingNominal
	}
	if doc.Overall.Method == "" {
		doc.Overall.Method = OverallDomainMean
	}
	if doc.Labels.FacetNonComputable == "" {
		doc.Labels.FacetNonComputable = "Non calcolabile"
	}
	if doc.Labels.DomainNonComputable == "" {
		doc.Labels.DomainNonComputable = "Non calcolabile"
	}
	if doc.Labels.OverallNonComputable == "" {
		doc.Labels.OverallNonComputable = "Non calcolabile"
	}
}

// index builds the lookup tables and checks referential integrity.
func (c *Catalog) index() error {
	d := &c.doc
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("catalog id required")
	}
	if d.MaxValue < 1 {
		return fmt.Errorf("max_value must be positive, got %d", d.MaxValue)
	}
	if len(d.Options) > 0 && len(d.Options) != d.MaxValue+1 {
		return fmt.Errorf("%d options for max_value %d", len(d.Options), d.MaxValue)
	}
	if d.MissingTolerance < 0 || d.MissingTolerance > 1 {
		return fmt.Errorf("missing_tolerance must be in [0,1], got %v", d.MissingTolerance)
	}
	switch d.Aggregation {
	case AggregateMean, AggregateSum:
	default:
		return fmt.Errorf("unknown aggregation %q", d.Aggregation)
	}
	switch d.MissingPolicy {
	case MissingNominal, MissingProrate:
	default:
		return fmt.Errorf("unknown missing_policy %q", d.MissingPolicy)
	}

	for name, table := range d.Bands {
		if len(table) == 0 {
			return fmt.Errorf("band table %q is empty", name)
		}
		for i := 1; i < len(table); i++ {
			if table[i].Min >= table[i-1].Min {
				return fmt.Errorf("band table %q must be ordered by descending min", name)
			}
		}
	}

	c.items = make(map[int]int, len(d.Items))
	for i, it := range d.Items {
		if _, dup := c.items[it.ID]; dup {
			return fmt.Errorf("duplicate item id %d", it.ID)
		}
		c.items[it.ID] = i
	}

	c.reversed = make(map[int]bool, len(d.Reversed))
	for _, id := range d.Reversed {
		if _, ok := c.items[id]; !ok {
			return fmt.Errorf("reversed item %d is not in the item list", id)
		}
		c.reversed[id] = true
		d.Items[c.items[id]].Reversed = true
	}

	c.facets = make(map[string]int, len(d.Facets))
	for i, f := range d.Facets {
		if _, dup := c.facets[f.Name]; dup {
			return fmt.Errorf("duplicate facet %q", f.Name)
		}
		if len(f.Items) == 0 {
			return fmt.Errorf("facet %q has no items", f.Name)
		}
		if _, ok := d.Bands[f.Bands]; !ok {
			return fmt.Errorf("facet %q references unknown band table %q", f.Name, f.Bands)
		}
		c.facets[f.Name] = i
		for _, id := range f.Items {
			idx, ok := c.items[id]
			if !ok {
				return fmt.Errorf("facet %q references unknown item %d", f.Name, id)
			}
			if owner := d.Items[idx].Facet; owner != "" {
				return fmt.Errorf("item %d belongs to both %q and %q", id, owner, f.Name)
			}
			d.Items[idx].Facet = f.Name
			d.Items[idx].Domain = f.Domain
		}
	}

	for _, it := range d.Items {
		if it.Facet == "" {
			return fmt.Errorf("item %d belongs to no facet", it.ID)
		}
	}

	c.domains = make(map[string]int, len(d.Domains))
	for i, dom := range d.Domains {
		if _, dup := c.domains[dom.Name]; dup {
			return fmt.Errorf("duplicate domain %q", dom.Name)
		}
		if len(dom.Facets) != 3 {
			return fmt.Errorf("domain %q must list exactly three primary facets, got %d", dom.Name, len(dom.Facets))
		}
		for _, fn := range dom.Facets {
			if _, ok := c.facets[fn]; !ok {
				return fmt.Errorf("domain %q references unknown facet %q", dom.Name, fn)
			}
		}
		if _, ok := d.Bands[dom.Bands]; !ok {
			return fmt.Errorf("domain %q references unknown band table %q", dom.Name, dom.Bands)
		}
		c.domains[dom.Name] = i
	}

	switch d.Overall.Method {
	case OverallDomainMean:
		if _, ok := d.Bands[d.Overall.Bands]; !ok {
			return fmt.Errorf("overall references unknown band table %q", d.Overall.Bands)
		}
	case OverallWorstFacet:
	default:
		return fmt.Errorf("unknown overall method %q", d.Overall.Method)
	}

	for i, r := range d.Narrative.Rules {
		switch r.Scope {
		case ScopeFacet:
			if _, ok := c.facets[r.Target]; !ok {
				return fmt.Errorf("narrative rule %d targets unknown facet %q", i, r.Target)
			}
		case ScopeDomain:
			if _, ok := c.domains[r.Target]; !ok {
				return fmt.Errorf("narrative rule %d targets unknown domain %q", i, r.Target)
			}
		case ScopeTotal:
			if d.Total == nil {
				return fmt.Errorf("narrative rule %d targets the total but the catalog defines none", i)
			}
		case ScopeOverall:
		default:
			return fmt.Errorf("narrative rule %d has unknown scope %q", i, r.Scope)
		}
	}
	return nil
}

func (c *Catalog) ID() string                   { return c.doc.ID }
func (c *Catalog) Title() string                { return c.doc.Title }
func (c *Catalog) Description() string          { return c.doc.Description }
func (c *Catalog) DurationMinutes() int         { return c.doc.DurationMinutes }
func (c *Catalog) Aggregation() Aggregation     { return c.doc.Aggregation }
func (c *Catalog) MaxValue() int                { return c.doc.MaxValue }
func (c *Catalog) MissingTolerance() float64    { return c.doc.MissingTolerance }
func (c *Catalog) MissingPolicy() MissingPolicy { return c.doc.MissingPolicy }
func (c *Catalog) ClinicalThreshold() float64   { return c.doc.ClinicalThreshold }
func (c *Catalog) Labels() Labels               { return c.doc.Labels }
func (c *Catalog) Overall() Overall             { return c.doc.Overall }
func (c *Catalog) Options() []string            { return append([]string(nil), c.doc.Options...) }
func (c *Catalog) ItemCount() int               { return len(c.doc.Items) }
func (c *Catalog) IsReversed(itemID int) bool   { return c.reversed[itemID] }
func (c *Catalog) ReversedItems() []int         { return append([]int(nil), c.doc.Reversed...) }
func (c *Catalog) Bands(name string) []Band     { return append([]Band(nil), c.doc.Bands[name]...) }

// FacetNames returns facet names in catalog order.
func (c *Catalog) FacetNames() []string {
	out := make([]string, len(c.doc.Facets))
	for i, f := range c.doc.Facets {
		out[i] = f.Name
	}
	return out
}

// DomainNames returns domain names in catalog order.
func (c *Catalog) DomainNames() []string {
	out := make([]string, len(c.doc.Domains))
	for i, d := range c.doc.Domains {
		out[i] = d.Name
	}
	return out
}

// WithMissingPolicy returns a copy of the catalog scored under policy p.
func (c *Catalog) WithMissingPolicy(p MissingPolicy) (*Catalog, error) {
	switch p {
	case MissingNominal, MissingProrate:
	default:
		return nil, fmt.Errorf("unknown missing policy %q", p)
	}
	cp := *c
	cp.doc.MissingPolicy = p
	return &cp, nil
}

// Items returns the catalog items in presentation order.
func (c *Catalog) Items() []Item {
	return append([]Item(nil), c.doc.Items...)
}

func (c *Catalog) HasItem(itemID int) bool {
	_, ok := c.items[itemID]
	return ok
}

func (c *Catalog) Item(id int) (Item, bool) {
	i, ok := c.items[id]
	if !ok {
		return Item{}, false
	}
	return c.doc.Items[i], true
}

// Facets returns deep copies of the facet definitions in catalog order.
func (c *Catalog) Facets() []Facet {
	out := make([]Facet, len(c.doc.Facets))
	for i, f := range c.doc.Facets {
		out[i] = cloneFacet(f)
	}
	return out
}

func (c *Catalog) Facet(name string) (Facet, bool) {
	i, ok := c.facets[name]
	if !ok {
		return Facet{}, false
	}
	return cloneFacet(c.doc.Facets[i]), true
}

// Domains returns deep copies of the domain definitions in catalog order.
func (c *Catalog) Domains() []Domain {
	out := make([]Domain, len(c.doc.Domains))
	for i, d := range c.doc.Domains {
		out[i] = cloneDomain(d)
	}
	return out
}

func (c *Catalog) Domain(name string) (Domain, bool) {
	i, ok := c.domains[name]
	if !ok {
		return Domain{}, false
	}
	return cloneDomain(c.doc.Domains[i]), true
}

// Total returns the summed-total definition, if the catalog has one.
func (c *Catalog) Total() (Total, bool) {
	if c.doc.Total == nil {
		return Total{}, false
	}
	t := *c.doc.Total
	t.Norm = cloneNorm(t.Norm)
	return t, true
}

func (c *Catalog) Narrative() Narrative {
	n := c.doc.Narrative
	n.Rules = append([]Rule(nil), n.Rules...)
	return n
}

func cloneFacet(f Facet) Facet {
	f.Items = append([]int(nil), f.Items...)
	f.Norm = cloneNorm(f.Norm)
	return f
}

func cloneDomain(d Domain) Domain {
	d.Facets = append([]string(nil), d.Facets...)
	d.Norm = cloneNorm(d.Norm)
	if d.Descriptions != nil {
		m := make(map[string]string, len(d.Descriptions))
		for k, v := range d.Descriptions {
			m[k] = v
		}
		d.Descriptions = m
	}
	return d
}

func cloneNorm(n *Norm) *Norm {
	if n == nil {
		return nil
	}
	cp := *n
	return &cp
}
