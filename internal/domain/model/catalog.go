package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DeviceSpec describes one device of the fixed set known at startup.
type DeviceSpec struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Number   int      `json:"number,omitempty"`   // spoken numeric alias, 0 for none
	Aliases  []string `json:"aliases,omitempty"`  // extra spoken forms
	Suggests string   `json:"suggests,omitempty"` // device offered after this one is turned on
}

// CatalogFile is the on-disk shape of the device catalog.
type CatalogFile struct {
	Devices []DeviceSpec `json:"devices"`
}

// Catalog is the validated, immutable device set with its alias table.
type Catalog struct {
	specs   []DeviceSpec
	byID    map[string]int
	aliases map[string]string
}

var numberWords = []string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten", "eleven", "twelve"}

// NumberWord returns the English word for small numbers, or "" if none.
func NumberWord(n int) string {
	if n < 0 || n >= len(numberWords) {
		return ""
	}
	return numberWords[n]
}

// NormalizeName lowercases and collapses whitespace.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// NewCatalog validates specs and builds the alias table.
func NewCatalog(specs []DeviceSpec) (*Catalog, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("catalog has no devices")
	}
	c := &Catalog{
		specs:   make([]DeviceSpec, 0, len(specs)),
		byID:    make(map[string]int, len(specs)),
		aliases: make(map[string]string),
	}
	for _, s := range specs {
		s.ID = NormalizeName(s.ID)
		if s.ID == "" || strings.ContainsAny(s.ID, ": ") {
			return nil, fmt.Errorf("invalid device id %q", s.ID)
		}
		if s.ID == TargetAll {
			return nil, fmt.Errorf("device id %q is reserved", s.ID)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate device id %q", s.ID)
		}
		if s.Name == "" {
			s.Name = s.ID
		}
		c.byID[s.ID] = len(c.specs)
		c.specs = append(c.specs, s)
	}

	for _, s := range c.specs {
		if s.Suggests != "" {
			if _, ok := c.byID[s.Suggests]; !ok {
				return nil, fmt.Errorf("device %q suggests unknown device %q", s.ID, s.Suggests)
			}
		}
		for _, alias := range specAliases(s) {
			if owner, taken := c.aliases[alias]; taken && owner != s.ID {
				return nil, fmt.Errorf("alias %q used by both %q and %q", alias, owner, s.ID)
			}
			c.aliases[alias] = s.ID
		}
	}
	for _, all := range []string{TargetAll, "everything"} {
		if owner, taken := c.aliases[all]; taken {
			return nil, fmt.Errorf("alias %q of %q is reserved", all, owner)
		}
		c.aliases[all] = TargetAll
	}
	return c, nil
}

func specAliases(s DeviceSpec) []string {
	out := []string{s.ID, NormalizeName(s.Name)}
	for _, a := range s.Aliases {
		if a = NormalizeName(a); a != "" {
			out = append(out, a)
		}
	}
	if s.Number > 0 {
		digits := strconv.Itoa(s.Number)
		out = append(out, digits, "number "+digits)
		if w := NumberWord(s.Number); w != "" {
			out = append(out, w, "number "+w)
		}
	}
	return out
}

// Specs returns the device specs in catalog order.
func (c *Catalog) Specs() []DeviceSpec {
	out := make([]DeviceSpec, len(c.specs))
	copy(out, c.specs)
	return out
}

// Spec looks up a device spec by canonical id.
func (c *Catalog) Spec(id string) (DeviceSpec, bool) {
	i, ok := c.byID[id]
	if !ok {
		return DeviceSpec{}, false
	}
	return c.specs[i], true
}

// ByNumber looks up a device by its numeric alias.
func (c *Catalog) ByNumber(n int) (DeviceSpec, bool) {
	for _, s := range c.specs {
		if s.Number == n && n > 0 {
			return s, true
		}
	}
	return DeviceSpec{}, false
}

// Resolve maps any spoken or written form to a canonical id, or TargetAll.
func (c *Catalog) Resolve(name string) (string, bool) {
	id, ok := c.aliases[NormalizeName(name)]
	return id, ok
}

// Aliases returns every alias, longest first, so callers can prefer the
// longest match.
func (c *Catalog) Aliases() []string {
	out := make([]string, 0, len(c.aliases))
	for a := range c.aliases {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

// DefaultDevices is the device set used when no catalog file exists.
func DefaultDevices() []DeviceSpec {
	return []DeviceSpec{
		{ID: "light", Name: "Bedroom Light", Category: CategoryLight, Number: 1, Aliases: []string{"bedroom"}},
		{ID: "fan", Name: "Living Room Fan", Category: CategoryFan, Number: 2, Aliases: []string{"living room"}},
		{ID: "kitchen", Name: "Kitchen Light", Category: CategoryLight, Number: 3},
		{ID: "refrigerator", Name: "Refrigerator", Category: CategoryAlwaysOn, Number: 4, Aliases: []string{"fridge"}},
		{ID: "tv", Name: "TV", Category: CategoryMedia, Number: 5, Aliases: []string{"television"}, Suggests: "hometheater"},
		{ID: "hometheater", Name: "Home Theater", Category: CategoryMedia, Number: 6},
	}
}
