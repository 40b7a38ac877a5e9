package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"eventsds/internal/model"
)

const NaNSuffix = "_NaN_NaN"

func LevelName(measure, label string) string {
	return measure + "_" + label
}

func TransitionName(measure, from, to string) string {
	return measure + "_" + from + "-to-" + to
}

func NaNName(measure string) string {
	return measure + NaNSuffix
}

// Catalog is a frozen, insertion-ordered event name -> code mapping.
// Codes start at 1.
type Catalog struct {
	names []string
	codes map[string]int32
	byID  map[int32]string
}

func newCatalog() *Catalog {
	return &Catalog{
		codes: make(map[string]int32),
		byID:  make(map[int32]string),
	}
}

func (c *Catalog) add(name string, code int32) error {
	if code <= 0 {
		return fmt.Errorf("event %q has non-positive code %d", name, code)
	}
	if _, dup := c.codes[name]; dup {
		return fmt.Errorf("duplicate event name %q", name)
	}
	if other, dup := c.byID[code]; dup {
		return fmt.Errorf("code %d assigned to both %q and %q", code, other, name)
	}
	c.names = append(c.names, name)
	c.codes[name] = code
	c.byID[code] = name
	return nil
}

// Build enumerates every possible event. For each measure in band order it
// emits transitions (every ordered pair of distinct labels), then levels,
// then the NaN sentinel. The order is part of the contract: the same inputs
// always produce the same codes.
func Build(b *model.Bands, strategy model.EventStrategy, nan model.NaNPolicy) *Catalog {
	c := newCatalog()
	var next int32 = 1
	push := func(name string) {
		c.names = append(c.names, name)
		c.codes[name] = next
		c.byID[next] = name
		next++
	}
	for _, measure := range b.Measures() {
		def, _ := b.Get(measure)
		if strategy.Transitions() {
			for _, from := range def.Labels {
				for _, to := range def.Labels {
					if from != to {
						push(TransitionName(measure, from, to))
					}
				}
			}
		}
		if strategy.Levels() {
			for _, label := range def.Labels {
				push(LevelName(measure, label))
			}
		}
		if nan == model.NaNKeep {
			push(NaNName(measure))
		}
	}
	return c
}

func (c *Catalog) Len() int {
	return len(c.names)
}

func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

func (c *Catalog) Code(name string) (int32, bool) {
	code, ok := c.codes[name]
	return code, ok
}

func (c *Catalog) Name(code int32) (string, bool) {
	name, ok := c.byID[code]
	return name, ok
}

// Resolve returns the code for name or a CatalogResolutionError.
func (c *Catalog) Resolve(name string) (int32, error) {
	code, ok := c.codes[name]
	if !ok {
		return 0, model.CatalogErrorf("event %q not present in catalog (%d entries)", name, len(c.names))
	}
	return code, nil
}

// NaNCodes returns the codes of all NaN sentinels, in catalog order.
func (c *Catalog) NaNCodes() []int32 {
	var out []int32
	for _, name := range c.names {
		if strings.HasSuffix(name, NaNSuffix) {
			out = append(out, c.codes[name])
		}
	}
	return out
}

// MeasureOf maps an event name back to its measure using the longest
// matching measure prefix.
func MeasureOf(name string, measures []string) (string, bool) {
	best := ""
	for _, m := range measures {
		if strings.HasPrefix(name, m+"_") && len(m) > len(best) {
			best = m
		}
	}
	return best, best != ""
}

func (c *Catalog) MarshalJSON() ([]byte, error) {
	return model.MarshalOrdered(c.names, func(k string) any { return c.codes[k] })
}

func (c *Catalog) UnmarshalJSON(data []byte) error {
	out := newCatalog()
	err := model.UnmarshalOrdered(data, func(key string, raw json.RawMessage) error {
		var code int32
		if err := json.Unmarshal(raw, &code); err != nil {
			return fmt.Errorf("catalog %q: %w", key, err)
		}
		return out.add(key, code)
	})
	if err != nil {
		return err
	}
	*c = *out
	return nil
}
