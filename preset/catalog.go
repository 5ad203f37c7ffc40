package preset

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/librecur/recurrence"
)

// Preset is a named rule offered as a shortcut. Its start is only a
// template: presets are compared regardless of start date.
type Preset struct {
	Name string
	Rule recurrence.Rule
}

// Catalog is an ordered list of presets, safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	presets []Preset
	logger  *slog.Logger
}

// Option represents a configuration option for the Catalog
type Option func(*Catalog)

// WithLogger sets the logger for the catalog
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCatalog creates an empty catalog.
func NewCatalog(opts ...Option) *Catalog {
	c := &Catalog{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultPresets returns the standard presets anchored on start: does not
// repeat, then every day, week, month and year.
func DefaultPresets(start time.Time) []Preset {
	return []Preset{
		{Name: "does-not-repeat", Rule: recurrence.MustNew(start, recurrence.None)},
		{Name: "daily", Rule: recurrence.MustNew(start, recurrence.Daily)},
		{Name: "weekly", Rule: recurrence.MustNew(start, recurrence.Weekly)},
		{Name: "monthly", Rule: recurrence.MustNew(start, recurrence.Monthly)},
		{Name: "yearly", Rule: recurrence.MustNew(start, recurrence.Yearly)},
	}
}

// NewDefaultCatalog creates a catalog holding DefaultPresets.
func NewDefaultCatalog(opts ...Option) *Catalog {
	c := NewCatalog(opts...)
	c.presets = DefaultPresets(time.Now())
	return c
}

// Add appends p to the catalog. Names are unique and compared without case.
func (c *Catalog) Add(p Preset) error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return newError(ErrInvalidInput, "preset name is empty")
	}
	if p.Rule.Frequency() < 1 {
		return newError(ErrInvalidInput, "preset %q has no rule", name)
	}
	p.Name = name

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.indexOf(name) >= 0 {
		c.logger.Warn("failed to add preset: already exists",
			"name", name)
		return newError(ErrAlreadyExists, "preset %q already exists", name)
	}
	c.presets = append(c.presets, p)

	c.logger.Debug("preset added",
		"name", name,
		"rule", p.Rule.String())
	return nil
}

// Remove deletes the preset called name.
func (c *Catalog) Remove(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(name)
	if i < 0 {
		return newError(ErrNotFound, "preset %q not found", name)
	}
	c.presets = append(c.presets[:i], c.presets[i+1:]...)

	c.logger.Debug("preset removed", "name", name)
	return nil
}

// Get returns the preset called name.
func (c *Catalog) Get(name string) mo.Option[Preset] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if i := c.indexOf(name); i >= 0 {
		return mo.Some(c.presets[i])
	}
	return mo.None[Preset]()
}

// List returns the presets in order.
func (c *Catalog) List() []Preset {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Preset, len(c.presets))
	copy(out, c.presets)
	return out
}

// Len returns the number of presets.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.presets)
}

// Match returns the first preset that describes r. Each preset is moved to
// r's start before comparing, so a weekly preset made on a Monday matches a
// weekly rule starting on a Friday.
func (c *Catalog) Match(r recurrence.Rule) mo.Option[Preset] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, p := range c.presets {
		anchored, err := recurrence.Apply(p.Rule, recurrence.WithStart(r.Start()))
		if err != nil {
			c.logger.Debug("skipping preset that cannot move to rule start",
				"name", p.Name,
				"error", err)
			continue
		}
		if anchored.Period() != p.Rule.Period() {
			// Moved past its own end date.
			continue
		}
		if anchored.EqualIgnoringStart(r) {
			c.logger.Debug("rule matches preset",
				"name", p.Name,
				"rule", r.String())
			return mo.Some(Preset{Name: p.Name, Rule: anchored})
		}
	}
	return mo.None[Preset]()
}

func (c *Catalog) indexOf(name string) int {
	name = strings.TrimSpace(name)
	for i, p := range c.presets {
		if strings.EqualFold(p.Name, name) {
			return i
		}
	}
	return -1
}
