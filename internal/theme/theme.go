package theme

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Palette is a named set of color tokens.
type Palette struct {
	Name   string            `json:"name"`
	Tokens map[string]string `json:"tokens"`
}

// Theme is what the site renders with at one moment.
type Theme struct {
	Palette  Palette  `json:"palette"`
	Period   string   `json:"period"`
	Gradient []string `json:"gradient"`
}

// Palettes available to Set.
var Palettes = map[string]Palette{
	"classic": {Name: "classic", Tokens: map[string]string{
		"primary": "#0b3d91", "accent": "#f5a623", "surface": "#ffffff", "text": "#1c1c1c",
	}},
	"emerald": {Name: "emerald", Tokens: map[string]string{
		"primary": "#046c4e", "accent": "#84e1bc", "surface": "#f3faf7", "text": "#111827",
	}},
	"midnight": {Name: "midnight", Tokens: map[string]string{
		"primary": "#93c5fd", "accent": "#fbbf24", "surface": "#0f172a", "text": "#e2e8f0",
	}},
}

type period struct {
	name     string
	from     int // first hour, inclusive
	gradient []string
}

// periods in order of starting hour; hours before the first belong to the last.
var periods = []period{
	{name: "morning", from: 5, gradient: []string{"#ffecd2", "#fcb69f"}},
	{name: "afternoon", from: 12, gradient: []string{"#a1c4fd", "#c2e9fb"}},
	{name: "evening", from: 17, gradient: []string{"#fa709a", "#fee140"}},
	{name: "night", from: 20, gradient: []string{"#141e30", "#243b55"}},
}

// PeriodAt names the part of the day t falls in.
func PeriodAt(t time.Time) (string, []string) {
	current := periods[len(periods)-1]
	for _, p := range periods {
		if t.Hour() >= p.from {
			current = p
		}
	}
	return current.name, current.gradient
}

// Provider owns the selected palette and tells subscribers when it changes.
type Provider struct {
	now func() time.Time

	mu      sync.RWMutex
	palette Palette
	subs    map[int]chan Theme
	next    int
}

// NewProvider returns a provider using palette name and the clock now.
// An unknown palette falls back to classic; a nil clock uses time.Now.
func NewProvider(name string, now func() time.Time) *Provider {
	if now == nil {
		now = time.Now
	}
	p, ok := Palettes[name]
	if !ok {
		p = Palettes["classic"]
	}
	return &Provider{now: now, palette: p, subs: make(map[int]chan Theme)}
}

// Current returns the theme for the provider's clock.
func (p *Provider) Current() Theme {
	p.mu.RLock()
	palette := p.palette
	p.mu.RUnlock()
	return p.themeFor(palette)
}

func (p *Provider) themeFor(palette Palette) Theme {
	name, gradient := PeriodAt(p.now())
	return Theme{
		Palette:  palette,
		Period:   name,
		Gradient: append([]string(nil), gradient...),
	}
}

// Names lists the selectable palettes.
func Names() []string {
	names := make([]string, 0, len(Palettes))
	for n := range Palettes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Set selects a palette and notifies subscribers.
func (p *Provider) Set(name string) (Theme, error) {
	palette, ok := Palettes[name]
	if !ok {
		return Theme{}, fmt.Errorf("unknown theme %q", name)
	}

	p.mu.Lock()
	p.palette = palette
	t := p.themeFor(palette)
	for _, ch := range p.subs {
		select {
		case ch <- t:
		default:
		}
	}
	p.mu.Unlock()

	return t, nil
}

// Subscribe returns a channel of theme changes and a cancel func.
// A slow reader misses intermediate changes, never the channel close.
func (p *Provider) Subscribe() (<-chan Theme, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.next
	p.next++
	ch := make(chan Theme, 4)
	p.subs[id] = ch
	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if sub, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}
