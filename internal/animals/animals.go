// Package animals holds the profile cards shown in the detail drawer.
package animals

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// ErrNotFound is returned for unknown animal ids.
var ErrNotFound = errors.New("animal not found")

// Tone selects the color of a status bar.
type Tone string

const (
	ToneError   Tone = "error"
	ToneWarning Tone = "warning"
	ToneSuccess Tone = "success"
	ToneInfo    Tone = "info"
)

// Status is one labelled progress bar on the card.
type Status struct {
	Label   string `json:"label" yaml:"label" koanf:"label"`
	Value   int    `json:"value" yaml:"value" koanf:"value"` // 0-100
	Tone    Tone   `json:"tone" yaml:"tone" koanf:"tone"`
	Caption string `json:"caption,omitempty" yaml:"caption,omitempty" koanf:"caption"`
}

// Profile describes the animal behind a marker.
type Profile struct {
	ID          string   `json:"id" yaml:"id" koanf:"id"`
	Name        string   `json:"name" yaml:"name" koanf:"name"`
	Sex         string   `json:"sex" yaml:"sex" koanf:"sex"`
	Age         int      `json:"age" yaml:"age" koanf:"age"`
	Personality string   `json:"personality" yaml:"personality" koanf:"personality"`
	DistanceM   float64  `json:"distance_m" yaml:"distance_m" koanf:"distance_m"`
	ImageURL    string   `json:"image_url" yaml:"image_url" koanf:"image_url"`
	Notes       string   `json:"notes,omitempty" yaml:"notes,omitempty" koanf:"notes"`
	NotesHTML   string   `json:"notes_html,omitempty" yaml:"-" koanf:"-"`
	Statuses    []Status `json:"statuses" yaml:"statuses" koanf:"statuses"`
}

// Directory is a read-only set of profiles keyed by marker id.
type Directory struct {
	order    []string
	profiles map[string]Profile
}

// NewDirectory validates the profiles and renders their markdown notes.
func NewDirectory(profiles []Profile) (*Directory, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	d := &Directory{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		if p.ID == "" {
			return nil, fmt.Errorf("animal profile %q has no id", p.Name)
		}
		if _, dup := d.profiles[p.ID]; dup {
			return nil, fmt.Errorf("duplicate animal profile %q", p.ID)
		}
		for _, s := range p.Statuses {
			if s.Value < 0 || s.Value > 100 {
				return nil, fmt.Errorf("animal %q: status %q value %d out of range 0-100", p.ID, s.Label, s.Value)
			}
		}
		if p.Notes != "" {
			var buf bytes.Buffer
			if err := md.Convert([]byte(p.Notes), &buf); err != nil {
				return nil, fmt.Errorf("rendering notes for %q: %w", p.ID, err)
			}
			p.NotesHTML = buf.String()
		}
		d.order = append(d.order, p.ID)
		d.profiles[p.ID] = p
	}
	return d, nil
}

// Get returns the profile for a marker id.
func (d *Directory) Get(id string) (Profile, error) {
	p, ok := d.profiles[id]
	if !ok {
		return Profile{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return p, nil
}

// List returns all profiles in configuration order.
func (d *Directory) List() []Profile {
	out := make([]Profile, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.profiles[id])
	}
	return out
}

// DefaultProfiles returns the sample card the viewer ships with.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			ID:          "dog1",
			Name:        "シカ美",
			Sex:         "メス",
			Age:         3,
			Personality: "気まぐれ、食いしん坊",
			DistanceM:   2,
			ImageURL:    "https://upload.wikimedia.org/wikipedia/commons/a/a7/A_chital_stag_1.JPG",
			Statuses: []Status{
				{Label: "満腹度", Value: 30, Tone: ToneError, Caption: "おなかが減ってるよ😓"},
				{Label: "体力", Value: 70, Tone: ToneSuccess},
				{Label: "ストレス度", Value: 60, Tone: ToneWarning},
			},
		},
	}
}
