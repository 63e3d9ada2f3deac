package printing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile holds the layout dimensions for one paper width. Widths and padding
// are logical pixels; the raster is produced at RasterScale × these values.
type Profile struct {
	Name         string  `yaml:"name"           json:"name"`
	PaperWidthMM float64 `yaml:"paper_width_mm" json:"paperWidthMm"`
	ContentWidth int     `yaml:"content_width"  json:"contentWidth"`
	Padding      int     `yaml:"padding"        json:"padding"`
	TitleScale   int     `yaml:"title_scale"    json:"titleScale"`
	BodyScale    int     `yaml:"body_scale"     json:"bodyScale"`
	CharsPerLine int     `yaml:"chars_per_line" json:"charsPerLine"`
}

const (
	Width2Inch   = "2-inch"
	Width3Inch   = "3-inch"
	DefaultWidth = Width3Inch
)

// Profiles maps a stored width preference to its layout.
type Profiles map[string]Profile

// DefaultProfiles is the built-in lookup table. 2-inch rolls are 58mm paper
// with a 384-dot head, 3-inch rolls are 80mm with a 576-dot head; content
// widths keep the 1.9× raster inside those heads.
func DefaultProfiles() Profiles {
	return Profiles{
		Width2Inch: {
			Name:         Width2Inch,
			PaperWidthMM: 58,
			ContentWidth: 200,
			Padding:      4,
			TitleScale:   2,
			BodyScale:    1,
			CharsPerLine: 32,
		},
		Width3Inch: {
			Name:         Width3Inch,
			PaperWidthMM: 80,
			ContentWidth: 300,
			Padding:      6,
			TitleScale:   2,
			BodyScale:    1,
			CharsPerLine: 48,
		},
	}
}

// Select returns the profile for width, falling back to DefaultWidth.
func (p Profiles) Select(width string) Profile {
	if prof, ok := p[width]; ok {
		return prof
	}
	if prof, ok := p[DefaultWidth]; ok {
		return prof
	}
	return DefaultProfiles()[DefaultWidth]
}

// SelectProfile looks width up in the built-in table.
func SelectProfile(width string) Profile { return DefaultProfiles().Select(width) }

// LoadProfiles reads a YAML list of profiles and merges it over the defaults.
// An empty path returns the defaults.
//
//	- name: 2-inch
//	  paper_width_mm: 58
//	  content_width: 196
//	  ...
func LoadProfiles(path string) (Profiles, error) {
	profiles := DefaultProfiles()
	if path == "" {
		return profiles, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("printing: read profiles: %w", err)
	}
	var list []Profile
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("printing: parse profiles: %w", err)
	}
	for _, prof := range list {
		if err := prof.validate(); err != nil {
			return nil, err
		}
		profiles[prof.Name] = prof
	}
	return profiles, nil
}

func (p Profile) validate() error {
	switch {
	case p.Name == "":
		return fmt.Errorf("printing: profile without name")
	case p.ContentWidth <= 2*p.Padding:
		return fmt.Errorf("printing: profile %s: content width %d too small for padding %d", p.Name, p.ContentWidth, p.Padding)
	case p.TitleScale < 1 || p.BodyScale < 1:
		return fmt.Errorf("printing: profile %s: scales must be >= 1", p.Name)
	case p.CharsPerLine < 16:
		return fmt.Errorf("printing: profile %s: chars_per_line must be >= 16", p.Name)
	case p.PaperWidthMM <= 0:
		return fmt.Errorf("printing: profile %s: paper width must be positive", p.Name)
	}
	return nil
}
