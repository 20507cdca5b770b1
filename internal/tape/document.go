package tape

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk YAML shape of a tape, used by the CLI. The host
// applications keep their own stores; this format exists so a tape can be
// described and fed to the composer directly.
type Document struct {
	Version            string         `yaml:"version"`
	ID                 string         `yaml:"id"`
	Orientation        string         `yaml:"orientation"`
	ScaleMode          string         `yaml:"scale_mode"`
	TransitionStyle    string         `yaml:"transition"`
	TransitionDuration float64        `yaml:"transition_duration"`
	Clips              []DocumentClip `yaml:"clips"`
}

// DocumentClip is one clip entry in a tape document.
type DocumentClip struct {
	ID        string  `yaml:"id,omitempty"`
	Kind      string  `yaml:"kind"`
	Source    string  `yaml:"source"`
	Duration  float64 `yaml:"duration,omitempty"`
	Rotation  int     `yaml:"rotation,omitempty"`
	ScaleMode string  `yaml:"scale_mode,omitempty"`
}

const documentVersion = "1.0"

// LoadDocument reads and validates a tape document.
func LoadDocument(path string) (Tape, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tape{}, errors.Wrap(err, "read tape document")
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Tape{}, errors.Wrap(err, "parse tape document")
	}
	return doc.Tape()
}

// SaveDocument writes a tape as a YAML document.
func SaveDocument(t Tape, path string) error {
	doc := Document{
		Version:            documentVersion,
		ID:                 t.ID,
		Orientation:        string(t.Orientation),
		ScaleMode:          string(t.ScaleMode),
		TransitionStyle:    string(t.TransitionStyle),
		TransitionDuration: t.TransitionDuration,
	}
	for _, c := range t.Clips {
		doc.Clips = append(doc.Clips, DocumentClip{
			ID:        c.ID,
			Kind:      string(c.Kind),
			Source:    c.Source,
			Duration:  c.Duration,
			Rotation:  c.Rotation,
			ScaleMode: string(c.ScaleMode),
		})
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return errors.Wrap(err, "encode tape document")
	}
	return os.WriteFile(path, data, 0644)
}

// Tape converts a document into the validated model. Missing optional
// fields fall back to the model defaults.
func (d Document) Tape() (Tape, error) {
	t := New(d.ID)
	if d.Orientation != "" {
		t.Orientation = Orientation(d.Orientation)
	}
	if d.ScaleMode != "" {
		t.ScaleMode = ScaleMode(d.ScaleMode)
	}
	if d.TransitionStyle != "" {
		t.TransitionStyle = TransitionStyle(d.TransitionStyle)
	}
	if d.TransitionDuration > 0 {
		t.TransitionDuration = ClampTransitionDuration(d.TransitionDuration)
	}
	for i, dc := range d.Clips {
		clip, err := NewClip(MediaKind(dc.Kind), dc.Source, dc.Duration)
		if err != nil {
			return Tape{}, errors.Wrapf(err, "clip %d", i)
		}
		if dc.ID != "" {
			clip.ID = dc.ID
		}
		if dc.Rotation != 0 {
			clip, err = clip.WithRotation(dc.Rotation)
			if err != nil {
				return Tape{}, errors.Wrapf(err, "clip %d", i)
			}
		}
		if dc.ScaleMode != "" {
			clip = clip.WithScaleMode(ScaleMode(dc.ScaleMode))
		}
		// Document conversion is not an edit; keep a stable timestamp so
		// repeated loads hit the resolver cache.
		clip.UpdatedAt = time.Time{}
		t.Clips = append(t.Clips, clip)
	}
	if err := t.Validate(); err != nil {
		return Tape{}, err
	}
	return t, nil
}
