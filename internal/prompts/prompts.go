// Package prompts holds the parsing instructions sent to the document
// service. A built-in translation preset is always available; deployments
// can add or override presets with a YAML file.
package prompts

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPresetID identifies the built-in English translation preset.
const DefaultPresetID = "translate-english"

// defaultInstruction is the translation directive sent to the parsing
// service. It doubles as the formatting guidance and the content directive.
const defaultInstruction = `Translate all text in this document to English.
Preserve the original formatting, structure, and layout as markdown.
If the text is already in English, keep it as is.
Maintain all tables, lists, headers, and formatting elements.`

// Preset is one named instruction.
type Preset struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Instruction string `json:"instruction" yaml:"instruction"`
}

// presetFile is the YAML layout of an instruction preset file.
type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// Catalog is the set of available presets. It is built once at startup and
// read-only afterwards.
type Catalog struct {
	presets []Preset
	byID    map[string]Preset
}

// NewCatalog returns a catalog containing only the built-in preset.
func NewCatalog() *Catalog {
	c := &Catalog{byID: make(map[string]Preset)}
	c.add(Preset{
		ID:          DefaultPresetID,
		Name:        "Translate to English",
		Instruction: defaultInstruction,
	})
	return c
}

// Load reads additional presets from a YAML file. A missing file is not an
// error; the built-in preset is always enough to run.
func Load(path string) (*Catalog, error) {
	c := NewCatalog()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("opening preset file: %w", err)
	}
	defer file.Close()

	if err := c.mergeFromReader(file); err != nil {
		return nil, fmt.Errorf("loading presets from %s: %w", path, err)
	}
	return c, nil
}

func (c *Catalog) mergeFromReader(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	var pf presetFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return err
	}

	for _, p := range pf.Presets {
		if p.ID == "" || p.Instruction == "" {
			return fmt.Errorf("preset %q must have an id and an instruction", p.Name)
		}
		c.add(p)
	}
	return nil
}

func (c *Catalog) add(p Preset) {
	if _, exists := c.byID[p.ID]; exists {
		for i := range c.presets {
			if c.presets[i].ID == p.ID {
				c.presets[i] = p
				break
			}
		}
	} else {
		c.presets = append(c.presets, p)
	}
	c.byID[p.ID] = p
}

// Get returns the preset for id, falling back to the built-in translation
// preset when id is empty or unknown.
func (c *Catalog) Get(id string) Preset {
	if p, ok := c.byID[id]; ok {
		return p
	}
	return c.byID[DefaultPresetID]
}

// List returns all presets in registration order.
func (c *Catalog) List() []Preset {
	out := make([]Preset, len(c.presets))
	copy(out, c.presets)
	return out
}
