package content

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/vsource/hero/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed default_slides.yml
var defaultDeck []byte

// ErrInvalidDeck wraps every validation failure.
var ErrInvalidDeck = errors.New("content: invalid slide deck")

// Deck is the on-disk representation of the banner rotation.
type Deck struct {
	Slides []model.Slide `yaml:"slides"`
}

// Default returns the homepage rotation shipped with the binary.
func Default() Deck {
	d, err := Parse(defaultDeck)
	if err != nil {
		panic(fmt.Sprintf("content: embedded deck: %v", err))
	}
	return d
}

// Load reads and validates a deck file. An empty path yields Default.
func Load(path string) (Deck, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Deck{}, fmt.Errorf("content: read deck: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates deck YAML.
func Parse(data []byte) (Deck, error) {
	var d Deck
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Deck{}, fmt.Errorf("%w: %v", ErrInvalidDeck, err)
	}
	if err := d.Validate(); err != nil {
		return Deck{}, err
	}
	return d, nil
}

// Validate checks that the deck can drive a banner.
func (d Deck) Validate() error {
	if len(d.Slides) == 0 {
		return fmt.Errorf("%w: no slides", ErrInvalidDeck)
	}
	for i, s := range d.Slides {
		switch {
		case strings.TrimSpace(s.Image) == "":
			return fmt.Errorf("%w: slide %d: image is empty", ErrInvalidDeck, i)
		case strings.TrimSpace(s.Alt) == "":
			return fmt.Errorf("%w: slide %d: alt text is empty", ErrInvalidDeck, i)
		case strings.TrimSpace(s.Title.Plain()) == "":
			return fmt.Errorf("%w: slide %d: title is empty", ErrInvalidDeck, i)
		case strings.TrimSpace(s.CTA.Target) == "" || strings.TrimSpace(s.CTA.Label) == "":
			return fmt.Errorf("%w: slide %d: call to action needs href and label", ErrInvalidDeck, i)
		}
	}
	return nil
}

// Marshal encodes the deck as YAML.
func (d Deck) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}
