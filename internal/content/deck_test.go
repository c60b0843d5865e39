package content

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDeck(t *testing.T) {
	d := Default()
	require.Len(t, d.Slides, 3)

	first := d.Slides[0]
	assert.Equal(t, "/images/hero1.jpg", first.Image)
	assert.Equal(t, "Study MBBS Abroad", first.Title.Plain())
	assert.True(t, first.Title[1].Accent)
	assert.Equal(t, "/contact", first.CTA.Target)

	assert.Equal(t, "MBBS in Georgia & Russia", d.Slides[1].Title.Plain())
	assert.Equal(t, "Why VSource", d.Slides[2].CTA.Label)
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	d, err := Load("")
	require.NoError(t, err)
	assert.Len(t, d.Slides, 3)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slides.yml")
	data := []byte(`slides:
  - image: https://cdn.example.com/a.webp
    alt: Campus
    title: [{text: "Visit "}, {text: Tbilisi, accent: true}]
    subtitle: Open day
    cta: {href: /visit, label: Book}
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	d, err := Load(path)
	require.NoError(t, err)
	require.Len(t, d.Slides, 1)
	assert.Equal(t, "Visit Tbilisi", d.Slides[0].Title.Plain())
	assert.Equal(t, "/visit", d.Slides[0].CTA.Target)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseRejectsInvalidDecks(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed", "slides: [:"},
		{"empty", "slides: []"},
		{"missing image", `slides: [{alt: a, title: [{text: t}], cta: {href: /x, label: y}}]`},
		{"missing alt", `slides: [{image: a.jpg, title: [{text: t}], cta: {href: /x, label: y}}]`},
		{"blank title", `slides: [{image: a.jpg, alt: a, title: [{text: " "}], cta: {href: /x, label: y}}]`},
		{"missing cta", `slides: [{image: a.jpg, alt: a, title: [{text: t}]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidDeck)
		})
	}
}

func TestMarshalRoundTripsThroughParse(t *testing.T) {
	data, err := Default().Marshal()
	require.NoError(t, err)
	d, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, Default(), d)
}
