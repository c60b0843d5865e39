package tui

import (
	"fmt"
	"strings"

	"github.com/vsource/hero/internal/model"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SlidesPage lists the mounted deck. Choosing a slide jumps the banner to
// it and returns to the preview.
type SlidesPage struct {
	remote model.Remote
	keys   KeyMap
	help   help.Model

	slides  []model.Slide
	current int
	cursor  int
}

// NewSlidesPage creates the slide list page.
func NewSlidesPage(remote model.Remote) *SlidesPage {
	return &SlidesPage{remote: remote, keys: DefaultKeyMap(), help: help.New()}
}

func (p *SlidesPage) ID() string { return PageSlides }

// Init does nothing; the hero page polls and this page listens to its
// replies.
func (p *SlidesPage) Init() tea.Cmd { return nil }

// Enter places the cursor on the slide being shown.
func (p *SlidesPage) Enter(params interface{}) tea.Cmd {
	if i, ok := params.(int); ok && i >= 0 && i < len(p.slides) {
		p.cursor = i
	}
	return nil
}

func (p *SlidesPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case heroDataMsg:
		if msg.slides != nil {
			p.slides = msg.slides
			p.cursor = min(p.cursor, max(0, len(p.slides)-1))
		}
		if msg.hasSnap {
			p.current = msg.snap.Current
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.keys.Quit):
			return tea.Quit, nil
		case key.Matches(msg, p.keys.Back):
			return nil, &PageNav{PageID: PageHero}
		case key.Matches(msg, p.keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}
		case key.Matches(msg, p.keys.Down):
			if p.cursor < len(p.slides)-1 {
				p.cursor++
			}
		case key.Matches(msg, p.keys.Activate):
			idx := p.cursor
			return actionCmd(p.remote, func() error { return p.remote.GoTo(idx) }), &PageNav{PageID: PageHero}
		}
	}
	return nil, nil
}

func (p *SlidesPage) View(width, height int) string {
	header := chartTitleStyle.Render(fmt.Sprintf("Slides (%d)", len(p.slides)))
	if len(p.slides) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, header, helpStyle.Render("No slides loaded"))
	}

	rows := make([]string, 0, len(p.slides))
	for i, s := range p.slides {
		marker := "  "
		if i == p.cursor {
			marker = accentStyle.Render("▸ ")
		}
		showing := " "
		if i == p.current {
			showing = dotActiveStyle.Render("●")
		}
		rows = append(rows, fmt.Sprintf("%s%s %d. %s  %s  %s",
			marker, showing, i+1,
			renderRichText(s.Title),
			helpStyle.Render(s.Image),
			statusStyle.Render("→ "+s.CTA.Target)))
	}

	p.help.Width = width
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		sectionStyle.Width(max(20, width-2)).Render(strings.Join(rows, "\n")),
		"",
		p.help.View(slideListKeys{p.keys}),
	)
}
