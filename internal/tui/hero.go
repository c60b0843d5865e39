package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/vsource/hero/internal/model"
	"github.com/vsource/hero/internal/slideshow"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HeroConfig configures the banner preview page.
type HeroConfig struct {
	Remote model.Remote
	// Stats is optional; the stats panel shows a notice without it.
	Stats           model.StatsQuerier
	RefreshInterval time.Duration
	// CellWidthPx converts terminal columns to the pixel coordinates the
	// swipe threshold is expressed in.
	CellWidthPx float64
	// Source labels the status line ("socket", "local").
	Source string
}

// HeroPage previews the homepage banner in the terminal and drives it with
// keys, focus changes and mouse gestures.
type HeroPage struct {
	remote    model.Remote
	stats     model.StatsQuerier
	pause     *pauseSync
	keys      KeyMap
	help      help.Model
	refresh   time.Duration
	cellWidth float64
	source    string

	snap      model.Snapshot
	hasSnap   bool
	slides    []model.Slide
	statsData []model.SlideStat
	total     int64
	showStats bool

	hovering  bool
	blurred   bool
	dragging  bool
	dragFromX int

	inFlight   bool
	lastTarget string
	lastErr    string
	lastErrAt  time.Time

	width, height int
	// Hit box of the banner in the last rendered frame.
	bannerW, bannerH int
}

// NewHeroPage creates the banner preview page.
func NewHeroPage(cfg HeroConfig) *HeroPage {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = model.DefaultRefresh
	}
	if cfg.CellWidthPx <= 0 {
		cfg.CellWidthPx = model.DefaultCellWidthPx
	}
	return &HeroPage{
		remote:    cfg.Remote,
		stats:     cfg.Stats,
		pause:     newPauseSync(cfg.Remote),
		keys:      DefaultKeyMap(),
		help:      help.New(),
		refresh:   cfg.RefreshInterval,
		cellWidth: cfg.CellWidthPx,
		source:    cfg.Source,
	}
}

func (p *HeroPage) ID() string { return PageHero }

func (p *HeroPage) Init() tea.Cmd {
	p.inFlight = true
	return tea.Batch(
		fetchCmd(p.remote, p.stats, "", p.showStats),
		tickCmd(p.refresh),
	)
}

func (p *HeroPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case TickMsg:
		next := tickCmd(p.refresh)
		if p.inFlight {
			return next, nil
		}
		p.inFlight = true
		return tea.Batch(fetchCmd(p.remote, p.stats, p.snap.MountID, p.showStats), next), nil

	case heroDataMsg:
		p.apply(msg)
		return nil, nil

	case tea.FocusMsg:
		return p.setBlurred(false), nil

	case tea.BlurMsg:
		return p.setBlurred(true), nil

	case tea.MouseMsg:
		return p.handleMouse(msg), nil

	case tea.KeyMsg:
		return p.handleKey(msg)
	}
	return nil, nil
}

func (p *HeroPage) apply(msg heroDataMsg) {
	if msg.fetched {
		p.inFlight = false
	}
	if msg.err != nil {
		p.lastErr = msg.err.Error()
		p.lastErrAt = time.Now()
		return
	}
	// Replies can arrive out of order; keep the newest state of a mount.
	if msg.hasSnap && (msg.snap.MountID != p.snap.MountID || msg.snap.Seq >= p.snap.Seq) {
		p.snap = msg.snap
		p.hasSnap = true
	}
	if msg.slides != nil {
		p.slides = msg.slides
	}
	if msg.hasStats {
		p.statsData = msg.stats
		p.total = msg.total
	}
	if msg.target != "" {
		p.lastTarget = msg.target
	}
}

func (p *HeroPage) handleKey(msg tea.KeyMsg) (tea.Cmd, *PageNav) {
	switch {
	case key.Matches(msg, p.keys.Quit):
		return tea.Sequence(p.releaseCmd(), tea.Quit), nil
	case key.Matches(msg, p.keys.Previous):
		return actionCmd(p.remote, p.remote.Previous), nil
	case key.Matches(msg, p.keys.Next):
		return actionCmd(p.remote, p.remote.Next), nil
	case key.Matches(msg, p.keys.GoTo):
		idx := int(msg.String()[0] - '1')
		return actionCmd(p.remote, func() error { return p.remote.GoTo(idx) }), nil
	case key.Matches(msg, p.keys.Activate):
		return activateCmd(p.remote), nil
	case key.Matches(msg, p.keys.Stats):
		p.showStats = !p.showStats
		if p.showStats {
			return fetchCmd(p.remote, p.stats, p.snap.MountID, true), nil
		}
	case key.Matches(msg, p.keys.Slides):
		return nil, &PageNav{PageID: PageSlides, Params: p.snap.Current}
	case key.Matches(msg, p.keys.Help):
		p.help.ShowAll = !p.help.ShowAll
	}
	return nil, nil
}

// handleMouse maps pointer movement over the banner to hover and a left
// button drag to a touch gesture.
func (p *HeroPage) handleMouse(msg tea.MouseMsg) tea.Cmd {
	var cmds []tea.Cmd

	inside := msg.X >= 0 && msg.Y >= 0 && msg.X < p.bannerW && msg.Y < p.bannerH
	if inside != p.hovering {
		p.hovering = inside
		cmds = append(cmds, p.setPaused(model.PauseHover, inside))
	}

	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && inside:
		p.dragging = true
		p.dragFromX = msg.X
	case msg.Action == tea.MouseActionRelease && p.dragging:
		p.dragging = false
		// Start and end go out together so the server sees them in order.
		from, to := p.px(p.dragFromX), p.px(msg.X)
		cmds = append(cmds, actionCmd(p.remote, func() error {
			if err := p.remote.TouchStart(from); err != nil {
				return err
			}
			return p.remote.TouchEnd(to)
		}))
	}
	return tea.Batch(cmds...)
}

func (p *HeroPage) px(col int) float64 { return float64(col) * p.cellWidth }

func (p *HeroPage) setBlurred(blurred bool) tea.Cmd {
	if p.blurred == blurred {
		return nil
	}
	p.blurred = blurred
	return p.setPaused(model.PauseHidden, blurred)
}

// setPaused records the wanted state now and leaves delivery to a flush.
func (p *HeroPage) setPaused(reason model.PauseReason, paused bool) tea.Cmd {
	p.pause.set(reason, paused)
	return actionCmd(p.remote, p.pause.flush)
}

// releaseCmd clears the pause reasons this client raised so the banner
// does not stay paused after the preview exits.
func (p *HeroPage) releaseCmd() tea.Cmd {
	if !p.hovering && !p.blurred {
		return nil
	}
	p.hovering, p.blurred = false, false
	for _, r := range pauseOrder {
		p.pause.set(r, false)
	}
	flush := p.pause.flush
	return func() tea.Msg {
		if err := flush(); err != nil {
			return heroDataMsg{err: fmt.Errorf("release pause: %w", err)}
		}
		return nil
	}
}

func (p *HeroPage) View(width, height int) string {
	p.width, p.height = width, height
	if width <= 0 {
		width = 80
	}

	if !p.hasSnap {
		return helpStyle.Render("Connecting to banner...")
	}

	banner := p.renderBanner(width)
	p.bannerW, p.bannerH = lipgloss.Width(banner), lipgloss.Height(banner)

	parts := []string{banner, p.renderStatus(), p.renderLayers()}
	if p.lastTarget != "" {
		parts = append(parts, okStyle.Render("→ "+p.lastTarget))
	}
	if p.lastErr != "" && time.Since(p.lastErrAt) < 30*time.Second {
		parts = append(parts, errorStyle.Render("error: "+p.lastErr))
	}
	if p.showStats {
		parts = append(parts, p.renderStats(width))
	}
	p.help.Width = width
	parts = append(parts, "", p.help.View(p.keys))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (p *HeroPage) currentSlide() (model.Slide, bool) {
	i := p.snap.Current
	if i < 0 || i >= len(p.slides) {
		return model.Slide{}, false
	}
	return p.slides[i], true
}

func (p *HeroPage) renderBanner(width int) string {
	slide, ok := p.currentSlide()
	if !ok {
		return bannerStyle.Width(width - 2).Render(helpStyle.Render("Loading slides..."))
	}

	title := renderRichText(slide.Title)
	lines := []string{title}
	if slide.Subtitle != "" {
		lines = append(lines, subtitleStyle.Render(slide.Subtitle))
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Center,
		ctaButtonStyle.Render(slide.CTA.Label),
		"   ",
		galleryButtonStyle.Render("Gallery"),
	)
	lines = append(lines, "", buttons, "", renderDots(p.snap.Count, p.snap.Current))

	body := lipgloss.JoinVertical(lipgloss.Left, lines...)
	style := bannerStyle.Width(width - 2)
	if p.hovering {
		style = style.BorderForeground(ColorRed)
	}
	return style.Render(body)
}

func renderRichText(rt model.RichText) string {
	var b strings.Builder
	for _, span := range rt {
		if span.Accent {
			b.WriteString(accentStyle.Render(span.Text))
		} else {
			b.WriteString(titleStyle.Render(span.Text))
		}
	}
	return b.String()
}

func renderDots(n, current int) string {
	dots := make([]string, n)
	for i := range dots {
		if i == current {
			dots[i] = dotActiveStyle.Render("●")
		} else {
			dots[i] = dotInactiveStyle.Render("○")
		}
	}
	return strings.Join(dots, " ")
}

func (p *HeroPage) renderStatus() string {
	s := p.snap
	var play string
	switch {
	case s.Autoplay:
		play = "▶ autoplay"
	case len(s.PausedBy) > 0:
		reasons := make([]string, len(s.PausedBy))
		for i, r := range s.PausedBy {
			reasons[i] = string(r)
		}
		play = "⏸ paused (" + strings.Join(reasons, ", ") + ")"
	default:
		play = "⏹ stopped"
	}

	fields := []string{
		fmt.Sprintf("slide %d/%d", s.Current+1, s.Count),
		play,
		"cause: " + string(s.Cause),
	}
	if s.MountID != "" {
		id := s.MountID
		if len(id) > 8 {
			id = id[:8]
		}
		fields = append(fields, "mount "+id)
	}
	if p.source != "" {
		fields = append(fields, p.source)
	}
	return statusStyle.Render(strings.Join(fields, " │ "))
}

func (p *HeroPage) renderLayers() string {
	var parts []string
	for _, l := range slideshow.Layers(p.snap) {
		if !l.Visible {
			continue
		}
		desc := fmt.Sprintf("%s #%d opacity %.0f", l.Slot, l.Index+1, l.Opacity)
		if l.Slot == model.SlotCurrent && l.Opacity == 0 {
			desc += " (waiting for image)"
		}
		parts = append(parts, desc)
	}
	return statusStyle.Render("layers: " + strings.Join(parts, " │ "))
}

func (p *HeroPage) renderStats(width int) string {
	title := chartTitleStyle.Render(fmt.Sprintf("Impressions per slide (total %d)", p.total))
	var content string
	switch {
	case p.stats == nil:
		content = helpStyle.Render("Analytics disabled")
	case len(p.statsData) == 0:
		content = helpStyle.Render("No data available")
	default:
		content = renderImpressionsChart(p.statsData, width-4, 8)
	}
	return sectionStyle.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}
