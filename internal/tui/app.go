package tui

import tea "github.com/charmbracelet/bubbletea"

// App is the top-level Bubble Tea model that routes between pages.
type App struct {
	pages      map[string]Page
	order      []string
	activePage string
	width      int
	height     int
}

// NewApp creates a new App with the given pages. The first page is the default.
func NewApp(pages ...Page) *App {
	pageMap := make(map[string]Page, len(pages))
	order := make([]string, 0, len(pages))
	for _, p := range pages {
		pageMap[p.ID()] = p
		order = append(order, p.ID())
	}
	a := &App{pages: pageMap, order: order}
	if len(order) > 0 {
		a.activePage = order[0]
	}
	return a
}

// ActivePage returns the ID of the page being shown.
func (a *App) ActivePage() string { return a.activePage }

// Init starts every page so background refreshes keep running while a page
// is hidden.
func (a *App) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(a.order))
	for _, id := range a.order {
		cmds = append(cmds, a.pages[id].Init())
	}
	return tea.Batch(cmds...)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// WindowSizeMsg, focus changes and data replies reach every page so
	// hidden pages stay current; input goes to the active page only.
	switch m := msg.(type) {
	case tea.KeyMsg, tea.MouseMsg:
		return a.updateActive(msg)
	case tea.WindowSizeMsg:
		a.width = m.Width
		a.height = m.Height
	}

	var cmds []tea.Cmd
	for _, id := range a.order {
		if id == a.activePage {
			continue
		}
		cmd, _ := a.pages[id].Update(msg)
		cmds = append(cmds, cmd)
	}
	_, cmd := a.updateActive(msg)
	return a, tea.Batch(append(cmds, cmd)...)
}

func (a *App) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	p, ok := a.pages[a.activePage]
	if !ok {
		return a, nil
	}

	cmd, nav := p.Update(msg)

	if nav != nil {
		if next, exists := a.pages[nav.PageID]; exists {
			a.activePage = nav.PageID
			if e, ok := next.(Enterer); ok {
				return a, tea.Batch(cmd, e.Enter(nav.Params))
			}
		}
	}

	return a, cmd
}

func (a *App) View() string {
	if p, ok := a.pages[a.activePage]; ok {
		return p.View(a.width, a.height)
	}
	return "No active page"
}
