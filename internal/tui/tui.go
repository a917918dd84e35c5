package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/gupsammy/Claudest/internal/query"
	"github.com/gupsammy/Claudest/internal/render"
	"github.com/gupsammy/Claudest/internal/store"
)

const debounceDelay = 200 * time.Millisecond

type searchResultMsg struct {
	query string
	hits  []store.SearchHit
	err   error
}

type debounceTickMsg struct {
	query string
}

type previewMsg struct {
	uuid    string
	content string
}

type model struct {
	st      *store.Store
	engine  *query.Engine
	qinput  textinput.Model
	preview viewport.Model

	query      string
	hits       []store.SearchHit
	cursor     int
	listOffset int
	previewFor string
	errText    string

	width    int
	height   int
	ready    bool
	selected *store.SearchHit
}

// Run starts the interactive search browser seeded with query and
// blocks until it exits. When the user picks a session it returns the
// resume command to print, or "" if they just quit.
func Run(st *store.Store, engine *query.Engine, initial string) (string, error) {
	ti := textinput.New()
	ti.Placeholder = "Search..."
	ti.Focus()
	ti.SetValue(initial)
	ti.Prompt = "> "
	ti.PromptStyle = styleInput
	ti.TextStyle = styleInput
	ti.CharLimit = 256

	m := model{
		st:      st,
		engine:  engine,
		qinput:  ti,
		query:   initial,
		preview: viewport.New(0, 0),
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("tui: %w", err)
	}

	fm := finalModel.(model)
	if fm.selected == nil {
		return "", nil
	}
	return resumeCommand(fm.selected.Session), nil
}

// resumeCommand builds the shell line to pick the conversation back up.
func resumeCommand(sess store.Session) string {
	cmd := fmt.Sprintf("claude --resume %s", sess.UUID)
	if sess.ProjectPath != "" {
		return fmt.Sprintf("cd %s && %s", sess.ProjectPath, cmd)
	}
	return cmd
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.query != "" {
		cmds = append(cmds, m.doSearch(m.query))
	}
	return tea.Batch(cmds...)
}

func (m model) doSearch(q string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.engine.Search(query.SearchParams{Query: q, MaxResults: query.MaxSearchHits})
		if err != nil {
			return searchResultMsg{query: q, err: err}
		}
		return searchResultMsg{query: q, hits: res.Hits}
	}
}

func (m model) scheduleDebounce(q string) tea.Cmd {
	return tea.Tick(debounceDelay, func(time.Time) tea.Msg {
		return debounceTickMsg{query: q}
	})
}

func (m model) loadPreview() tea.Cmd {
	if len(m.hits) == 0 || m.cursor >= len(m.hits) {
		return nil
	}
	uuid := m.hits[m.cursor].Session.UUID
	q := m.query
	width := m.previewWidth()
	st := m.st
	return func() tea.Msg {
		sess, err := st.SessionByUUID(uuid)
		if err != nil || sess == nil {
			return previewMsg{uuid: uuid, content: "(session unavailable)"}
		}
		return previewMsg{
			uuid:    uuid,
			content: render.Conversation(*sess, render.PreviewOptions{Width: width, Query: q}),
		}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.preview = viewport.New(m.previewWidth(), m.panelHeight())
		cmds = append(cmds, m.loadPreview())
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Enter):
			if len(m.hits) > 0 && m.cursor < len(m.hits) {
				h := m.hits[m.cursor]
				m.selected = &h
				return m, tea.Quit
			}

		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.adjustScroll()
				cmds = append(cmds, m.loadPreview())
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.hits)-1 {
				m.cursor++
				m.adjustScroll()
				cmds = append(cmds, m.loadPreview())
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.PreviewUp):
			m.preview.LineUp(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.PreviewDn):
			m.preview.LineDown(m.panelHeight() / 2)
			return m, nil
		}

		var tiCmd tea.Cmd
		m.qinput, tiCmd = m.qinput.Update(msg)
		cmds = append(cmds, tiCmd)

		if newQuery := m.qinput.Value(); newQuery != m.query {
			m.query = newQuery
			cmds = append(cmds, m.scheduleDebounce(newQuery))
		}
		return m, tea.Batch(cmds...)

	case debounceTickMsg:
		if msg.query == m.query && strings.TrimSpace(msg.query) != "" {
			cmds = append(cmds, m.doSearch(msg.query))
		}
		return m, tea.Batch(cmds...)

	case searchResultMsg:
		if msg.query != m.query {
			return m, nil
		}
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.errText = ""
		m.hits = msg.hits
		m.cursor = 0
		m.listOffset = 0
		m.previewFor = ""
		cmds = append(cmds, m.loadPreview())
		return m, tea.Batch(cmds...)

	case previewMsg:
		if len(m.hits) > 0 && m.cursor < len(m.hits) && m.hits[m.cursor].Session.UUID == msg.uuid {
			m.previewFor = msg.uuid
			m.preview.SetContent(msg.content)
			m.preview.GotoTop()
		}
		return m, nil
	}

	return m, tea.Batch(cmds...)
}

func (m model) previewWidth() int {
	w := m.width * 55 / 100
	if w < 20 {
		w = 20
	}
	return w - 4 // border + padding
}

func (m model) listWidth() int {
	return m.width - (m.previewWidth() + 4) - 4
}

func (m model) panelHeight() int {
	h := m.height - 4 // input + status + borders
	if h < 3 {
		h = 3
	}
	return h
}

func (m *model) adjustScroll() {
	visible := m.panelHeight()
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visible {
		m.listOffset = m.cursor - visible + 1
	}
}

func (m model) View() string {
	if !m.ready {
		return "loading..."
	}

	var list strings.Builder
	visible := m.panelHeight()
	for i := m.listOffset; i < len(m.hits) && i < m.listOffset+visible; i++ {
		h := m.hits[i]
		line := fmt.Sprintf("%s  %s", h.Session.Project, shortStart(h.Session.StartedAt))
		if i == m.cursor {
			list.WriteString(styleListSelected.Render("> " + line))
		} else {
			list.WriteString(styleListNormal.Render("  " + line))
		}
		list.WriteString("\n")
		meta := truncateMeta(firstExcerpt(h), m.listWidth())
		list.WriteString(styleListMeta.Render("    " + meta))
		list.WriteString("\n")
	}
	if len(m.hits) == 0 {
		if m.errText != "" {
			list.WriteString(styleListMeta.Render(m.errText))
		} else {
			list.WriteString(styleListMeta.Render("no results"))
		}
	}

	listPanel := stylePanelBorder.
		Width(m.listWidth()).
		Height(m.panelHeight()).
		Render(list.String())

	m.preview.Width = m.previewWidth()
	m.preview.Height = m.panelHeight()
	previewPanel := stylePanelBorder.
		Width(m.previewWidth()).
		Height(m.panelHeight()).
		Render(m.preview.View())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, listPanel, previewPanel)
	status := styleStatusBar.Render(fmt.Sprintf(
		"%d results · enter resume · C-u/C-d preview · esc quit", len(m.hits)))

	return m.qinput.View() + "\n" + panels + "\n" + status
}

func shortStart(ts string) string {
	if len(ts) >= 16 {
		return strings.Replace(ts[:16], "T", " ", 1)
	}
	return ts
}

// truncateMeta fits an excerpt line into the list column by display
// width, so multibyte content is never cut mid-rune.
func truncateMeta(s string, width int) string {
	if width <= 7 {
		return s
	}
	return runewidth.Truncate(s, width-4, "...")
}

func firstExcerpt(h store.SearchHit) string {
	if len(h.Excerpts) == 0 {
		return ""
	}
	s := strings.ReplaceAll(h.Excerpts[0].Snippet, "\n", " ")
	s = strings.ReplaceAll(s, ">>>", "")
	return strings.ReplaceAll(s, "<<<", "")
}
