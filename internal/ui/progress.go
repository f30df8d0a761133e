package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/aura/internal/formatter"
	"github.com/desertthunder/aura/internal/tasks"
)

// keyMap defines the key bindings for the sync progress view.
type keyMap struct {
	quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.quit}}
}

type progressMsg tasks.ProgressUpdate

type syncDoneMsg struct {
	result *tasks.SyncResult
	err    error
}

// Model is the bubbletea state for a watched sync run.
type Model struct {
	ctx      context.Context
	engine   *tasks.ProfileEngine
	userID   string
	force    bool
	updates  chan tasks.ProgressUpdate
	spinner  spinner.Model
	progress tasks.ProgressUpdate
	result   *tasks.SyncResult
	err      error
	done     bool
	help     help.Model
	keys     keyMap
}

// NewSyncModel creates the progress view for one sync run.
func NewSyncModel(ctx context.Context, engine *tasks.ProfileEngine, userID string, force bool) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.ok

	return Model{
		ctx:     ctx,
		engine:  engine,
		userID:  userID,
		force:   force,
		updates: make(chan tasks.ProgressUpdate, 64),
		spinner: sp,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startSync(), m.waitForProgress())
}

// startSync runs the sync in the background and reports its outcome.
func (m Model) startSync() tea.Cmd {
	return func() tea.Msg {
		result, err := m.engine.Sync(m.ctx, m.userID, m.force, m.updates)
		return syncDoneMsg{result: result, err: err}
	}
}

// waitForProgress relays the next engine progress update into the program.
func (m Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		return progressMsg(<-m.updates)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}

	case progressMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case syncDoneMsg:
		m.result = msg.result
		m.err = msg.err
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("aura sync"))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("✗ Sync failed: %v", m.err)))
		b.WriteString("\n")

	case m.done && m.result != nil:
		if m.result.FromCache {
			b.WriteString(styles.ok.Render("✓ Cache fresh, no fetch needed"))
		} else {
			b.WriteString(styles.ok.Render("✓ Sync complete"))
		}
		b.WriteString("\n")

		for _, skipped := range m.result.Skipped {
			b.WriteString(styles.warn.Render(fmt.Sprintf("⚠ Skipped %s: %s", skipped.Resource, skipped.Reason)))
			b.WriteString("\n")
		}

		if m.result.Summary != nil {
			b.WriteString("\n")
			b.Write(formatter.SummaryToText(m.result.Summary))
		}

	default:
		b.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), m.progress.Message))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.help.Render(m.help.View(m.keys)))
	b.WriteString("\n")

	return b.String()
}
