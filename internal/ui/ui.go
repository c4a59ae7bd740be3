package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/dsync/internal/models"
	"github.com/desertthunder/dsync/internal/shared"
	"github.com/desertthunder/dsync/internal/tasks"
)

const (
	eventBuffer = 64
	maxBarWidth = 80
)

// SyncFunc runs a sync, calling onMessage for every progress message.
type SyncFunc func(ctx context.Context, onMessage func(models.ProgressMessage)) (models.Stats, error)

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	cancel      context.CancelFunc
	run         SyncFunc
	source      string
	destination string
	events      chan models.ProgressMessage
	finished    chan struct{}
	result      syncResult // written by the sync goroutine before finished is closed
	reporter    *tasks.Reporter
	current     string
	final       *syncResult
	started     bool
	cancelled   bool
	bar         progress.Model
	help        help.Model
	keys        keyMap
}

// NewModel creates a TUI model that will run the sync when the program starts.
func NewModel(ctx context.Context, source, destination string, run SyncFunc) *Model {
	ctx, cancel := context.WithCancel(ctx)
	return &Model{
		ctx:         ctx,
		cancel:      cancel,
		run:         run,
		source:      source,
		destination: destination,
		events:      make(chan models.ProgressMessage, eventBuffer),
		finished:    make(chan struct{}),
		reporter:    tasks.NewReporter(nil, nil),
		bar:         progress.New(progress.WithDefaultGradient()),
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init starts the sync.
func (m *Model) Init() tea.Cmd {
	m.started = true
	go func() {
		stats, err := m.run(m.ctx, m.forward)
		m.result = syncResult{stats, err}
		close(m.events)
		close(m.finished)
	}()

	return m.waitForEvent()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-4, maxBarWidth)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.cancelled = true
			m.cancel()
			return m, tea.Quit
		}
		return m, nil

	case Msg:
		switch msg.kind {
		case MsgProgress:
			p := msg.data.(models.ProgressMessage)
			m.reporter.Observe(p)
			if p.Kind == models.StartSync {
				m.current = p.Description
			}
			return m, m.waitForEvent()
		case MsgSyncComplete:
			result := msg.data.(syncResult)
			m.final = &result
			m.cancel()
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the progress screen, or the summary once the sync has returned.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render(fmt.Sprintf("Syncing %s → %s", m.source, m.destination)))
	b.WriteString("\n")

	stats := m.reporter.Stats()
	if m.final != nil {
		stats = m.final.stats
	}

	b.WriteString(m.bar.ViewAs(m.ratio(stats)))
	b.WriteString("\n\n")

	b.WriteString(row("entries", fmt.Sprintf("%d/%d", stats.Synced, stats.Entries)))
	b.WriteString(row("copied", fmt.Sprintf("%s of %s", shared.HumanBytes(stats.BytesCopied), shared.HumanBytes(stats.TotalSize))))
	b.WriteString(row("outcomes", fmt.Sprintf("%d new, %d updated, %d up to date, %d symlinks, %d dirs",
		stats.Copied, stats.Updated, stats.UpToDate, stats.Symlinks(), stats.DirsCreated)))

	switch {
	case m.final != nil && m.final.err != nil:
		b.WriteString("\n" + styles.err.Render(fmt.Sprintf("✗ Sync failed: %v", m.final.err)) + "\n")
	case m.final != nil:
		b.WriteString("\n" + styles.ok.Render("✓ Sync complete") + "\n")
	case m.cancelled:
		b.WriteString("\n" + styles.warn.Render("Cancelling...") + "\n")
	default:
		if m.current != "" {
			b.WriteString(row("current", m.current))
		}
		b.WriteString("\n" + m.help.ShortHelpView(m.keys.ShortHelp()) + "\n")
	}

	return b.String()
}

// Started reports whether Init has launched the sync.
func (m *Model) Started() bool {
	return m.started
}

// Stop cancels the sync.
func (m *Model) Stop() {
	m.cancel()
}

// Wait blocks until the sync goroutine returns and yields its result. It must only be called once Init has run.
func (m *Model) Wait() (models.Stats, error) {
	<-m.finished
	return m.result.stats, m.result.err
}

func (m *Model) ratio(stats models.Stats) float64 {
	if m.final != nil && m.final.err == nil {
		return 1
	}
	if stats.Entries == 0 {
		return 0
	}
	return min(1, float64(stats.Synced)/float64(stats.Entries))
}

func (m *Model) forward(msg models.ProgressMessage) {
	select {
	case m.events <- msg:
	case <-m.ctx.Done():
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.events
		if !ok {
			<-m.finished
			return syncCompleteMsg(m.result.stats, m.result.err)
		}
		return progressMsg(msg)
	}
}

func row(label, value string) string {
	return styles.label.Render(label) + value + "\n"
}
