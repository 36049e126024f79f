// Package tui provides a Bubble Tea terminal user interface for gphotos-backup.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/gphotos-backup/internal/backup"
	"github.com/handiism/gphotos-backup/internal/config"
	ioutils "github.com/handiism/gphotos-backup/internal/io"
	"github.com/handiism/gphotos-backup/internal/organize"
	"github.com/handiism/gphotos-backup/internal/report"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// maxLogs is the number of log lines kept on screen.
const maxLogs = 10

var errCancelled = errors.New("cancelled by user")

// State represents the current UI state.
type State int

const (
	StateWelcome State = iota
	StateRunning
	StateConfirm
	StateDownloading
	StateComplete
	StateError
)

// Message types
type (
	// EventMsg carries a progress message from the runner.
	EventMsg struct {
		Event backup.Event
	}

	// AuthURLMsg is sent when the user has to authorize access.
	AuthURLMsg struct {
		URL string
	}

	// ConfirmMsg asks the user to confirm the download.
	ConfirmMsg struct {
		Stats organize.Stats
	}

	// RunDoneMsg is sent when the run ends.
	RunDoneMsg struct {
		Report *backup.Report
		Err    error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// bridge connects runner hooks, which run on the runner goroutine, to the
// Bubble Tea program.
type bridge struct {
	program *tea.Program
	answers chan bool
}

func (b *bridge) send(msg tea.Msg) {
	if b.program != nil {
		b.program.Send(msg)
	}
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state    State
	spinner  spinner.Model
	progress progress.Model
	settings *config.Settings
	runner   *backup.Runner
	bridge   *bridge
	logs     []backup.Event
	authURL  string
	stats    organize.Stats
	report   *backup.Report
	err      error

	// Run context
	ctx    context.Context
	cancel context.CancelFunc

	// Download progress
	receivedBytes int64
	completed     int
	total         int

	verbose bool

	width  int
	height int
}

// NewModel creates a new TUI model.
func NewModel(settings *config.Settings, runner *backup.Runner) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:    StateWelcome,
		spinner:  sp,
		progress: prog,
		settings: settings,
		runner:   runner,
		bridge:   &bridge{answers: make(chan bool, 1)},
		logs:     make([]backup.Event, 0),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			switch m.state {
			case StateWelcome:
				return m, tea.Quit
			case StateConfirm:
				m.answer(false)
				m.state = StateRunning
			case StateRunning, StateDownloading:
				m.cancel()
				m.state = StateError
				m.err = errCancelled
			}

		case "enter", "y":
			switch m.state {
			case StateWelcome:
				if msg.String() == "enter" {
					m.state = StateRunning
					return m, tea.Batch(m.startRun(), m.spinner.Tick)
				}
			case StateConfirm:
				m.answer(true)
				m.state = StateDownloading
				cmds = append(cmds, m.tickProgress())
			}

		case "n":
			if m.state == StateConfirm {
				m.answer(false)
				m.state = StateRunning
			}

		case "v":
			if m.state == StateWelcome {
				m.verbose = !m.verbose
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				// Reset for another run
				m.state = StateWelcome
				m.logs = nil
				m.authURL = ""
				m.report = nil
				m.err = nil
				m.receivedBytes = 0
				m.completed = 0
				m.total = 0
				m.ctx, m.cancel = context.WithCancel(context.Background())
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case EventMsg:
		if msg.Event.Level == backup.LevelVerbose && !m.verbose {
			return m, nil
		}
		m.logs = append(m.logs, msg.Event)
		if len(m.logs) > maxLogs {
			m.logs = m.logs[len(m.logs)-maxLogs:]
		}

	case AuthURLMsg:
		m.authURL = msg.URL

	case ConfirmMsg:
		m.authURL = ""
		m.stats = msg.Stats
		if m.state == StateRunning {
			m.state = StateConfirm
		}

	case RunDoneMsg:
		m.report = msg.Report
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = errCancelled
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.state == StateDownloading {
			m.receivedBytes, m.completed, m.total = m.runner.Progress()

			var percent float64
			if m.total > 0 {
				percent = float64(m.completed) / float64(m.total)
			}
			cmds = append(cmds, m.progress.SetPercent(percent), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// answer replies to a pending confirmation without blocking.
func (m Model) answer(ok bool) {
	select {
	case m.bridge.answers <- ok:
	default:
	}
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("Google Photos Backup"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Back up your library into year/month folders"))
	b.WriteString("\n\n")

	switch m.state {
	case StateWelcome:
		b.WriteString(m.viewWelcome())
	case StateRunning:
		b.WriteString(m.viewRunning())
	case StateConfirm:
		b.WriteString(m.viewConfirm())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewWelcome() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("This will:"))
	b.WriteString("\n")
	b.WriteString("  1. Connect to your Google account\n")
	b.WriteString("  2. Show statistics by year and month\n")
	b.WriteString("  3. Download all photos and videos\n")
	b.WriteString("  4. Organize them into the backup directory\n\n")

	verboseCheck := "[ ]"
	if m.verbose {
		verboseCheck = "[×]"
	}
	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Verbose output (v)\n\n", verboseCheck))

	b.WriteString(dimStyle.Render(fmt.Sprintf("Backup directory:  %s", m.settings.BackupDir)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Staging directory: %s", m.settings.StagingDir)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Workers: %d", m.settings.Workers)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewRunning() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Working..."))
	b.WriteString("\n\n")

	if m.authURL != "" {
		b.WriteString(warningStyle.Render("Open this URL in your browser to authorize access:"))
		b.WriteString("\n\n")
		b.WriteString(urlStyle.Render(m.authURL))
		b.WriteString("\n\n")
	}

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewConfirm() string {
	var b strings.Builder

	b.WriteString(report.Summary(m.stats))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("Start backing up %d items? (y/n)", m.stats.Total)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	var percent float64
	if m.total > 0 {
		percent = float64(m.completed) / float64(m.total)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Files: %d/%d | Downloaded: %s",
		m.completed,
		m.total,
		ioutils.FormatBytes(m.receivedBytes),
	)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	if m.report == nil {
		return ""
	}
	if m.report.Declined {
		return warningStyle.Render("Backup cancelled.") + "\n"
	}
	return report.CompletionReport(report.Completion{
		Download:  m.report.Download,
		Organize:  m.report.Organize,
		BackupDir: m.settings.BackupDir,
		Elapsed:   m.report.Elapsed,
	})
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("✗ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case backup.LevelError:
			style = errorStyle
			prefix = "✗"
		case backup.LevelWarning:
			style = warningStyle
			prefix = "!"
		case backup.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case backup.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateWelcome:
		return "enter: start • v: verbose • esc: quit"
	case StateConfirm:
		return "y: start backup • n: cancel"
	case StateRunning, StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: start over • q: quit"
	}
	return ""
}

// startRun runs the backup in the background.
func (m Model) startRun() tea.Cmd {
	ctx := m.ctx
	b := m.bridge
	return func() tea.Msg {
		rep, err := m.runner.Run(ctx, backup.Hooks{
			OnEvent: func(e backup.Event) {
				b.send(EventMsg{Event: e})
			},
			Prompt: func(authURL string) {
				b.send(AuthURLMsg{URL: authURL})
			},
			Confirm: func(stats organize.Stats) bool {
				b.send(ConfirmMsg{Stats: stats})
				select {
				case ok := <-b.answers:
					return ok
				case <-ctx.Done():
					return false
				}
			},
		})
		return RunDoneMsg{Report: rep, Err: err}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings, runner *backup.Runner) error {
	model := NewModel(settings, runner)
	p := tea.NewProgram(model, tea.WithAltScreen())
	model.bridge.program = p
	_, err := p.Run()
	return err
}
