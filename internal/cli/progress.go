package cli

import (
	"context"
	"fmt"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/lettervault/lettervault/internal/service"
)

// Theme holds the color scheme for the terminal UI.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// reportMsg carries a pipeline state change for one document.
type reportMsg service.DocumentReport

// ingestDoneMsg carries the final result once the run finishes.
type ingestDoneMsg struct {
	result *service.IngestResult
	err    error
}

// ingestModel is the bubbletea model for the ingestion run.
type ingestModel struct {
	reports  <-chan service.DocumentReport
	done     <-chan ingestDoneMsg
	progress progress.Model
	theme    Theme

	current  service.DocumentReport
	finished []service.DocumentReport
	result   *service.IngestResult
	err      error
	quitting bool
	over     bool
}

func newIngestModel(reports <-chan service.DocumentReport, done <-chan ingestDoneMsg) ingestModel {
	return ingestModel{
		reports: reports,
		done:    done,
		progress: progress.New(
			progress.WithDefaultBlend(),
			progress.WithWidth(40),
		),
		theme: defaultTheme,
	}
}

func (m ingestModel) Init() tea.Cmd {
	return tea.Batch(
		m.waitForEvent(),
		m.progress.Init(),
	)
}

// waitForEvent blocks on the next pipeline event.
func (m ingestModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case r, ok := <-m.reports:
			if ok {
				return reportMsg(r)
			}
			return <-m.done
		case d := <-m.done:
			return d
		}
	}
}

func (m ingestModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.over = true
			return m, tea.Quit
		}

	case reportMsg:
		r := service.DocumentReport(msg)
		if r.State == service.StateDone || r.State == service.StateFailed {
			m.finished = append(m.finished, r)
		}
		m.current = r
		return m, m.waitForEvent()

	case ingestDoneMsg:
		m.result = msg.result
		m.err = msg.err
		m.over = true
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m ingestModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m ingestModel) renderContent() string {
	if m.over {
		return m.finalView()
	}

	if m.current.File == "" {
		return "Scanning for PDF files...\n"
	}

	var out string
	for _, d := range m.finished {
		out += m.finishedLine(d)
	}
	if m.current.State != service.StateDone && m.current.State != service.StateFailed {
		status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.current.State))
		bar := m.progress.ViewAs(m.current.Fraction())
		out += fmt.Sprintf("%s %s %s\n", status, bar, m.current.File)
	}
	out += m.theme.hintStyle().Render("Press Ctrl+C to abort") + "\n"
	return out
}

func (m ingestModel) finishedLine(d service.DocumentReport) string {
	if d.State == service.StateFailed {
		return m.theme.errorStyle().Render(fmt.Sprintf("✗ %s", d.File)) +
			fmt.Sprintf(": %v\n", d.Err)
	}
	return m.theme.completedStyle().Render(fmt.Sprintf("✓ %s", d.File)) +
		fmt.Sprintf(" (%d chunks)\n", d.ChunksStored)
}

func (m ingestModel) finalView() string {
	if m.quitting {
		return m.theme.hintStyle().Render("\nIngestion aborted.\n")
	}
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Ingestion failed: %s\n", m.err))
	}

	var out string
	for _, d := range m.finished {
		out += m.finishedLine(d)
	}
	return out
}

// runIngestProgress runs the ingestion with the interactive progress UI.
func runIngestProgress(ctx context.Context, svc *service.IngestService, dir string) (*service.IngestResult, error) {
	reports := make(chan service.DocumentReport)
	done := make(chan ingestDoneMsg, 1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		result, err := svc.IngestDir(ctx, dir, func(r service.DocumentReport) {
			select {
			case reports <- r:
			case <-ctx.Done():
			}
		})
		close(reports)
		done <- ingestDoneMsg{result: result, err: err}
	}()

	p := tea.NewProgram(newIngestModel(reports, done))
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress UI error: %w", err)
	}

	m, ok := finalModel.(ingestModel)
	if !ok {
		return nil, nil
	}
	if m.quitting {
		// Stop the pipeline; the goroutine unblocks via the context.
		cancel()
		return nil, nil
	}
	return m.result, m.err
}
