// Package spinner shows a ticker-style progress line for long subprocess
// operations such as image pulls and builds. The latest subprocess output
// line is displayed next to a spinning indicator and updated in place.
package spinner

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Spinner displays a spinner with the most recent line piped through
// Writer().
type Spinner struct {
	program *tea.Program
	reader  *io.PipeReader
	writer  *io.PipeWriter
	lineCh  chan string
	done    chan struct{}
	wg      sync.WaitGroup
	output  io.Writer
}

// New creates a Spinner writing to output (os.Stderr when nil).
func New(output io.Writer) *Spinner {
	if output == nil {
		output = os.Stderr
	}
	reader, writer := io.Pipe()
	return &Spinner{
		reader: reader,
		writer: writer,
		lineCh: make(chan string, 100), // buffered so the pipe reader never blocks on the UI
		done:   make(chan struct{}),
		output: output,
	}
}

// Writer returns the writer to hand to subprocesses. Lines written here
// appear next to the spinner.
func (s *Spinner) Writer() io.Writer {
	return s.writer
}

// Start runs the spinner display, blocking until Stop is called. Run it in
// a goroutine when there is concurrent work to do.
func (s *Spinner) Start() error {
	s.wg.Add(1)
	go s.readLines()

	width := 80
	if fd := int(os.Stderr.Fd()); term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			width = w
		}
	}

	s.program = tea.NewProgram(newModel(s.lineCh, width),
		tea.WithOutput(s.output),
		tea.WithoutSignalHandler(), // parent owns signal handling
	)

	_, err := s.program.Run()
	s.wg.Wait()
	return err
}

// Stop ends the spinner and clears its line from the terminal.
func (s *Spinner) Stop() {
	_ = s.writer.Close()
	close(s.done)
	if s.program != nil {
		s.program.Quit()
	}
}

func (s *Spinner) readLines() {
	defer s.wg.Done()
	defer s.reader.Close()

	scanner := bufio.NewScanner(s.reader)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		select {
		case s.lineCh <- line:
		case <-s.done:
			return
		}
	}
}

type model struct {
	spinner  spinner.Model
	status   string
	width    int
	lineCh   <-chan string
	quitting bool
}

type lineMsg string

func newModel(lineCh <-chan string, width int) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return model{spinner: s, width: width, lineCh: lineCh}
}

//nolint:gocritic // hugeParam: tea.Model interface requires value receiver
func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForLine(m.lineCh))
}

//nolint:gocritic // hugeParam: tea.Model interface requires value receiver
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case lineMsg:
		m.status = string(msg)
		return m, waitForLine(m.lineCh)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.QuitMsg:
		m.quitting = true
		return m, nil
	}
	return m, nil
}

//nolint:gocritic // hugeParam: tea.Model interface requires value receiver
func (m model) View() string {
	if m.quitting {
		return ""
	}
	maxWidth := m.width - 3 // spinner glyph plus a space
	if maxWidth < 10 {
		maxWidth = 10
	}
	return m.spinner.View() + " " + truncate(m.status, maxWidth)
}

func waitForLine(lineCh <-chan string) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-lineCh
		if !ok {
			return tea.Quit()
		}
		return lineMsg(line)
	}
}

func truncate(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return ""
	}
	if len(s) <= maxWidth {
		return s
	}
	return s[:maxWidth-3] + "..."
}
