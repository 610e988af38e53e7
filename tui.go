package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tapvoice/dictation"
)

// TUI message types
type StateMsg struct{ State dictation.State }
type NoticeMsg struct{ Title, Text string }
type TranscriptMsg struct{ Text string }
type tickMsg time.Time

const tuiFrame = 100 * time.Millisecond

type tuiModel struct {
	listening bool
	since     time.Time
	now       time.Time
	frame     int
	width     int
	phrases   int
	last      string
	notice    string

	hint     string // "double-tap F9 to dictate"
	modeLine string // "groq whisper-large-v3-turbo (en)"
	onQuit   func()
}

var (
	recStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	recDimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("88")).Bold(true)
	idleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	modeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	textStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
)

func newTUIModel(hint, modeLine string, onQuit func()) tuiModel {
	return tuiModel{hint: hint, modeLine: modeLine, onQuit: onQuit}
}

// NewTUIProgram runs the model on the terminal; onQuit is called when the
// user presses q or ctrl+c.
func NewTUIProgram(hint, modeLine string, onQuit func()) *tea.Program {
	return tea.NewProgram(newTUIModel(hint, modeLine, onQuit))
}

func tuiTick() tea.Cmd {
	return tea.Tick(tuiFrame, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.onQuit != nil {
				m.onQuit()
			}
			return m, tea.Quit
		}

	case tickMsg:
		m.frame++
		m.now = time.Time(msg)
		return m, tuiTick()

	case StateMsg:
		m.listening = msg.State == dictation.Listening
		if m.listening {
			m.since = time.Now()
			m.now = m.since
			m.notice = ""
		}

	case TranscriptMsg:
		m.phrases++
		m.last = msg.Text

	case NoticeMsg:
		m.notice = msg.Text
	}
	return m, nil
}

func (m tuiModel) View() string {
	var b strings.Builder

	if m.listening {
		style := recStyle
		if m.frame%10 >= 5 {
			style = recDimStyle
		}
		elapsed := m.now.Sub(m.since).Seconds()
		b.WriteString(style.Render(fmt.Sprintf("● LISTENING %.1fs", max(elapsed, 0))))
	} else {
		b.WriteString(idleStyle.Render("○ IDLE"))
	}
	b.WriteString("\n")

	if m.modeLine != "" {
		b.WriteString(modeStyle.Render(m.modeLine) + "\n")
	}
	b.WriteString("\n")

	width := m.width - 2
	if width < 20 {
		width = 60
	}
	if m.last != "" {
		b.WriteString(idleStyle.Render(fmt.Sprintf("Last phrase (#%d)", m.phrases)) + "\n")
		for _, line := range wrapText(m.last, width) {
			b.WriteString(textStyle.Render(line) + "\n")
		}
	} else {
		b.WriteString(idleStyle.Render("Nothing dictated yet") + "\n")
	}

	if m.notice != "" {
		b.WriteString("\n" + noticeStyle.Render("⚠ "+m.notice) + "\n")
	}

	b.WriteString("\n")
	if m.hint != "" {
		b.WriteString(helpStyle.Render(m.hint) + "\n")
	}
	b.WriteString(helpStyle.Render("q to quit · tapvoice " + version))
	return b.String()
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		// Break at the last space that fits, or hard-split a long word
		splitAt := width
		if i := strings.LastIndexByte(text[:width+1], ' '); i > 0 {
			splitAt = i
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}

// tuiSink forwards controller events into the running program. Send
// returns immediately once the program has exited.
type tuiSink struct {
	p *tea.Program
}

func (s tuiSink) OnStateChanged(st dictation.State) error {
	s.p.Send(StateMsg{State: st})
	return nil
}

func (s tuiSink) OnNotify(title, message string) error {
	s.p.Send(NoticeMsg{Title: title, Text: message})
	return nil
}
