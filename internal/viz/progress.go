package viz

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/langevin/internal/ensemble"
)

const progressWidth = 40

// TrialMsg reports one finished trial.
type TrialMsg ensemble.Outcome

// DoneMsg ends the progress view.
type DoneMsg struct{ Err error }

// Progress follows an ensemble run trial by trial.
type Progress struct {
	Total    int
	Done     int
	Absorbed int
	Err      error
	finished bool
	quit     bool
}

func NewProgress(total int) Progress {
	return Progress{Total: total}
}

func (m Progress) Init() tea.Cmd { return nil }

func (m Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quit = true
			return m, tea.Quit
		}
	case TrialMsg:
		m.Done++
		if msg.Absorbed {
			m.Absorbed++
		}
	case DoneMsg:
		m.finished = true
		m.Err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

// Canceled reports whether the user quit before the run finished.
func (m Progress) Canceled() bool { return m.quit && !m.finished }

func (m Progress) View() string {
	pct := 0.0
	if m.Total > 0 {
		pct = float64(m.Done) / float64(m.Total)
	}

	var sb strings.Builder
	sb.WriteString(Title.Render("first-passage ensemble"))
	sb.WriteString("\n\n")
	sb.WriteString(ProgressBar(pct, progressWidth))
	fmt.Fprintf(&sb, " %3.0f%%\n", pct*100)
	sb.WriteString(KeyValue("trials", fmt.Sprintf("%d/%d", m.Done, m.Total)))
	sb.WriteString("  ")
	sb.WriteString(KeyValue("absorbed", fmt.Sprint(m.Absorbed)))
	sb.WriteString("\n")
	if !m.finished {
		sb.WriteString(Subtle.Render("q to abort"))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RunWithProgress runs work while a Progress view draws to out. work
// receives a callback to report each finished trial; cancel is called
// when the user aborts the view.
func RunWithProgress(out io.Writer, total int, cancel func(), work func(onTrial func(ensemble.Outcome)) (*ensemble.Result, error), opts ...tea.ProgramOption) (*ensemble.Result, error) {
	opts = append([]tea.ProgramOption{tea.WithOutput(out)}, opts...)
	p := tea.NewProgram(NewProgress(total), opts...)

	var (
		res *ensemble.Result
		err error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		res, err = work(func(o ensemble.Outcome) { p.Send(TrialMsg(o)) })
		p.Send(DoneMsg{Err: err})
	}()

	final, runErr := p.Run()
	if m, ok := final.(Progress); ok && m.Canceled() && cancel != nil {
		cancel()
	}
	<-done
	if runErr != nil {
		return nil, runErr
	}
	return res, err
}
