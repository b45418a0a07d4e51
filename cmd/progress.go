package cmd

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// consoleProgress shows a spinner while a deployment runs. When out is not
// a terminal it prints the label once.
type consoleProgress struct {
	out     io.Writer
	animate bool
	style   lipgloss.Style

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func newConsoleProgress(out io.Writer) *consoleProgress {
	animate := false
	if f, ok := out.(*os.File); ok {
		animate = term.IsTerminal(int(f.Fd()))
	}
	return &consoleProgress{
		out:     out,
		animate: animate,
		style:   lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	}
}

func (p *consoleProgress) Start(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return
	}
	if !p.animate {
		fmt.Fprintln(p.out, p.style.Render(label))
		return
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.spin(label, p.stop, p.done)
}

func (p *consoleProgress) spin(label string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for i := 0; ; i++ {
		fmt.Fprintf(p.out, "\r%s %s", p.style.Render(spinnerFrames[i%len(spinnerFrames)]), label)
		select {
		case <-stop:
			fmt.Fprint(p.out, "\r\033[K")
			return
		case <-ticker.C:
		}
	}
}

// Stop is a no-op when the spinner is not running.
func (p *consoleProgress) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop == nil {
		return
	}
	close(p.stop)
	<-p.done
	p.stop, p.done = nil, nil
}
