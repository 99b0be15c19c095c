package app

import (
	"context"
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"

	"gitlab.com/tinyland/lab/declui/pkg/command"
	"gitlab.com/tinyland/lab/declui/pkg/termkit"
)

// ErrNotTerminal is returned by Run when the output is not a terminal.
var ErrNotTerminal = errors.New("app: output is not a terminal")

// RunOptions configures Run.
type RunOptions struct {
	// Input and Output default to os.Stdin and os.Stdout.
	Input  *os.File
	Output *os.File
	// Inline draws below the prompt instead of on the alternate screen.
	Inline bool
	Keys   *termkit.KeyMap
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Run materializes root and drives it with a terminal host until ctx is
// done or the user quits. While the host runs it is the runtime's poster,
// so store notifications from other goroutines are applied inside the
// host's update loop.
func (rt *Runtime) Run(ctx context.Context, root *command.Command, opts RunOptions) error {
	if rt.closed {
		return ErrClosed
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if !IsTerminal(opts.Output) {
		return ErrNotTerminal
	}

	h, err := rt.Materialize(root)
	if err != nil {
		return err
	}
	defer h.Close()

	host := termkit.NewHost(h.Widget(), termkit.HostOptions{
		Logger: rt.log,
		Theme:  rt.theme,
		Keys:   opts.Keys,
	})
	defer host.Close()
	if w, ht, err := term.GetSize(opts.Output.Fd()); err == nil {
		host.Update(tea.WindowSizeMsg{Width: w, Height: ht})
	}

	prev := rt.poster.swap(host)
	defer rt.poster.swap(prev)

	popts := []tea.ProgramOption{tea.WithInput(opts.Input), tea.WithOutput(opts.Output)}
	if !opts.Inline {
		popts = append(popts, tea.WithAltScreen())
	}
	rt.log.Debug("app: terminal host starting", "root", root)
	err = host.Run(ctx, popts...)
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}
	return err
}
