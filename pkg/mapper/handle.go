package mapper

import (
	"errors"

	"gitlab.com/tinyland/lab/declui/pkg/command"
	"gitlab.com/tinyland/lab/declui/pkg/native"
)

// Handle is the result of materializing a command. While the mapper owns
// the widget, Close disposes it; after TransferTo the new parent does.
type Handle struct {
	m      *Mapper
	cmd    *command.Command
	widget native.Widget
}

// Widget returns the paired widget.
func (h *Handle) Widget() native.Widget { return h.widget }

// Command returns the paired command.
func (h *Handle) Command() *command.Command { return h.cmd }

// Owned reports whether the mapper will dispose the widget.
func (h *Handle) Owned() bool {
	own, ok := h.m.Ownership(h.cmd)
	return ok && own != OwnedExternally
}

// TransferTo hands the widget to a foreign parent. The pairing stays live
// but ending it no longer disposes the widget.
func (h *Handle) TransferTo(parent native.Widget) error {
	if parent == nil {
		return errors.New("mapper: nil parent")
	}
	p, ok := h.m.pairs[h.cmd]
	if !ok || p.widget != h.widget {
		return ErrNotBound
	}
	if err := parent.AddChild(h.widget); err != nil {
		return err
	}
	p.own = OwnedExternally
	return nil
}

// Close ends the pairing.
func (h *Handle) Close() error {
	if p, ok := h.m.pairs[h.cmd]; !ok || p.widget != h.widget {
		return nil
	}
	return h.m.DestroyWidget(h.cmd)
}
