package builder

import (
	"gitlab.com/tinyland/lab/declui/pkg/command"
	"gitlab.com/tinyland/lab/declui/pkg/factory"
	"gitlab.com/tinyland/lab/declui/pkg/mapper"
)

// HierarchyBuilder assembles a container command and its children.
type HierarchyBuilder struct {
	root *Builder
}

// NewHierarchy returns a hierarchy rooted at a command of typ. An empty
// typ means Container.
func NewHierarchy(f *factory.Factory, typ string) *HierarchyBuilder {
	if typ == "" {
		typ = mapper.TypeContainer
	}
	return &HierarchyBuilder{root: New(f, typ)}
}

// Root returns the builder of the container itself.
func (h *HierarchyBuilder) Root() *Builder { return h.root }

// Configure runs fn on the root builder.
func (h *HierarchyBuilder) Configure(fn func(*Builder)) *HierarchyBuilder {
	if fn != nil {
		fn(h.root)
	}
	return h
}

// Property sets a property of the container.
func (h *HierarchyBuilder) Property(name string, v any) *HierarchyBuilder {
	h.root.Property(name, v)
	return h
}

// Layout sets the container orientation.
func (h *HierarchyBuilder) Layout(orientation string) *HierarchyBuilder {
	h.root.Layout(orientation)
	return h
}

// Spacing sets the gap between children.
func (h *HierarchyBuilder) Spacing(n int) *HierarchyBuilder {
	h.root.Spacing(n)
	return h
}

// Margins sets the same margin on all four sides.
func (h *HierarchyBuilder) Margins(n int) *HierarchyBuilder {
	h.root.Property("margins", []int{n, n, n, n})
	return h
}

// Style sets the container style sheet.
func (h *HierarchyBuilder) Style(sheet string) *HierarchyBuilder {
	h.root.Style(sheet)
	return h
}

// AddChild appends a child of typ configured by fn.
func (h *HierarchyBuilder) AddChild(typ string, fn func(*Builder)) *HierarchyBuilder {
	ch := New(h.root.f, typ)
	if fn != nil {
		fn(ch)
	}
	h.root.Child(ch)
	return h
}

// AddBuilder appends a prepared builder.
func (h *HierarchyBuilder) AddBuilder(b *Builder) *HierarchyBuilder {
	h.root.Child(b)
	return h
}

// AddCommand appends an already built command.
func (h *HierarchyBuilder) AddCommand(c *command.Command) *HierarchyBuilder {
	h.root.ChildCommand(c)
	return h
}

// AddChildIf is AddChild when cond holds and a no-op otherwise.
func (h *HierarchyBuilder) AddChildIf(cond bool, typ string, fn func(*Builder)) *HierarchyBuilder {
	if !cond {
		return h
	}
	return h.AddChild(typ, fn)
}

// AddContainer appends a nested hierarchy rooted at typ.
func (h *HierarchyBuilder) AddContainer(typ string, fn func(*HierarchyBuilder)) *HierarchyBuilder {
	sub := NewHierarchy(h.root.f, typ)
	if fn != nil {
		fn(sub)
	}
	h.root.Child(sub.root)
	return h
}

// AddRepeated appends n children of typ. fn receives each builder with its
// index.
func (h *HierarchyBuilder) AddRepeated(n int, typ string, fn func(b *Builder, i int)) *HierarchyBuilder {
	for i := range n {
		ch := New(h.root.f, typ)
		if fn != nil {
			fn(ch, i)
		}
		h.root.Child(ch)
	}
	return h
}

// Errors lists the problems Build would fail on.
func (h *HierarchyBuilder) Errors() []string { return h.root.Errors() }

// Validate reports whether the hierarchy has no problems.
func (h *HierarchyBuilder) Validate() bool { return h.root.Validate() }

// Build creates the container and every child.
func (h *HierarchyBuilder) Build() (*command.Command, error) { return h.root.Build() }

// Node exports the hierarchy as a configuration tree.
func (h *HierarchyBuilder) Node() factory.Node { return h.root.Node() }

// --- Patterns ---

// Button returns a builder for a button showing text.
func Button(f *factory.Factory, text string) *Builder {
	return New(f, mapper.TypeButton).Text(text)
}

// LabeledInput returns a horizontal row holding a label and a text input.
func LabeledInput(f *factory.Factory, label, placeholder string) *HierarchyBuilder {
	return NewHierarchy(f, mapper.TypeContainer).
		Layout("horizontal").
		AddChild(mapper.TypeLabel, func(b *Builder) { b.Text(label) }).
		AddChild(mapper.TypeTextInput, func(b *Builder) { b.Placeholder(placeholder) })
}

// Form returns a vertical container of labeled inputs bound to prefix.name
// for each name, followed by a submit button.
func Form(f *factory.Factory, prefix string, fields []string, submit string) *HierarchyBuilder {
	h := NewHierarchy(f, mapper.TypeContainer).Layout("vertical")
	for _, name := range fields {
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		h.AddContainer(mapper.TypeContainer, func(row *HierarchyBuilder) {
			row.Layout("horizontal").
				AddChild(mapper.TypeLabel, func(b *Builder) { b.Text(name) }).
				AddChild(mapper.TypeTextInput, func(b *Builder) { b.BindToState(key, "text") })
		})
	}
	return h.AddChild(mapper.TypeButton, func(b *Builder) { b.Text(submit) })
}
