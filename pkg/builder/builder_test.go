package builder

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gitlab.com/tinyland/lab/declui/pkg/command"
	"gitlab.com/tinyland/lab/declui/pkg/event"
	"gitlab.com/tinyland/lab/declui/pkg/factory"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

func newTestFactory(t *testing.T) *factory.Factory {
	t.Helper()
	return factory.New(factory.Options{})
}

func mustBuild(t *testing.T, b interface {
	Build() (*command.Command, error)
}) *command.Command {
	t.Helper()
	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return c
}

func types(cs []*command.Command) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Type()
	}
	return out
}

// --- Builder ---

func TestBuildAppliesProperties(t *testing.T) {
	f := newTestFactory(t)
	c := mustBuild(t, New(f, "Button").
		Text("Click").
		Enabled(true).
		Tooltip("Runs the job").
		Property("checkable", true))

	if got := c.State().String("text", ""); got != "Click" {
		t.Errorf("text = %q, want Click", got)
	}
	if !c.State().Bool("checkable", false) || !c.State().Bool("enabled", false) {
		t.Error("bool properties not applied")
	}
	if got := c.State().String("tooltip", ""); got != "Runs the job" {
		t.Errorf("tooltip = %q", got)
	}
}

func TestBuildUnknownType(t *testing.T) {
	f := newTestFactory(t)
	c, err := New(f, "Spaceship").Text("x").Build()
	if c != nil || !errors.Is(err, factory.ErrTypeUnknown) {
		t.Errorf("Build = %v, %v; want nil, ErrTypeUnknown", c, err)
	}
}

func TestValidatorRejectsShortText(t *testing.T) {
	f := newTestFactory(t)
	c := mustBuild(t, New(f, "TextInput").
		Predicate("text", func(v value.Value) bool { return len(value.As(v, "")) >= 3 }, "too short"))

	var changes []command.PropertyChange
	var failures []command.ValidationFailure
	c.State().PropertyChanged.Connect(func(pc command.PropertyChange) { changes = append(changes, pc) })
	c.State().ValidationFailed.Connect(func(vf command.ValidationFailure) { failures = append(failures, vf) })

	err := c.State().Set("text", "no")
	if !errors.Is(err, command.ErrValidationRejected) {
		t.Fatalf("Set err = %v, want ErrValidationRejected", err)
	}
	if got := c.State().String("text", "?"); got != "" {
		t.Errorf("text = %q, want unchanged empty", got)
	}
	if len(failures) != 1 || failures[0].Name != "text" || failures[0].Reason != "too short" {
		t.Errorf("validationFailed = %+v", failures)
	}
	if len(changes) != 0 {
		t.Errorf("propertyChanged = %+v, want none", changes)
	}
}

func TestBuildRejectsInvalidInitialValue(t *testing.T) {
	f := newTestFactory(t)
	b := New(f, "Slider").Range("value", 0, 10).Property("value", 42)
	if b.Validate() {
		t.Error("Validate accepted an out of range value")
	}
	c, err := b.Build()
	if c != nil || !errors.Is(err, command.ErrValidationRejected) {
		t.Errorf("Build = %v, %v; want nil, ErrValidationRejected", c, err)
	}
}

func TestRequired(t *testing.T) {
	f := newTestFactory(t)
	b := New(f, "Label").Required("caption")
	if diff := cmp.Diff([]string{`required property "caption" missing`}, b.Errors()); diff != "" {
		t.Errorf("Errors (-want +got):\n%s", diff)
	}
	if _, err := b.Build(); !errors.Is(err, ErrInvalid) {
		t.Errorf("Build err = %v, want ErrInvalid", err)
	}

	c := mustBuild(t, b.Property("caption", "Name"))
	if err := c.State().Set("caption", ""); err == nil {
		t.Error("required property cleared")
	}
}

func TestEventSugar(t *testing.T) {
	f := newTestFactory(t)
	var log []string
	c := mustBuild(t, New(f, "TextInput").
		OnClick(func() { log = append(log, "click") }).
		OnTextChanged(func(s string) { log = append(log, "text:"+s) }).
		OnValueChanged(func(old, next value.Value) {
			log = append(log, "value:"+old.String()+">"+next.String())
		}).
		OnEvent("returnPressed", func(value.Value) { log = append(log, "return") }))

	c.HandleEvent(string(event.Clicked), value.Map(nil))
	c.HandleEvent(string(event.TextChanged), value.Of(map[string]any{
		event.KeyOldText: "a", event.KeyNewText: "ab",
	}))
	c.HandleEvent(string(event.ValueChanged), value.Of(map[string]any{
		event.KeyOldValue: 1, event.KeyNewValue: 2,
	}))
	c.HandleEvent("returnPressed", value.Map(nil))

	want := []string{"click", "text:ab", "value:1>2", "return"}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Errorf("handler calls (-want +got):\n%s", diff)
	}
}

func TestNamedHandler(t *testing.T) {
	f := newTestFactory(t)
	var got []string
	f.RegisterHandler("save", func(c *command.Command, _ value.Value) {
		got = append(got, c.State().String("text", ""))
	})

	c := mustBuild(t, Button(f, "Save").Handler(event.Clicked, "save"))
	c.HandleEvent(string(event.Clicked), value.Map(nil))
	if diff := cmp.Diff([]string{"Save"}, got); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}

	b := Button(f, "Quit").Handler(event.Clicked, "quit")
	if _, err := b.Build(); !errors.Is(err, factory.ErrHandlerUnknown) {
		t.Errorf("Build err = %v, want ErrHandlerUnknown", err)
	}
}

func TestBindToStateRecordsIntent(t *testing.T) {
	f := newTestFactory(t)
	c := mustBuild(t, New(f, "Slider").
		BindToState("audio.volume").
		BindToState("audio.label", "toolTip"))
	want := map[string]string{"value": "audio.volume", "toolTip": "audio.label"}
	if diff := cmp.Diff(want, c.StateBindings()); diff != "" {
		t.Errorf("bindings (-want +got):\n%s", diff)
	}

	if _, err := New(f, "Slider").BindToState("").Build(); !errors.Is(err, ErrInvalid) {
		t.Errorf("empty key err = %v, want ErrInvalid", err)
	}
}

func TestBindPropertySupplier(t *testing.T) {
	f := newTestFactory(t)
	n := 1
	c := mustBuild(t, New(f, "Label").BindProperty("text", func() value.Value {
		return value.Str("item " + value.Int(int64(n)).String())
	}))
	if got := c.State().String("text", ""); got != "item 1" {
		t.Errorf("text = %q, want item 1", got)
	}
	n = 2
	if err := c.RefreshBindings(); err != nil {
		t.Fatal(err)
	}
	if got := c.State().String("text", ""); got != "item 2" {
		t.Errorf("text after refresh = %q, want item 2", got)
	}
}

func TestChildren(t *testing.T) {
	f := newTestFactory(t)
	pre, _ := f.Create("ProgressBar")
	c := mustBuild(t, New(f, "Container").
		Children(New(f, "Label").Text("a"), New(f, "Button")).
		ChildCommand(pre))
	if diff := cmp.Diff([]string{"Label", "Button", "ProgressBar"}, types(c.Children())); diff != "" {
		t.Errorf("children (-want +got):\n%s", diff)
	}
	if pre.Parent() != c {
		t.Error("prebuilt child not attached")
	}
}

func TestFailingChildFailsBuild(t *testing.T) {
	f := newTestFactory(t)
	b := New(f, "Container").Child(New(f, "Label")).Child(New(f, "Nope"))
	if diff := cmp.Diff([]string{`children[1]: unknown type "Nope"`}, b.Errors()); diff != "" {
		t.Errorf("Errors (-want +got):\n%s", diff)
	}
	var created []*command.Command
	f.Created.Connect(func(c *command.Command) { created = append(created, c) })

	c, err := b.Build()
	if c != nil || !errors.Is(err, factory.ErrTypeUnknown) {
		t.Fatalf("Build = %v, %v", c, err)
	}
	for _, cc := range created {
		if !cc.IsDestroyed() {
			t.Errorf("%s left alive after a failed build", cc.Type())
		}
	}
}

func TestBuilderNode(t *testing.T) {
	f := newTestFactory(t)
	n := New(f, "Container").
		Layout("horizontal").
		Child(New(f, "TextInput").BindToState("form.name", "text").Handler(event.TextChanged, "typed")).
		Node()

	if n.Type != "Container" || len(n.Children) != 1 {
		t.Fatalf("node = %+v", n)
	}
	if got := value.As(value.Of(n.Properties["orientation"]), ""); got != "horizontal" {
		t.Errorf("orientation = %q", got)
	}
	child := n.Children[0]
	if child.Bindings["text"] != "form.name" || child.Events["textChanged"] != "typed" {
		t.Errorf("child = %+v", child)
	}
	if _, err := factory.ParseNode(n.Tree()); err != nil {
		t.Errorf("exported node does not parse: %v", err)
	}
}

func TestNodeOf(t *testing.T) {
	f := newTestFactory(t)
	c := mustBuild(t, New(f, "GroupBox").Property("title", "Audio").
		Child(New(f, "Slider").BindToState("audio.volume")))
	n := NodeOf(c)
	if n.Count() != 2 || n.Children[0].Bindings["value"] != "audio.volume" {
		t.Errorf("node = %+v", n)
	}
	again, err := f.CreateHierarchy(n)
	if err != nil {
		t.Fatal(err)
	}
	if got := again.State().String("title", ""); got != "Audio" {
		t.Errorf("title = %q", got)
	}
}

// --- Hierarchy ---

func TestHierarchyBuilder(t *testing.T) {
	f := newTestFactory(t)
	showAdvanced := false
	root := mustBuild(t, NewHierarchy(f, "").
		Layout("vertical").
		Spacing(2).
		AddChild("Label", func(b *Builder) { b.Text("Name") }).
		AddChildIf(showAdvanced, "CheckBox", nil).
		AddContainer("GroupBox", func(h *HierarchyBuilder) {
			h.Property("title", "Options").
				AddRepeated(3, "RadioButton", func(b *Builder, i int) {
					b.Text(string(rune('a' + i)))
				})
		}).
		AddChild("Button", func(b *Builder) { b.Text("Submit") }))

	if root.Type() != "Container" {
		t.Errorf("root type = %s, want Container", root.Type())
	}
	if diff := cmp.Diff([]string{"Label", "GroupBox", "Button"}, types(root.Children())); diff != "" {
		t.Errorf("children (-want +got):\n%s", diff)
	}
	group := root.Children()[1]
	var texts []string
	for _, rb := range group.Children() {
		texts = append(texts, rb.State().String("text", ""))
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, texts); diff != "" {
		t.Errorf("repeated children (-want +got):\n%s", diff)
	}
	if got := root.State().Int("spacing", 0); got != 2 {
		t.Errorf("spacing = %d", got)
	}
}

func TestFormPattern(t *testing.T) {
	f := newTestFactory(t)
	h := Form(f, "signup", []string{"name", "email"}, "Create")
	if !h.Validate() {
		t.Fatalf("Errors: %v", h.Errors())
	}
	n := h.Node()
	if n.Count() != 8 {
		t.Errorf("node count = %d, want 8", n.Count())
	}
	root := mustBuild(t, h)
	email := root.Children()[1].Children()[1]
	if got := email.StateBindings()["text"]; got != "signup.email" {
		t.Errorf("email binding = %q", got)
	}
}

func TestLabeledInput(t *testing.T) {
	f := newTestFactory(t)
	root := mustBuild(t, LabeledInput(f, "Host", "example.org"))
	if got := root.State().String("orientation", ""); got != "horizontal" {
		t.Errorf("orientation = %q", got)
	}
	input := root.Children()[1]
	if got := input.State().String("placeholder", ""); got != "example.org" {
		t.Errorf("placeholder = %q", got)
	}
}
