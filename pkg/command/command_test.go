package command

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gitlab.com/tinyland/lab/declui/pkg/native"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

func newTestCommand(t *testing.T, typ string) *Command {
	t.Helper()
	return New(Metadata{Type: typ, WidgetClass: "Generic"})
}

type fakeProjector struct {
	projected [][]string
	extracted [][]string
}

func (p *fakeProjector) Project(_ *Command, names []string) error {
	p.projected = append(p.projected, names)
	return nil
}

func (p *fakeProjector) Extract(_ *Command, names []string) error {
	p.extracted = append(p.extracted, names)
	return nil
}

type fakeBinder struct {
	bound   map[string]string
	unbound []string
	fail    bool
}

func (b *fakeBinder) Bind(_ *Command, key, prop string) error {
	if b.fail {
		return errors.New("bind failed")
	}
	if b.bound == nil {
		b.bound = map[string]string{}
	}
	b.bound[prop] = key
	return nil
}

func (b *fakeBinder) Unbind(_ *Command, props ...string) int {
	b.unbound = append(b.unbound, props...)
	return len(props)
}

// --- Hierarchy ---

func TestAddChildAppendsInOrder(t *testing.T) {
	root := newTestCommand(t, "Container")
	a, b := newTestCommand(t, "Button"), newTestCommand(t, "Button")

	var added []*Command
	root.ChildAdded.Connect(func(c *Command) { added = append(added, c) })

	if err := root.AddChild(a); err != nil {
		t.Fatalf("AddChild(a): %v", err)
	}
	if err := root.AddChild(b); err != nil {
		t.Fatalf("AddChild(b): %v", err)
	}
	kids := root.Children()
	if len(kids) != 2 || kids[0] != a || kids[1] != b {
		t.Fatalf("children = %v, want [a b]", kids)
	}
	if a.Parent() != root || b.Parent() != root {
		t.Error("parent back-reference not set")
	}
	if len(added) != 2 {
		t.Errorf("childAdded emitted %d times, want 2", len(added))
	}
}

func TestAddChildDetachesFromPreviousParent(t *testing.T) {
	p1, p2 := newTestCommand(t, "Container"), newTestCommand(t, "Container")
	c := newTestCommand(t, "Label")
	_ = p1.AddChild(c)

	removed := 0
	p1.ChildRemoved.Connect(func(*Command) { removed++ })
	_ = p2.AddChild(c)

	if p1.ChildCount() != 0 {
		t.Errorf("old parent has %d children", p1.ChildCount())
	}
	if c.Parent() != p2 {
		t.Error("child parent not moved")
	}
	if removed != 1 {
		t.Errorf("childRemoved emitted %d times, want 1", removed)
	}
}

func TestAddChildRejectsInvalid(t *testing.T) {
	root := newTestCommand(t, "Container")
	child := newTestCommand(t, "Container")
	_ = root.AddChild(child)

	for name, c := range map[string]*Command{"nil": nil, "self": root} {
		if err := root.AddChild(c); !errors.Is(err, ErrInvalidChild) {
			t.Errorf("%s: err = %v, want ErrInvalidChild", name, err)
		}
	}
	if err := child.AddChild(root); !errors.Is(err, ErrInvalidChild) {
		t.Errorf("cycle: err = %v, want ErrInvalidChild", err)
	}
	if root.ChildCount() != 1 {
		t.Errorf("ChildCount = %d after rejections, want 1", root.ChildCount())
	}
}

func TestRemoveChild(t *testing.T) {
	root, c := newTestCommand(t, "Container"), newTestCommand(t, "Label")
	_ = root.AddChild(c)
	if err := root.RemoveChild(c); err != nil {
		t.Fatalf("RemoveChild: %v", err)
	}
	if c.Parent() != nil || root.ChildCount() != 0 {
		t.Error("child not detached")
	}
	if err := root.RemoveChild(c); !errors.Is(err, ErrNotChild) {
		t.Errorf("second RemoveChild: %v, want ErrNotChild", err)
	}
}

func TestWalkAndFind(t *testing.T) {
	root := newTestCommand(t, "Container")
	mid := newTestCommand(t, "GroupBox")
	leaf := newTestCommand(t, "Button")
	_ = root.AddChild(mid)
	_ = mid.AddChild(leaf)

	var types []string
	root.Walk(func(c *Command) { types = append(types, c.Type()) })
	if diff := cmp.Diff([]string{"Container", "GroupBox", "Button"}, types); diff != "" {
		t.Errorf("Walk (-want +got):\n%s", diff)
	}
	if root.FindByID(leaf.ID()) != leaf {
		t.Error("FindByID did not find leaf")
	}
	if leaf.Root() != root {
		t.Error("Root() mismatch")
	}
}

// --- Destruction ---

func TestDestroyPostOrder(t *testing.T) {
	root := newTestCommand(t, "Container")
	a, b := newTestCommand(t, "Button"), newTestCommand(t, "Button")
	_ = root.AddChild(a)
	_ = root.AddChild(b)

	var order []*Command
	for _, c := range []*Command{root, a, b} {
		c.Destroying.Connect(func(c *Command) { order = append(order, c) })
	}
	root.Destroy()

	if len(order) != 3 || order[0] != a || order[1] != b || order[2] != root {
		t.Errorf("destroy order = %v, want [a b root]", order)
	}
	for _, c := range []*Command{root, a, b} {
		if !c.IsDestroyed() {
			t.Errorf("%v not destroyed", c)
		}
	}
	root.Destroy()
}

func TestDestroyDetachesRetainedChild(t *testing.T) {
	root := newTestCommand(t, "Container")
	kept := newTestCommand(t, "Label")
	_ = root.AddChild(kept)
	kept.Retain()

	root.Destroy()
	if kept.IsDestroyed() {
		t.Fatal("retained child was destroyed")
	}
	if kept.Parent() != nil {
		t.Error("retained child still has parent")
	}
	if kept.Release() != 0 {
		t.Error("Release count mismatch")
	}
}

func TestDestroyedRejectsHandlers(t *testing.T) {
	c := newTestCommand(t, "Button")
	c.Destroy()
	if id := c.On("clicked", func(value.Value) {}); id != 0 {
		t.Errorf("On after destroy = %d, want 0", id)
	}
	c.HandleEvent("clicked", value.Value{})
}

// --- Widget lifecycle ---

func TestWidgetLifecycle(t *testing.T) {
	c := newTestCommand(t, "Button")
	p := &fakeProjector{}
	w := native.NewGeneric("Generic", nil)

	if err := c.SyncToWidget(); err != nil || len(p.projected) != 0 {
		t.Fatalf("unbound sync should be a no-op")
	}
	if c.Phase() != Unbound {
		t.Fatalf("phase = %v, want unbound", c.Phase())
	}

	if err := c.OnWidgetAttached(w, p); err != nil {
		t.Fatalf("OnWidgetAttached: %v", err)
	}
	if c.Phase() != Bound || c.Widget() != native.Widget(w) {
		t.Errorf("after attach: phase=%v widget=%v", c.Phase(), c.Widget())
	}
	if len(p.projected) != 1 || p.projected[0] != nil {
		t.Errorf("attach projected %v, want one full projection", p.projected)
	}

	if err := c.OnWidgetDetached(); err != nil {
		t.Fatalf("OnWidgetDetached: %v", err)
	}
	if c.Phase() != Unbound || c.Widget() != nil {
		t.Errorf("after detach: phase=%v widget=%v", c.Phase(), c.Widget())
	}
	if len(p.extracted) != 1 {
		t.Errorf("detach extracted %d times, want 1", len(p.extracted))
	}
}

func TestBehaviorOverridesProjector(t *testing.T) {
	c := newTestCommand(t, "Slider")
	p := &fakeProjector{}
	var synced []string
	c.SetBehavior(Behavior{
		SyncTo: func(c *Command, w native.Widget, names []string) error {
			synced = append(synced, "to")
			return nil
		},
	})
	_ = c.OnWidgetAttached(native.NewGeneric("Generic", nil), p)
	if len(p.projected) != 0 || len(synced) != 1 {
		t.Errorf("projector=%v behavior=%v", p.projected, synced)
	}
}

// --- Events ---

func TestHandleEventRunsLocalHandlersThenSignal(t *testing.T) {
	c := newTestCommand(t, "Button")
	var order []string
	c.On("clicked", func(value.Value) { order = append(order, "h1") })
	c.On("clicked", func(value.Value) { panic("boom") })
	c.On("clicked", func(value.Value) { order = append(order, "h3") })
	c.EventTriggered.Connect(func(tr Triggered) { order = append(order, "signal:"+tr.Type) })

	c.HandleEvent("clicked", value.Value{})
	if diff := cmp.Diff([]string{"h1", "h3", "signal:clicked"}, order); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
}

func TestHandleEventCustomTypeOnlyForRegistered(t *testing.T) {
	c := newTestCommand(t, "Button")
	clicks := 0
	c.On("clicked", func(value.Value) { clicks++ })
	c.HandleEvent("somethingCustom", value.Value{})
	if clicks != 0 {
		t.Errorf("clicked handler ran for custom event")
	}
}

func TestOff(t *testing.T) {
	c := newTestCommand(t, "Button")
	calls := 0
	id := c.On("clicked", func(value.Value) { calls++ })
	if !c.Off(id) {
		t.Fatal("Off returned false")
	}
	c.HandleEvent("clicked", value.Value{})
	if calls != 0 || c.HasHandler("clicked") {
		t.Error("handler still registered")
	}
}

// --- Bindings ---

func TestRefreshBindingsSuppliersAndIntents(t *testing.T) {
	c := newTestCommand(t, "Label")
	n := 0
	c.BindProperty("text", func() value.Value { n++; return value.Of(n) })
	c.BindToState("ui.label", "")

	if err := c.RefreshBindings(); err != nil {
		t.Fatalf("RefreshBindings without binder: %v", err)
	}
	if c.State().Int("text", 0) != 1 {
		t.Errorf("text = %v, want 1", c.State().Int("text", 0))
	}

	b := &fakeBinder{}
	c.SetBinder(b)
	_ = c.RefreshBindings()
	_ = c.RefreshBindings()
	if b.bound["value"] != "ui.label" {
		t.Errorf("binder got %v, want value->ui.label", b.bound)
	}
	if c.State().Int("text", 0) != 3 {
		t.Errorf("supplier not re-evaluated: %d", c.State().Int("text", 0))
	}

	c.UnbindFromState("value")
	if diff := cmp.Diff([]string{"value"}, b.unbound); diff != "" {
		t.Errorf("unbound (-want +got):\n%s", diff)
	}
	if len(c.StateBindings()) != 0 {
		t.Error("intent not removed")
	}
}

func TestRefreshBindingsCollectsErrors(t *testing.T) {
	c := newTestCommand(t, "Label")
	c.BindToState("k", "text")
	c.SetBinder(&fakeBinder{fail: true})
	if err := c.RefreshBindings(); err == nil {
		t.Error("expected bind failure")
	}
}
