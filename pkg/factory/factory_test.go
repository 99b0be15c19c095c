package factory

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gitlab.com/tinyland/lab/declui/pkg/command"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

func newTestFactory(t *testing.T) *Factory {
	t.Helper()
	return New(Options{})
}

func childTypes(c *command.Command) []string {
	var out []string
	for _, ch := range c.Children() {
		out = append(out, ch.Type())
	}
	return out
}

// --- Registry ---

func TestBuiltinTypes(t *testing.T) {
	f := newTestFactory(t)
	want := []string{
		"Button", "CheckBox", "ComboBox", "Container", "GroupBox", "Label",
		"ProgressBar", "RadioButton", "Slider", "SpinBox", "TextInput",
	}
	if diff := cmp.Diff(want, f.Types()); diff != "" {
		t.Errorf("Types (-want +got):\n%s", diff)
	}
}

func TestRegisterTypeSanityChecks(t *testing.T) {
	f := New(Options{SkipBuiltins: true})
	if err := f.RegisterType(command.Metadata{}, command.New); err == nil {
		t.Error("empty type accepted")
	}
	if err := f.RegisterType(command.Metadata{Type: "X"}, nil); err == nil {
		t.Error("nil constructor accepted")
	}

	var registered []string
	f.Registered.Connect(func(s string) { registered = append(registered, s) })
	if err := f.RegisterType(command.Metadata{Type: "X"}, command.New); err != nil {
		t.Fatalf("RegisterType: %v", err)
	}
	if !f.IsRegistered("X") || len(registered) != 1 {
		t.Errorf("IsRegistered = %v, registered signals = %v", f.IsRegistered("X"), registered)
	}
	if !f.Unregister("X") || f.Unregister("X") {
		t.Error("Unregister should succeed once")
	}
}

func TestMetadataIsCopied(t *testing.T) {
	f := newTestFactory(t)
	meta, ok := f.Metadata("Button")
	if !ok {
		t.Fatal("Button metadata missing")
	}
	meta.Defaults["text"] = "mutated"
	again, _ := f.Metadata("Button")
	if again.Defaults["text"] != "" {
		t.Errorf("registry default changed through a copy: %v", again.Defaults["text"])
	}
}

// --- Create ---

func TestCreateSeedsDefaults(t *testing.T) {
	f := newTestFactory(t)
	var created []*command.Command
	f.Created.Connect(func(c *command.Command) { created = append(created, c) })

	c, err := f.Create("Slider")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := c.State().Int("maximum", 0); got != 100 {
		t.Errorf("maximum = %d, want 100", got)
	}
	if !c.State().Bool("enabled", false) {
		t.Error("enabled default missing")
	}
	if len(created) != 1 || created[0] != c {
		t.Errorf("created signals = %v", created)
	}
}

func TestCreateUnknownType(t *testing.T) {
	f := newTestFactory(t)
	var failures []CreationFailure
	f.CreationFailed.Connect(func(cf CreationFailure) { failures = append(failures, cf) })

	c, err := f.Create("Spaceship")
	if c != nil || !errors.Is(err, ErrTypeUnknown) {
		t.Errorf("Create = %v, %v; want nil, ErrTypeUnknown", c, err)
	}
	if len(failures) != 1 || failures[0].Type != "Spaceship" {
		t.Errorf("creationFailed = %+v", failures)
	}
}

func TestCreateWithConfigSkipsReservedKeys(t *testing.T) {
	f := newTestFactory(t)
	c, err := f.CreateWithConfig("Button", map[string]any{
		"type":     "Label",
		"children": []any{map[string]any{"type": "Label"}},
		"text":     "Save",
		"tooltip":  "Writes the file",
	})
	if err != nil {
		t.Fatalf("CreateWithConfig: %v", err)
	}
	if c.Type() != "Button" {
		t.Errorf("type = %s, want Button", c.Type())
	}
	if c.State().Has("type") || c.State().Has("children") || c.ChildCount() != 0 {
		t.Error("reserved keys leaked into the command")
	}
	if got := c.State().String("text", ""); got != "Save" {
		t.Errorf("text = %q", got)
	}
}

func TestSetDefaults(t *testing.T) {
	f := newTestFactory(t)
	if err := f.SetDefaults("Label", map[string]any{"text": "n/a"}); err != nil {
		t.Fatal(err)
	}
	c, _ := f.Create("Label")
	if got := c.State().String("text", ""); got != "n/a" {
		t.Errorf("text = %q, want n/a", got)
	}
	if err := f.SetDefaults("Nope", nil); !errors.Is(err, ErrTypeUnknown) {
		t.Errorf("err = %v, want ErrTypeUnknown", err)
	}
}

func TestCreateMany(t *testing.T) {
	f := newTestFactory(t)
	cs, err := f.CreateMany("Label", "Nope", "Button")
	if len(cs) != 2 || !errors.Is(err, ErrTypeUnknown) {
		t.Errorf("CreateMany = %d commands, err %v", len(cs), err)
	}
}

// --- Hierarchy ---

func formNode() Node {
	return Node{
		Type:       "Container",
		Properties: map[string]any{"orientation": "horizontal"},
		Children: []Node{
			{Type: "Button", Properties: map[string]any{"text": "OK"}, Events: map[string]string{"clicked": "submit"}},
			{Type: "Spaceship"},
			{Type: "TextInput", Bindings: map[string]string{"text": "form.name"}},
		},
	}
}

func TestCreateHierarchy(t *testing.T) {
	f := newTestFactory(t)
	var got []string
	f.RegisterHandler("submit", func(c *command.Command, data value.Value) {
		got = append(got, c.State().String("text", ""))
	})

	root, err := f.CreateHierarchy(formNode())
	if err != nil {
		t.Fatalf("CreateHierarchy: %v", err)
	}
	if diff := cmp.Diff([]string{"Button", "TextInput"}, childTypes(root)); diff != "" {
		t.Errorf("children (-want +got):\n%s", diff)
	}
	if got := root.State().String("orientation", ""); got != "horizontal" {
		t.Errorf("orientation = %q", got)
	}

	btn := root.Children()[0]
	btn.HandleEvent("clicked", value.Map(nil))
	if diff := cmp.Diff([]string{"OK"}, got); diff != "" {
		t.Errorf("named handler calls (-want +got):\n%s", diff)
	}

	input := root.Children()[1]
	if diff := cmp.Diff(map[string]string{"text": "form.name"}, input.StateBindings()); diff != "" {
		t.Errorf("binding intents (-want +got):\n%s", diff)
	}
}

func TestCreateHierarchyUnknownRoot(t *testing.T) {
	f := newTestFactory(t)
	root, err := f.CreateHierarchy(Node{Type: "Spaceship", Children: []Node{{Type: "Label"}}})
	if root != nil || !errors.Is(err, ErrTypeUnknown) {
		t.Errorf("CreateHierarchy = %v, %v", root, err)
	}
}

func TestCreateHierarchyFromTree(t *testing.T) {
	f := newTestFactory(t)
	root, err := f.CreateHierarchyFromTree(map[string]any{
		"type":    "GroupBox",
		"comment": "ignored",
		"properties": map[string]any{
			"title": "Audio",
		},
		"children": []any{
			map[string]any{"type": "Slider", "properties": map[string]any{"value": float64(30)}},
		},
	})
	if err != nil {
		t.Fatalf("CreateHierarchyFromTree: %v", err)
	}
	slider := root.Children()[0]
	v, _ := slider.State().Value("value")
	if v.Kind() != value.KindInt || value.As(v, 0) != 30 {
		t.Errorf("value = %v (%s), want int 30", v, v.Kind())
	}
}

func TestValidateConfig(t *testing.T) {
	f := newTestFactory(t)
	n := formNode()
	n.Children = append(n.Children, Node{Type: "ComboBox"})

	want := []string{
		`root.children[0]: event "clicked" names unknown handler "submit"`,
		`root.children[1]: unknown type "Spaceship"`,
		`root.children[3]: required property "items" missing`,
	}
	if diff := cmp.Diff(want, f.ValidateConfig(n)); diff != "" {
		t.Errorf("ValidateConfig (-want +got):\n%s", diff)
	}
}

func TestCreateFromNodes(t *testing.T) {
	f := newTestFactory(t)
	cs, err := f.CreateFromNodes([]Node{{Type: "Label"}, {Type: "Nope"}})
	if len(cs) != 1 || !errors.Is(err, ErrTypeUnknown) {
		t.Errorf("CreateFromNodes = %d, %v", len(cs), err)
	}
}

// --- Nodes ---

func TestParseNodeErrors(t *testing.T) {
	tests := []struct {
		name string
		tree map[string]any
		want string
	}{
		{"missing type", map[string]any{}, `root: missing "type"`},
		{"properties shape", map[string]any{"type": "Label", "properties": "x"}, "root.properties"},
		{"binding value", map[string]any{"type": "Label", "bindings": map[string]any{"text": 1}}, "root.bindings"},
		{"children shape", map[string]any{"type": "Label", "children": "x"}, "root.children"},
		{"child type", map[string]any{"type": "Label", "children": []any{map[string]any{}}}, "root.children[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseNode(tt.tree)
			if !errors.Is(err, ErrInvalidNode) {
				t.Fatalf("err = %v, want ErrInvalidNode", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestParseNodeAcceptsDecoderShapes(t *testing.T) {
	n, err := ParseNode(map[string]any{
		"type": "Container",
		"children": []map[string]any{
			{"type": "Label", "events": map[any]any{"clicked": "h"}},
		},
	})
	if err != nil {
		t.Fatalf("ParseNode: %v", err)
	}
	if n.Count() != 2 || n.Children[0].Events["clicked"] != "h" {
		t.Errorf("node = %+v", n)
	}
}

func TestNodeTreeRoundTrip(t *testing.T) {
	n := Node{
		Type:       "Container",
		Properties: map[string]any{"spacing": 2},
		Bindings:   map[string]string{"value": "k"},
		Children:   []Node{{Type: "Label", Properties: map[string]any{"text": "hi"}}},
	}
	back, err := ParseNode(n.Tree())
	if err != nil {
		t.Fatalf("ParseNode: %v", err)
	}
	if back.Type != n.Type || len(back.Children) != 1 || back.Bindings["value"] != "k" {
		t.Errorf("round trip = %+v", back)
	}
	if got := value.As(value.Of(back.Properties["spacing"]), 0); got != 2 {
		t.Errorf("spacing = %d, want 2", got)
	}
}
