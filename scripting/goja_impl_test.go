package scripting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGojaEngine_ContextCancellation(t *testing.T) {
	engine := NewEngine()

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	if _, err := engine.Execute(ctx, "while (true) {}"); err == nil || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}

	if _, err := engine.Execute(context.Background(), "1 + 1"); err != nil {
		t.Fatalf("engine should recover after cancellation, got %v", err)
	}
}

func TestGojaEngine_ImmediateCancel(t *testing.T) {
	engine := NewEngine()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.Execute(ctx, "42"); err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled error, got %v", err)
	}
}

func TestDryRun_WritesFields(t *testing.T) {
	dom := NewFieldStore(map[string]string{"field_0": "", "field_1": ""})
	script := `for (var i = 0; i < 2; i++) { globalThis.getField("field_" + i).value = "#".repeat(4); }
app.setInterval("reset_input_box()", 1000);`

	if err := DryRun(context.Background(), Guard(script), dom); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	for _, name := range []string{"field_0", "field_1"} {
		if v, _ := dom.Value(name); v != "####" {
			t.Fatalf("%s: expected ####, got %v", name, v)
		}
	}
	if alerts := dom.Alerts(); len(alerts) != 0 {
		t.Fatalf("unexpected alerts %v", alerts)
	}
	if iv := dom.Intervals(); len(iv) != 1 || iv[0] != "reset_input_box()" {
		t.Fatalf("unexpected intervals %v", iv)
	}
}

func TestDryRun_GuardAlertsOnFailure(t *testing.T) {
	dom := NewFieldStore(nil)
	// console_0 does not exist, so getField returns null and the assignment throws.
	script := `getField("console_0").value = "boot";`

	if err := DryRun(context.Background(), Guard(script), dom); err != nil {
		t.Fatalf("guarded script must not fail the run: %v", err)
	}
	alerts := dom.Alerts()
	if len(alerts) != 1 || strings.TrimSpace(alerts[0]) == "" {
		t.Fatalf("expected one diagnostic alert, got %v", alerts)
	}

	if err := DryRun(context.Background(), script, NewFieldStore(nil)); err == nil {
		t.Fatalf("unguarded script should surface the exception")
	}
}

func TestDryRunKeystroke(t *testing.T) {
	dom := NewFieldStore(map[string]string{"key_input": ""})
	script := `function key_pressed(k) { getField("key_input").value = k; }
key_pressed(event.change);`
	if err := DryRunKeystroke(context.Background(), script, "w", dom); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if v, _ := dom.Value("key_input"); v != "w" {
		t.Fatalf("expected w, got %v", v)
	}
}

func TestFieldStore(t *testing.T) {
	s := NewFieldStore(map[string]string{"b": "2", "a": "1"})
	if names := s.Names(); len(names) != 2 || names[0] != "a" {
		t.Fatalf("unexpected names %v", names)
	}
	if _, err := s.GetField("missing"); err == nil {
		t.Fatalf("expected error for missing field")
	}
	if _, err := s.GetPage(1); err == nil {
		t.Fatalf("expected error for page 1")
	}
	p, err := s.GetPage(0)
	if err != nil || p.GetIndex() != 0 {
		t.Fatalf("page 0: %v", err)
	}
}
