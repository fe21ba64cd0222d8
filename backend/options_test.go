package backend_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/porticus-lab/go-singlefile/backend"
)

func TestOptions_Readers(t *testing.T) {
	o := backend.Options{
		"flag":    true,
		"flagStr": "true",
		"int":     42,
		"float":   1500.0,
		"int64":   int64(7),
		"str":     "hello",
		"list":    []string{"a", "b"},
		"anyList": []any{"x", 1, "y"},
	}

	if !o.Bool("flag") || !o.Bool("flagStr") {
		t.Error("Bool did not read true values")
	}
	if o.Bool("missing") || o.Bool("str") {
		t.Error("Bool should be false for missing or mistyped keys")
	}
	if got := o.Int("int"); got != 42 {
		t.Errorf("Int(int) = %d, want 42", got)
	}
	if got := o.Int("float"); got != 1500 {
		t.Errorf("Int(float) = %d, want 1500", got)
	}
	if got := o.Int("int64"); got != 7 {
		t.Errorf("Int(int64) = %d, want 7", got)
	}
	if got := o.String("str"); got != "hello" {
		t.Errorf("String = %q", got)
	}
	if got := o.String("int"); got != "" {
		t.Errorf("String on a number = %q, want empty", got)
	}
	if diff := cmp.Diff([]string{"a", "b"}, o.Strings("list")); diff != "" {
		t.Errorf("Strings(list) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"x", "y"}, o.Strings("anyList")); diff != "" {
		t.Errorf("Strings(anyList) mismatch (-want +got):\n%s", diff)
	}
	if got := o.Duration("float"); got != 1500*time.Millisecond {
		t.Errorf("Duration = %v", got)
	}
}

func TestOptions_CloneIsDeep(t *testing.T) {
	o := backend.Options{
		"list":   []string{"a"},
		"nested": map[string]any{"k": []any{"v"}},
	}
	c := o.Clone()
	c["list"].([]string)[0] = "changed"
	c["nested"].(map[string]any)["k"] = "changed"
	c["extra"] = 1

	want := backend.Options{
		"list":   []string{"a"},
		"nested": map[string]any{"k": []any{"v"}},
	}
	if diff := cmp.Diff(want, o); diff != "" {
		t.Errorf("original mutated through clone (-want +got):\n%s", diff)
	}
}

func TestOptions_CloneNil(t *testing.T) {
	var o backend.Options
	if o.Clone() != nil {
		t.Error("Clone of nil options should be nil")
	}
}
