package layout

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteDebugByExtension(t *testing.T) {
	right := Right
	res := &Result{
		Blocks: []Block{{
			Phase:    PhaseEqualizing,
			Layout:   LayoutContext{Left: true, Right: true},
			Shortest: &right,
			Columns:  []BlockColumn{{Position: Left, Fragment: `\leftfont a`, Rows: 1, Words: []string{"a"}}},
		}},
		Measurements: 7,
	}
	dir := t.TempDir()
	for _, name := range []string{"layout.json", "layout.yaml"} {
		path := filepath.Join(dir, name)
		if err := WriteDebug(res, path); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		for _, want := range []string{"EQUALIZING", "right", "measurements"} {
			if !strings.Contains(string(data), want) {
				t.Fatalf("%s missing %q:\n%s", name, want, data)
			}
		}
	}
	if err := WriteDebug(res, filepath.Join(dir, "layout.xml")); err == nil {
		t.Fatalf("unsupported extension should fail")
	}
}
