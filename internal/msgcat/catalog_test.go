package msgcat

import (
    "os"
    "path/filepath"
    "strings"
    "testing"
)

func TestDefaultCatalog(t *testing.T) {
    c := MustDefault()
    got, err := c.Render("xq.error.bad_notation", map[string]any{"Prefix": "!"})
    if err != nil { t.Fatalf("Render: %v", err) }
    if !strings.Contains(got, "`!h2e2`") { t.Fatalf("rendered: %q", got) }
    if _, err := c.Render("xq.error.bad_notation", map[string]any{}); err == nil { t.Fatalf("missing data key should fail") }
    if _, err := c.Render("xq.nope", nil); err == nil { t.Fatalf("unknown key should fail") }
    if got := c.Text("xq.nope", nil, "fallback"); got != "fallback" { t.Fatalf("Text fallback: %q", got) }
    if !c.Has("xq.help.body") { t.Fatalf("help body missing") }
}

func TestOverrideDir(t *testing.T) {
    dir := t.TempDir()
    write := func(name, body string) {
        if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil { t.Fatal(err) }
    }
    write("10-errors.yaml", "xq:\n  error:\n    self_check: \"장군 노출!\"\n")
    write("notes.txt", "ignored: true\n")

    c, err := New(dir)
    if err != nil { t.Fatalf("New: %v", err) }
    if got, _ := c.Render("xq.error.self_check", nil); got != "장군 노출!" { t.Fatalf("override: %q", got) }
    if got, _ := c.Render("xq.error.wrong_owner", nil); got == "" { t.Fatalf("defaults should survive overrides") }

    write("20-dup.yml", "xq:\n  error:\n    self_check: \"again\"\n")
    if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "duplicate override key") {
        t.Fatalf("want duplicate error, got %v", err)
    }
}

func TestRejectsNonStringLeaves(t *testing.T) {
    if _, err := parseYAMLToFlat([]byte("xq:\n  count: 3\n")); err == nil { t.Fatalf("numeric leaf should be rejected") }
}
