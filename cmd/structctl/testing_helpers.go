package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joshuapare/structkit/pkg/schemafile"
)

// testSchemaPath returns the path of a schema document under pkg/schemafile/testdata
func testSchemaPath(t *testing.T, name string) string {
	t.Helper()
	// Go up two directories from cmd/structctl to repo root
	path := filepath.Join("..", "..", "pkg", "schemafile", "testdata", name)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("test file not found: %s", path)
	}
	return path
}

// writeItem encodes a sample ITEM record from notes.yaml into a temp file,
// preceded by pad zero bytes, and returns its path.
func writeItem(t *testing.T, pad int) string {
	t.Helper()
	set, err := schemafile.LoadFile(testSchemaPath(t, "notes.yaml"))
	if err != nil {
		t.Fatalf("load schemas: %v", err)
	}
	s, _ := set.Struct("ITEM")
	in := s.New()
	class := set.Enums["NoteClass"]
	doc, _ := class.Lookup("DOCUMENT")
	form, _ := class.Lookup("FORM")
	if err := in.SetFlags(s.MustField("Class"), doc, form); err != nil {
		t.Fatalf("set flags: %v", err)
	}
	pos, err := in.Struct(s.MustField("Pos"))
	if err != nil {
		t.Fatalf("pos: %v", err)
	}
	if err := pos.Set("X", -2); err != nil {
		t.Fatalf("set X: %v", err)
	}
	if err := pos.Set("Y", 7); err != nil {
		t.Fatalf("set Y: %v", err)
	}
	if err := in.SetArrayBytes(s.MustField("Reserved"), []byte{0xde, 0xad}); err != nil {
		t.Fatalf("set reserved: %v", err)
	}
	if err := in.SetString("Name", "Pen"); err != nil {
		t.Fatalf("set name: %v", err)
	}
	if err := in.SetStrings("Values", []string{"blue", "fine"}); err != nil {
		t.Fatalf("set values: %v", err)
	}

	path := filepath.Join(t.TempDir(), "item.bin")
	data := append(make([]byte, pad), in.Bytes()...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write record: %v", err)
	}
	return path
}

// resetFlags restores global flag state between command runs
func resetFlags() {
	quiet = false
	verbose = false
	jsonOut = false
	dumpOffset = 0
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	return buf.String(), fnErr
}

// assertJSON checks that output is valid JSON
func assertJSON(t *testing.T, output string) {
	t.Helper()
	var result interface{}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Errorf("invalid JSON output: %v\nOutput: %s", err, output)
	}
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}

// assertNotContains checks that output doesn't contain unwanted strings
func assertNotContains(t *testing.T, output string, unwanted []string) {
	t.Helper()
	for _, dont := range unwanted {
		if strings.Contains(output, dont) {
			t.Errorf("output contains unwanted string %q\nGot: %s", dont, output)
		}
	}
}
