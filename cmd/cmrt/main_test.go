package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const helloYAML = `name: hello
functions:
  - name: main
    returns: int
    blocks:
      - id: 0
        term: {kind: call, func: println, args: ["hi"], target: 1}
      - id: 1
        term: {kind: return, value: 42}
  - name: quiet
    blocks:
      - id: 0
        term: {kind: return}
`

func setup(t *testing.T) (dir, prog string) {
	t.Helper()
	dir = t.TempDir()
	prog = filepath.Join(dir, "hello.yaml")
	if err := os.WriteFile(prog, []byte(helloYAML), 0644); err != nil {
		t.Fatal(err)
	}
	return dir, prog
}

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRunFile(t *testing.T) {
	dir, prog := setup(t)
	code, out, errOut := runCLI(t, "-config", dir, prog)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if out != "hi\n42\n" {
		t.Errorf("stdout = %q, want %q", out, "hi\n42\n")
	}
}

func TestRunEntryReturningNull(t *testing.T) {
	dir, prog := setup(t)
	code, out, errOut := runCLI(t, "-config", dir, "-entry", "quiet", prog)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if out != "" {
		t.Errorf("stdout = %q, want nothing", out)
	}
}

func TestUnknownEntry(t *testing.T) {
	dir, prog := setup(t)
	code, _, errOut := runCLI(t, "-config", dir, "-entry", "nope", prog)
	if code != 1 || !strings.Contains(errOut, "unknown function") {
		t.Errorf("exit %d, stderr %q", code, errOut)
	}
}

func TestDisasm(t *testing.T) {
	dir, prog := setup(t)
	code, out, _ := runCLI(t, "-config", dir, "-disasm", prog)
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(out, "fn main(") || strings.Contains(out, "hi\n42") {
		t.Errorf("disasm output:\n%s", out)
	}
}

func TestConvertThenRunImage(t *testing.T) {
	dir, prog := setup(t)
	img := filepath.Join(dir, "hello.img")
	if code, _, errOut := runCLI(t, "-config", dir, "-o", img, prog); code != 0 {
		t.Fatalf("convert exit %d: %s", code, errOut)
	}
	code, out, errOut := runCLI(t, "-config", dir, img)
	if code != 0 {
		t.Fatalf("run exit %d: %s", code, errOut)
	}
	if out != "hi\n42\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestSaveAndLoadFromStore(t *testing.T) {
	dir, prog := setup(t)
	db := filepath.Join(dir, "store", "images.db")

	if code, _, errOut := runCLI(t, "-config", dir, "-store", db, "-save", "hello", prog); code != 0 {
		t.Fatalf("save exit %d: %s", code, errOut)
	}
	code, out, errOut := runCLI(t, "-config", dir, "-store", db, "-load", "hello")
	if code != 0 {
		t.Fatalf("load exit %d: %s", code, errOut)
	}
	if out != "hi\n42\n" {
		t.Errorf("stdout = %q", out)
	}

	code, out, _ = runCLI(t, "-config", dir, "-store", db, "-ls")
	if code != 0 || !strings.HasPrefix(out, "hello ") {
		t.Errorf("ls exit %d, stdout %q", code, out)
	}

	code, _, errOut = runCLI(t, "-config", dir, "-store", db, "-load", "missing")
	if code != 1 || !strings.Contains(errOut, "image not found") {
		t.Errorf("missing image: exit %d, stderr %q", code, errOut)
	}
}

func TestAllowList(t *testing.T) {
	dir, prog := setup(t)
	code, _, errOut := runCLI(t, "-config", dir, "-allow", "len", prog)
	if code != 1 || !strings.Contains(errOut, `"println" is not allowed`) {
		t.Errorf("exit %d, stderr %q", code, errOut)
	}
	if code, _, errOut := runCLI(t, "-config", dir, "-allow", "println", prog); code != 0 {
		t.Errorf("allowed run exit %d: %s", code, errOut)
	}
}

func TestManifestSuppliesProgram(t *testing.T) {
	dir, _ := setup(t)
	manifest := "[program]\nimage = \"hello.yaml\"\nentry = \"main\"\n\n[runtime]\nprofile = true\n"
	if err := os.WriteFile(filepath.Join(dir, "cmrt.toml"), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}
	code, out, errOut := runCLI(t, "-config", dir)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if out != "hi\n42\n" {
		t.Errorf("stdout = %q", out)
	}
	if !strings.Contains(errOut, "profile: 1 functions") {
		t.Errorf("profile summary missing: %q", errOut)
	}
}

const loopYAML = `name: loop
functions:
  - name: main
    returns: int
    locals:
      - {name: i, type: int}
      - {name: c, type: bool}
    blocks:
      - id: 0
        stmts:
          - {kind: assign, place: _1, value: {kind: binary, bin: lt, args: [_0, 10]}}
        term: {kind: branch, cond: _1, then: 1, else: 2}
      - id: 1
        stmts:
          - {kind: assign, place: _0, value: {kind: binary, bin: add, args: [_0, 1]}}
        term: {kind: goto, target: 0}
      - id: 2
        term: {kind: return, value: _0}
`

func TestProfileReportsHotBlocks(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "loop.yaml"), []byte(loopYAML), 0644); err != nil {
		t.Fatal(err)
	}
	manifest := "[program]\nimage = \"loop.yaml\"\n\n[runtime]\nprofile = true\nhot-block-threshold = 5\n"
	if err := os.WriteFile(filepath.Join(dir, "cmrt.toml"), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}
	code, out, errOut := runCLI(t, "-config", dir)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if out != "10\n" {
		t.Errorf("stdout = %q, want %q", out, "10\n")
	}
	if !strings.Contains(errOut, "2 hot blocks") {
		t.Errorf("hot block count missing: %q", errOut)
	}
	first, second := strings.Index(errOut, "hot block main bb0"), strings.Index(errOut, "hot block main bb1")
	if first < 0 || second < 0 || first > second {
		t.Errorf("hot block listing = %q", errOut)
	}
	if strings.Contains(errOut, "main bb2") {
		t.Errorf("exit block reported hot: %q", errOut)
	}
}

func TestUsageErrors(t *testing.T) {
	dir, prog := setup(t)
	if code, _, _ := runCLI(t, "-config", dir, prog, prog); code != 2 {
		t.Errorf("two programs: exit %d, want 2", code)
	}
	if code, _, errOut := runCLI(t, "-config", dir); code != 1 || !strings.Contains(errOut, "no program") {
		t.Errorf("no program: exit %d, stderr %q", code, errOut)
	}
	if code, _, _ := runCLI(t, "-bogus"); code != 2 {
		t.Errorf("unknown flag: exit %d, want 2", code)
	}
}

func TestExamples(t *testing.T) {
	examples := filepath.Join("..", "..", "examples")
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"manifest default", nil, "2/1   ab|3.14\n"},
		{"boxes", []string{filepath.Join(examples, "boxes.yaml")}, "[2, 3, 4]\n5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"-config", examples}, tt.args...)
			code, out, errOut := runCLI(t, args...)
			if code != 0 {
				t.Fatalf("exit %d: %s", code, errOut)
			}
			if out != tt.want {
				t.Errorf("stdout = %q, want %q", out, tt.want)
			}
		})
	}
}
