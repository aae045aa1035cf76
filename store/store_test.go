package store

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/chazu/cmrt/mir"
	"github.com/chazu/cmrt/mir/dist"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "images.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func answerImage(t *testing.T, answer int64) *dist.Image {
	t.Helper()
	b := mir.NewFunctionBuilder("main", mir.Int)
	b.Terminate(b.NewBlock(), mir.Return(mir.IntConst(answer)))
	img, err := dist.Pack(&mir.Program{Name: "answer", Functions: []*mir.Function{b.Build()}})
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func TestPutGet(t *testing.T) {
	s := openTemp(t)
	img := answerImage(t, 42)

	rec, err := s.Put("answer", img)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if rec.Hash != img.ID() || rec.ID == "" {
		t.Errorf("record = %+v", rec)
	}

	got, err := s.Get("answer")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	prog, err := dist.Unpack(got)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if v := prog.Func("main").Blocks[0].Term.Value.Const.Int; v != 42 {
		t.Errorf("stored constant = %d, want 42", v)
	}
}

func TestPutReplaces(t *testing.T) {
	s := openTemp(t)
	if _, err := s.Put("answer", answerImage(t, 1)); err != nil {
		t.Fatal(err)
	}
	second := answerImage(t, 2)
	if _, err := s.Put("answer", second); err != nil {
		t.Fatal(err)
	}

	recs, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Hash != second.ID() {
		t.Errorf("List = %+v", recs)
	}
}

func TestListOrderedByName(t *testing.T) {
	s := openTemp(t)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if _, err := s.Put(name, answerImage(t, 0)); err != nil {
			t.Fatal(err)
		}
	}
	recs, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, r := range recs {
		names = append(names, r.Name)
		if r.Size == 0 || r.CreatedAt.IsZero() {
			t.Errorf("record %s missing size or time", r.Name)
		}
	}
	if len(names) != 3 || names[0] != "alpha" || names[1] != "mid" || names[2] != "zeta" {
		t.Errorf("names = %v", names)
	}
}

func TestNotFound(t *testing.T) {
	s := openTemp(t)
	if _, err := s.Get("missing"); !errors.Is(err, ErrImageNotFound) {
		t.Errorf("Get: %v, want ErrImageNotFound", err)
	}
	if err := s.Delete("missing"); !errors.Is(err, ErrImageNotFound) {
		t.Errorf("Delete: %v, want ErrImageNotFound", err)
	}

	if _, err := s.Put("gone", answerImage(t, 0)); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("gone"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("gone"); !errors.Is(err, ErrImageNotFound) {
		t.Errorf("Get after Delete: %v", err)
	}
}

func TestReopenKeepsImages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "images.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put("answer", answerImage(t, 7)); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.Get("answer"); err != nil {
		t.Errorf("Get after reopen: %v", err)
	}
}

func TestConcurrentPut(t *testing.T) {
	s := openTemp(t)
	img := answerImage(t, 3)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Put("shared", img); err != nil {
				t.Errorf("Put: %v", err)
			}
		}()
	}
	wg.Wait()

	recs, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Errorf("len(List) = %d, want 1", len(recs))
	}
}
