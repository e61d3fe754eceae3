package prompts

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	list := c.List()
	if len(list) == 0 {
		t.Fatal("default catalog is empty")
	}
	if list[0].ID != "youtube-title" {
		t.Fatalf("first prompt = %q, want catalog order preserved", list[0].ID)
	}
	for _, p := range list {
		if !strings.Contains(p.Template, "{transcription}") {
			t.Fatalf("prompt %s has no placeholder", p.ID)
		}
	}

	list[0].Title = "mutated"
	if c.List()[0].Title == "mutated" {
		t.Fatal("List() must not expose internal state")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.json")
	data := `{"prompts":[{"id":"b","title":"B","template":"B {transcription}"},{"id":"a","title":"A","template":"A {transcription}"}]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := c.List(); len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("List() = %+v", got)
	}

	p, err := c.Get("a")
	if err != nil || p.Title != "A" {
		t.Fatalf("Get(a) = %+v, %v", p, err)
	}
	if _, err := c.Get("zzz"); !errors.Is(err, ErrPromptNotFound) {
		t.Fatalf("Get(zzz) error = %v, want ErrPromptNotFound", err)
	}
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	if _, err := parse([]byte(`{"prompts":[{"id":"a"},{"id":"a"}]}`)); err == nil {
		t.Fatal("expected duplicate id error")
	}
}
