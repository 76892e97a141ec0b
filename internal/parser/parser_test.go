package parser

import (
	"testing"
	"time"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\nid: n1\ntitle: Trip\ntags:\n  - fun\n  - travel\nfolder: Personal\n---\nBeach day.\n")
	d := Parse(input)
	if !d.HasFrontmatter {
		t.Fatal("expected frontmatter")
	}
	if d.Meta.ID != "n1" || d.Meta.Title != "Trip" || d.Meta.Folder != "Personal" {
		t.Errorf("meta = %+v", d.Meta)
	}
	if len(d.Meta.Tags) != 2 || d.Meta.Tags[0] != "fun" || d.Meta.Tags[1] != "travel" {
		t.Errorf("tags = %v, want [fun travel]", d.Meta.Tags)
	}
	if d.Body != "Beach day.\n" {
		t.Errorf("body = %q", d.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	d := Parse([]byte("# Just a heading\nSome text.\n"))
	if d.HasFrontmatter {
		t.Error("expected no frontmatter")
	}
	if d.Meta.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", d.Meta.Title, "Just a heading")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := "---\n: invalid: yaml: {{{\n---\nBody\n"
	d := Parse([]byte(input))
	if d.HasFrontmatter {
		t.Error("expected no frontmatter on invalid YAML")
	}
	if d.Body != input {
		t.Errorf("body = %q", d.Body)
	}
}

func TestParse_UnclosedHeader(t *testing.T) {
	d := Parse([]byte("---\ntitle: x\nno closing"))
	if d.HasFrontmatter {
		t.Error("expected no frontmatter without closing delimiter")
	}
}

func TestParse_TitleFallsBackToHeading(t *testing.T) {
	d := Parse([]byte("---\ntags: [a]\n---\n# From heading\n"))
	if d.Meta.Title != "From heading" {
		t.Errorf("title = %q", d.Meta.Title)
	}
}

func TestRenderParse_PreservesFields(t *testing.T) {
	created := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	in := Document{
		Meta: Frontmatter{
			ID:      "3f0c2a",
			Title:   "Work log",
			Tags:    []string{"work"},
			Folder:  "Work",
			Created: created,
			Updated: created.Add(time.Hour),
		},
		Body: "\nMeeting notes\nsecond line",
	}
	data, err := Render(in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := Parse(data)
	if out.Body != in.Body {
		t.Errorf("body = %q, want %q", out.Body, in.Body)
	}
	if !out.Meta.Created.Equal(created) || !out.Meta.Updated.Equal(in.Meta.Updated) {
		t.Errorf("times = %v %v", out.Meta.Created, out.Meta.Updated)
	}
	if out.Meta.Title != "Work log" || out.Meta.Folder != "Work" {
		t.Errorf("meta = %+v", out.Meta)
	}
}

func TestRender_OmitsEmptyFields(t *testing.T) {
	data, err := Render(Document{Meta: Frontmatter{Title: "Only"}, Body: "x"})
	if err != nil {
		t.Fatal(err)
	}
	want := "---\ntitle: Only\n---\nx"
	if string(data) != want {
		t.Errorf("rendered = %q, want %q", data, want)
	}
}
