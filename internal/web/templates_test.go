package web

import (
	"bytes"
	"html/template"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/justestif/fanlink/internal/fanlink"
)

func testTemplatesFS() fstest.MapFS {
	return fstest.MapFS{
		"layouts/base.html": {Data: []byte(
			`{{define "base"}}<title>{{.Title}}</title>{{template "content" .}}{{block "scripts" .}}{{end}}{{end}}`)},
		"partials/chip.html": {Data: []byte(
			`{{define "chip"}}<span style="background-color: {{platformColor .}}">{{platformName .}}</span>{{end}}`)},
		"pages/one.html": {Data: []byte(
			`{{define "content"}}one {{template "chip" .Platform}}{{end}}{{define "scripts"}}<script src="/one.js"></script>{{end}}`)},
		"pages/two.html": {Data: []byte(`{{define "content"}}two{{end}}`)},
	}
}

func TestTemplates_Render(t *testing.T) {
	tmpl, err := NewTemplates(testTemplatesFS())
	if err != nil {
		t.Fatalf("NewTemplates() error = %v", err)
	}

	data := struct {
		Title    string
		Platform fanlink.Platform
	}{"Page", fanlink.Spotify}

	tests := []struct {
		page    string
		want    []string
		notWant []string
	}{
		{page: "one", want: []string{"<title>Page</title>", "one", "Spotify", "#1DB954", "/one.js"}},
		{page: "two", want: []string{"two"}, notWant: []string{"one", "/one.js"}},
	}

	for _, tt := range tests {
		t.Run(tt.page, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tmpl.Render(&buf, tt.page, data); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output %q missing %q", out, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Errorf("output %q should not contain %q", out, w)
				}
			}
		})
	}
}

func TestTemplates_RenderPartial(t *testing.T) {
	tmpl, err := NewTemplates(testTemplatesFS())
	if err != nil {
		t.Fatalf("NewTemplates() error = %v", err)
	}

	var buf bytes.Buffer
	if err := tmpl.RenderPartial(&buf, "chip", fanlink.Platform("my_label")); err != nil {
		t.Fatalf("RenderPartial() error = %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "my_label") || !strings.Contains(out, "#333333") {
		t.Errorf("RenderPartial() = %q, want raw name and fallback colour", out)
	}
}

func TestTemplates_Missing(t *testing.T) {
	tmpl, err := NewTemplates(testTemplatesFS())
	if err != nil {
		t.Fatalf("NewTemplates() error = %v", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Render(&buf, "nope", nil); err == nil {
		t.Error("Render() of unknown page should fail")
	}
	if err := tmpl.RenderPartial(&buf, "nope", nil); err == nil {
		t.Error("RenderPartial() of unknown partial should fail")
	}
}

func TestNewTemplates_ParseError(t *testing.T) {
	fsys := testTemplatesFS()
	fsys["pages/broken.html"] = &fstest.MapFile{Data: []byte(`{{define "content"}}{{.Unclosed`)}

	if _, err := NewTemplates(fsys); err == nil {
		t.Error("NewTemplates() should fail on a malformed page")
	}
}

func TestTemplateFuncs(t *testing.T) {
	funcs := defaultFuncs()

	if got := funcs["add"].(func(int, int) int)(1, 2); got != 3 {
		t.Errorf("add(1, 2) = %d, want 3", got)
	}
	if got := string(funcs["cssURL"].(func(string) template.CSS)("https://x.example/a.jpg")); got != `url("https://x.example/a.jpg")` {
		t.Errorf("cssURL() = %q", got)
	}
}
