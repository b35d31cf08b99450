package web

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/justestif/fanlink/internal/fanlink"
)

// Templates manages HTML template rendering.
type Templates struct {
	templates map[string]*template.Template
	partials  map[string]*template.Template
	funcs     template.FuncMap
}

// NewTemplates creates a new template manager by loading templates from the given filesystem.
func NewTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{
		templates: make(map[string]*template.Template),
		partials:  make(map[string]*template.Template),
		funcs:     defaultFuncs(),
	}

	if err := t.load(templatesFS); err != nil {
		return nil, err
	}

	return t, nil
}

// Render renders a page template with the given data.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	tmpl, ok := t.templates[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}

	// Execute the "base" template which includes the page content
	return tmpl.ExecuteTemplate(w, "base", data)
}

// RenderPartial renders a partial template (without base layout) with the given data.
func (t *Templates) RenderPartial(w io.Writer, partial string, data any) error {
	tmpl, ok := t.partials[partial]
	if !ok {
		return fmt.Errorf("partial %q not found", partial)
	}
	return tmpl.Execute(w, data)
}

// load parses all templates from the filesystem.
func (t *Templates) load(templatesFS fs.FS) error {
	layouts, err := fs.Glob(templatesFS, "layouts/*.html")
	if err != nil {
		return fmt.Errorf("finding layouts: %w", err)
	}

	partials, err := fs.Glob(templatesFS, "partials/*.html")
	if err != nil {
		return fmt.Errorf("finding partials: %w", err)
	}

	pages, err := fs.Glob(templatesFS, "pages/*.html")
	if err != nil {
		return fmt.Errorf("finding pages: %w", err)
	}

	// Common files to include with every page
	commonFiles := append(layouts, partials...)

	for _, page := range pages {
		name := templateName(page)
		files := append([]string{page}, commonFiles...)

		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, files...)
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}
		t.templates[name] = tmpl
	}

	// Partials are also rendered on their own for the live dashboard list
	// and the editor preview.
	for _, partial := range partials {
		name := templateName(partial)

		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, partial)
		if err != nil {
			return fmt.Errorf("parsing partial %s: %w", name, err)
		}
		t.partials[name] = tmpl
	}

	return nil
}

func templateName(path string) string {
	name := filepath.Base(path)
	return name[:len(name)-len(".html")]
}

// defaultFuncs returns the default template functions.
func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		"platformName": func(p fanlink.Platform) string {
			return p.Name()
		},
		"platformColor": func(p fanlink.Platform) string {
			return p.Color()
		},

		// formatDate formats a time as "Jan 2, 2006"
		"formatDate": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},

		// cssURL quotes a URL for use inside url(...) in a style attribute.
		"cssURL": func(s string) template.CSS {
			return template.CSS(fmt.Sprintf("url(%q)", s)) //nolint:gosec // only https URLs reach templates
		},

		// add adds two integers (for 1-based indexing in loops)
		"add": func(a, b int) int {
			return a + b
		},
	}
}

// PageData contains common data passed to all page templates.
type PageData struct {
	Title       string
	User        *UserData
	Flash       *FlashMessage
	CurrentPath string
	Public      bool // fan link pages: no app header
}

// UserData contains signed-in owner information.
type UserData struct {
	ID   string
	Name string
}

// FlashMessage represents a temporary notification message.
type FlashMessage struct {
	Type    string // "success", "error", "warning", "info"
	Message string
}

// HomePageData contains data for the home page template.
type HomePageData struct {
	PageData
	Authenticated bool
}

// ButtonData is one platform button on a public page.
type ButtonData struct {
	Platform fanlink.Platform
	Name     string
	Color    string
	URL      string
}

// FanLinkPageData contains data for a public fan link page.
type FanLinkPageData struct {
	PageData
	FanLink    *fanlink.FanLink
	Appearance fanlink.Appearance // defaults applied
	Background fanlink.Background
	Buttons    []ButtonData
	PreSave    []ButtonData
}

// NotFoundPageData contains data for the link-not-found page.
type NotFoundPageData struct {
	PageData
	Slug string
}

// FanLinkRow is one entry of the owner's dashboard list.
type FanLinkRow struct {
	FanLink   fanlink.FanLink
	PublicURL string
	Views     int64
	Clicks    int64
}

// DashboardPageData contains data for the dashboard template.
type DashboardPageData struct {
	PageData
	FanLinks []FanLinkRow
}

// EditorPageData contains data for the create and edit pages.
type EditorPageData struct {
	PageData
	DraftID   string
	Draft     fanlink.FanLink
	Preview   FanLinkPageData
	Platforms []fanlink.Platform
	Editing   bool
}
