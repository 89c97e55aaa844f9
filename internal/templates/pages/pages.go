// Package pages holds the server-rendered views. Each page is an
// html/template file embedded in the binary, parsed together with the
// shared layout and exposed as a templ.Component so handlers render it via
// middleware.Render like any other component.
package pages

import (
	"context"
	"embed"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"github.com/keyxmakerx/studentrecords/internal/templates/layouts"
)

//go:embed html/*.html
var files embed.FS

var (
	loginTmpl    = parse("login")
	registerTmpl = parse("register")
	indexTmpl    = parse("index")
)

// parse builds a template set of the layout plus one page file.
func parse(name string) *template.Template {
	return template.Must(template.New(name).ParseFS(files, "html/layout.html", "html/"+name+".html"))
}

// view is the root value every template executes against.
type view struct {
	Title  string
	Layout layouts.Data
	Page   any
}

// page wraps a parsed template as a component. Layout data is read from
// the render context, which middleware.Render fills via LayoutInjector.
func page(tmpl *template.Template, title string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return tmpl.ExecuteTemplate(w, "layout", view{
			Title:  title,
			Layout: layouts.FromContext(ctx),
			Page:   data,
		})
	})
}

// Option is one entry of a form select.
type Option struct {
	ID    int64
	Label string
}

// RegisterData feeds the registration form's select boxes.
type RegisterData struct {
	Prefixes  []Option
	Curricula []Option
}

// DefaultRegisterData is the option set offered when no lookup tables are
// configured.
func DefaultRegisterData() RegisterData {
	return RegisterData{
		Prefixes: []Option{
			{ID: 1, Label: "Mr."},
			{ID: 2, Label: "Ms."},
			{ID: 3, Label: "Mrs."},
		},
		Curricula: []Option{
			{ID: 1, Label: "Science-Mathematics"},
			{ID: 2, Label: "Language-Mathematics"},
			{ID: 3, Label: "Language-Arts"},
			{ID: 4, Label: "Vocational"},
		},
	}
}

// RosterRow is one line of the student table.
type RosterRow struct {
	ID          int64
	Name        string
	DateOfBirth string
	Sex         string
	Telephone   string
	Email       string
	Status      string
}

// IndexData is the main protected view: the requester's own name plus the
// roster of all students.
type IndexData struct {
	FirstName string
	LastName  string
	Students  []RosterRow
}

// LoginPage renders the login form.
func LoginPage() templ.Component {
	return page(loginTmpl, "Log in", nil)
}

// RegisterPage renders the registration form.
func RegisterPage(data RegisterData) templ.Component {
	return page(registerTmpl, "Register", data)
}

// IndexPage renders the roster view.
func IndexPage(data IndexData) templ.Component {
	return page(indexTmpl, "Students", data)
}
