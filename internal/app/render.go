package app

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"unicode/utf8"

	"github.com/gabrielmiguelok/eventboard/pkg/core"
	"github.com/gabrielmiguelok/eventboard/pkg/events"
	"github.com/gabrielmiguelok/eventboard/pkg/forms"
	"github.com/gabrielmiguelok/eventboard/pkg/router"
)

var pages = template.Must(template.New("pages").Parse(`
{{define "form"}}
<section class="card">
<h1>{{.Title}}</h1>
<form method="post" action="{{.Action}}" data-live-form novalidate>
{{range .Fields}}
<div class="field{{if .Invalid}} invalid{{end}}">
<label for="{{.Name}}">{{.Label}}</label>
{{if eq .Type "textarea"}}<textarea id="{{.Name}}" name="{{.Name}}" rows="4"{{if .Required}} required{{end}}>{{.Value}}</textarea>
{{else if eq .Type "select"}}<select id="{{.Name}}" name="{{.Name}}"{{if .Required}} required{{end}}>
<option value="">Choose a category</option>
{{range .Options}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>
{{end}}</select>
{{else}}<input id="{{.Name}}" name="{{.Name}}" type="{{.Type}}" value="{{.Value}}"{{with .Autocomplete}} autocomplete="{{.}}"{{end}}{{if .Required}} required{{end}}>
{{end}}{{if .Invalid}}<p class="error" role="alert">{{.Error}}</p>{{end}}
</div>
{{end}}
<button type="submit"{{if not .CanSubmit}} disabled{{end}}>{{.Submit}}</button>
</form>
{{with .Footer}}<p class="footer">{{.Text}} <a href="{{.Href}}">{{.Link}}</a></p>{{end}}
</section>
{{end}}

{{define "home"}}
<section class="card">
<h1>Events</h1>
{{if .}}<table>
<thead><tr><th>Title</th><th>Date</th><th>Time</th><th>City</th><th>Category</th><th>Price</th><th>Seats</th><th>Team</th></tr></thead>
<tbody>
{{range .}}<tr id="event-{{.ID}}"><td>{{.Title}}</td><td>{{.Date}}</td><td>{{.StartTime}}-{{.EndTime}}</td><td>{{.City}}</td><td>{{.Category}}</td><td>{{printf "%.2f" .Price}}</td><td>{{.Seats}}</td><td>{{.Team}}</td></tr>
{{end}}</tbody>
</table>
{{else}}<p class="empty">No events yet.</p>
{{end}}<p><a href="/add-event">Add an event</a></p>
</section>
{{end}}

{{define "added"}}
<section class="card">
<h1>Event added</h1>
<p>Your event has been added.</p>
<p><a href="/">See all events</a> or <a href="/add-event">add another one</a>.</p>
</section>
{{end}}
`))

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

type fieldView struct {
	Name         string
	Type         string
	Label        string
	Value        string
	Error        string
	Autocomplete string
	Invalid      bool
	Required     bool
	Options      []optionView
}

type footerView struct {
	Text string
	Link string
	Href string
}

type formView struct {
	Title     string
	Action    string
	Submit    string
	Fields    []fieldView
	CanSubmit bool
	Footer    *footerView
}

// formPage describes the parts of a form page that are not in the schema.
type formPage struct {
	title  string
	action string
	submit string
	footer *footerView
}

func (p formPage) view(f *forms.Form) formView {
	fields := f.Schema().Fields()
	v := formView{
		Title:     p.title,
		Action:    p.action,
		Submit:    p.submit,
		Fields:    make([]fieldView, len(fields)),
		CanSubmit: f.CanSubmit(),
		Footer:    p.footer,
	}

	for i, field := range fields {
		value := f.Value(field.Name)
		fv := fieldView{
			Name:         field.Name.String(),
			Type:         string(field.Type),
			Label:        field.Label,
			Value:        value,
			Error:        f.Error(field.Name),
			Autocomplete: field.Autocomplete,
			Invalid:      f.Invalid(field.Name),
			Required:     field.Required,
		}
		if field.CharCount {
			fv.Label = fmt.Sprintf("%s (char: %d)", field.Label, utf8.RuneCountInString(value))
		}
		for _, o := range field.Options {
			fv.Options = append(fv.Options, optionView{Value: o.Value, Label: o.Label, Selected: o.Value == value})
		}
		v.Fields[i] = fv
	}
	return v
}

func (p formPage) render(f *forms.Form) core.Renderer {
	view := p.view(f)
	return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		return pages.ExecuteTemplate(w, "form", view)
	})
}

func renderHome(records []events.Record) core.Renderer {
	return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		return pages.ExecuteTemplate(w, "home", records)
	})
}

func renderAdded() core.Renderer {
	return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		return pages.ExecuteTemplate(w, "added", nil)
	})
}

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Page.Title}} · eventboard</title>
<style nonce="{{.Nonce}}">
body{font-family:system-ui,sans-serif;margin:0;background:#f5f5f7;color:#222}
nav{display:flex;gap:1rem;padding:.75rem 1.5rem;background:#222}
nav a{color:#fff;text-decoration:none}
main{max-width:48rem;margin:2rem auto;padding:0 1rem}
.card{background:#fff;border-radius:8px;padding:1.5rem;box-shadow:0 1px 3px rgba(0,0,0,.1)}
.field{display:flex;flex-direction:column;margin-bottom:1rem}
.field input,.field select,.field textarea{padding:.5rem;border:1px solid #ccc;border-radius:4px}
.field.invalid input,.field.invalid select,.field.invalid textarea{border-color:#c62828}
.error{color:#c62828;margin:.25rem 0 0;font-size:.875rem}
button{padding:.6rem 1.2rem;border:0;border-radius:4px;background:#1565c0;color:#fff}
button:disabled{background:#9e9e9e}
table{width:100%;border-collapse:collapse}
th,td{text-align:left;padding:.4rem;border-bottom:1px solid #eee}
</style>
<script src="/_live/eventboard.js" defer></script>
</head>
<body>
<nav><a href="/">Events</a><a href="/add-event">Add event</a><a href="/login">Log in</a><a href="/signup">Sign up</a></nav>
<main id="live-root" data-live-path="{{.Page.Path}}" data-live-socket="{{.Page.LivePath}}" data-live-heartbeat="{{.Page.Heartbeat.Milliseconds}}">{{.Page.Body}}</main>
</body>
</html>
`))

// Layout wraps every page with navigation, styles and the client script.
func Layout(ctx context.Context, w io.Writer, page router.Page) error {
	return layout.Execute(w, struct {
		Page  router.Page
		Nonce string
	}{page, router.GetCSPNonce(ctx)})
}
