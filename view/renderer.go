// Package view renders server-side HTML for entity tables and forms,
// driven entirely by the entity schema. Adding an entity to the registry
// is all it takes to get its pages.
package view

import (
	"fmt"
	"html/template"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/xcono/parkrest/schema"
	"github.com/xcono/parkrest/store"
)

const tableTemplate = `<!DOCTYPE html>
<html>
<head><title>{{.Schema.DisplayNamePlural}}</title></head>
<body>
<h1 data-icon="{{.Schema.Icon}}">{{.Schema.DisplayNamePlural}}</h1>
<p>{{.Result.Total}} total, page {{.Result.Page}}</p>
<p><a href="/ui/{{.Schema.PluralName}}/form">New {{.Schema.DisplayName}}</a></p>
<table>
<thead>
<tr>{{range .Columns}}<th>{{.Label}}</th>{{end}}<th>Actions</th></tr>
</thead>
<tbody>
{{range $record := .Result.Items}}<tr>{{range $.Columns}}{{$value := index $record .Name}}{{if .Colors}}<td><span class="status status-{{index .Colors (printf "%v" $value)}}">{{$value}}</span></td>{{else if eq .Type "relation"}}<td data-relation-to="{{.RelationTo}}" data-display-field="{{.DisplayField}}">{{$value}}</td>{{else}}<td>{{$value}}</td>{{end}}{{end}}<td><a href="/ui/{{$.Schema.PluralName}}/form?id={{index $record $.Primary}}">Edit</a> <form method="post" action="/api/{{$.Schema.PluralName}}/{{index $record $.Primary}}" data-method="DELETE" onsubmit="return confirm('Delete this {{$.Schema.DisplayName}}?')"><button type="submit">Delete</button></form></td></tr>
{{end}}</tbody>
</table>
</body>
</html>
`

const formTemplate = `<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<form method="post" action="{{.Action}}"{{if .Record}} data-method="PUT"{{end}}>
{{range .Fields}}{{$current := fieldValue $.Record .Name .Default}}<label>{{.Label}}
{{if .Enumerated}}<select name="{{.Name}}"{{if .Required}} required{{end}}>{{range .Options}}<option value="{{.}}"{{if eq . $current}} selected{{end}}>{{.}}</option>{{end}}</select>
{{else if eq .Type "textarea"}}<textarea name="{{.Name}}"{{if .Required}} required{{end}}>{{$current}}</textarea>
{{else}}<input type="{{inputType .Type}}" name="{{.Name}}"{{if .Required}} required{{end}}{{if $current}} value="{{$current}}"{{end}}>
{{end}}</label>
{{end}}<button type="submit">{{.Submit}}</button>
</form>
</body>
</html>
`

// Renderer holds the parsed page templates.
type Renderer struct {
	table *template.Template
	form  *template.Template
}

func NewRenderer() *Renderer {
	funcs := template.FuncMap{"inputType": inputType, "fieldValue": fieldValue}
	return &Renderer{
		table: template.Must(template.New("table").Funcs(funcs).Parse(tableTemplate)),
		form:  template.Must(template.New("form").Funcs(funcs).Parse(formTemplate)),
	}
}

func inputType(t schema.FieldType) string {
	switch t {
	case schema.TypeNumber, schema.TypeRelation:
		return "number"
	case schema.TypeDate:
		return "date"
	case schema.TypeTime:
		return "time"
	default:
		return "text"
	}
}

// fieldValue picks the value shown in a form input: the record's current
// value when editing, the declared default when creating, else empty.
func fieldValue(record store.Record, name string, def any) string {
	if record != nil {
		if v, ok := record[name]; ok && v != nil {
			return fmt.Sprintf("%v", v)
		}
	}
	if def != nil {
		return fmt.Sprintf("%v", def)
	}
	return ""
}

// RenderTable writes the table page for one page of records. Columns are
// the view's default columns resolved against the field definitions.
func (r *Renderer) RenderTable(w io.Writer, s *schema.EntitySchema, view schema.ViewConfig, result store.Result) error {
	columns := make([]schema.Field, 0, len(view.DefaultColumns))
	for _, name := range view.DefaultColumns {
		f := s.Field(name)
		if f == nil {
			return goerr.New("view column has no field definition",
				goerr.V("entity", s.Name), goerr.V("column", name))
		}
		columns = append(columns, *f)
	}

	return r.table.Execute(w, map[string]any{
		"Schema":  s,
		"Columns": columns,
		"Primary": s.PrimaryField().Name,
		"Result":  result,
	})
}

// RenderForm writes the create form for an entity, or the edit form
// prefilled from record when record is non-nil.
func (r *Renderer) RenderForm(w io.Writer, s *schema.EntitySchema, record store.Record) error {
	data := map[string]any{
		"Schema": s,
		"Fields": s.FormFields(),
		"Record": record,
		"Title":  "New " + s.DisplayName,
		"Action": "/api/" + s.PluralName,
		"Submit": "Create",
	}
	if record != nil {
		id := record[s.PrimaryField().Name]
		data["Title"] = "Edit " + s.DisplayName
		data["Action"] = fmt.Sprintf("/api/%s/%v", s.PluralName, id)
		data["Submit"] = "Save"
	}
	return r.form.Execute(w, data)
}
