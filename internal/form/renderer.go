// internal/form/renderer.go
//
// Forms subsystem: HTML renderer.
//
// Context
//   Converts FieldDefs into accessible HTML.  Page templates place the
//   fields; the renderer owns the markup of each one so every form gets the
//   same structure:
//
//      <div class="form-field">
//        <label for="fld-NAME">…</label>
//        <input id="fld-NAME" name="NAME" …>
//        <span class="error" id="err-NAME" aria-live="polite">…</span>
//      </div>
//
//   The error span is always present and is positioned absolutely under the
//   input by the stylesheet, so a message appearing never shifts the layout.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strconv"
)

// RenderField returns the markup for f.  value pre-fills the input except
// for password fields; errMsg, when non-empty, fills the error span and
// marks the input invalid.
func RenderField(f *FieldDef, value, errMsg string) template.HTML {
	var buf bytes.Buffer
	name := html.EscapeString(f.Name)

	buf.WriteString(`<div class="form-field">` + "\n")
	buf.WriteString(`<label class="visually-hidden" for="fld-` + name + `">` + html.EscapeString(f.Label) + `</label>` + "\n")

	buf.WriteString(`<input id="fld-` + name + `" name="` + name + `" type="` + f.Type + `"`)
	if f.Placeholder != "" {
		buf.WriteString(` placeholder="` + html.EscapeString(f.Placeholder) + `"`)
	}
	if f.Required {
		buf.WriteString(` required`)
	}
	if f.MinLength > 0 {
		buf.WriteString(` minlength="` + strconv.Itoa(f.MinLength) + `"`)
	}
	if f.MaxLength > 0 {
		buf.WriteString(` maxlength="` + strconv.Itoa(f.MaxLength) + `"`)
	}
	if f.Type == "password" {
		buf.WriteString(` autocomplete="current-password"`)
	} else {
		buf.WriteString(` autocomplete="` + name + `"`)
		if value != "" {
			buf.WriteString(` value="` + html.EscapeString(value) + `"`)
		}
	}
	if errMsg != "" {
		buf.WriteString(` aria-invalid="true"`)
	}
	buf.WriteString(` aria-describedby="err-` + name + `">` + "\n")

	buf.WriteString(fmt.Sprintf(`<span class="error" id="err-%s" aria-live="polite">%s</span>`+"\n",
		name, html.EscapeString(errMsg)))
	buf.WriteString(`</div>`)
	return template.HTML(buf.String())
}

// Hidden returns a hidden input.
func Hidden(name, value string) template.HTML {
	return template.HTML(`<input type="hidden" name="` + html.EscapeString(name) +
		`" value="` + html.EscapeString(value) + `">`)
}
