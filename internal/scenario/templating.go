package scenario

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"text/template"

	"github.com/google/uuid"
)

// printf-style id verbs such as %d or %04d
var idVerb = regexp.MustCompile(`%(0?[0-9]*)d`)

var funcMap = template.FuncMap{
	"randomInt":    randomInt,
	"randomUUID":   randomUUID,
	"randomChoice": randomChoice,
	"uuid":         randomUUID, // Alias
}

// TemplateData is passed to the execution context
type TemplateData struct {
	ID     int
	Worker int
	Seq    int
}

// Template renders DNs, filters and cn values.
type Template struct {
	raw    string
	tmpl   *template.Template
	usesID bool
}

// Preprocess converts id verbs and simple variables such as {{id}} to Go
// template syntax.
func Preprocess(input string) string {
	s := idVerb.ReplaceAllString(input, `{{printf "%${1}d" .ID}}`)
	s = strings.ReplaceAll(s, "{{id}}", "{{.ID}}")
	s = strings.ReplaceAll(s, "{{worker}}", "{{.Worker}}")
	s = strings.ReplaceAll(s, "{{seq}}", "{{.Seq}}")
	return s
}

func ParseTemplate(name, text string) (*Template, error) {
	ready := Preprocess(text)
	t := &Template{raw: ready, usesID: strings.Contains(ready, ".ID")}
	if !strings.Contains(ready, "{{") {
		return t, nil
	}

	tmpl, err := template.New(name).Funcs(funcMap).Parse(ready)
	if err != nil {
		return nil, fmt.Errorf("parse %s template %q: %w", name, text, err)
	}
	t.tmpl = tmpl
	return t, nil
}

// UsesID reports whether the output depends on TemplateData.ID.
func (t *Template) UsesID() bool {
	return t.usesID
}

func (t *Template) Execute(data TemplateData) (string, error) {
	if t.tmpl == nil {
		return t.raw, nil
	}
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// --- Functions ---

func randomInt(min, max int) int {
	if max <= min {
		return min
	}
	return rand.IntN(max-min) + min
}

func randomUUID() string {
	return uuid.NewString()
}

func randomChoice(choices ...string) string {
	if len(choices) == 0 {
		return ""
	}
	return choices[rand.IntN(len(choices))]
}
