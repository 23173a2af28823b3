package launcher

import (
	"bytes"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"mvdan.cc/sh/v3/shell"
	"mvdan.cc/sh/v3/syntax"
)

// renderCommand replaces the template variables in a test command.
func renderCommand(tmpl string, data map[string]any) (string, error) {
	parsed, err := template.New("").Funcs(templateFuncs).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse command template: %w", err)
	}

	var buf bytes.Buffer
	if err := parsed.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute command template: %w", err)
	}
	return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
}

var templateFuncs template.FuncMap

func init() {
	funcs := template.FuncMap{
		"OS":   func() string { return runtime.GOOS },
		"ARCH": func() string { return runtime.GOARCH },
		"shellQuote": func(str string) (string, error) {
			return syntax.Quote(str, syntax.LangBash)
		},
		"splitArgs": func(s string) ([]string, error) {
			return shell.Fields(s, nil)
		},
		"joinPath": func(elem ...string) string {
			return filepath.Join(elem...)
		},
	}
	funcs["q"] = funcs["shellQuote"]

	templateFuncs = sprig.TxtFuncMap()
	for k, v := range funcs {
		templateFuncs[k] = v
	}
}
