// Package output renders storelens results as tables, markdown, JSON or YAML.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// Tabular is a result that can be shown as a table.
type Tabular interface {
	Header() table.Row
	Rows() []table.Row
}

// Footed tables add a summary row.
type Footed interface {
	Footer() table.Row
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// Render formats data. Table and markdown formats draw view; JSON and YAML
// serialize data.
func Render(format Format, data any, view Tabular) (string, error) {
	switch format {
	case FormatJSON:
		encoded, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	case FormatYAML:
		encoded, err := toYAML(data)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(encoded), "\n"), nil
	case FormatMarkdown:
		return newTable(view).RenderMarkdown(), nil
	default:
		return newTable(view).Render(), nil
	}
}

// Write renders data to w followed by a newline.
func Write(w io.Writer, format Format, data any, view Tabular) error {
	rendered, err := Render(format, data, view)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, rendered)
	return err
}

func newTable(view Tabular) table.Writer {
	t := table.NewWriter()
	style := table.StyleRounded
	style.Format.Footer = text.FormatDefault
	t.SetStyle(style)
	if view == nil {
		return t
	}
	if header := view.Header(); len(header) > 0 {
		t.AppendHeader(header)
	}
	t.AppendRows(view.Rows())
	if footed, ok := view.(Footed); ok {
		if footer := footed.Footer(); len(footer) > 0 {
			t.AppendFooter(footer)
		}
	}
	return t
}

// toYAML encodes data with its JSON field names and order by re-reading the
// JSON encoding as a YAML document and switching it to block style.
func toYAML(data any) ([]byte, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(encoded, &doc); err != nil {
		return nil, err
	}
	blockStyle(&doc)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func blockStyle(node *yaml.Node) {
	switch node.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		node.Style &^= yaml.FlowStyle
	case yaml.ScalarNode:
		// The encoder re-quotes strings that would otherwise read as
		// another type.
		node.Style = 0
	}
	for _, child := range node.Content {
		blockStyle(child)
	}
}
