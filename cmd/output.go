package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"viberate/internal/errs"
)

// view is one command result: the structured value for json, yaml and toml
// plus its tabular rendering.
type view struct {
	data   any
	header table.Row
	rows   []table.Row
}

func render(w io.Writer, format string, v view) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "table":
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.SetStyle(table.StyleLight)
		tw.AppendHeader(v.header)
		for _, row := range v.rows {
			tw.AppendRow(row)
		}
		tw.Render()
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v.data)
	case "yaml":
		generic, err := toGeneric(v.data)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return errs.Wrap(err, "encode yaml")
		}
		return enc.Close()
	case "toml":
		generic, err := toGeneric(v.data)
		if err != nil {
			return err
		}
		// TOML documents are tables; lists go under "items".
		doc, ok := dropNulls(generic).(map[string]any)
		if !ok {
			doc = map[string]any{"items": dropNulls(generic)}
		}
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return errs.Wrap(err, "encode toml")
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// toGeneric round-trips through JSON so every encoder sees the json field
// names.
func toGeneric(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errs.Wrap(err, "marshal output")
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errs.Wrap(err, "unmarshal output")
	}
	return out, nil
}

// dropNulls removes null values, which TOML cannot represent.
func dropNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			if item == nil {
				continue
			}
			out[k] = dropNulls(item)
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			out = append(out, dropNulls(item))
		}
		return out
	default:
		return v
	}
}

func deref[T any](p *T) any {
	if p == nil {
		return ""
	}
	return *p
}
