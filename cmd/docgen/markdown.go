package main

import (
	"fmt"
	"io"
	"strings"
)

const maxDescriptionLength = 200

// WriteReference renders title, description and one settings table per struct.
func WriteReference(w io.Writer, title, description string, structs []StructDoc) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title)
	if description != "" {
		fmt.Fprintf(&b, "%s\n\n", description)
	}
	b.WriteString("> This documentation is auto-generated from source code using `go generate ./cmd/docgen`.\n\n")

	for _, s := range structs {
		writeStruct(&b, s, len(structs) > 1)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeStruct(b *strings.Builder, doc StructDoc, heading bool) {
	if heading {
		fmt.Fprintf(b, "## %s\n\n", doc.Name)
		if doc.Doc != "" {
			fmt.Fprintf(b, "%s\n\n", oneLine(doc.Doc))
		}
	}

	var visible []FieldDoc
	for _, f := range doc.Fields {
		if !f.Ignored {
			visible = append(visible, f)
		}
	}
	if len(visible) == 0 {
		b.WriteString("_No documented settings._\n\n")
		return
	}

	b.WriteString("| Key | Type | Default | Description |\n")
	b.WriteString("|-----|------|---------|-------------|\n")
	for _, f := range visible {
		fmt.Fprintf(b, "| `%s` | %s | %s | %s |\n", f.Key, formatType(f.GoType), formatDefault(f), escapeCell(f.Doc))
	}
	b.WriteString("\n")
}

func formatType(t string) string {
	switch t {
	case "[]string":
		return "list"
	case "string":
		return "string"
	default:
		return "`" + t + "`"
	}
}

// formatDefault shows list defaults as YAML flow sequences, matching how
// they are written in config.yml.
func formatDefault(f FieldDoc) string {
	if f.Default == "" {
		if strings.HasPrefix(f.GoType, "[]") {
			return "`[]`"
		}
		return "_empty_"
	}
	if strings.HasPrefix(f.GoType, "[]") {
		return "`[" + strings.ReplaceAll(f.Default, ",", ", ") + "]`"
	}
	return "`" + f.Default + "`"
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(oneLine(s), "|", "\\|")
	if len(s) > maxDescriptionLength {
		s = s[:maxDescriptionLength-3] + "..."
	}
	return s
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
