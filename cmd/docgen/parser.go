package main

import (
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"strings"
)

// StructDoc is the documentation of one struct.
type StructDoc struct {
	Name   string
	Doc    string
	Fields []FieldDoc
}

// FieldDoc is the documentation of one struct field.
type FieldDoc struct {
	Name    string
	GoType  string
	Key     string
	Default string
	Doc     string
	Ignored bool
}

// ParseFile extracts every struct type declared in filename.
func ParseFile(filename string) ([]StructDoc, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, nil, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	var structs []StructDoc
	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			continue
		}
		for _, spec := range genDecl.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			structType, ok := typeSpec.Type.(*ast.StructType)
			if !ok {
				continue
			}

			doc := StructDoc{Name: typeSpec.Name.Name}
			switch {
			case typeSpec.Doc != nil:
				doc.Doc = cleanComment(typeSpec.Doc.Text())
			case genDecl.Doc != nil:
				doc.Doc = cleanComment(genDecl.Doc.Text())
			}
			for _, field := range structType.Fields.List {
				doc.Fields = append(doc.Fields, parseField(field)...)
			}
			structs = append(structs, doc)
		}
	}
	return structs, nil
}

func parseField(field *ast.Field) []FieldDoc {
	var comment string
	if field.Doc != nil {
		comment = cleanComment(field.Doc.Text())
	} else if field.Comment != nil {
		comment = cleanComment(field.Comment.Text())
	}

	names := make([]string, 0, len(field.Names))
	for _, n := range field.Names {
		names = append(names, n.Name)
	}
	if len(names) == 0 {
		names = append(names, typeToString(field.Type))
	}

	docs := make([]FieldDoc, 0, len(names))
	for _, name := range names {
		doc := FieldDoc{
			Name:   name,
			GoType: typeToString(field.Type),
			Doc:    comment,
			Key:    name,
		}
		if field.Tag != nil {
			parseTag(field.Tag.Value, &doc)
		}
		if !ast.IsExported(name) {
			doc.Ignored = true
		}
		docs = append(docs, doc)
	}
	return docs
}

// parseTag reads the yaml key and the default value from a raw struct tag.
func parseTag(raw string, doc *FieldDoc) {
	tag := reflect.StructTag(strings.Trim(raw, "`"))

	if yamlTag, ok := tag.Lookup("yaml"); ok {
		key, _, _ := strings.Cut(yamlTag, ",")
		switch key {
		case "-":
			doc.Ignored = true
		case "":
		default:
			doc.Key = key
		}
	}
	doc.Default = tag.Get("default")
}

func typeToString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + typeToString(t.X)
	case *ast.ArrayType:
		if t.Len == nil {
			return "[]" + typeToString(t.Elt)
		}
		return "[...]" + typeToString(t.Elt)
	case *ast.MapType:
		return "map[" + typeToString(t.Key) + "]" + typeToString(t.Value)
	case *ast.SelectorExpr:
		return typeToString(t.X) + "." + t.Sel.Name
	default:
		return "any"
	}
}

func cleanComment(s string) string {
	return strings.TrimSpace(s)
}

// SelectStructs returns the structs named in names, in that order.
func SelectStructs(structs []StructDoc, names []string) []StructDoc {
	byName := make(map[string]StructDoc, len(structs))
	for _, s := range structs {
		byName[s.Name] = s
	}

	var result []StructDoc
	for _, name := range names {
		if s, ok := byName[name]; ok {
			result = append(result, s)
		}
	}
	return result
}
