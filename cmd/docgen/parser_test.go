package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		name        string
		tag         string
		wantKey     string
		wantDefault string
		wantIgnored bool
	}{
		{
			name:        "key and default",
			tag:         "`yaml:\"CLOUDFLARED_TUNNEL_NAME\" default:\"openedx\"`",
			wantKey:     "CLOUDFLARED_TUNNEL_NAME",
			wantDefault: "openedx",
		},
		{
			name:    "key with options",
			tag:     "`yaml:\"CLOUDFLARED_TUNNEL_UUID,omitempty\"`",
			wantKey: "CLOUDFLARED_TUNNEL_UUID",
		},
		{
			name:        "ignored",
			tag:         "`yaml:\"-\"`",
			wantKey:     "Field",
			wantIgnored: true,
		},
		{
			name:    "no yaml tag keeps field name",
			tag:     "`json:\"x\"`",
			wantKey: "Field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FieldDoc{Name: "Field", Key: "Field"}
			parseTag(tt.tag, &got)

			if got.Key != tt.wantKey {
				t.Errorf("Key = %q, want %q", got.Key, tt.wantKey)
			}
			if got.Default != tt.wantDefault {
				t.Errorf("Default = %q, want %q", got.Default, tt.wantDefault)
			}
			if got.Ignored != tt.wantIgnored {
				t.Errorf("Ignored = %v, want %v", got.Ignored, tt.wantIgnored)
			}
		})
	}
}

const sampleSource = `package sample

// Options configure the sample.
type Options struct {
	// Name of the thing.
	Name string ` + "`yaml:\"SAMPLE_NAME\" default:\"demo\"`" + `

	Hosts []string ` + "`yaml:\"SAMPLE_HOSTS\" default:\"A,B\"`" + ` // hosts to expose

	internal int
}

type other struct{}
`

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.go")
	if err := os.WriteFile(path, []byte(sampleSource), 0600); err != nil {
		t.Fatalf("write sample: %v", err)
	}

	structs, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(structs) != 2 {
		t.Fatalf("ParseFile() found %d structs, want 2", len(structs))
	}

	opts := SelectStructs(structs, []string{"Options"})
	if len(opts) != 1 {
		t.Fatalf("SelectStructs() = %d, want 1", len(opts))
	}
	doc := opts[0]
	if doc.Doc != "Options configure the sample." {
		t.Errorf("Doc = %q", doc.Doc)
	}
	if len(doc.Fields) != 3 {
		t.Fatalf("Fields = %d, want 3", len(doc.Fields))
	}

	name := doc.Fields[0]
	if name.Key != "SAMPLE_NAME" || name.Default != "demo" || name.Doc != "Name of the thing." || name.GoType != "string" {
		t.Errorf("Name field = %+v", name)
	}
	hosts := doc.Fields[1]
	if hosts.GoType != "[]string" || hosts.Default != "A,B" || hosts.Doc != "hosts to expose" {
		t.Errorf("Hosts field = %+v", hosts)
	}
	if !doc.Fields[2].Ignored {
		t.Error("unexported field should be ignored")
	}
}

func TestParseFile_Settings(t *testing.T) {
	structs, err := ParseFile(filepath.Join("..", "..", "pkg", "config", "settings.go"))
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	settings := SelectStructs(structs, []string{"Settings"})
	if len(settings) != 1 {
		t.Fatal("Settings struct not found")
	}

	for _, f := range settings[0].Fields {
		if f.Key == f.Name {
			t.Errorf("field %s has no yaml key", f.Name)
		}
		if f.Doc == "" {
			t.Errorf("field %s is undocumented", f.Name)
		}
	}
}

func TestSelectStructs_Order(t *testing.T) {
	structs := []StructDoc{{Name: "A"}, {Name: "B"}, {Name: "C"}}
	got := SelectStructs(structs, []string{"C", "missing", "A"})
	if len(got) != 2 || got[0].Name != "C" || got[1].Name != "A" {
		t.Errorf("SelectStructs() = %+v", got)
	}
}

func TestTypeToString(t *testing.T) {
	structs, err := parseSnippet(t, `package p
type T struct {
	A *string
	B map[string]int
	C [2]int
	D time.Duration
}`)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"*string", "map[string]int", "[...]int", "time.Duration"}
	for i, f := range structs[0].Fields {
		if f.GoType != want[i] {
			t.Errorf("field %s type = %q, want %q", f.Name, f.GoType, want[i])
		}
	}
}

func parseSnippet(t *testing.T, src string) ([]StructDoc, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snippet.go")
	if err := os.WriteFile(path, []byte(src), 0600); err != nil {
		return nil, err
	}
	return ParseFile(path)
}
