package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/wheelfix/pkg/delocate"
	"github.com/matzehuels/wheelfix/pkg/errors"
)

func sampleGraph() delocate.Graph {
	return delocate.Graph{
		"/usr/local/lib/libpng16.16.dylib": delocate.NewSet("pkg2/b.so", "pkg1/a.so"),
		"/usr/lib/libSystem.B.dylib":       delocate.NewSet("pkg1/a.so"),
		"@rpath/libz.1.dylib":              delocate.NewSet("pkg1/a.so"),
	}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name string
		all  bool
		want []string
	}{
		{"filtered", false, []string{"/usr/local/lib/libpng16.16.dylib"}},
		{"all", true, []string{"/usr/lib/libSystem.B.dylib", "/usr/local/lib/libpng16.16.dylib", "@rpath/libz.1.dylib"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Build("demo.whl", sampleGraph(), Options{All: tt.all})
			var got []string
			for _, lib := range r.Libraries {
				got = append(got, lib.Name)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("libraries = %v, want %v", got, tt.want)
			}
		})
	}

	r := Build("demo.whl", sampleGraph(), Options{})
	if got := r.Libraries[0].Requiring; strings.Join(got, ",") != "pkg1/a.so,pkg2/b.so" {
		t.Errorf("requiring = %v, want sorted", got)
	}
}

func TestWriteText(t *testing.T) {
	one := []Report{Build("demo.whl", sampleGraph(), Options{})}
	two := []Report{one[0], {Source: "other.whl", Libraries: []Library{{Name: "/opt/libq.dylib"}}}}

	tests := []struct {
		name      string
		reports   []Report
		depending bool
		want      string
	}{
		{
			name:    "names",
			reports: one,
			want:    "/usr/local/lib/libpng16.16.dylib\n",
		},
		{
			name:      "depending",
			reports:   one,
			depending: true,
			want:      "/usr/local/lib/libpng16.16.dylib:\n    pkg1/a.so\n    pkg2/b.so\n",
		},
		{
			name:    "several sources",
			reports: two,
			want:    "demo.whl:\n    /usr/local/lib/libpng16.16.dylib\nother.whl:\n    /opt/libq.dylib\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Write(&buf, tt.reports, FormatText, tt.depending); err != nil {
				t.Fatal(err)
			}
			if buf.String() != tt.want {
				t.Errorf("output:\n%s\nwant:\n%s", buf.String(), tt.want)
			}
		})
	}
}

func TestWriteStructured(t *testing.T) {
	reports := []Report{Build("demo.whl", sampleGraph(), Options{})}

	var jsonBuf bytes.Buffer
	if err := Write(&jsonBuf, reports, FormatJSON, false); err != nil {
		t.Fatal(err)
	}
	var fromJSON []Report
	if err := json.Unmarshal(jsonBuf.Bytes(), &fromJSON); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(fromJSON) != 1 || fromJSON[0].Libraries[0].Name != "/usr/local/lib/libpng16.16.dylib" {
		t.Errorf("json = %+v", fromJSON)
	}

	var yamlBuf bytes.Buffer
	if err := Write(&yamlBuf, reports, FormatYAML, false); err != nil {
		t.Fatal(err)
	}
	var fromYAML []Report
	if err := yaml.Unmarshal(yamlBuf.Bytes(), &fromYAML); err != nil {
		t.Fatalf("invalid yaml: %v", err)
	}
	if len(fromYAML) != 1 || len(fromYAML[0].Libraries[0].Requiring) != 2 {
		t.Errorf("yaml = %+v", fromYAML)
	}

	var tomlBuf bytes.Buffer
	if err := Write(&tomlBuf, reports, FormatTOML, false); err != nil {
		t.Fatal(err)
	}
	var fromTOML struct {
		Reports []Report `toml:"report"`
	}
	if _, err := toml.Decode(tomlBuf.String(), &fromTOML); err != nil {
		t.Fatalf("invalid toml: %v\n%s", err, tomlBuf.String())
	}
	if len(fromTOML.Reports) != 1 || fromTOML.Reports[0].Source != "demo.whl" {
		t.Errorf("toml = %+v", fromTOML)
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, nil, "xml", false)
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("err = %v, want INVALID_FORMAT", err)
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT([]Report{Build("demo.whl", sampleGraph(), Options{All: true})})

	for _, want := range []string{
		`"pkg1/a.so" [shape=box`,
		`"pkg1/a.so" -> "/usr/local/lib/libpng16.16.dylib";`,
		`"pkg2/b.so" -> "/usr/local/lib/libpng16.16.dylib";`,
		`"/usr/lib/libSystem.B.dylib" [shape=ellipse, style=dashed];`,
		`"@rpath/libz.1.dylib" [shape=ellipse, style=dashed];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %s:\n%s", want, dot)
		}
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(ToDOT([]Report{Build("demo.whl", sampleGraph(), Options{})}))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Error("output is not SVG")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox = %s, want %s", got, want)
	}
}
