package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/osamaatef1/rag-service/internal/domain"
)

func TestExtract_PlainText(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"notes.txt", "README.md", "UPPER.TXT"} {
		got, err := r.Extract(name, []byte("hello world"))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got != "hello world" {
			t.Errorf("%s: got %q", name, got)
		}
	}
}

func TestExtract_UnsupportedExtension(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"report.pdf", "noextension", "trailing."} {
		_, err := r.Extract(name, []byte("data"))
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%s: got %v, want ErrValidation", name, err)
		}
	}
}

func TestExtract_JSONObject(t *testing.T) {
	r := NewRegistry()

	got, err := r.Extract("config.json", []byte(`{"name":"svc","nested":{"port":8080},"tags":["a","b"]}`))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"name: svc", "nested.port: 8080", "tags[0]: a", "tags[1]: b"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestExtract_JSONArrayOfObjects(t *testing.T) {
	r := NewRegistry()

	got, err := r.Extract("export.json", []byte(`[{"title":"first","score":1.5},{"title":"second"}]`))
	if err != nil {
		t.Fatal(err)
	}
	blocks := strings.Split(got, "\n\n")
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks:\n%s", len(blocks), got)
	}
	if !strings.Contains(blocks[0], "title: first") || !strings.Contains(blocks[0], "score: 1.5") {
		t.Errorf("block 0: %q", blocks[0])
	}
	if !strings.Contains(blocks[1], "title: second") {
		t.Errorf("block 1: %q", blocks[1])
	}
}

func TestExtract_JSONInvalid(t *testing.T) {
	r := NewRegistry()

	_, err := r.Extract("broken.json", []byte(`{"unclosed`))
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("got %v, want ErrValidation", err)
	}
}

func TestExtract_CSV(t *testing.T) {
	r := NewRegistry()

	data := "name,role\nada,engineer\ngrace,admiral\n"
	got, err := r.Extract("people.csv", []byte(data))
	if err != nil {
		t.Fatal(err)
	}
	rows := strings.Split(got, "\n\n")
	if len(rows) != 2 {
		t.Fatalf("got %d rows:\n%s", len(rows), got)
	}
	if rows[0] != "name: ada. role: engineer." {
		t.Errorf("row 0: %q", rows[0])
	}
	if rows[1] != "name: grace. role: admiral." {
		t.Errorf("row 1: %q", rows[1])
	}
}

func TestExtract_CSVSkipsEmptyValues(t *testing.T) {
	r := NewRegistry()

	got, err := r.Extract("sparse.csv", []byte("a,b,c\n1,,3\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "a: 1. c: 3." {
		t.Errorf("got %q", got)
	}
}

func TestExtract_CSVEmpty(t *testing.T) {
	r := NewRegistry()

	got, err := r.Extract("empty.csv", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_HTML(t *testing.T) {
	r := NewRegistry()

	page := `<html><head><title>t</title><style>body{color:red}</style></head>
<body>
<nav>skip this menu</nav>
<h1>Heading</h1>
<p>First paragraph.</p>
<script>console.log("skip")</script>
<ul><li>item one</li><li>item two</li></ul>
<footer>skip footer</footer>
</body></html>`

	got, err := r.Extract("page.html", []byte(page))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Heading", "First paragraph.", "item one", "item two"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
	for _, skip := range []string{"skip this menu", "console.log", "color:red", "skip footer"} {
		if strings.Contains(got, skip) {
			t.Errorf("should not contain %q:\n%s", skip, got)
		}
	}
}

func TestRegister_CustomExtractor(t *testing.T) {
	r := NewRegistry()
	r.Register("log", func(data []byte) (string, error) {
		return strings.ToUpper(string(data)), nil
	})

	got, err := r.Extract("app.log", []byte("line"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "LINE" {
		t.Errorf("got %q", got)
	}
}

func TestSupported(t *testing.T) {
	exts := NewRegistry().Supported()
	want := []string{"csv", "html", "json", "md", "txt"}
	if len(exts) != len(want) {
		t.Fatalf("got %v", exts)
	}
	for i := range want {
		if exts[i] != want[i] {
			t.Errorf("exts[%d] = %q, want %q", i, exts[i], want[i])
		}
	}
}
