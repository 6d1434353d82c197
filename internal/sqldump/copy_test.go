package sqldump

import (
	"strings"
	"testing"
)

func TestTransformCopyBlocks(t *testing.T) {
	script := strings.Join([]string{
		"CREATE TABLE public.users (id bigint, email text);",
		"COPY public.users (id, email, name) FROM stdin;",
		"1\talice@example.com\tAlice",
		"2\tbob@example.com\t\\N",
		`\.`,
		"SELECT 1;",
	}, "\n")

	got := TransformCopyBlocks(script)

	if strings.Contains(got, "FROM stdin") {
		t.Error("COPY header should be removed")
	}
	if strings.Contains(got, `\.`) {
		t.Error("COPY terminator should be removed")
	}
	if !strings.Contains(got, "INSERT INTO public.users (id, email, name) VALUES (1, 'alice@example.com', 'Alice');") {
		t.Errorf("missing plain insert, got:\n%s", got)
	}
	if !strings.Contains(got, "VALUES (2, 'bob@example.com', NULL);") {
		t.Errorf("NULL marker not decoded, got:\n%s", got)
	}
	if !strings.Contains(got, "SELECT 1;") {
		t.Error("statements outside COPY must survive")
	}
}

func TestTransformCopyBlocksEscapes(t *testing.T) {
	script := "COPY t (v) FROM stdin;\n" +
		"line\\twith\\ttabs\n" +
		"back\\\\slash\n" +
		"\\.\n"

	got := TransformCopyBlocks(script)

	if !strings.Contains(got, `E'line\\twith\\ttabs'`) && !strings.Contains(got, "'line\twith\ttabs'") {
		t.Errorf("tab escape not decoded, got:\n%s", got)
	}
	if !strings.Contains(got, `E'back\\slash'`) {
		t.Errorf("backslash escape not decoded, got:\n%s", got)
	}
}

func TestCountCopyRows(t *testing.T) {
	script := strings.Join([]string{
		"COPY public.orders (id) FROM stdin;",
		"1",
		"2",
		"3",
		`\.`,
		"COPY public.order_items (id) FROM stdin;",
		"10",
		`\.`,
	}, "\n")

	tests := []struct {
		table string
		want  int64
	}{
		{"orders", 3},
		{"order_items", 1},
		{"users", 0},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			if got := CountCopyRows(script, tt.table); got != tt.want {
				t.Errorf("CountCopyRows(%q) = %d, want %d", tt.table, got, tt.want)
			}
		})
	}
}

func TestUnescapeCopyField(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{`a\tb`, "a\tb"},
		{`a\nb`, "a\nb"},
		{`a\\b`, `a\b`},
		{`a\rb`, "a\rb"},
	}

	for _, tt := range tests {
		if got := unescapeCopyField(tt.in); got != tt.want {
			t.Errorf("unescapeCopyField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
