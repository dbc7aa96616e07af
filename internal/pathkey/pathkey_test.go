package pathkey

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/a/b.txt", "/a/b.txt"},
		{"a/b.txt", "/a/b.txt"},
		{"A/B.TXT", "/A/B.TXT"},
		{`a\b.txt`, "/a/b.txt"},
		{"//a//b.txt", "/a/b.txt"},
		{"/", "/"},
	}
	for _, c := range cases {
		got, err := Normalize(c.in)
		if err != nil {
			t.Fatalf("Normalize(%q): unexpected error: %v", c.in, err)
		}
		if string(got) != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeRejects(t *testing.T) {
	cases := []string{
		"/a\x00b",
		string(make([]byte, MaxLen+2)),
	}
	for _, in := range cases {
		if _, err := Normalize(in); err == nil {
			t.Errorf("Normalize(%q): expected error, got nil", in)
		}
	}
}

func TestParseRejectsNonASCII(t *testing.T) {
	if _, err := Parse("/a/\xffb"); err == nil {
		t.Error("Parse with non-ASCII byte: expected error, got nil")
	}
}

func TestJoin(t *testing.T) {
	got, err := Join(Root, "a/b.txt")
	if err != nil {
		t.Fatalf("Join: unexpected error: %v", err)
	}
	if string(got) != "/a/b.txt" {
		t.Errorf("Join(Root, %q) = %q, want %q", "a/b.txt", got, "/a/b.txt")
	}

	got, err = Join(Key("/a"), "/b.txt")
	if err != nil {
		t.Fatalf("Join: unexpected error: %v", err)
	}
	if string(got) != "/a/b.txt" {
		t.Errorf("Join(%q, %q) = %q, want %q", "/a", "/b.txt", got, "/a/b.txt")
	}
}

func TestSplit(t *testing.T) {
	cases := []struct {
		in       Key
		wantDir  Key
		wantName string
	}{
		{"/", "/", ""},
		{"/a.txt", "/", "a.txt"},
		{"/a/b.txt", "/a", "b.txt"},
		{"/a/b/c.txt", "/a/b", "c.txt"},
	}
	for _, c := range cases {
		dir, name := Split(c.in)
		if dir != c.wantDir || name != c.wantName {
			t.Errorf("Split(%q) = (%q, %q), want (%q, %q)", c.in, dir, name, c.wantDir, c.wantName)
		}
	}
}
