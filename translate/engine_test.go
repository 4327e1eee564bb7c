package translate

import (
	"context"
	"reflect"
	"testing"
)

func TestRegistry(t *testing.T) {
	echo := func(_ context.Context, text, _, _ string) (string, error) { return text, nil }

	if err := Register(Func{ID: "echo-a", Fn: echo}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := Register(Func{ID: "echo-a", Fn: echo}); err == nil {
		t.Error("duplicate registration accepted")
	}
	if err := Register(Func{ID: "echo-b", Fn: echo}); err != nil {
		t.Fatal(err)
	}

	e, err := Get("echo-a")
	if err != nil || e.Name() != "echo-a" {
		t.Errorf("Get = %v, %v", e, err)
	}
	if _, err := Get("nope"); err == nil {
		t.Error("unknown engine resolved")
	}

	names := Names()
	found := 0
	for _, n := range names {
		if n == "echo-a" || n == "echo-b" {
			found++
		}
	}
	if found != 2 {
		t.Errorf("Names() = %v, missing registered engines", names)
	}
}

func TestSplitKeeping(t *testing.T) {
	seps := []string{";", "|"}
	cases := []struct {
		in   string
		want []string
	}{
		{"Open;Save;Exit", []string{"Open", ";", "Save", ";", "Exit"}},
		{"a|b", []string{"a", "|", "b"}},
		{"plain", []string{"plain"}},
		{";lead", []string{"", ";", "lead"}},
		{"trail;", []string{"trail", ";", ""}},
	}
	for _, c := range cases {
		if got := splitKeeping(c.in, seps); !reflect.DeepEqual(got, c.want) {
			t.Errorf("splitKeeping(%q) = %q, want %q", c.in, got, c.want)
		}
	}

	if got := splitKeeping("a;b", nil); !reflect.DeepEqual(got, []string{"a;b"}) {
		t.Errorf("no separators: %q", got)
	}
}

func TestGoogleLightSplitsAndKeepsSeparators(t *testing.T) {
	// Stub the per-fragment call path by exercising the splitting logic the
	// same way Translate does, without network.
	g := NewGoogleLight("key")
	parts := splitKeeping("Open;Save;-Exit", g.SplitChars)
	if len(parts) != 5 {
		t.Fatalf("parts = %q", parts)
	}
	if !isSeparator(parts[1], g.SplitChars) || !isSeparator(parts[3], g.SplitChars) {
		t.Error("separators not preserved as standalone parts")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("0123456789abc", 10); got != "0123456789..." {
		t.Errorf("truncate = %q", got)
	}
}
