package charsetcheck

import "testing"

func TestValidateGBK(t *testing.T) {
	ok, bad, err := Validate("你好，世界", "GBK")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !ok || len(bad) != 0 {
		t.Errorf("Chinese text in GBK: ok=%v bad=%q", ok, string(bad))
	}

	// Korean Hangul is outside GBK's repertoire.
	ok, bad, err = Validate("안녕", "GBK")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if ok {
		t.Error("Hangul reported representable in GBK")
	}
	if len(bad) != 2 {
		t.Errorf("offending code points = %q, want 2 runes", string(bad))
	}
}

func TestValidateSingleByte(t *testing.T) {
	ok, _, err := Validate("Привет", "windows-1251")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !ok {
		t.Error("Cyrillic reported unrepresentable in windows-1251")
	}

	ok, bad, err := Validate("Привет 漢", "windows-1251")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if ok || len(bad) != 1 || bad[0] != '漢' {
		t.Errorf("ok=%v bad=%q, want single offending 漢", ok, string(bad))
	}
}

func TestValidateDeduplicatesOffenders(t *testing.T) {
	v, err := New("windows-1252")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ok, bad := v.Validate("漢漢漢 字字")
	if ok {
		t.Error("CJK reported representable in windows-1252")
	}
	if len(bad) != 2 {
		t.Errorf("bad = %q, want 2 distinct runes", string(bad))
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := New("no-such-charset"); err == nil {
		t.Error("unknown charset accepted")
	}
}

func TestValidateUTF8AlwaysOK(t *testing.T) {
	ok, bad, err := Validate("mixed 漢 한 ё 😀", "UTF-8")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !ok || len(bad) != 0 {
		t.Errorf("UTF-8 rejected code points: %q", string(bad))
	}
}
