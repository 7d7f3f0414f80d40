package encoding

import "testing"

func TestCanonicalJSONSortsKeys(t *testing.T) {
	got, err := CanonicalJSON(map[string]any{
		"b": 1,
		"a": map[string]any{"z": true, "y": []any{"<x>", 2.5}},
	})
	if err != nil {
		t.Fatalf("canonical json: %v", err)
	}
	want := `{"a":{"y":["<x>",2.5],"z":true},"b":1}`
	if string(got) != want {
		t.Fatalf("canonical = %s, want %s", got, want)
	}
}

func TestCanonicalJSONKeepsLargeIntegers(t *testing.T) {
	got, err := CanonicalJSON(map[string]any{"seq": uint64(9007199254740993)})
	if err != nil {
		t.Fatalf("canonical json: %v", err)
	}
	if string(got) != `{"seq":9007199254740993}` {
		t.Fatalf("canonical = %s", got)
	}
}

func TestContentHashIsStable(t *testing.T) {
	first, err := ContentHash(map[string]int{"a": 1, "b": 2})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := ContentHash(map[string]int{"b": 2, "a": 1})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first != second {
		t.Fatalf("hash mismatch: %s != %s", first, second)
	}
	if len(first) != 32 {
		t.Fatalf("hash length = %d, want 32", len(first))
	}
}
