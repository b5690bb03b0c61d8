package backend

import "testing"

func TestOptionsSetGetOverwrite(t *testing.T) {
	o := NewOptions()
	o.Set("preset", "medium")
	o.Set("crf", "23")
	o.Set("preset", "fast")

	v, ok := o.Get("preset")
	if !ok || v != "fast" {
		t.Errorf("expected preset=fast after overwrite, got %q, ok=%v", v, ok)
	}
}

func TestOptionsEachPreservesFirstSetOrder(t *testing.T) {
	o := NewOptions()
	o.Set("b", "2")
	o.Set("a", "1")
	o.Set("b", "20") // overwrite, should not move b's position

	var keys []string
	o.Each(func(k, v string) { keys = append(keys, k) })

	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Errorf("expected order [b a], got %v", keys)
	}
}

func TestParseAdvancedSkipsMalformedSegments(t *testing.T) {
	o := NewOptions()
	o.ParseAdvanced("aq-mode=2:bogus:tune=grain:=empty-key")

	if v, ok := o.Get("aq-mode"); !ok || v != "2" {
		t.Errorf("aq-mode = %q, ok=%v, want 2", v, ok)
	}
	if v, ok := o.Get("tune"); !ok || v != "grain" {
		t.Errorf("tune = %q, ok=%v, want grain", v, ok)
	}
	if _, ok := o.Get("bogus"); ok {
		t.Errorf("a segment with no '=' should be skipped")
	}
}

func TestParseAdvancedEmptyString(t *testing.T) {
	o := NewOptions()
	o.ParseAdvanced("")
	var n int
	o.Each(func(string, string) { n++ })
	if n != 0 {
		t.Errorf("ParseAdvanced(\"\") should not add any options")
	}
}

func TestParseAdvancedOverwritesExisting(t *testing.T) {
	o := NewOptions()
	o.Set("crf", "23")
	o.ParseAdvanced("crf=18")
	if v, _ := o.Get("crf"); v != "18" {
		t.Errorf("ParseAdvanced should overwrite an existing key, got %q", v)
	}
}
