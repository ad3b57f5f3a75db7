package payload

import "testing"

const doc = `{
	"title": "hello",
	"count": 3,
	"flag": true,
	"empty": null,
	"media": [
		{"url": "https://a.example/1.jpg", "bitrate": 100},
		{"url": "https://a.example/2.jpg"}
	],
	"nested": {"inner": {"deep": "value"}}
}`

func TestAccessorsAreTotal(t *testing.T) {
	v, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if got := v.Get("title").StrOr(""); got != "hello" {
		t.Errorf("title = %q, want hello", got)
	}
	if got := v.Get("count").IntOr(-1); got != 3 {
		t.Errorf("count = %d, want 3", got)
	}
	if b, ok := v.Get("flag").Bool(); !ok || !b {
		t.Errorf("flag = %v/%v, want true", b, ok)
	}

	// Probing through missing and wrong-typed nodes never panics and
	// yields zero values.
	if got := v.Get("missing").Get("deeper").Index(4).StrOr("fallback"); got != "fallback" {
		t.Errorf("missing chain = %q, want fallback", got)
	}
	if got := v.Get("title").Get("not_an_object").StrOr(""); got != "" {
		t.Errorf("string.Get = %q, want empty", got)
	}
	if items := v.Get("count").Items(); items != nil {
		t.Errorf("number.Items = %v, want nil", items)
	}
	if !v.Get("empty").IsNil() {
		t.Error("null node should be nil")
	}
}

func TestArrayTraversal(t *testing.T) {
	v, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	media := v.Get("media")
	if media.Len() != 2 {
		t.Fatalf("media len = %d, want 2", media.Len())
	}
	if got := media.Index(0).Get("bitrate").IntOr(0); got != 100 {
		t.Errorf("bitrate = %d, want 100", got)
	}
	if got := media.Index(1).Get("bitrate").IntOr(0); got != 0 {
		t.Errorf("absent bitrate = %d, want 0", got)
	}
	if got := media.Index(9).Get("url").StrOr(""); got != "" {
		t.Errorf("out-of-range index = %q, want empty", got)
	}
}

func TestFirst(t *testing.T) {
	v, _ := Parse([]byte(`{"b": "second", "c": "third"}`))
	if got := v.First("a", "b", "c").StrOr(""); got != "second" {
		t.Errorf("First = %q, want second", got)
	}
	if got := v.First("x", "y"); !got.IsNil() {
		t.Errorf("First with no match should be nil")
	}
}

func TestKeysSorted(t *testing.T) {
	v, _ := Parse([]byte(`{"zeta": 1, "alpha": 2, "mid": 3}`))
	keys := v.Keys()
	want := []string{"alpha", "mid", "zeta"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}
}
