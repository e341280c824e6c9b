package gcs

import "testing"

func TestBucket_KeyMapping(t *testing.T) {
	b := &Bucket{prefix: "mailboxes"}
	if got := b.objectName("abc"); got != "mailboxes/abc.json" {
		t.Errorf("objectName = %q", got)
	}
	if key, ok := b.keyOf("mailboxes/abc.json"); !ok || key != "abc" {
		t.Errorf("keyOf = %q, %v", key, ok)
	}
	if _, ok := b.keyOf("mailboxes/a/b.json"); ok {
		t.Error("nested object should not map to a key")
	}

	root := &Bucket{}
	if key, ok := root.keyOf("abc.json"); !ok || key != "abc" {
		t.Errorf("unprefixed keyOf = %q, %v", key, ok)
	}
}

func TestNew_RequiresBucket(t *testing.T) {
	if _, err := New(t.Context()); err == nil {
		t.Error("expected error without bucket")
	}
}
