package photostore

import "testing"

func TestValidKey(t *testing.T) {
	valid := []string{"visit_0b1c.jpg", "planting_x.png"}
	invalid := []string{"", "../etc/passwd", "a/b.jpg", `a\b.jpg`, "..", "x..jpg"}
	for _, key := range valid {
		if !ValidKey(key) {
			t.Fatalf("ValidKey(%q) = false", key)
		}
	}
	for _, key := range invalid {
		if ValidKey(key) {
			t.Fatalf("ValidKey(%q) = true", key)
		}
	}
}

func TestMimeTypeRoundTrip(t *testing.T) {
	for _, mimeType := range []string{"image/jpeg", "image/png", "image/gif", "image/webp"} {
		if !Allowed(mimeType) {
			t.Fatalf("%s should be allowed", mimeType)
		}
		if got := MimeTypeForKey("k" + ExtForMimeType(mimeType)); got != mimeType {
			t.Fatalf("round trip %s -> %s", mimeType, got)
		}
	}
	if Allowed("application/pdf") {
		t.Fatal("pdf uploads should be rejected")
	}
}
