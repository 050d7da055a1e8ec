package credentials

import "testing"

func TestMarkupCandidate_MetaTags(t *testing.T) {
	doc := []byte(`<!DOCTYPE html>
<html><head>
<meta name="signup-backend-url" content="https://markup.example.co">
<meta name="signup-backend-key" content="markup-anon-key">
</head><body></body></html>`)

	c := MarkupCandidate(doc)
	if c.Source != SourceMarkup {
		t.Errorf("Source = %q, want %q", c.Source, SourceMarkup)
	}
	if c.Endpoint != "https://markup.example.co" {
		t.Errorf("Endpoint = %q", c.Endpoint)
	}
	if c.Key != "markup-anon-key" {
		t.Errorf("Key = %q", c.Key)
	}
}

func TestMarkupCandidate_BootstrapObject(t *testing.T) {
	doc := []byte(`<html><head>
<script type="application/json" id="signup-bootstrap">
{"backend":{"url":"https://boot.example.co","key":"boot-key"}}
</script>
</head></html>`)

	c := MarkupCandidate(doc)
	if c.Endpoint != "https://boot.example.co" {
		t.Errorf("Endpoint = %q", c.Endpoint)
	}
	if c.Key != "boot-key" {
		t.Errorf("Key = %q", c.Key)
	}
}

func TestMarkupCandidate_MetaTakesPrecedenceBootstrapFillsGaps(t *testing.T) {
	doc := []byte(`<html><head>
<meta name="signup-backend-url" content="https://meta.example.co">
<script type="application/json" id="signup-bootstrap">
{"backend":{"url":"https://boot.example.co","key":"boot-key"}}
</script>
</head></html>`)

	c := MarkupCandidate(doc)
	if c.Endpoint != "https://meta.example.co" {
		t.Errorf("Endpoint = %q, want meta value", c.Endpoint)
	}
	if c.Key != "boot-key" {
		t.Errorf("Key = %q, want bootstrap fill-in", c.Key)
	}
}

func TestMarkupCandidate_EmptyDocument(t *testing.T) {
	for _, doc := range [][]byte{nil, {}, []byte("<html><head></head></html>")} {
		c := MarkupCandidate(doc)
		if c.Endpoint != "" || c.Key != "" {
			t.Errorf("doc %q: expected empty candidate, got %+v", doc, c)
		}
	}
}

func TestMarkupCandidate_IgnoresUnrelatedScripts(t *testing.T) {
	doc := []byte(`<html><head>
<script>var x = {"backend":{"url":"https://evil.example.co","key":"evil"}};</script>
</head></html>`)

	c := MarkupCandidate(doc)
	if c.Endpoint != "" || c.Key != "" {
		t.Errorf("unrelated scripts must not contribute credentials, got %+v", c)
	}
}
