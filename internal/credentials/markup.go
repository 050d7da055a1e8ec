package credentials

import (
	"bytes"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
)

// Markup contract for static exports. The packaging step writes the public
// pair into the page head as meta tags and/or a JSON bootstrap script:
//
//	<meta name="signup-backend-url" content="https://xyz.example.co">
//	<meta name="signup-backend-key" content="...">
//	<script type="application/json" id="signup-bootstrap">
//	  {"backend":{"url":"https://xyz.example.co","key":"..."}}
//	</script>
const (
	MetaEndpointName  = "signup-backend-url"
	MetaKeyName       = "signup-backend-key"
	BootstrapScriptID = "signup-bootstrap"

	bootstrapURLPath = "backend.url"
	bootstrapKeyPath = "backend.key"
)

// MarkupCandidate extracts the pair from a served page. Meta tags take
// precedence; the bootstrap object fills whatever they leave blank. A nil
// or unparseable document yields an empty candidate.
func MarkupCandidate(doc []byte) Candidate {
	c := Candidate{Source: SourceMarkup}
	if len(doc) == 0 {
		return c
	}

	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return c
	}

	var bootstrapJSON string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				name, content := attr(n, "name"), attr(n, "content")
				switch name {
				case MetaEndpointName:
					c.Endpoint = content
				case MetaKeyName:
					c.Key = content
				}
			case "script":
				if attr(n, "id") == BootstrapScriptID {
					bootstrapJSON = scriptText(n)
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	if bootstrapJSON != "" {
		if c.Endpoint == "" {
			c.Endpoint = gjson.Get(bootstrapJSON, bootstrapURLPath).String()
		}
		if c.Key == "" {
			c.Key = gjson.Get(bootstrapJSON, bootstrapKeyPath).String()
		}
	}

	return c
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func scriptText(n *html.Node) string {
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			sb.WriteString(child.Data)
		}
	}
	return strings.TrimSpace(sb.String())
}
