// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingest

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var runOfBlankLines = regexp.MustCompile(`\n{3,}`)

// blockTags separate text the way a browser renders them — each one
// forces a line break before and after its content. Text inside any
// other tag is joined to its neighbours without a separator.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "blockquote": true,
}

// htmlToText strips tags from html, separating block content with
// newlines and collapsing runs of three-or-more blank lines into two —
// spec.md §4.6's HTML→text contract, grounded on the original
// exporter's BeautifulSoup(html).get_text(separator="\n") pass.
// goquery (the pack's HTML-heavy ingest dependency) parses the
// fragment; the tree walk below breaks lines only around blockTags.
func htmlToText(raw string) string {
	if raw == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if blockTags[n.Data] {
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			b.WriteString("\n")
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}

	text := b.String()
	text = strings.ReplaceAll(text, "\r", "")
	text = runOfBlankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
