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
)

var (
	blankLineSplit  = regexp.MustCompile(`\n\s*\n+`)
	collapseSpace   = regexp.MustCompile(`\s+`)
	trailingPunct   = regexp.MustCompile(`[:：.]\s*$`)
	defaultTitleMax = 40
)

// TitleHeuristic is the configurable set of rules paragraph.go uses to
// flag a block as a heading rather than body text, per spec.md §4.6's
// instruction to "specify as configuration, not as code paths".
type TitleHeuristic struct {
	MaxLength    int      // very-short blocks are treated as titles
	HeaderMarkup []string // substrings that betray leftover header markup (e.g. "h1", "<h2")
	TitleWords   []string // case-insensitive markers like "chapter", "part"
}

// DefaultTitleHeuristic matches common English/Persian book heading
// conventions: short lines, stray header tags the HTML stripper
// missed, a trailing colon (ASCII or full-width) or period, or a
// handful of section-marker words.
func DefaultTitleHeuristic() TitleHeuristic {
	return TitleHeuristic{
		MaxLength:    defaultTitleMax,
		HeaderMarkup: []string{"<h1", "<h2", "<h3", "<h4", "<h5", "<h6"},
		TitleWords:   []string{"chapter", "part ", "section", "فصل", "بخش"},
	}
}

func (h TitleHeuristic) looksLikeTitle(cleaned string) bool {
	if cleaned == "" {
		return false
	}
	if len([]rune(cleaned)) <= h.MaxLength {
		return true
	}
	lower := strings.ToLower(cleaned)
	for _, marker := range h.HeaderMarkup {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	if trailingPunct.MatchString(cleaned) {
		return true
	}
	for _, word := range h.TitleWords {
		if strings.Contains(lower, strings.ToLower(word)) {
			return true
		}
	}
	return false
}

// Paragraph is one block of page text after whitespace-collapsing and
// (possibly) merging with its short neighbours.
type Paragraph struct {
	Text      string
	LineCount int
	IsTitle   bool
	Sources   []int // paragraph indices this block was merged from
}

// splitParagraphs breaks text on blank lines, producing one Paragraph
// per block with its pre-collapse line count and title flag —
// spec.md §4.6's "Paragraph extraction" step, grounded on the original
// exporter's normalize_paragraphs plus dataset_stats.py's line-count
// accounting (computed before whitespace collapsing).
func splitParagraphs(text string, heuristic TitleHeuristic) []Paragraph {
	if text == "" {
		return nil
	}
	var out []Paragraph
	for i, raw := range blankLineSplit.Split(text, -1) {
		cleaned := strings.TrimSpace(collapseSpace.ReplaceAllString(raw, " "))
		if cleaned == "" {
			continue
		}
		lineCount := 0
		for _, ln := range strings.Split(raw, "\n") {
			if strings.TrimSpace(ln) != "" {
				lineCount++
			}
		}
		if lineCount == 0 {
			lineCount = 1
		}
		out = append(out, Paragraph{
			Text:      cleaned,
			LineCount: lineCount,
			IsTitle:   heuristic.looksLikeTitle(cleaned),
			Sources:   []int{i},
		})
	}
	return out
}

// mergeShortParagraphs buffers consecutive non-title paragraphs until
// their combined line count reaches minLines, then flushes the buffer
// as one merged paragraph; a title paragraph always flushes the buffer
// first and is emitted unchanged — spec.md §4.6's "Merge short
// paragraphs" step.
func mergeShortParagraphs(paragraphs []Paragraph, minLines int) []Paragraph {
	if minLines < 1 {
		minLines = 1
	}

	var out []Paragraph
	var buf []Paragraph
	flush := func() {
		if len(buf) == 0 {
			return
		}
		if len(buf) == 1 {
			out = append(out, buf[0])
			buf = nil
			return
		}
		texts := make([]string, len(buf))
		var sources []int
		lines := 0
		for i, p := range buf {
			texts[i] = p.Text
			sources = append(sources, p.Sources...)
			lines += p.LineCount
		}
		out = append(out, Paragraph{
			Text:      strings.Join(texts, "\n"),
			LineCount: lines,
			IsTitle:   false,
			Sources:   sources,
		})
		buf = nil
	}

	bufLines := 0
	for _, p := range paragraphs {
		if p.IsTitle {
			flush()
			out = append(out, p)
			bufLines = 0
			continue
		}
		buf = append(buf, p)
		bufLines += p.LineCount
		if bufLines >= minLines {
			flush()
			bufLines = 0
		}
	}
	flush()
	return out
}

// prepareParagraphs runs the full extraction+merge pipeline spec.md
// §4.6 describes, in order.
func prepareParagraphs(text string, minLines int, heuristic TitleHeuristic) []Paragraph {
	return mergeShortParagraphs(splitParagraphs(text, heuristic), minLines)
}
