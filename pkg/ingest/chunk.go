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
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// maxInlinePageText is spec.md §4.6's 50 KB threshold: a page-level
// document under this size is stored verbatim; larger pages are
// hashed instead so the collection doesn't carry enormous documents.
const maxInlinePageText = 50 * 1024

// Segment is one chunked window ready for embedding and upsert, with
// the full metadata spec.md §4.6 assigns it.
type Segment struct {
	DocumentID string
	Text       string
	Metadata   map[string]interface{}
}

// ChunkParams bounds how prepared paragraphs are windowed.
type ChunkParams struct {
	MaxLength         int
	ContextLength     int
	TitleWeight       float64
	IncludePageLevel  bool
}

// segmentWindow is one overlapping chunk of a paragraph: Text is the
// paragraph's runes in the [Start, End) span the segment covers.
type segmentWindow struct {
	Text       string
	Start, End int
}

// segmentWindows computes the overlapping windows of text per spec.md
// §4.6's chunking rule: step = max(1, max_length - context_length);
// each window is at most max_length runes long, so consecutive windows
// overlap by context_length runes.
func segmentWindows(text string, maxLength, contextLength int) []segmentWindow {
	runes := []rune(text)
	n := len(runes)
	if n <= maxLength {
		return []segmentWindow{{Text: text, Start: 0, End: n}}
	}

	step := maxLength - contextLength
	if step < 1 {
		step = 1
	}

	var out []segmentWindow
	for start := 0; start < n; start += step {
		end := start + maxLength
		if end > n {
			end = n
		}
		out = append(out, segmentWindow{Text: string(runes[start:end]), Start: start, End: end})
		if end == n {
			break
		}
	}
	return out
}

// buildSegments turns one decoded, HTML-stripped book page into its
// full set of embeddable segments: one per chunked paragraph window,
// plus an optional whole-page document — spec.md §4.6's "Chunking"
// step, grounded on the original exporter's build_segments.
func buildSegments(page BookPage, pageText string, paragraphs []Paragraph, params ChunkParams) []Segment {
	var segments []Segment

	for paraIdx, p := range paragraphs {
		windows := segmentWindows(p.Text, params.MaxLength, params.ContextLength)
		importance := 1.0
		if p.IsTitle {
			importance = params.TitleWeight
		}
		for segIdx, w := range windows {
			segments = append(segments, Segment{
				DocumentID: segmentDocID(page.BookID, page.PageID, paraIdx, segIdx),
				Text:       w.Text,
				Metadata: map[string]interface{}{
					"book_id":             page.BookID,
					"book_title":          page.BookTitle,
					"section_id":          page.SectionID,
					"section_title":       page.SectionTitle,
					"page_id":             page.PageID,
					"paragraph_index":     paraIdx,
					"segment_index":       segIdx,
					"segment_start":       w.Start,
					"segment_end":         w.End,
					"segment_length":      len([]rune(w.Text)),
					"source_link":         page.SourceLink,
					"record_id":           page.RecordID,
					"has_error":           page.Error != "",
					"error":               page.Error,
					"paragraph_line_count": p.LineCount,
					"paragraph_is_title":   p.IsTitle,
					"paragraph_sources":    joinInts(p.Sources),
					"importance":           importance,
				},
			})
		}
	}

	if params.IncludePageLevel && pageText != "" {
		segments = append(segments, pageLevelSegment(page, pageText))
	}

	return segments
}

func pageLevelSegment(page BookPage, pageText string) Segment {
	text := pageText
	if len(pageText) > maxInlinePageText {
		sum := sha256.Sum256([]byte(pageText))
		text = hex.EncodeToString(sum[:])
	}
	return Segment{
		DocumentID: segmentDocID(page.BookID, page.PageID, -1, -1),
		Text:       text,
		Metadata: map[string]interface{}{
			"book_id":         page.BookID,
			"book_title":      page.BookTitle,
			"section_id":      page.SectionID,
			"section_title":   page.SectionTitle,
			"page_id":         page.PageID,
			"paragraph_index": -1,
			"segment_index":   -1,
			"page_level":      true,
			"source_link":     page.SourceLink,
			"record_id":       page.RecordID,
			"has_error":       page.Error != "",
			"error":           page.Error,
		},
	}
}

func segmentDocID(bookID, pageID int64, paraIdx, segIdx int) string {
	return strings.Join([]string{
		strconv.FormatInt(bookID, 10),
		strconv.FormatInt(pageID, 10),
		strconv.Itoa(paraIdx),
		strconv.Itoa(segIdx),
		uuid.New().String()[:8],
	}, "-")
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
