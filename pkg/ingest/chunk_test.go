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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSegmentWindowsSingleWindowWhenShort(t *testing.T) {
	windows := segmentWindows("short text", 800, 100)
	require.Len(t, windows, 1)
	require.Equal(t, "short text", windows[0].Text)
	require.Equal(t, 0, windows[0].Start)
	require.Equal(t, 10, windows[0].End)
}

func TestSegmentWindowsOverlapsByContextLength(t *testing.T) {
	text := strings.Repeat("a", 25)
	windows := segmentWindows(text, 10, 2)
	require.Greater(t, len(windows), 1)

	require.Equal(t, 0, windows[0].Start)
	require.Equal(t, 10, windows[0].End)

	last := windows[len(windows)-1]
	require.Equal(t, 25, last.End, "final window must reach the end of the text")

	for _, w := range windows {
		require.LessOrEqual(t, w.Start, w.End)
	}
}

func TestBuildSegmentsAssignsTitleWeightAndMetadata(t *testing.T) {
	page := BookPage{RecordID: 1, BookID: 10, BookTitle: "T", SectionID: 1, SectionTitle: "S", PageID: 5, SourceLink: "link"}
	paras := []Paragraph{
		{Text: "Intro", LineCount: 1, IsTitle: true, Sources: []int{0}},
		{Text: "Body text of the paragraph", LineCount: 3, Sources: []int{1}},
	}
	params := ChunkParams{MaxLength: 800, ContextLength: 100, TitleWeight: 1.5}

	segments := buildSegments(page, "Intro\n\nBody text of the paragraph", paras, params)
	require.Len(t, segments, 2)
	require.Equal(t, 1.5, segments[0].Metadata["importance"])
	require.Equal(t, 1.0, segments[1].Metadata["importance"])
	require.Equal(t, int64(10), segments[0].Metadata["book_id"])
	require.Equal(t, "1", segments[1].Metadata["paragraph_sources"])
}

func TestBuildSegmentsIncludesPageLevelDocumentWhenEnabled(t *testing.T) {
	page := BookPage{RecordID: 1, BookID: 10, PageID: 5}
	paras := []Paragraph{{Text: "x", LineCount: 1, Sources: []int{0}}}
	params := ChunkParams{MaxLength: 800, ContextLength: 100, TitleWeight: 1.0, IncludePageLevel: true}

	segments := buildSegments(page, "x", paras, params)
	require.Len(t, segments, 2)
	pageDoc := segments[1]
	require.Equal(t, true, pageDoc.Metadata["page_level"])
	require.Equal(t, -1, pageDoc.Metadata["paragraph_index"])
}

func TestPageLevelSegmentHashesLargeText(t *testing.T) {
	page := BookPage{BookID: 1, PageID: 1}
	big := strings.Repeat("x", maxInlinePageText+1)
	seg := pageLevelSegment(page, big)
	require.Less(t, len(seg.Text), len(big))
	require.Len(t, seg.Text, 64, "sha256 hex digest is 64 characters")
}
