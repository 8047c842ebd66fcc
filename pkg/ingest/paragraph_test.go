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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitParagraphsCollapsesWhitespaceAndCountsLines(t *testing.T) {
	text := "Line one\nLine two\n\nSecond para"
	paras := splitParagraphs(text, DefaultTitleHeuristic())
	require.Len(t, paras, 2)
	require.Equal(t, "Line one Line two", paras[0].Text)
	require.Equal(t, 2, paras[0].LineCount)
	require.Equal(t, "Second para", paras[1].Text)
	require.Equal(t, 1, paras[1].LineCount)
}

func TestLooksLikeTitleShortBlock(t *testing.T) {
	h := DefaultTitleHeuristic()
	require.True(t, h.looksLikeTitle("Chapter One"))
	require.True(t, h.looksLikeTitle("The summary of everything discussed in this long section of the book:"))
	require.False(t, h.looksLikeTitle("This is an ordinary sentence of body text that runs long enough to not look like a title at all"))
}

func TestMergeShortParagraphsBuffersUntilThreshold(t *testing.T) {
	paras := []Paragraph{
		{Text: "a", LineCount: 1, Sources: []int{0}},
		{Text: "b", LineCount: 1, Sources: []int{1}},
		{Text: "Heading", LineCount: 1, IsTitle: true, Sources: []int{2}},
		{Text: "c", LineCount: 1, Sources: []int{3}},
	}
	merged := mergeShortParagraphs(paras, 2)
	require.Len(t, merged, 3)
	require.Equal(t, "a\nb", merged[0].Text)
	require.Equal(t, []int{0, 1}, merged[0].Sources)
	require.Equal(t, "Heading", merged[1].Text)
	require.True(t, merged[1].IsTitle)
	require.Equal(t, "c", merged[2].Text, "trailing short buffer still flushes even under threshold")
}
