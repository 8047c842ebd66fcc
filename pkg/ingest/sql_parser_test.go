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

func TestParseInsertLineDecodesEscapesAndColumns(t *testing.T) {
	line := `INSERT INTO ` + "`book_pages`" + ` VALUES (1,10,'Book One',2,'Section A',5,'<p>Hello\nWorld</p>','http://x','');`

	page, ok, err := parseInsertLine(line)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), page.RecordID)
	require.Equal(t, int64(10), page.BookID)
	require.Equal(t, "Book One", page.BookTitle)
	require.Equal(t, int64(2), page.SectionID)
	require.Equal(t, int64(5), page.PageID)
	require.Equal(t, "<p>Hello\nWorld</p>", page.PageTextHTML)
	require.Equal(t, "http://x", page.SourceLink)
	require.Equal(t, "", page.Error)
}

func TestParseInsertLineSkipsOtherTables(t *testing.T) {
	_, ok, err := parseInsertLine("INSERT INTO `other_table` VALUES (1,2,3);")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestParseInsertLineRejectsTooFewColumns(t *testing.T) {
	_, _, err := parseInsertLine("INSERT INTO `book_pages` VALUES (1,2,3);")
	require.Error(t, err)
}

func TestScanBookPagesSkipsBlankAndNonInsertLines(t *testing.T) {
	dump := strings.Join([]string{
		"-- dump header",
		"",
		"INSERT INTO `book_pages` VALUES (1,1,'A',1,'S',1,'<p>one</p>','','');",
		"INSERT INTO `book_pages` VALUES (2,1,'A',1,'S',2,'<p>two</p>','','');",
	}, "\n")

	var pages []BookPage
	err := ScanBookPages(strings.NewReader(dump), func(p BookPage) error {
		pages = append(pages, p)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, pages, 2)
	require.Equal(t, int64(1), pages[0].PageID)
	require.Equal(t, int64(2), pages[1].PageID)
}
