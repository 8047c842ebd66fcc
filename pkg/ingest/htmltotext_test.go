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

func TestHTMLToTextSeparatesBlocksWithNewlines(t *testing.T) {
	text := htmlToText("<p>First paragraph</p><p>Second paragraph</p>")
	require.Contains(t, text, "First paragraph")
	require.Contains(t, text, "Second paragraph")
	require.True(t, strings.Index(text, "First paragraph") < strings.Index(text, "Second paragraph"))
}

func TestHTMLToTextCollapsesLongBlankRuns(t *testing.T) {
	text := htmlToText("<p>A</p><br><br><br><br><p>B</p>")
	require.NotContains(t, text, "\n\n\n")
}

func TestHTMLToTextEmptyInput(t *testing.T) {
	require.Equal(t, "", htmlToText(""))
}
