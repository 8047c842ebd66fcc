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

func TestDecodeSQLStringHandlesNullAndEmpty(t *testing.T) {
	require.Equal(t, "", decodeSQLString("NULL"))
	require.Equal(t, "", decodeSQLString(""))
}

func TestDecodeSQLStringUnescapesCommonSequences(t *testing.T) {
	require.Equal(t, "line one\nline two", decodeSQLString(`line one\nline two`))
	require.Equal(t, "a\tb", decodeSQLString(`a\tb`))
	require.Equal(t, `quote"here`, decodeSQLString(`quote\"here`))
	require.Equal(t, `back\slash`, decodeSQLString(`back\\slash`))
}

func TestDecodeSQLStringUnicodeEscape(t *testing.T) {
	require.Equal(t, "café", decodeSQLString("caf\\u00e9"))
}

func TestDecodeSQLStringHexEscape(t *testing.T) {
	require.Equal(t, "AB", decodeSQLString(`\x41\x42`))
}

func TestDecodeSQLStringPreservesNonASCII(t *testing.T) {
	persian := "سلام دنیا"
	require.Equal(t, persian, decodeSQLString(persian))
}
