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

package srt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	input := "1\n00:00:01,000 --> 00:00:04,500\nHello there\n\n2\n00:01:02,250 --> 00:01:05,000\nLine one\nLine two\n\n"

	cues, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, cues, 2)

	require.Equal(t, 1, cues[0].Index)
	require.Equal(t, time.Second, cues[0].Start)
	require.Equal(t, 4*time.Second+500*time.Millisecond, cues[0].End)
	require.Equal(t, []string{"Hello there"}, cues[0].Text)

	require.Equal(t, 2, cues[1].Index)
	require.Equal(t, []string{"Line one", "Line two"}, cues[1].Text)

	var out strings.Builder
	require.NoError(t, Write(&out, cues))
	require.Contains(t, out.String(), "00:00:01,000 --> 00:00:04,500")
	require.Contains(t, out.String(), "Line two")
}

func TestParseRejectsMalformedTimecode(t *testing.T) {
	_, err := Parse(strings.NewReader("1\nnot a timecode\ntext\n"))
	require.Error(t, err)
}

func TestWriteAssignsIndexWhenZero(t *testing.T) {
	var out strings.Builder
	err := Write(&out, []Cue{{Start: 0, End: time.Second, Text: []string{"hi"}}})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out.String(), "1\n"))
}
