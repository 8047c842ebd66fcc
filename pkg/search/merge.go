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

package search

// modelResults is one model's nearest-neighbour hits in submission
// order, as fed to roundRobinMerge.
type modelResults struct {
	modelID int64
	results []ResultDTO
}

// roundRobinMerge interleaves per-model result lists by rank depth,
// preserving submission order, deduplicating by DocumentID, and
// stopping at overallLimit — the explicit, deterministic algorithm
// spec.md §4.3/§9 requires (never a library shuffle).
//
// With a single model this reduces to taking its first overallLimit
// hits, since the outer depth loop visits that one model every round.
func roundRobinMerge(perModel []modelResults, overallLimit int) []ResultDTO {
	maxDepth := 0
	for _, m := range perModel {
		if len(m.results) > maxDepth {
			maxDepth = len(m.results)
		}
	}

	seen := make(map[string]bool)
	var merged []ResultDTO
	for depth := 0; depth < maxDepth && len(merged) < overallLimit; depth++ {
		for _, m := range perModel {
			if depth >= len(m.results) {
				continue
			}
			hit := m.results[depth]
			if seen[hit.DocumentID] {
				continue
			}
			seen[hit.DocumentID] = true
			merged = append(merged, hit)
			if len(merged) >= overallLimit {
				break
			}
		}
	}
	return merged
}
