// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"regexp"
	"strconv"
)

// markerRe matches numeric citation markers like [1], [2], [12].
var markerRe = regexp.MustCompile(`\[(\d+)\]`)

// Markers returns the distinct citation indices referenced in text, in
// first-appearance order. It makes no validity check; callers resolve each
// index through Manager.Get to find markers that cite nothing.
func Markers(text string) []int {
	seen := make(map[int]bool)
	var indices []int
	for _, match := range markerRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		indices = append(indices, n)
	}
	return indices
}
