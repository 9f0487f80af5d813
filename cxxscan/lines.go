// Copyright 2024 Haiku, Inc. All rights reserved.
// Distributed under the terms of the MIT License.

package cxxscan

import "io"

// ClassLines returns the 1-based numbers of all lines that fall inside a
// class or struct definition body in r: for each definition, the lines
// strictly between the keyword line and the closing-brace line. The result
// is in increasing order.
//
// haiku-format does not yet reproduce the column layout of class contents,
// so reformat suggestions for these lines are suppressed downstream.
func ClassLines(r io.Reader) ([]int, error) {
	l := NewLocator(r)
	var lines []int
	for l.Next() {
		m := l.Match()
		if m.Kind != Definition {
			continue
		}
		for ln := m.StartLine + 1; ln < m.BodyEnd; ln++ {
			lines = append(lines, ln)
		}
	}
	return lines, l.Err()
}
