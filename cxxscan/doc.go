// Copyright 2024 Haiku, Inc. All rights reserved.
// Distributed under the terms of the MIT License.

// Package cxxscan locates class and struct declarations and definitions in
// C++ source text.
//
// The package is not a C++ parser. It is a line-oriented lexical heuristic:
// it matches the literal keywords "class" and "struct", skips comments and
// string and character literals verbatim, and tracks brace depth to find
// the end of a definition body. The trade-off is a narrow detection window.
// A keyword with its identifier on the next line, or a blank line between
// the identifier and the opening brace, yields no match at all.
//
// # Scanning
//
// The Locator type drives a scan. Construct one from an io.Reader and call
// Next to advance to each match in turn; the input is consumed lazily, only
// as far as needed for the next match:
//
//	l := cxxscan.NewLocator(input)
//	for l.Next() {
//		m := l.Match()
//		fmt.Printf("%s %s at line %d\n", m.Keyword, m.Kind, m.StartLine)
//	}
//	if l.Err() != nil {
//		log.Fatalf("Scan failed: %v", l.Err())
//	}
//
// Matches are reported in order of their starting line. Err reports nil
// after a complete scan; a scan that ends inside an unterminated comment,
// literal, or definition body fails with a *ScanError naming the position
// where the unclosed construct began.
//
// Each Locator owns all of its state, so independent inputs may be scanned
// concurrently with one Locator per input and no synchronization.
package cxxscan
