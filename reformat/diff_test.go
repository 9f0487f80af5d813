// Copyright 2024 Haiku, Inc. All rights reserved.
// Distributed under the terms of the MIT License.

package reformat_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lonemadmax/haiku-format-bot/reformat"
)

const jamDiff = `--- a/Jamfile
+++ b/Jamfile
@@ -4 +3,0 @@ SubDirHdrs $(subdir) ;
-UsePrivateHeaders net ;
@@ -42,0 +42 @@ SharedLibrary libnet.so :
+	dns.cpp
@@ -64 +64 @@ StaticLibrary libnetapi.a :
-	NetAddress.cpp
+	NetworkAddress.cpp
@@ -84,3 +84,3 @@ Package haiku :
-	libnet.so
-	libnetapi.a
-	libsocket.so
+	libnetwork.so
+	libnetworkapi.a
+	libbind.so
@@ -92 +92,5 @@ SubInclude HAIKU_TOP src kits network ;
-SubInclude HAIKU_TOP src tests ;
+SubInclude HAIKU_TOP src tests kits ;
+SubInclude HAIKU_TOP src tests servers ;
+SubInclude HAIKU_TOP src tests system ;
+SubInclude HAIKU_TOP src tests add-ons ;
+SubInclude HAIKU_TOP src tests misc ;
@@ -107,2 +111 @@ rule ArchitectureSetup
-	# together.
-	local unsupported ;
+	local obsolete ;
--- a/Jamrules
+++ b/Jamrules
@@ -12,0 +13 @@ include [ FDirName $(HAIKU_TOP) build jam BuildSetup ] ;
+include [ FDirName $(HAIKU_TOP) build jam NetworkSetup ] ;
`

func TestParseDiffSegments(t *testing.T) {
	segments, err := reformat.ParseDiffSegments(strings.NewReader(jamDiff))
	if err != nil {
		t.Fatalf("ParseDiffSegments failed: %v", err)
	}
	want := map[string][]reformat.DiffSegment{
		"Jamfile": {
			{AStart: 4, AEnd: 4, BStart: 3, BEnd: 0},
			{AStart: 42, AEnd: 0, BStart: 42, BEnd: 42},
			{AStart: 64, AEnd: 64, BStart: 64, BEnd: 64},
			{AStart: 84, AEnd: 86, BStart: 84, BEnd: 86},
			{AStart: 92, AEnd: 92, BStart: 92, BEnd: 96},
			{AStart: 107, AEnd: 108, BStart: 111, BEnd: 111},
		},
		"Jamrules": {
			{AStart: 12, AEnd: 0, BStart: 13, BEnd: 13},
		},
	}
	if diff := cmp.Diff(want, segments); diff != "" {
		t.Errorf("Segments: (-want, +got)\n%s", diff)
	}
}

func TestParseDiffSegmentsEmpty(t *testing.T) {
	segments, err := reformat.ParseDiffSegments(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ParseDiffSegments failed: %v", err)
	}
	if len(segments) != 0 {
		t.Errorf("Segments: got %v, want none", segments)
	}
}

func TestParseDiffSegmentsNoHeader(t *testing.T) {
	// Hunks without a preceding filename header have nothing to attach to.
	segments, err := reformat.ParseDiffSegments(strings.NewReader("@@ -1 +1 @@\n-a\n+b\n"))
	if err != nil {
		t.Fatalf("ParseDiffSegments failed: %v", err)
	}
	if len(segments) != 0 {
		t.Errorf("Segments: got %v, want none", segments)
	}
}
