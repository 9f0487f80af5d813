// Copyright 2024 Haiku, Inc. All rights reserved.
// Distributed under the terms of the MIT License.

package gerrit_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lonemadmax/haiku-format-bot/gerrit"
)

func writeJSON(w http.ResponseWriter, body string) {
	fmt.Fprint(w, ")]}'\n", body)
}

func writeContent(w http.ResponseWriter, text string) {
	fmt.Fprint(w, base64.StdEncoding.EncodeToString([]byte(text)))
}

// newTestServer serves the slice of the Gerrit REST API the client exercises.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch path := r.URL.EscapedPath(); path {
		case "/changes/":
			if q := r.URL.Query().Get("q"); q == "change:5692" {
				writeJSON(w, `[{"id":"haiku~dev%2Fnetservices~I0dadd1","_number":5692,"current_revision":"701299b"}]`)
			} else if q == "change:19000" {
				writeJSON(w, `[]`)
			} else {
				writeJSON(w, `[]`)
			}
		case "/changes/test/revisions/current/files":
			writeJSON(w, `{"/COMMIT_MSG":{"status":"A"},"src/deleted":{"status":"D"},"src/modified":{}}`)
		case "/changes/test/revisions/current/files/%2FCOMMIT_MSG/content":
			if r.URL.Query().Has("parent") {
				t.Error("Base contents requested for an added file")
			}
			writeContent(w, "COMMIT_MSG line 1\nCOMMIT_MSG line 2\n")
		case "/changes/test/revisions/current/files/src%2Fdeleted/content":
			if !r.URL.Query().Has("parent") {
				t.Error("Patched contents requested for a deleted file")
			}
			writeContent(w, "deleted line 1\n")
		case "/changes/test/revisions/current/files/src%2Fmodified/content":
			if r.URL.Query().Has("parent") {
				writeContent(w, "modified base\n")
			} else {
				writeContent(w, "modified patch\n")
			}
		case "/a/changes/test/revisions/current/review",
			"/a/changes/test/revisions/custom/review":
			user, pass, ok := r.BasicAuth()
			if !ok || user != "bot" || pass != "secret" {
				t.Errorf("BasicAuth: got %q/%q, ok=%v", user, pass, ok)
			}
			var review gerrit.ReviewInput
			if err := json.NewDecoder(r.Body).Decode(&review); err != nil {
				t.Errorf("Decoding review: %v", err)
			}
			if review.Tag != gerrit.ReviewTag {
				t.Errorf("Review tag: got %q, want %q", review.Tag, gerrit.ReviewTag)
			}
			writeJSON(w, `{}`)
		case "/a/changes/test/hashtags":
			writeJSON(w, `["add1","add2","existing"]`)
		default:
			t.Errorf("Unexpected request: %s", path)
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T) *gerrit.Client {
	t.Helper()
	srv := newTestServer(t)
	c, err := gerrit.NewClient(context.Background(), srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestClientProbe(t *testing.T) {
	// A URL that does not answer with the XSSI marker is rejected.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not gerrit</html>")
	}))
	defer srv.Close()
	if _, err := gerrit.NewClient(context.Background(), srv.URL, srv.Client()); err == nil {
		t.Error("NewClient: got nil, want error for a non-Gerrit endpoint")
	}
}

func TestChangeFromNumber(t *testing.T) {
	c := newTestClient(t)
	id, revision, err := c.ChangeFromNumber(context.Background(), 5692)
	if err != nil {
		t.Fatalf("ChangeFromNumber failed: %v", err)
	}
	if want := "haiku~dev%2Fnetservices~I0dadd1"; id != want {
		t.Errorf("ID: got %q, want %q", id, want)
	}
	if want := "701299b"; revision != want {
		t.Errorf("Revision: got %q, want %q", revision, want)
	}

	if _, _, err := c.ChangeFromNumber(context.Background(), 19000); err == nil {
		t.Error("ChangeFromNumber(19000): got nil, want error for no results")
	}
}

func TestGetChange(t *testing.T) {
	c := newTestClient(t)
	change, err := c.GetChange(context.Background(), "test")
	if err != nil {
		t.Fatalf("GetChange failed: %v", err)
	}

	want := []*gerrit.File{
		{
			Filename:      "/COMMIT_MSG",
			PatchContents: []string{"COMMIT_MSG line 1\n", "COMMIT_MSG line 2\n"},
		},
		{
			Filename:     "src/deleted",
			BaseContents: []string{"deleted line 1\n"},
		},
		{
			Filename:      "src/modified",
			BaseContents:  []string{"modified base\n"},
			PatchContents: []string{"modified patch\n"},
		},
	}
	if diff := cmp.Diff(want, change.Files); diff != "" {
		t.Errorf("Files: (-want, +got)\n%s", diff)
	}
}

func TestPublishReview(t *testing.T) {
	t.Setenv("GERRIT_USERNAME", "bot")
	t.Setenv("GERRIT_PASSWORD", "secret")

	c := newTestClient(t)
	review := gerrit.ReviewInput{Message: "test_publish_review", Tag: gerrit.ReviewTag}
	if err := c.PublishReview(context.Background(), "test", review, ""); err != nil {
		t.Errorf("PublishReview failed: %v", err)
	}
	if err := c.PublishReview(context.Background(), "test", review, "custom"); err != nil {
		t.Errorf("PublishReview (custom revision) failed: %v", err)
	}
}

func TestPublishReviewAuth(t *testing.T) {
	t.Setenv("GERRIT_USERNAME", "bot")
	// Only one of the two credentials present is an error. Setenv first so
	// the original value is restored after the test.
	t.Setenv("GERRIT_PASSWORD", "secret")
	os.Unsetenv("GERRIT_PASSWORD")
	c := newTestClient(t)
	err := c.PublishReview(context.Background(), "test", gerrit.ReviewInput{Tag: gerrit.ReviewTag}, "")
	if err == nil {
		t.Error("PublishReview: got nil, want error for missing credentials")
	}
}

func TestSetHashtags(t *testing.T) {
	t.Setenv("GERRIT_USERNAME", "bot")
	t.Setenv("GERRIT_PASSWORD", "secret")

	c := newTestClient(t)
	tags, err := c.SetHashtags(context.Background(), "test", gerrit.HashtagsInput{Add: []string{"add1", "add2"}})
	if err != nil {
		t.Fatalf("SetHashtags failed: %v", err)
	}
	want := []string{"add1", "add2", "existing"}
	if diff := cmp.Diff(want, tags); diff != "" {
		t.Errorf("Hashtags: (-want, +got)\n%s", diff)
	}
}
