// Copyright 2024 Haiku, Inc. All rights reserved.
// Distributed under the terms of the MIT License.

// Package gerrit is a minimal client for the slice of the Gerrit REST API
// that the formatting bot uses: fetching the files of a change's current
// revision, posting reviews, and editing hashtags.
package gerrit

import (
	"bytes"
	"cmp"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
)

// ReviewTag marks the reviews posted by the bot so Gerrit can filter them.
const ReviewTag = "autogenerated:experimental-formatting-bot"

// xssiPrefix guards all Gerrit JSON responses against cross-site script
// inclusion and must be stripped before decoding.
const xssiPrefix = ")]}'"

// A Client talks to one Gerrit instance.
type Client struct {
	base string // base URL, with trailing slash
	hc   *http.Client

	user, pass string // cached credentials for authenticated requests
}

// NewClient constructs a client for the Gerrit instance at baseURL and
// verifies that the URL answers like one. If hc is nil, the default HTTP
// client is used.
func NewClient(ctx context.Context, baseURL string, hc *http.Client) (*Client, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	c := &Client{base: baseURL, hc: hc}
	body, err := c.get(ctx, "changes/", nil)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(body, []byte(xssiPrefix)) {
		return nil, fmt.Errorf("invalid response from %s: content does not start with the XSSI marker", baseURL)
	}
	return c, nil
}

// A ChangeInfo is the summary Gerrit returns for a change query.
type ChangeInfo struct {
	ID              string   `json:"id"`
	Number          int      `json:"_number"`
	Subject         string   `json:"subject"`
	CurrentRevision string   `json:"current_revision"`
	Hashtags        []string `json:"hashtags"`
}

// QueryChanges runs a Gerrit change query (for example "status:open") and
// returns the matching changes with their current revision populated.
func (c *Client) QueryChanges(ctx context.Context, query string, limit int) ([]ChangeInfo, error) {
	params := url.Values{"q": {query}, "o": {"CURRENT_REVISION"}}
	if limit > 0 {
		params.Set("n", fmt.Sprint(limit))
	}
	var changes []ChangeInfo
	if err := c.getJSON(ctx, "changes/", params, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}

// ChangeFromNumber resolves a change number to the change ID and current
// revision needed by the other endpoints.
func (c *Client) ChangeFromNumber(ctx context.Context, number int) (id, revision string, _ error) {
	changes, err := c.QueryChanges(ctx, fmt.Sprintf("change:%d", number), 0)
	if err != nil {
		return "", "", err
	}
	if len(changes) == 0 {
		return "", "", fmt.Errorf("no change found with number %d", number)
	}
	return changes[0].ID, changes[0].CurrentRevision, nil
}

// GetChange fetches the files of the current revision of a change,
// including their base and patched contents. Files are returned in
// lexicographic filename order.
func (c *Client) GetChange(ctx context.Context, changeID string) (*Change, error) {
	revision := "changes/" + changeID + "/revisions/current/"
	var infos map[string]struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, revision+"files", nil, &infos); err != nil {
		return nil, err
	}

	change := &Change{ID: changeID, Revision: "current"}
	for _, filename := range slices.Sorted(maps.Keys(infos)) {
		// No status means the file is modified in place.
		status := cmp.Or(infos[filename].Status, "M")
		content := revision + "files/" + url.PathEscape(filename) + "/content"
		f := &File{Filename: filename}
		if status != "D" {
			lines, err := c.getContent(ctx, content, nil)
			if err != nil {
				return nil, err
			}
			f.PatchContents = lines
		}
		if status != "A" && status != "C" && status != "R" {
			lines, err := c.getContent(ctx, content, url.Values{"parent": {"1"}})
			if err != nil {
				return nil, err
			}
			f.BaseContents = lines
		}
		change.Files = append(change.Files, f)
	}
	return change, nil
}

// PublishReview posts a review on the given revision of a change. An empty
// revision means the current one.
func (c *Client) PublishReview(ctx context.Context, changeID string, review ReviewInput, revision string) error {
	if revision == "" {
		revision = "current"
	}
	return c.post(ctx, "a/changes/"+changeID+"/revisions/"+revision+"/review", review, nil)
}

// SetHashtags applies the hashtag modifications to a change and returns the
// resulting set of hashtags.
func (c *Client) SetHashtags(ctx context.Context, changeID string, mods HashtagsInput) ([]string, error) {
	var tags []string
	if err := c.post(ctx, "a/changes/"+changeID+"/hashtags", mods, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// auth returns the credentials for authenticated requests, reading
// GERRIT_USERNAME and GERRIT_PASSWORD from the environment on first use.
// Once read, the values stick for the lifetime of the client.
func (c *Client) auth() (user, pass string, _ error) {
	if c.user != "" {
		return c.user, c.pass, nil
	}
	user, uok := os.LookupEnv("GERRIT_USERNAME")
	pass, pok := os.LookupEnv("GERRIT_PASSWORD")
	if !uok || !pok {
		return "", "", errors.New("GERRIT_USERNAME and GERRIT_PASSWORD must both be set in the environment")
	}
	c.user, c.pass = user, pass
	return user, pass, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.base + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("invalid response from %s: %d (expected 200)", u, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v any) error {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return err
	}
	data, ok := bytes.CutPrefix(body, []byte(xssiPrefix))
	if !ok {
		return fmt.Errorf("response from %s does not start with the XSSI marker", c.base+path)
	}
	return json.Unmarshal(data, v)
}

// getContent fetches a file content endpoint, which serves the contents
// base64-encoded rather than as JSON.
func (c *Client) getContent(ctx context.Context, path string, params url.Values) ([]string, error) {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("decoding content from %s: %w", c.base+path, err)
	}
	return SplitLines(string(decoded)), nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	user, pass, err := c.auth()
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	u := c.base + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(user, pass)
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("invalid response from %s: %d (expected 200)", u, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	stripped, ok := bytes.CutPrefix(body, []byte(xssiPrefix))
	if !ok {
		return fmt.Errorf("response from %s does not start with the XSSI marker", u)
	}
	return json.Unmarshal(stripped, out)
}
