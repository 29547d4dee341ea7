package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultJQL        = "order by created DESC"
	defaultMaxResults = 50
)

// JiraClient fetches issues from a Jira Cloud instance over the REST API.
type JiraClient struct {
	host       string
	auth       string
	jql        string
	httpClient *http.Client
}

// NewJiraClient creates a JiraClient for the given host using basic auth
// with an API token. jql may be empty; the default orders by creation time.
func NewJiraClient(host, email, apiToken, jql string) *JiraClient {
	if jql == "" {
		jql = defaultJQL
	}
	return &JiraClient{
		host:       strings.TrimRight(host, "/"),
		auth:       base64.StdEncoding.EncodeToString([]byte(email + ":" + apiToken)),
		jql:        jql,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// searchResponse mirrors the JSON returned by GET /rest/api/3/search.
type searchResponse struct {
	Issues []struct {
		Key    string `json:"key"`
		Fields struct {
			Summary     string          `json:"summary"`
			Description json.RawMessage `json:"description"`
			Status      *struct {
				Name string `json:"name"`
			} `json:"status"`
			Priority *struct {
				Name string `json:"name"`
			} `json:"priority"`
			Assignee *struct {
				DisplayName string `json:"displayName"`
			} `json:"assignee"`
			Created string `json:"created"`
		} `json:"fields"`
	} `json:"issues"`
}

// FetchAll returns the most recent issues matching the configured JQL.
func (c *JiraClient) FetchAll(ctx context.Context) ([]Raw, error) {
	q := url.Values{}
	q.Set("jql", c.jql)
	q.Set("maxResults", strconv.Itoa(defaultMaxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/rest/api/3/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+c.auth)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting issues: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jira search returned status %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	raws := make([]Raw, 0, len(sr.Issues))
	for _, issue := range sr.Issues {
		ji := &JiraIssue{
			Key:         issue.Key,
			Summary:     issue.Fields.Summary,
			Description: adfToText(issue.Fields.Description),
			Created:     issue.Fields.Created,
		}
		if issue.Fields.Status != nil {
			ji.Status = &issue.Fields.Status.Name
		}
		if issue.Fields.Priority != nil {
			ji.Priority = &issue.Fields.Priority.Name
		}
		if issue.Fields.Assignee != nil {
			ji.Assignee = &issue.Fields.Assignee.DisplayName
		}
		raws = append(raws, Raw{Kind: KindJira, Jira: ji})
	}
	return raws, nil
}

// adfNode is one node of an Atlassian Document Format tree. Only the text
// leaves matter here.
type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Content []adfNode `json:"content"`
}

// adfToText flattens an ADF description body to plain text. Descriptions
// may also arrive as a bare JSON string on older API versions.
func adfToText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}

	var root adfNode
	if err := json.Unmarshal(raw, &root); err != nil {
		return ""
	}

	var parts []string
	var walk func(n adfNode)
	walk = func(n adfNode) {
		if n.Type == "text" && n.Text != "" {
			parts = append(parts, n.Text)
		}
		for _, c := range n.Content {
			walk(c)
		}
	}
	walk(root)
	return strings.Join(parts, " ")
}
