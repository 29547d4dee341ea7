package source

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
)

const jiraSearchBody = `{
	"issues": [
		{
			"key": "PROJ-1",
			"fields": {
				"summary": "Login broken",
				"description": {
					"type": "doc",
					"content": [
						{"type": "paragraph", "content": [
							{"type": "text", "text": "Users cannot"},
							{"type": "text", "text": "sign in"}
						]}
					]
				},
				"status": {"name": "Open"},
				"priority": {"name": "High"},
				"assignee": {"displayName": "Dana"},
				"created": "2024-03-01T10:00:00.000+0000"
			}
		},
		{
			"key": "PROJ-2",
			"fields": {
				"summary": "Legacy issue",
				"description": "plain string description",
				"status": null,
				"priority": null,
				"assignee": null
			}
		}
	]
}`

func TestJiraFetchAll(t *testing.T) {
	var gotAuth, gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("jql")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(jiraSearchBody))
	}))
	defer srv.Close()

	client := NewJiraClient(srv.URL, "me@example.com", "token123", "")
	raws, err := client.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll() error: %v", err)
	}

	if gotPath != "/rest/api/3/search" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "order by created DESC" {
		t.Errorf("jql = %q, want default", gotQuery)
	}
	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("me@example.com:token123"))
	if gotAuth != wantAuth {
		t.Errorf("auth = %q, want %q", gotAuth, wantAuth)
	}

	if len(raws) != 2 {
		t.Fatalf("got %d raws, want 2", len(raws))
	}

	first := raws[0].Jira
	if first == nil || raws[0].Kind != KindJira {
		t.Fatalf("raw[0] = %+v, want jira payload", raws[0])
	}
	if first.Key != "PROJ-1" {
		t.Errorf("Key = %q", first.Key)
	}
	if first.Description != "Users cannot sign in" {
		t.Errorf("Description = %q, want flattened ADF text", first.Description)
	}
	if first.Status == nil || *first.Status != "Open" {
		t.Errorf("Status = %v", first.Status)
	}
	if first.Assignee == nil || *first.Assignee != "Dana" {
		t.Errorf("Assignee = %v", first.Assignee)
	}

	second := raws[1].Jira
	if second.Description != "plain string description" {
		t.Errorf("Description = %q, want bare string passthrough", second.Description)
	}
	if second.Status != nil || second.Priority != nil || second.Assignee != nil {
		t.Errorf("null fields should stay absent, got %+v", second)
	}
}

func TestJiraFetchAllServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewJiraClient(srv.URL, "me@example.com", "bad", "")
	if _, err := client.FetchAll(context.Background()); err == nil {
		t.Fatal("FetchAll() should fail on non-200 response")
	}
}
