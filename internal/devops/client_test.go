package devops

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_UpdateField_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/org/project-1/_apis/wit/workitems/42", r.URL.Path)
		assert.Equal(t, "7.0", r.URL.Query().Get("api-version"))
		assert.Equal(t, "application/json-patch+json", r.Header.Get("Content-Type"))

		wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte(":test-pat"))
		assert.Equal(t, wantAuth, r.Header.Get("Authorization"))

		var ops []map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ops))
		assert.Equal(t, []map[string]string{{
			"op":    "add",
			"path":  "/fields/Custom.TranslatedDescription",
			"value": "Hello World",
		}}, ops)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id": 42}`))
	}))
	defer server.Close()

	client, err := New("test-pat", "", server.Client(), nil)
	require.NoError(t, err)

	err = client.UpdateField(context.Background(), UpdateCommand{
		OrganizationURL: server.URL + "/org/",
		ProjectID:       "project-1",
		WorkItemID:      42,
		Field:           "Custom.TranslatedDescription",
		Value:           "Hello World",
	})
	assert.NoError(t, err)
}

func TestClient_UpdateField_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantMsg string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantMsg: "access denied"},
		{name: "forbidden", status: http.StatusForbidden, wantMsg: "access denied"},
		{name: "not found", status: http.StatusNotFound, wantMsg: "not found"},
		{name: "server error", status: http.StatusInternalServerError, wantMsg: "devops API error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("boom"))
			}))
			defer server.Close()

			client, err := New("test-pat", "7.0", server.Client(), nil)
			require.NoError(t, err)

			err = client.UpdateField(context.Background(), UpdateCommand{
				OrganizationURL: server.URL,
				ProjectID:       "p",
				WorkItemID:      7,
				Field:           "Custom.T",
				Value:           "x",
			})

			var updateErr *UpdateError
			require.True(t, errors.As(err, &updateErr))
			assert.Equal(t, tt.status, updateErr.StatusCode)
			assert.Equal(t, 7, updateErr.WorkItemID)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestClient_UpdateField_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	orgURL := server.URL
	server.Close()

	client, err := New("test-pat", "7.0", nil, nil)
	require.NoError(t, err)

	err = client.UpdateField(context.Background(), UpdateCommand{OrganizationURL: orgURL, ProjectID: "p", WorkItemID: 1, Field: "F", Value: "v"})
	var updateErr *UpdateError
	require.True(t, errors.As(err, &updateErr))
	assert.Zero(t, updateErr.StatusCode)
	assert.NotNil(t, updateErr.Err)
}

func TestClient_UpdateField_EmptyOrganization(t *testing.T) {
	client, err := New("test-pat", "7.0", nil, nil)
	require.NoError(t, err)

	err = client.UpdateField(context.Background(), UpdateCommand{WorkItemID: 1, Field: "F", Value: "v"})
	var updateErr *UpdateError
	assert.True(t, errors.As(err, &updateErr))
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New("", "7.0", nil, nil)
	assert.Error(t, err)
}

func TestClient_CheckAccessibility(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/org/_apis/projects", r.URL.Path)
		if _, pat, ok := r.BasicAuth(); !ok || pat != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"count": 1, "value": []}`))
	}))
	defer server.Close()

	good, err := New("good", "7.0", server.Client(), nil)
	require.NoError(t, err)
	assert.NoError(t, good.CheckAccessibility(context.Background(), server.URL+"/org"))

	bad, err := New("bad", "7.0", server.Client(), nil)
	require.NoError(t, err)
	err = bad.CheckAccessibility(context.Background(), server.URL+"/org")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
