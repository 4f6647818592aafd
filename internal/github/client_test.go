package github_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ghclient "github.com/sevigo/diff-scout/internal/github"
)

// newTestClient creates a Client backed by the given httptest handler.
func newTestClient(t *testing.T, handler http.Handler) ghclient.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := ghclient.NewClientWithHTTPClient(server.Client(), server.URL+"/", logger)
	require.NoError(t, err)

	return client
}

func TestGetPullRequestDiff(t *testing.T) {
	const diff = "diff --git a/main.go b/main.go\n+package main\n"

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/rocket/pulls/42", r.URL.Path)
		assert.Contains(t, r.Header.Get("Accept"), "diff")
		fmt.Fprint(w, diff)
	}))

	got, err := client.GetPullRequestDiff(context.Background(), "acme", "rocket", 42)
	require.NoError(t, err)
	assert.Equal(t, diff, got)
}

func TestGetChangedFilesPagination(t *testing.T) {
	var pagesServed int

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/rocket/pulls/42/files", r.URL.Path)
		pagesServed++

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", fmt.Sprintf(`<http://%s%s?page=2>; rel="next", <http://%s%s?page=2>; rel="last"`,
				r.Host, r.URL.Path, r.Host, r.URL.Path))
			fmt.Fprint(w, `[{"filename":"a.go","patch":"@@ -1 +1 @@"}]`)
		case "2":
			fmt.Fprint(w, `[{"filename":"b.go"}]`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})

	client := newTestClient(t, handler)

	files, err := client.GetChangedFiles(context.Background(), "acme", "rocket", 42)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, 2, pagesServed)
	assert.Equal(t, "a.go", files[0].Filename)
	assert.Equal(t, "@@ -1 +1 @@", files[0].Patch)
	assert.Equal(t, "b.go", files[1].Filename)
	assert.Empty(t, files[1].Patch)
}

func TestGetRepoConfig(t *testing.T) {
	t.Run("present at ref", func(t *testing.T) {
		content := base64.StdEncoding.EncodeToString([]byte("exclude_dirs: [\"dist\"]\n"))

		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/repos/acme/rocket/contents/.diff-scout.yml", r.URL.Path)
			assert.Equal(t, "abc1234", r.URL.Query().Get("ref"))

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{
				"type":     "file",
				"encoding": "base64",
				"name":     ".diff-scout.yml",
				"content":  content,
			})
		}))

		cfg, err := client.GetRepoConfig(context.Background(), "acme", "rocket", "abc1234")
		require.NoError(t, err)
		assert.Equal(t, []string{"dist"}, cfg.ExcludeDirs)
	})

	t.Run("absent falls back to defaults", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"Not Found"}`)
		}))

		cfg, err := client.GetRepoConfig(context.Background(), "acme", "rocket", "abc1234")
		require.NoError(t, err)
		assert.Empty(t, cfg.ExcludeDirs)
		assert.Empty(t, cfg.CustomInstructions)
	})
}

func TestCreateComment(t *testing.T) {
	var posted struct {
		Body string `json:"body"`
	}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/acme/rocket/issues/42/comments", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":1}`)
	}))

	err := client.CreateComment(context.Background(), "acme", "rocket", 42, "review body")
	require.NoError(t, err)
	assert.Equal(t, "review body", posted.Body)
}
