package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/u1/quota", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"userId":"u1","used":1,"remaining":1,"max":2}`))
	})
	mux.HandleFunc("/api/posts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			assert.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "@alice", r.FormValue("twitterUrl"))
			assert.Equal(t, "u1", r.FormValue("userId"))
			_, _ = w.Write([]byte(`{"message":"Post created successfully","post":{"_id":"p1"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"posts":[{"_id":"p1","twitterUrl":"@alice","imageUrl":"data:image/png;base64,AA==","createdAt":"2026-01-01T00:00:00Z"}],"totalPosts":1,"totalUsers":1}`))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestRun_Whoami(t *testing.T) {
	ts := fakeAPI(t)
	var out bytes.Buffer

	require.NoError(t, run([]string{"-server", ts.URL, "-user", "u1", "whoami"}, &out))
	assert.Contains(t, out.String(), "user: u1")
	assert.Contains(t, out.String(), "posts: 1/2 (1 remaining)")
}

func TestRun_Post(t *testing.T) {
	ts := fakeAPI(t)
	img := filepath.Join(t.TempDir(), "pic.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o600))

	var out bytes.Buffer
	err := run([]string{"-server", ts.URL, "-user", "u1", "post", "-image", img, "-handle", "https://x.com/alice"}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Post created successfully (p1)")
}

func TestRun_Feed(t *testing.T) {
	ts := fakeAPI(t)
	var out bytes.Buffer

	require.NoError(t, run([]string{"-server", ts.URL, "-user", "u1", "feed"}, &out))
	assert.Contains(t, out.String(), "1 posts from 1 users")
	assert.Contains(t, out.String(), "@alice")
}

func TestRun_Errors(t *testing.T) {
	ts := fakeAPI(t)
	var out bytes.Buffer

	assert.ErrorContains(t, run([]string{"-user", "u1"}, &out), "missing command")
	assert.ErrorContains(t, run([]string{"-user", "u1", "dance"}, &out), "unknown command")
	assert.ErrorContains(t, run([]string{"-server", ts.URL, "-user", "u1", "post", "-handle", "alice"}, &out), "Please fill in all fields")
}

func TestResolveUser_UsesIdentityFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.yml")

	first, err := resolveUser("", path)
	require.NoError(t, err)
	second, err := resolveUser("", path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	override, err := resolveUser(" mine ", path)
	require.NoError(t, err)
	assert.Equal(t, "mine", override)
}
