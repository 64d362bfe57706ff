package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() Option {
	n := 0
	return WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db.json"), []string{"users"}, sequentialIDs())
	require.NoError(t, err)
	return s
}

func TestOpen_CreatesCollections(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	names, err := s.Resources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, names)

	users, err := s.List(ctx, "users")
	require.NoError(t, err)
	assert.Empty(t, users)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"users": []}`, string(data))
}

func TestOpen_KeepsExistingDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"users":[{"id":1,"firstName":"Ada"}],"posts":[]}`), 0o644))

	s, err := Open(path, []string{"users"})
	require.NoError(t, err)

	rec, err := s.Get(context.Background(), "users", "1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", rec["firstName"])

	names, err := s.Resources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"posts", "users"}, names)
}

func TestOpen_RejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))

	_, err := Open(path, []string{"users"})
	assert.ErrorContains(t, err, "parsing document")
}

func TestCRUD(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "users", Record{"id": "client-id", "firstName": "Jo"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", created.ID(), "client supplied id must be ignored")

	got, err := s.Get(ctx, "users", "id-1")
	require.NoError(t, err)
	assert.Equal(t, created, got)

	replaced, err := s.Replace(ctx, "users", "id-1", Record{"lastName": "Lee"})
	require.NoError(t, err)
	assert.Equal(t, Record{"id": "id-1", "lastName": "Lee"}, replaced)

	patched, err := s.Patch(ctx, "users", "id-1", Record{"id": "other", "email": "jo@x.com"})
	require.NoError(t, err)
	assert.Equal(t, Record{"id": "id-1", "lastName": "Lee", "email": "jo@x.com"}, patched)

	require.NoError(t, s.Delete(ctx, "users", "id-1"))
	_, err = s.Get(ctx, "users", "id-1")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestErrors(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, err := s.List(ctx, "posts")
	assert.ErrorIs(t, err, ErrResourceNotFound)

	_, err = s.Create(ctx, "posts", Record{})
	assert.ErrorIs(t, err, ErrResourceNotFound)

	assert.ErrorIs(t, s.Delete(ctx, "users", "missing"), ErrRecordNotFound)

	_, err = s.Replace(ctx, "users", "missing", Record{})
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestDelete_KeepsOrder(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.Create(ctx, "users", Record{"n": float64(i)})
		require.NoError(t, err)
	}

	require.NoError(t, s.Delete(ctx, "users", "id-2"))

	users, err := s.List(ctx, "users")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "id-1", users[0].ID())
	assert.Equal(t, "id-3", users[1].ID())
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	created, err := s.Create(ctx, "users", Record{"firstName": "Jo"})
	require.NoError(t, err)

	created["firstName"] = "changed"
	got, err := s.Get(ctx, "users", created.ID())
	require.NoError(t, err)
	assert.Equal(t, "Jo", got["firstName"])
}

func TestConcurrentCreates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	a, err := Open(path, []string{"users"})
	require.NoError(t, err)
	b, err := Open(path, []string{"users"})
	require.NoError(t, err)

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		s := a
		if i%2 == 1 {
			s = b
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(ctx, "users", Record{"firstName": "Jo"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	users, err := a.List(ctx, "users")
	require.NoError(t, err)
	assert.Len(t, users, 20)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string][]map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc["users"], 20)
}

func TestRecordID(t *testing.T) {
	assert.Equal(t, "7", Record{"id": float64(7)}.ID())
	assert.Equal(t, "1000000", Record{"id": float64(1000000)}.ID())
	assert.Equal(t, "2.5", Record{"id": 2.5}.ID())
	assert.Equal(t, "abc", Record{"id": "abc"}.ID())
	assert.Equal(t, "", Record{}.ID())
	assert.Equal(t, "", Record{"id": nil}.ID())
}

func TestNumericIDsAreReturnedAsStrings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"users":[{"id":1,"firstName":"Ada"},{"id":1000000,"firstName":"Bob"}]}`), 0o644))
	s, err := Open(path, []string{"users"})
	require.NoError(t, err)
	ctx := context.Background()

	users, err := s.List(ctx, "users")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "1", users[0]["id"])
	assert.Equal(t, "1000000", users[1]["id"])

	rec, err := s.Get(ctx, "users", "1000000")
	require.NoError(t, err)
	assert.Equal(t, "1000000", rec["id"])

	patched, err := s.Patch(ctx, "users", "1", Record{"firstName": "Augusta"})
	require.NoError(t, err)
	assert.Equal(t, "1", patched["id"])

	// The document itself keeps its numeric ids.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string][]map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, float64(1000000), doc["users"][1]["id"])
}
