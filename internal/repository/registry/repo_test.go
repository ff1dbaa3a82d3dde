package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	dbfile "github.com/osamaatef1/rag-service/internal/db/file"
	"github.com/osamaatef1/rag-service/internal/domain"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	store, err := dbfile.NewStore(dbfile.Config{Path: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	return New(store)
}

func testDoc(id string, createdAt time.Time) domain.Document {
	return domain.Document{
		ID:         id,
		Collection: "documents",
		SourceType: domain.SourceText,
		Metadata:   domain.Metadata{"source": id + ".txt"},
		CreatedAt:  createdAt,
		ChunkCount: 3,
	}
}

func TestPutGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	want := testDoc("d1", created)
	if err := repo.Put(ctx, want); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Get(ctx, "documents", "d1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "d1" || got.Collection != "documents" {
		t.Errorf("identity: %+v", got)
	}
	if got.SourceType != domain.SourceText {
		t.Errorf("source type: %q", got.SourceType)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created at: %v, want %v", got.CreatedAt, created)
	}
	if got.ChunkCount != 3 {
		t.Errorf("chunk count: %d", got.ChunkCount)
	}
	if got.Metadata["source"] != "d1.txt" {
		t.Errorf("metadata: %v", got.Metadata)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Get(context.Background(), "documents", "absent")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestExists(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Put(ctx, testDoc("d1", time.Now())); err != nil {
		t.Fatal(err)
	}

	ok, err := repo.Exists(ctx, "documents", "d1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("d1 should exist")
	}

	ok, err = repo.Exists(ctx, "documents", "absent")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("absent should not exist")
	}
}

func TestList_OrderAndPagination(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	// d-old is oldest, d-new is newest; d-tie-a and d-tie-b share a
	// timestamp and must order by ID.
	docs := []domain.Document{
		testDoc("d-old", base),
		testDoc("d-new", base.Add(2*time.Hour)),
		testDoc("d-tie-b", base.Add(time.Hour)),
		testDoc("d-tie-a", base.Add(time.Hour)),
	}
	for _, d := range docs {
		if err := repo.Put(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	got, total, err := repo.List(ctx, "documents", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 {
		t.Errorf("total = %d, want 4", total)
	}
	want := []string{"d-new", "d-tie-a", "d-tie-b", "d-old"}
	if len(got) != len(want) {
		t.Fatalf("got %d docs", len(got))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, got[i].ID, want[i])
		}
	}

	page, total, err := repo.List(ctx, "documents", 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 {
		t.Errorf("paged total = %d, want 4", total)
	}
	if len(page) != 2 || page[0].ID != "d-tie-a" || page[1].ID != "d-tie-b" {
		t.Errorf("page: %+v", page)
	}

	// Offset past the end yields an empty page but the real total.
	empty, total, err := repo.List(ctx, "documents", 10, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 || total != 4 {
		t.Errorf("overshoot: %d docs, total %d", len(empty), total)
	}
}

func TestList_EmptyCollection(t *testing.T) {
	repo := newTestRepo(t)

	docs, total, err := repo.List(context.Background(), "documents", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 || total != 0 {
		t.Errorf("got %d docs, total %d", len(docs), total)
	}
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Put(ctx, testDoc("d1", time.Now())); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, "documents", "d1"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Get(ctx, "documents", "d1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("after delete: %v", err)
	}

	// Deleting a missing entry is a no-op.
	if err := repo.Delete(ctx, "documents", "absent"); err != nil {
		t.Errorf("delete absent: %v", err)
	}
}

func TestCount(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := repo.Put(ctx, testDoc(id, time.Now())); err != nil {
			t.Fatal(err)
		}
	}
	n, err := repo.Count(ctx, "documents")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}

	n, err = repo.Count(ctx, "other")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("other collection count = %d", n)
	}
}
