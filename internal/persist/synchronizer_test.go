package persist

import (
	"context"
	"errors"
	"testing"

	"blockdesk/internal/blocks"
	"blockdesk/internal/collection"
	"blockdesk/internal/editor"
	"blockdesk/internal/models"
	"blockdesk/internal/store"
)

func newSync(t *testing.T) (*Synchronizer, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return New(mem, blocks.NewCodec(blocks.ModeStrict), collection.ReorderSplice, 4), mem
}

// seedArticle stores an article with one text block per heading, at the
// given raw positions.
func seedArticle(t *testing.T, mem *store.Memory, positions ...int) string {
	t.Helper()
	ctx := context.Background()
	art, err := mem.Insert(ctx, store.TableArticles, store.Row{"title": "A", "slug": "a", "revision": 1})
	if err != nil {
		t.Fatalf("insert article: %v", err)
	}
	id := art[0]["id"].(string)
	for _, pos := range positions {
		if _, err := mem.Insert(ctx, store.TableArticleBlocks, store.Row{
			"article_id": id, "kind": "text", "position": pos, "payload": map[string]any{"heading": "h"},
		}); err != nil {
			t.Fatalf("insert block: %v", err)
		}
	}
	return id
}

func openArticle(t *testing.T, sy *Synchronizer, id string) *editor.Session {
	t.Helper()
	parent, items, err := sy.LoadArticle(context.Background(), id)
	if err != nil {
		t.Fatalf("LoadArticle: %v", err)
	}
	s := editor.New(sy.Codec(), sy.Mode())
	s.Open(parent, items, nil)
	return s
}

func storedPositions(t *testing.T, mem *store.Memory, articleID string) []int {
	t.Helper()
	rows, err := mem.Select(context.Background(), store.TableArticleBlocks,
		store.Filter{"article_id": articleID}, store.Asc("position"))
	if err != nil {
		t.Fatalf("select blocks: %v", err)
	}
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r["position"].(int)
	}
	return out
}

func TestCommitAllRenumbers(t *testing.T) {
	sy, mem := newSync(t)
	id := seedArticle(t, mem, 3, 7, 7, 20)
	s := openArticle(t, sy, id)

	first := s.Items()[0].ID
	if err := s.DeleteItem(first); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if _, err := s.AddItem(models.KindVideo); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	if err := sy.CommitAll(context.Background(), s); err != nil {
		t.Fatalf("CommitAll: %v", err)
	}

	got := storedPositions(t, mem, id)
	want := []int{0, 1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("positions: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("positions: got %v, want %v", got, want)
			break
		}
	}

	if s.State != editor.StateReady {
		t.Errorf("state: got %s", s.State)
	}
	for _, it := range s.Items() {
		if it.IsDraft() {
			t.Errorf("item %s still has a draft id after save", it.ID)
		}
		if it.ID == first {
			t.Errorf("deleted item %s came back", first)
		}
	}
	if s.Parent.Revision != 2 {
		t.Errorf("article revision: got %d, want 2", s.Parent.Revision)
	}
}

func TestCommitAllEmptyCollection(t *testing.T) {
	sy, mem := newSync(t)
	id := seedArticle(t, mem, 0, 1, 2)
	s := openArticle(t, sy, id)

	for _, it := range s.Items() {
		s.DeleteItem(it.ID)
	}
	if err := sy.CommitAll(context.Background(), s); err != nil {
		t.Fatalf("CommitAll: %v", err)
	}
	if n, _ := mem.Count(context.Background(), store.TableArticleBlocks, store.Filter{"article_id": id}); n != 0 {
		t.Errorf("child rows: got %d, want 0", n)
	}
}

func TestCommitAllRollsBack(t *testing.T) {
	sy, mem := newSync(t)
	id := seedArticle(t, mem, 0, 1, 2)
	s := openArticle(t, sy, id)
	s.SetParentField("title", "Changed")

	unavailable := errors.New("backend unavailable")
	mem.Fault = func(op store.Op, table string) error {
		if op == store.OpInsert && table == store.TableArticleBlocks {
			return unavailable
		}
		return nil
	}

	err := sy.CommitAll(context.Background(), s)
	if !errors.Is(err, unavailable) {
		t.Fatalf("CommitAll: got %v, want injected fault", err)
	}
	mem.Fault = nil

	ctx := context.Background()
	if n, _ := mem.Count(ctx, store.TableArticleBlocks, store.Filter{"article_id": id}); n != 3 {
		t.Errorf("blocks after failed save: got %d, want 3", n)
	}
	row, _ := store.SelectOne(ctx, mem, store.TableArticles, store.Filter{"id": id})
	if row["title"] != "A" {
		t.Errorf("title after failed save: got %v", row["title"])
	}
	if s.State != editor.StateReady || s.LastError == "" {
		t.Errorf("session: state=%s lastError=%q", s.State, s.LastError)
	}
	if s.Parent.String("title") != "Changed" || len(s.Items()) != 3 {
		t.Error("failed save must keep the working copy")
	}
}

func TestCommitAllStaleRevision(t *testing.T) {
	sy, mem := newSync(t)
	id := seedArticle(t, mem, 0)
	a := openArticle(t, sy, id)
	b := openArticle(t, sy, id)

	if err := sy.CommitAll(context.Background(), a); err != nil {
		t.Fatalf("first CommitAll: %v", err)
	}
	if err := sy.CommitAll(context.Background(), b); !errors.Is(err, ErrConflict) {
		t.Errorf("stale CommitAll: got %v, want ErrConflict", err)
	}
}

func TestCommitAllNewArticle(t *testing.T) {
	sy, mem := newSync(t)
	ctx := context.Background()
	mem.Insert(ctx, store.TableArticles, store.Row{"title": "Taken", "slug": "hello-world"})

	s := editor.New(sy.Codec(), sy.Mode())
	s.Open(models.Parent{Kind: models.ParentArticle, Fields: map[string]any{"title": "Hello World"}}, nil, nil)
	if _, err := s.AddItem(models.KindText); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	if err := sy.CommitAll(ctx, s); err != nil {
		t.Fatalf("CommitAll: %v", err)
	}
	if s.Parent.IsNew() {
		t.Fatal("parent should have an id after save")
	}
	if s.Parent.String("slug") != "hello-world-2" {
		t.Errorf("slug: got %q", s.Parent.String("slug"))
	}
	items := s.Items()
	if len(items) != 1 || items[0].ParentID != s.Parent.ID {
		t.Errorf("items: got %+v", items)
	}
}

func TestCommitAllRejectsInvalidPayload(t *testing.T) {
	sy, mem := newSync(t)
	id := seedArticle(t, mem, 0)
	s := openArticle(t, sy, id)

	// Payloads loaded from the backend bypass UpdateItem's checks.
	bad := s.Items()[0]
	bad.Payload["alignment"] = "sideways"
	s.Collection().Replace(bad)

	var verr *blocks.ValidationError
	if err := sy.CommitAll(context.Background(), s); !errors.As(err, &verr) {
		t.Errorf("got %v, want ValidationError", err)
	}
}

func TestApplyPatch(t *testing.T) {
	sy, mem := newSync(t)
	ctx := context.Background()
	id := seedArticle(t, mem, 0, 1)
	_, items, _ := sy.LoadArticle(ctx, id)

	p := PatchFromItems(store.TableArticleBlocks, []models.Item{
		{ID: items[0].ID, Revision: items[0].Revision, Position: 1},
		{ID: items[1].ID, Revision: items[1].Revision, Position: 0},
	})
	if err := sy.ApplyPatch(ctx, p); err != nil {
		t.Fatalf("ApplyPatch: %v", err)
	}

	_, after, _ := sy.LoadArticle(ctx, id)
	if after[0].ID != items[1].ID || after[0].Revision != items[1].Revision+1 {
		t.Errorf("after patch: got %+v", after)
	}
}

func TestApplyPatchPartialFailure(t *testing.T) {
	sy, mem := newSync(t)
	ctx := context.Background()
	id := seedArticle(t, mem, 0, 1)
	_, items, _ := sy.LoadArticle(ctx, id)

	p := Patch{Table: store.TableArticleBlocks, Changes: []Change{
		{ID: items[0].ID, Revision: items[0].Revision, Fields: store.Row{"position": 5}},
		{ID: items[1].ID, Revision: items[1].Revision + 3, Fields: store.Row{"position": 6}},
		{ID: "00000000-0000-0000-0000-000000000000", Revision: 0, Fields: store.Row{"position": 7}},
	}}
	err := sy.ApplyPatch(ctx, p)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("got %v, want ErrConflict", err)
	}
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound joined", err)
	}

	got := storedPositions(t, mem, id)
	if len(got) != 2 || got[0] != 1 || got[1] != 5 {
		t.Errorf("first change should still apply, positions: %v", got)
	}
}

func TestApplyPatchEmpty(t *testing.T) {
	sy, _ := newSync(t)
	if err := sy.ApplyPatch(context.Background(), Patch{Table: store.TableArticleBlocks}); err != nil {
		t.Errorf("empty patch: %v", err)
	}
}

func TestArticlesCRUD(t *testing.T) {
	sy, _ := newSync(t)
	ctx := context.Background()

	a, err := sy.CreateArticle(ctx, "First Post")
	if err != nil {
		t.Fatalf("CreateArticle: %v", err)
	}
	if a.Slug != "first-post" || a.Status != models.ArticleStatusDraft {
		t.Errorf("article: got %+v", a)
	}
	sy.CreateArticle(ctx, "First Post")

	list, total, err := sy.ListArticles(ctx, 1, 0)
	if err != nil {
		t.Fatalf("ListArticles: %v", err)
	}
	if total != 2 || len(list) != 1 {
		t.Errorf("list: got %d of %d", len(list), total)
	}
	if _, _, err := sy.ListArticles(ctx, 10, 50); err != nil {
		t.Errorf("offset past end: %v", err)
	}

	if err := sy.DeleteArticle(ctx, a.ID); err != nil {
		t.Fatalf("DeleteArticle: %v", err)
	}
	if err := sy.DeleteArticle(ctx, a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
	if _, _, err := sy.LoadArticle(ctx, a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("load deleted: got %v", err)
	}
}

func TestListArticlesPagesCoverAll(t *testing.T) {
	sy, _ := newSync(t)
	ctx := context.Background()
	for _, title := range []string{"One", "Two", "Three", "Four", "Five"} {
		if _, err := sy.CreateArticle(ctx, title); err != nil {
			t.Fatalf("CreateArticle %s: %v", title, err)
		}
	}

	seen := map[string]bool{}
	for offset := 0; offset < 6; offset += 2 {
		page, total, err := sy.ListArticles(ctx, 2, offset)
		if err != nil {
			t.Fatalf("ListArticles offset %d: %v", offset, err)
		}
		if total != 5 {
			t.Errorf("offset %d: total %d, want 5", offset, total)
		}
		want := min(2, 5-offset)
		if len(page) != want {
			t.Errorf("offset %d: got %d articles, want %d", offset, len(page), want)
		}
		for _, a := range page {
			if seen[a.ID] {
				t.Errorf("article %s on two pages", a.ID)
			}
			seen[a.ID] = true
		}
	}
	if len(seen) != 5 {
		t.Errorf("pages covered %d articles, want 5", len(seen))
	}

	page, total, err := sy.ListArticles(ctx, 10, 50)
	if err != nil || total != 5 || len(page) != 0 {
		t.Errorf("offset past end: got %d of %d, err %v", len(page), total, err)
	}
}
