package editor

import (
	"context"
	"errors"
	"testing"
	"time"

	"blockdesk/internal/blocks"
	"blockdesk/internal/collection"
	"blockdesk/internal/models"
)

func articleSession(t *testing.T, mode collection.ReorderMode) *Session {
	t.Helper()
	s := New(nil, mode)
	s.Open(models.Parent{ID: "art", Kind: models.ParentArticle, Fields: map[string]any{"title": "T"}},
		[]models.Item{
			{ID: "a", ParentID: "art", Kind: models.KindText, Position: 0, Payload: models.Payload{"heading": "A"}},
			{ID: "b", ParentID: "art", Kind: models.KindText, Position: 1, Payload: models.Payload{}},
			{ID: "c", ParentID: "art", Kind: models.KindButton, Position: 2, Payload: models.Payload{}},
		}, nil)
	return s
}

func ids(items []models.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestNewSessionIsLoading(t *testing.T) {
	s := New(nil, collection.ReorderSplice)
	if s.State != StateLoading {
		t.Fatalf("state: got %s, want loading", s.State)
	}
	if _, err := s.AddItem(models.KindText); !errors.Is(err, ErrNotReady) {
		t.Errorf("AddItem while loading: got %v, want ErrNotReady", err)
	}
}

func TestAddItemUsesDefaults(t *testing.T) {
	s := articleSession(t, collection.ReorderSplice)

	it, err := s.AddItem(models.KindButton)
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if !it.IsDraft() || it.Position != 3 || it.ParentID != "art" {
		t.Errorf("item: got %+v", it)
	}
	if it.Payload["style"] != "primary" {
		t.Errorf("payload: got %v", it.Payload)
	}
	if got := len(s.Items()); got != 4 {
		t.Errorf("items: got %d, want 4", got)
	}
}

func TestAddItemRejectsForeignKind(t *testing.T) {
	s := articleSession(t, collection.ReorderSplice)
	if _, err := s.AddItem(models.KindTask); !errors.Is(err, ErrKindNotAllowed) {
		t.Errorf("task in article: got %v", err)
	}

	cl := New(nil, collection.ReorderSplice)
	cl.Open(models.Parent{ID: "launch", Kind: models.ParentChecklist}, nil, nil)
	if _, err := cl.AddItemIn("Legal", models.KindText); !errors.Is(err, ErrKindNotAllowed) {
		t.Errorf("text in checklist: got %v", err)
	}
	it, err := cl.AddItemIn("Legal", models.KindTask)
	if err != nil || it.ParentID != "Legal" {
		t.Errorf("task in checklist: got %+v, %v", it, err)
	}
}

func TestUpdateItemPatchSequence(t *testing.T) {
	s := articleSession(t, collection.ReorderSplice)

	if _, err := s.UpdateItem("a", models.Payload{"content": "<p>x</p>"}); err != nil {
		t.Fatalf("first update: %v", err)
	}
	it, err := s.UpdateItem("a", models.Payload{"alignment": "center"})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	want := map[string]any{"heading": "A", "content": "<p>x</p>", "alignment": "center"}
	for k, v := range want {
		if it.Payload[k] != v {
			t.Errorf("payload[%s]: got %v, want %v", k, it.Payload[k], v)
		}
	}
}

func TestUpdateItemInvalidLeavesItem(t *testing.T) {
	s := articleSession(t, collection.ReorderSplice)

	_, err := s.UpdateItem("a", models.Payload{"alignment": "diagonal"})
	var verr *blocks.ValidationError
	if !errors.As(err, &verr) || verr.Field != "alignment" {
		t.Fatalf("got %v, want ValidationError on alignment", err)
	}
	it, _ := s.Collection().Find("a")
	if _, ok := it.Payload["alignment"]; ok {
		t.Error("invalid delta was applied")
	}

	if _, err := s.UpdateItem("missing", models.Payload{}); !errors.Is(err, collection.ErrItemNotFound) {
		t.Errorf("missing: got %v", err)
	}
}

func TestDeleteAndReorder(t *testing.T) {
	s := articleSession(t, collection.ReorderSplice)

	if _, err := s.ReorderItem("c", "a"); err != nil {
		t.Fatalf("ReorderItem: %v", err)
	}
	if got := ids(s.Items()); got[0] != "c" || got[1] != "a" || got[2] != "b" {
		t.Errorf("after splice: got %v", got)
	}
	if err := s.DeleteItem("a"); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if got := ids(s.Items()); len(got) != 2 || got[0] != "c" || got[1] != "b" {
		t.Errorf("after delete: got %v", got)
	}
}

func TestSetParentField(t *testing.T) {
	s := articleSession(t, collection.ReorderSplice)
	if err := s.SetParentField("title", "New"); err != nil {
		t.Fatalf("SetParentField: %v", err)
	}
	if s.Parent.String("title") != "New" {
		t.Errorf("title: got %q", s.Parent.String("title"))
	}
	if err := s.SetParentField("author", "x"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("unknown field: got %v", err)
	}
}

func TestSaveLifecycle(t *testing.T) {
	s := articleSession(t, collection.ReorderSplice)

	if err := s.BeginSave(); err != nil {
		t.Fatalf("BeginSave: %v", err)
	}
	if s.State != StateSaving {
		t.Fatalf("state: got %s", s.State)
	}
	if err := s.BeginSave(); !errors.Is(err, ErrNotReady) {
		t.Errorf("double BeginSave: got %v", err)
	}
	if err := s.DeleteItem("a"); !errors.Is(err, ErrNotReady) {
		t.Errorf("edit while saving: got %v", err)
	}

	s.EndSave(models.Parent{}, nil, nil, errors.New("backend unavailable"))
	if s.State != StateReady || s.LastError != "backend unavailable" {
		t.Errorf("after failed save: state=%s err=%q", s.State, s.LastError)
	}
	if len(s.Items()) != 3 {
		t.Errorf("failed save must keep the working copy, got %d items", len(s.Items()))
	}

	s.BeginSave()
	stored := []models.Item{{ID: "x", ParentID: "art", Kind: models.KindText, Position: 0}}
	s.EndSave(models.Parent{ID: "art", Kind: models.ParentArticle, Revision: 2}, stored, nil, nil)
	if s.State != StateReady || s.LastError != "" || s.Parent.Revision != 2 {
		t.Errorf("after save: state=%s err=%q rev=%d", s.State, s.LastError, s.Parent.Revision)
	}
	if got := ids(s.Items()); len(got) != 1 || got[0] != "x" {
		t.Errorf("rehydrated items: got %v", got)
	}
}

func TestMoveCategory(t *testing.T) {
	s := New(nil, collection.ReorderSplice)
	s.Open(models.Parent{ID: "launch", Kind: models.ParentChecklist}, []models.Item{
		{ID: "1", ParentID: "Legal", Kind: models.KindTask},
		{ID: "2", ParentID: "Shop", Kind: models.KindTask},
	}, []string{"Legal", "Shop"})

	order, err := s.MoveCategoryDown("Legal")
	if err != nil {
		t.Fatalf("MoveCategoryDown: %v", err)
	}
	if order[0] != "Shop" || order[1] != "Legal" {
		t.Errorf("order: got %v", order)
	}
	if got := ids(s.Items()); got[0] != "2" {
		t.Errorf("items follow category order: got %v", got)
	}
	if _, err := s.MoveCategoryUp("Nope"); !errors.Is(err, collection.ErrCategoryNotFound) {
		t.Errorf("unknown category: got %v", err)
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := articleSession(t, collection.ReorderSwap)
	s.UpdateItem("b", models.Payload{"heading": "B"})

	r := Restore(s.Snapshot(), nil)
	if r.ID != s.ID || r.State != StateReady || r.Mode() != collection.ReorderSwap {
		t.Errorf("restored header: id=%s state=%s mode=%s", r.ID, r.State, r.Mode())
	}
	it, ok := r.Collection().Find("b")
	if !ok || it.Payload["heading"] != "B" {
		t.Errorf("restored item: got %+v", it)
	}
}

func TestMemoryRegistry(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry(time.Minute)
	s := articleSession(t, collection.ReorderSplice)

	got, err := reg.Get(ctx, s.ID)
	if err != nil || got != nil {
		t.Fatalf("Get before Put: got %v, %v", got, err)
	}
	if err := reg.Put(ctx, s.Snapshot()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	s.DeleteItem("a")

	got, err = reg.Get(ctx, s.ID)
	if err != nil || got == nil {
		t.Fatalf("Get: got %v, %v", got, err)
	}
	if len(got.Items) != 3 {
		t.Errorf("registry copy changed with the session: got %d items", len(got.Items))
	}

	reg.Delete(ctx, s.ID)
	if got, _ := reg.Get(ctx, s.ID); got != nil {
		t.Error("Get after Delete should miss")
	}
}
