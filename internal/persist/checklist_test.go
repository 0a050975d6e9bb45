package persist

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"blockdesk/internal/blocks"
	"blockdesk/internal/collection"
	"blockdesk/internal/editor"
	"blockdesk/internal/models"
	"blockdesk/internal/store"
)

func seededChecklist(t *testing.T) (*Synchronizer, *collection.Collection) {
	t.Helper()
	sy, mem := newSync(t)
	if err := store.Seed(context.Background(), mem); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	c, err := sy.Checklist(context.Background(), store.SeedBoard)
	if err != nil {
		t.Fatalf("Checklist: %v", err)
	}
	return sy, c
}

func tasks(c *collection.Collection, category string) []string {
	var out []string
	for _, it := range c.Group(category) {
		out = append(out, it.Payload["task"].(string))
	}
	return out
}

func TestLoadChecklistOrder(t *testing.T) {
	_, c := seededChecklist(t)
	cats := c.Categories()
	if len(cats) != 3 || cats[0] != "Legal" || cats[1] != "Shop" || cats[2] != "Content" {
		t.Errorf("categories: got %v", cats)
	}
	if got := tasks(c, "Legal"); len(got) != 3 || got[0] != "Publish privacy policy" {
		t.Errorf("Legal: got %v", got)
	}
}

func TestToggleTask(t *testing.T) {
	sy, c := seededChecklist(t)
	ctx := context.Background()
	actor := uuid.NewString()
	id := c.Group("Shop")[0].ID

	c, err := sy.ToggleTask(ctx, store.SeedBoard, id, true, actor)
	if err != nil {
		t.Fatalf("ToggleTask: %v", err)
	}
	it, _ := c.Find(id)
	if it.Payload["completed"] != true || it.Payload["completed_by"] != actor || it.Payload["completed_at"] == nil {
		t.Errorf("completed task: got %v", it.Payload)
	}
	if it.Revision != 1 {
		t.Errorf("revision: got %d, want 1", it.Revision)
	}

	c, err = sy.ToggleTask(ctx, store.SeedBoard, id, false, actor)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	it, _ = c.Find(id)
	if it.Payload["completed"] != false || it.Payload["completed_by"] != nil || it.Payload["completed_at"] != nil {
		t.Errorf("reopened task: got %v", it.Payload)
	}
}

func TestEditNotes(t *testing.T) {
	sy, c := seededChecklist(t)
	id := c.Group("Legal")[1].ID

	c, err := sy.EditNotes(context.Background(), store.SeedBoard, id, "ask the lawyer")
	if err != nil {
		t.Fatalf("EditNotes: %v", err)
	}
	it, _ := c.Find(id)
	if it.Payload["notes"] != "ask the lawyer" || it.Payload["task"] != "Configure cookie consent" {
		t.Errorf("payload: got %v", it.Payload)
	}

	if _, err := sy.EditNotes(context.Background(), store.SeedBoard, "missing", "x"); !errors.Is(err, collection.ErrItemNotFound) {
		t.Errorf("missing task: got %v", err)
	}
}

func TestAddTask(t *testing.T) {
	sy, _ := seededChecklist(t)
	ctx := context.Background()
	week := 4

	c, err := sy.AddTask(ctx, store.SeedBoard, "Shop", "Set tax rates", &week)
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	group := c.Group("Shop")
	last := group[len(group)-1]
	if last.Payload["task"] != "Set tax rates" || last.Position != 2 || last.Payload["week"] != 4 {
		t.Errorf("added task: got %+v", last)
	}

	c, err = sy.AddTask(ctx, store.SeedBoard, "Marketing", "Plan launch mail", nil)
	if err != nil {
		t.Fatalf("AddTask new category: %v", err)
	}
	cats := c.Categories()
	if cats[len(cats)-1] != "Marketing" {
		t.Errorf("new category should be last: got %v", cats)
	}

	if _, err := sy.AddTask(ctx, store.SeedBoard, "", "x", nil); err == nil {
		t.Error("expected error for empty category")
	}
}

func TestDeleteTaskClosesGap(t *testing.T) {
	sy, c := seededChecklist(t)
	id := c.Group("Legal")[0].ID

	c, err := sy.DeleteTask(context.Background(), store.SeedBoard, id)
	if err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	group := c.Group("Legal")
	if len(group) != 2 {
		t.Fatalf("Legal: got %d tasks", len(group))
	}
	for i, it := range group {
		if it.Position != i {
			t.Errorf("task %d position: got %d", i, it.Position)
		}
	}
}

func TestReorderTasks(t *testing.T) {
	sy, c := seededChecklist(t)
	legal := c.Group("Legal")

	c, err := sy.ReorderTasks(context.Background(), store.SeedBoard, legal[2].ID, legal[0].ID)
	if err != nil {
		t.Fatalf("ReorderTasks: %v", err)
	}
	got := tasks(c, "Legal")
	want := []string{"Review terms of sale", "Publish privacy policy", "Configure cookie consent"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Legal: got %v, want %v", got, want)
		}
	}

	shop := c.Group("Shop")
	if _, err := sy.ReorderTasks(context.Background(), store.SeedBoard, legal[0].ID, shop[0].ID); !errors.Is(err, collection.ErrScopeMismatch) {
		t.Errorf("cross-category reorder: got %v", err)
	}
}

func TestMoveTaskAppendsAtDestination(t *testing.T) {
	sy, c := seededChecklist(t)
	id := c.Group("Legal")[0].ID

	c, err := sy.MoveTask(context.Background(), store.SeedBoard, id, "Content")
	if err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	content := c.Group("Content")
	if len(content) != 3 || content[2].ID != id || content[2].Position != 2 {
		t.Errorf("Content: got %+v", content)
	}
	for i, it := range c.Group("Legal") {
		if it.Position != i {
			t.Errorf("Legal not renumbered: %d at %d", it.Position, i)
		}
	}

	if _, err := sy.MoveTask(context.Background(), store.SeedBoard, id, "Nowhere"); !errors.Is(err, collection.ErrCategoryNotFound) {
		t.Errorf("unknown category: got %v", err)
	}
}

func TestSwapCategoriesKeepsRanks(t *testing.T) {
	sy, c := seededChecklist(t)
	legal := c.Group("Legal")
	shop := c.Group("Shop")

	c, err := sy.SwapCategories(context.Background(), store.SeedBoard, "Legal", "Shop")
	if err != nil {
		t.Fatalf("SwapCategories: %v", err)
	}
	for k, it := range c.Group("Shop") {
		if it.ID != legal[k].ID {
			t.Errorf("Shop rank %d: got %s, want %s", k, it.ID, legal[k].ID)
		}
	}
	for k, it := range c.Group("Legal") {
		if it.ID != shop[k].ID {
			t.Errorf("Legal rank %d: got %s, want %s", k, it.ID, shop[k].ID)
		}
	}
	if cats := c.Categories(); cats[0] != "Legal" || cats[1] != "Shop" {
		t.Errorf("heading order changed: %v", cats)
	}
}

func TestMoveCategoryPersists(t *testing.T) {
	sy, _ := seededChecklist(t)
	ctx := context.Background()

	if _, err := sy.MoveCategory(ctx, store.SeedBoard, "Content", true); err != nil {
		t.Fatalf("MoveCategory: %v", err)
	}
	c, _ := sy.Checklist(ctx, store.SeedBoard)
	if cats := c.Categories(); cats[0] != "Legal" || cats[1] != "Content" || cats[2] != "Shop" {
		t.Errorf("order: got %v", cats)
	}
	if _, err := sy.MoveCategory(ctx, store.SeedBoard, "Ghost", false); !errors.Is(err, collection.ErrCategoryNotFound) {
		t.Errorf("unknown category: got %v", err)
	}
}

func TestCommitAllChecklistSession(t *testing.T) {
	sy, _ := seededChecklist(t)
	ctx := context.Background()

	parent, items, order, err := sy.LoadChecklist(ctx, store.SeedBoard)
	if err != nil {
		t.Fatalf("LoadChecklist: %v", err)
	}
	s := editor.New(sy.Codec(), sy.Mode())
	s.Open(parent, items, order)
	if _, err := s.AddItemIn("Ops", models.KindTask); err != nil {
		t.Fatalf("AddItemIn: %v", err)
	}
	s.MoveCategoryUp("Ops")

	if err := sy.CommitAll(ctx, s); err != nil {
		t.Fatalf("CommitAll: %v", err)
	}
	cats := s.Categories()
	if len(cats) != 4 || cats[2] != "Ops" {
		t.Errorf("categories after save: got %v", cats)
	}
	if got := len(s.Items()); got != 8 {
		t.Errorf("items after save: got %d, want 8", got)
	}
}

func TestCommitAllChecklistKeepsConcurrentToggle(t *testing.T) {
	sy, _ := seededChecklist(t)
	ctx := context.Background()

	parent, items, order, err := sy.LoadChecklist(ctx, store.SeedBoard)
	if err != nil {
		t.Fatalf("LoadChecklist: %v", err)
	}
	s := editor.New(sy.Codec(), sy.Mode())
	s.Open(parent, items, order)
	if _, err := s.AddItemIn("Ops", models.KindTask); err != nil {
		t.Fatalf("AddItemIn: %v", err)
	}

	c, _ := sy.Checklist(ctx, store.SeedBoard)
	id := c.Group("Shop")[0].ID
	if _, err := sy.ToggleTask(ctx, store.SeedBoard, id, true, ""); err != nil {
		t.Fatalf("ToggleTask: %v", err)
	}

	if err := sy.CommitAll(ctx, s); !errors.Is(err, ErrConflict) {
		t.Fatalf("CommitAll over a newer task: got %v, want ErrConflict", err)
	}

	c, _ = sy.Checklist(ctx, store.SeedBoard)
	it, _ := c.Find(id)
	if it.Payload["completed"] != true {
		t.Errorf("concurrent toggle was reverted: %v", it.Payload)
	}
	if cats := c.Categories(); len(cats) != 3 {
		t.Errorf("failed commit changed categories: %v", cats)
	}
	if len(s.Items()) != 8 {
		t.Errorf("working copy: got %d items, want 8", len(s.Items()))
	}
}

func TestCommitAllChecklistRemovedTask(t *testing.T) {
	sy, _ := seededChecklist(t)
	ctx := context.Background()

	parent, items, order, _ := sy.LoadChecklist(ctx, store.SeedBoard)
	s := editor.New(sy.Codec(), sy.Mode())
	s.Open(parent, items, order)

	if _, err := sy.DeleteTask(ctx, store.SeedBoard, items[0].ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if err := sy.CommitAll(ctx, s); !errors.Is(err, ErrConflict) {
		t.Errorf("CommitAll with a removed task: got %v, want ErrConflict", err)
	}
}

func TestTaskExtraFieldsSurviveSave(t *testing.T) {
	sy, c := seededChecklist(t)
	ctx := context.Background()
	id := c.Group("Legal")[0].ID

	c, err := sy.UpdateTask(ctx, store.SeedBoard, id, models.Payload{"priority": "high"}, "")
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	it, _ := c.Find(id)
	if it.Payload["priority"] != "high" || it.Payload["task"] != "Publish privacy policy" {
		t.Fatalf("after update: got %v", it.Payload)
	}

	parent, items, order, _ := sy.LoadChecklist(ctx, store.SeedBoard)
	s := editor.New(sy.Codec(), sy.Mode())
	s.Open(parent, items, order)
	if err := sy.CommitAll(ctx, s); err != nil {
		t.Fatalf("CommitAll: %v", err)
	}
	for _, it := range s.Items() {
		if it.ID == id && it.Payload["priority"] != "high" {
			t.Errorf("extra field lost on save: %v", it.Payload)
		}
	}
}

func TestUpdateTaskRejectsNullNotes(t *testing.T) {
	sy, c := seededChecklist(t)
	id := c.Group("Legal")[0].ID

	var verr *blocks.ValidationError
	if _, err := sy.UpdateTask(context.Background(), store.SeedBoard, id, models.Payload{"notes": nil}, ""); !errors.As(err, &verr) {
		t.Errorf("got %v, want ValidationError", err)
	}
}
