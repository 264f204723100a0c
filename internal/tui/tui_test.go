package tui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/Joseda-hg/taskmanager/internal/db"
	"github.com/Joseda-hg/taskmanager/internal/model"
	"github.com/Joseda-hg/taskmanager/internal/service"
)

func TestLoadAssignmentsUsesQuery(t *testing.T) {
	ui, cleanup := newTestUI(t)
	defer cleanup()

	ui.query.Title = "clean"
	if err := ui.loadAssignments(); err != nil {
		t.Fatalf("load assignments: %v", err)
	}
	if len(ui.items) != 3 {
		t.Fatalf("expected 3 clean assignments, got %d", len(ui.items))
	}
	for _, item := range ui.items {
		if !strings.Contains(strings.ToLower(item.Title), "clean") {
			t.Fatalf("unexpected title %q", item.Title)
		}
	}
}

func TestToggleCompletedShowsPolicyError(t *testing.T) {
	ui, cleanup := newTestUI(t)
	defer cleanup()

	// "Do homework" is user 1's only completed assignment and user 1 already has five open.
	ui.selected = 1
	if ui.items[1].Title != "Do homework" {
		t.Fatalf("unexpected selection %q", ui.items[1].Title)
	}
	if err := ui.toggleCompleted(nil, nil); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !strings.Contains(ui.status, "cannot add more") {
		t.Fatalf("expected policy message, got %q", ui.status)
	}
	if !ui.items[1].Completed {
		t.Fatalf("expected assignment to stay completed")
	}
}

func TestToggleCompletedMarksDone(t *testing.T) {
	ui, cleanup := newTestUI(t)
	defer cleanup()

	ui.selected = 0
	if err := ui.toggleCompleted(nil, nil); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if ui.status != "" {
		t.Fatalf("unexpected status %q", ui.status)
	}
	if !ui.items[0].Completed {
		t.Fatalf("expected first assignment to be completed")
	}
}

func TestPagingStopsAtLastPage(t *testing.T) {
	ui, cleanup := newTestUI(t)
	defer cleanup()

	ui.query.PageSize = 4
	if err := ui.loadAssignments(); err != nil {
		t.Fatalf("load: %v", err)
	}

	for range 2 {
		if err := ui.nextPage(nil, nil); err != nil {
			t.Fatalf("next page: %v", err)
		}
	}
	if ui.query.Page != 3 || len(ui.items) != 2 {
		t.Fatalf("expected page 3 with 2 items, got page %d with %d", ui.query.Page, len(ui.items))
	}

	if err := ui.nextPage(nil, nil); err != nil {
		t.Fatalf("next page: %v", err)
	}
	if ui.query.Page != 3 || ui.status != "last page" {
		t.Fatalf("expected to stay on page 3, got %d (%q)", ui.query.Page, ui.status)
	}

	if err := ui.prevPage(nil, nil); err != nil {
		t.Fatalf("prev page: %v", err)
	}
	if ui.query.Page != 2 || len(ui.items) != 4 {
		t.Fatalf("expected page 2 with 4 items, got page %d with %d", ui.query.Page, len(ui.items))
	}
}

func TestNextPageStepsBackFromEmptyPage(t *testing.T) {
	ui, cleanup := newTestUI(t)
	defer cleanup()

	if err := ui.nextPage(nil, nil); err != nil {
		t.Fatalf("next page: %v", err)
	}
	if ui.query.Page != 1 || len(ui.items) != 10 {
		t.Fatalf("expected to remain on full page 1, got page %d with %d", ui.query.Page, len(ui.items))
	}
}

func TestCycleSortAndOrder(t *testing.T) {
	ui, cleanup := newTestUI(t)
	defer cleanup()

	if err := ui.cycleSort(nil, nil); err != nil {
		t.Fatalf("cycle sort: %v", err)
	}
	if ui.query.Sort != string(model.SortByTitle) {
		t.Fatalf("expected title sort, got %q", ui.query.Sort)
	}
	if ui.items[0].Title != "Buy groceries" {
		t.Fatalf("expected Buy groceries first, got %q", ui.items[0].Title)
	}

	if err := ui.toggleOrder(nil, nil); err != nil {
		t.Fatalf("toggle order: %v", err)
	}
	if ui.items[0].Title != "Walk dog" {
		t.Fatalf("expected Walk dog first, got %q", ui.items[0].Title)
	}
	if sortLabel(ui.query) != "title desc" {
		t.Fatalf("unexpected label %q", sortLabel(ui.query))
	}
}

func TestSubmitFormCreatesAssignment(t *testing.T) {
	ui, cleanup := newTestUI(t)
	defer cleanup()

	ui.form = &formState{fields: buildFormFields()}
	ui.form.fields[fieldTitle].Value = "  Water plants "
	ui.form.fields[fieldUser].Value = "4"

	if err := ui.submitFormNow(nil, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ui.form != nil {
		t.Fatalf("expected form to close, status %q", ui.status)
	}

	ui.query.Title = "water"
	if err := ui.loadAssignments(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ui.items) != 1 || ui.items[0].Title != "Water plants" || ui.items[0].User != 4 {
		t.Fatalf("unexpected items %+v", ui.items)
	}
}

func TestSubmitFormKeepsFormOnInvalidInput(t *testing.T) {
	ui, cleanup := newTestUI(t)
	defer cleanup()

	ui.form = &formState{fields: buildFormFields()}
	ui.form.fields[fieldTitle].Value = "Something"
	ui.form.fields[fieldUser].Value = "abc"

	if err := ui.submitFormNow(nil, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ui.form == nil {
		t.Fatalf("expected form to stay open")
	}
	if ui.status != "invalid user" {
		t.Fatalf("unexpected status %q", ui.status)
	}
}

func TestFormatAssignmentSummary(t *testing.T) {
	got := formatAssignmentSummary(model.View{ID: 7, Title: "Walk dog", User: 3, Completed: true})
	if got != "[x] #7 Walk dog (user 3)" {
		t.Fatalf("unexpected summary %q", got)
	}
}

func newTestUI(t *testing.T) (*UI, func()) {
	t.Helper()
	store, err := db.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	intents := []model.CreateIntent{
		{Title: "Clean room", Completed: false, User: 1},
		{Title: "Do homework", Completed: true, User: 1},
		{Title: "Clean kitchen", Completed: false, User: 1},
		{Title: "Study math", Completed: false, User: 1},
		{Title: "Read book", Completed: false, User: 1},
		{Title: "Exercise", Completed: false, User: 1},
		{Title: "Cook dinner", Completed: true, User: 2},
		{Title: "Clean bathroom", Completed: false, User: 2},
		{Title: "Buy groceries", Completed: false, User: 3},
		{Title: "Walk dog", Completed: true, User: 3},
	}
	for _, intent := range intents {
		if _, err := store.Create(context.Background(), intent); err != nil {
			t.Fatalf("seed %q: %v", intent.Title, err)
		}
	}

	svc := service.New(store, service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	ui := newUI(svc)
	if err := ui.loadAssignments(); err != nil {
		t.Fatalf("load assignments: %v", err)
	}
	return ui, func() {
		_ = store.Close()
	}
}
