package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestUpdateInputJSON(t *testing.T) {
	var in UpdateTaskInput
	if err := json.Unmarshal([]byte(`{"title":"x","description":null}`), &in); err != nil {
		t.Fatal(err)
	}
	if in.Title == nil || *in.Title != "x" {
		t.Fatalf("title = %v", in.Title)
	}
	if !in.Description.Set || in.Description.Valid {
		t.Fatalf("description should be an explicit null: %+v", in.Description)
	}
	if in.DueDate.Set {
		t.Fatal("dueDate should be absent")
	}

	out, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(out), `{"title":"x","description":null}`; got != want {
		t.Fatalf("marshal = %s, want %s", got, want)
	}

	empty, _ := json.Marshal(UpdateTaskInput{})
	if string(empty) != "{}" {
		t.Fatalf("empty update marshalled to %s", empty)
	}
}

func TestUpdateInputApply(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	desc := "old"
	base := Task{ID: "t1", Title: "a", Description: &desc, Status: StatusTodo, Priority: PriorityLow, DueDate: &due}

	status := StatusDone
	got := UpdateTaskInput{Status: &status, Description: Null[string]()}.Apply(base)

	if got.Status != StatusDone {
		t.Errorf("status = %s", got.Status)
	}
	if got.Description != nil {
		t.Errorf("description = %v, want nil", *got.Description)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("due date should be untouched")
	}
	if base.Description == nil || *base.Description != "old" {
		t.Errorf("apply mutated its input")
	}
}

func TestMarkDeletedAndRestored(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	task := Task{ID: "t1", CreatedAt: created, UpdatedAt: created}

	at := created.Add(time.Hour)
	deleted := task.MarkDeleted("u2", at)
	if !deleted.IsDeleted() || *deleted.DeletedByID != "u2" || !deleted.UpdatedAt.Equal(at) {
		t.Fatalf("unexpected deleted task: %+v", deleted)
	}
	if task.IsDeleted() {
		t.Fatal("original task was modified")
	}

	restored := deleted.MarkRestored("u3", created)
	if restored.IsDeleted() || restored.DeletedByID != nil {
		t.Fatalf("restore left delete markers: %+v", restored)
	}
	if !restored.UpdatedAt.Equal(at) {
		t.Errorf("updatedAt moved backwards to %s", restored.UpdatedAt)
	}
	if restored.UpdatedByID != "u3" {
		t.Errorf("updatedById = %s", restored.UpdatedByID)
	}
}

func TestStatusNext(t *testing.T) {
	if StatusTodo.Next() != StatusDoing || StatusDone.Next() != StatusTodo {
		t.Fatal("status cycle is wrong")
	}
	if PriorityHigh.Next() != PriorityLow {
		t.Fatal("priority cycle is wrong")
	}
}
