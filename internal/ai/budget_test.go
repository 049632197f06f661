package ai

import (
	"context"
	"testing"
)

func TestInMemoryBudget_NoBudgetSet(t *testing.T) {
	b := NewInMemoryBudget()

	ok, err := b.Check(context.Background(), "student1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !ok {
		t.Error("Check() = false, want true (no budget means unlimited)")
	}
}

func TestInMemoryBudget_WithinBudget(t *testing.T) {
	b := NewInMemoryBudget()
	b.SetBudget("student1", 1000)

	if err := b.Record(context.Background(), "student1", 500); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	ok, err := b.Check(context.Background(), "student1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !ok {
		t.Error("Check() = false, want true (500 < 1000)")
	}
}

func TestInMemoryBudget_Exhausted(t *testing.T) {
	b := NewInMemoryBudget()
	b.SetBudget("student1", 100)

	if err := b.Record(context.Background(), "student1", 100); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	ok, err := b.Check(context.Background(), "student1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if ok {
		t.Error("Check() = true, want false (100 >= 100, budget exhausted)")
	}
}

func TestInMemoryBudget_MultipleRecords(t *testing.T) {
	b := NewInMemoryBudget()
	b.SetBudget("student1", 1000)

	for _, tokens := range []int{100, 200, 300} {
		if err := b.Record(context.Background(), "student1", tokens); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	used, budget, err := b.Usage(context.Background(), "student1")
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if used != 600 {
		t.Errorf("used = %d, want 600", used)
	}
	if budget != 1000 {
		t.Errorf("budget = %d, want 1000", budget)
	}
}

func TestInMemoryBudget_NegativeTokens(t *testing.T) {
	b := NewInMemoryBudget()

	if err := b.Record(context.Background(), "student1", -10); err == nil {
		t.Fatal("Record() should return error for negative tokens")
	}
}

func TestInMemoryBudget_IsolatedStudents(t *testing.T) {
	b := NewInMemoryBudget()
	b.SetBudget("student1", 100)
	b.SetBudget("student2", 200)

	b.Record(context.Background(), "student1", 90)
	b.Record(context.Background(), "student2", 50)

	ok1, _ := b.Check(context.Background(), "student1")
	ok2, _ := b.Check(context.Background(), "student2")

	if !ok1 {
		t.Error("student1 should be within budget (90 < 100)")
	}
	if !ok2 {
		t.Error("student2 should be within budget (50 < 200)")
	}
}
