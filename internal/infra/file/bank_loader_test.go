package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gameshow-quiz-service/internal/domain"
)

func TestBankLoaderReadsYAML(t *testing.T) {
	path := writeBank(t, `
title: "Pub Quiz"
questions:
  - id: 0
    text: "How many legs does a spider have?"
    options: ["6", "8", "10", "12"]
    correct_answer: 1
  - id: 1
    text: "Which planet is closest to the sun?"
    options: ["Venus", "Earth", "Mercury", "Mars"]
    correct_answer: 2
`)
	bank, err := NewBankLoader(path).LoadBank(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if bank.Title != "Pub Quiz" || len(bank.Questions) != 2 {
		t.Fatalf("unexpected bank: %+v", bank)
	}
	if bank.Questions[1].CorrectAnswer != 2 || bank.Questions[1].Options[2] != "Mercury" {
		t.Fatalf("unexpected question: %+v", bank.Questions[1])
	}
}

func TestBankLoaderRejectsMalformedBank(t *testing.T) {
	path := writeBank(t, `
title: "Broken"
questions:
  - id: 0
    text: "Too few options"
    options: ["a", "b"]
    correct_answer: 0
`)
	if _, err := NewBankLoader(path).LoadBank(context.Background()); !errors.Is(err, domain.ErrInvalidBank) {
		t.Fatalf("expected ErrInvalidBank, got %v", err)
	}
}

func TestBankLoaderMissingFile(t *testing.T) {
	if _, err := NewBankLoader("does/not/exist.yaml").LoadBank(context.Background()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func writeBank(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write bank: %v", err)
	}
	return path
}
