package domain

import (
	"errors"
	"testing"
)

func validBank() QuestionBank {
	return QuestionBank{
		Title: "Sample",
		Questions: []Question{
			{ID: 0, Text: "Q1", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 0},
			{ID: 1, Text: "Q2", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 3},
		},
	}
}

func TestBankValidateAccepts(t *testing.T) {
	if err := validBank().Validate(); err != nil {
		t.Fatalf("expected valid bank, got %v", err)
	}
}

func TestBankValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*QuestionBank)
	}{
		{"empty bank", func(b *QuestionBank) { b.Questions = nil }},
		{"blank text", func(b *QuestionBank) { b.Questions[0].Text = "  " }},
		{"three options", func(b *QuestionBank) { b.Questions[1].Options = b.Questions[1].Options[:3] }},
		{"five options", func(b *QuestionBank) { b.Questions[1].Options = append(b.Questions[1].Options, "e") }},
		{"correct index negative", func(b *QuestionBank) { b.Questions[0].CorrectAnswer = -1 }},
		{"correct index too large", func(b *QuestionBank) { b.Questions[0].CorrectAnswer = 4 }},
		{"duplicate id", func(b *QuestionBank) { b.Questions[1].ID = b.Questions[0].ID }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bank := validBank()
			tc.mutate(&bank)
			if err := bank.Validate(); !errors.Is(err, ErrInvalidBank) {
				t.Fatalf("expected ErrInvalidBank, got %v", err)
			}
		})
	}
}
