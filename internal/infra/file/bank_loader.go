package file

import (
	"context"
	"fmt"
	"os"

	"gameshow-quiz-service/internal/domain"

	"gopkg.in/yaml.v3"
)

// BankLoader reads the question bank from a YAML file. The file is re-read
// on every load; the caching repository in front decides how often that
// actually happens.
type BankLoader struct {
	path string
}

func NewBankLoader(path string) *BankLoader {
	return &BankLoader{path: path}
}

func (l *BankLoader) LoadBank(_ context.Context) (domain.QuestionBank, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return domain.QuestionBank{}, fmt.Errorf("read question bank %s: %w", l.path, err)
	}
	var bank domain.QuestionBank
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return domain.QuestionBank{}, fmt.Errorf("parse question bank %s: %w", l.path, err)
	}
	if err := bank.Validate(); err != nil {
		return domain.QuestionBank{}, err
	}
	return bank, nil
}
