package domain

import (
	"fmt"
	"strings"
	"time"
)

// OptionCount is the fixed number of answer options per question.
const OptionCount = 4

// Phase is the single global stage of the quiz lifecycle.
type Phase string

const (
	PhaseWaiting     Phase = "waiting"
	PhaseQuestion    Phase = "question"
	PhaseAnswering   Phase = "answering"
	PhaseResults     Phase = "results"
	PhaseLeaderboard Phase = "leaderboard"
	PhaseFinished    Phase = "finished"
)

// Question is one multiple-choice question with exactly one correct option.
type Question struct {
	ID            int      `json:"id" yaml:"id"`
	Text          string   `json:"text" yaml:"text"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer int      `json:"correct_answer" yaml:"correct_answer"`
}

// QuestionBank is the immutable ordered question list a game runs against.
type QuestionBank struct {
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Validate checks bank shape once at load so malformed configuration fails
// at startup rather than mid-game.
func (b QuestionBank) Validate() error {
	if len(b.Questions) == 0 {
		return fmt.Errorf("%w: bank has no questions", ErrInvalidBank)
	}
	seen := make(map[int]struct{}, len(b.Questions))
	for i, q := range b.Questions {
		if strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("%w: question %d has no text", ErrInvalidBank, i)
		}
		if len(q.Options) != OptionCount {
			return fmt.Errorf("%w: question %d must have exactly %d options, got %d", ErrInvalidBank, i, OptionCount, len(q.Options))
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= OptionCount {
			return fmt.Errorf("%w: question %d correct_answer %d out of range", ErrInvalidBank, i, q.CorrectAnswer)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %d", ErrInvalidBank, q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}

// Player is a registered participant with a cumulative score.
type Player struct {
	ID       string    `json:"player_id"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joined_at"`
}

// QuestionView is the question payload exposed to clients. Options stay nil
// until the answering phase opens.
type QuestionView struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
}

// Status is the poll-friendly snapshot of the engine returned to clients.
// HasAnswered and Score are only populated when the caller identified itself.
type Status struct {
	Active          bool          `json:"is_active"`
	Phase           Phase         `json:"phase"`
	QuestionIndex   int           `json:"current_question"`
	TotalQuestions  int           `json:"total_questions"`
	PlayerCount     int           `json:"player_count"`
	AnsweredCount   int           `json:"answered_count"`
	OptionsRevealed bool          `json:"options_revealed"`
	Question        *QuestionView `json:"question_data,omitempty"`
	HasAnswered     *bool         `json:"has_answered,omitempty"`
	Score           *int          `json:"score,omitempty"`
}

// QuestionResults summarizes one question after answering closes.
// Players who never submitted are counted in Unanswered and listed as wrong.
type QuestionResults struct {
	QuestionID     int              `json:"question_id"`
	CorrectOption  int              `json:"correct_answer"`
	Distribution   [OptionCount]int `json:"distribution"`
	Unanswered     int              `json:"unanswered"`
	TotalPlayers   int              `json:"total_players"`
	AnsweredCount  int              `json:"answered_count"`
	CorrectPlayers []string         `json:"correct_players"`
	WrongPlayers   []string         `json:"wrong_players"`
}

// LeaderboardEntry is one ranked row. PreviousRank is nil before the first
// leaderboard reveal; Change is previous minus current, positive = moved up.
type LeaderboardEntry struct {
	PlayerID     string `json:"player_id"`
	Name         string `json:"name"`
	Score        int    `json:"score"`
	Rank         int    `json:"rank"`
	PreviousRank *int   `json:"previous_rank,omitempty"`
	Change       int    `json:"change"`
}

// Snapshot bundles status and standings for best-effort live publishing.
type Snapshot struct {
	Status      Status             `json:"status"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	UpdatedAt   time.Time          `json:"updated_at"`
}
