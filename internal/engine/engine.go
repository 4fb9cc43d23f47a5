package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"gameshow-quiz-service/internal/domain"

	"github.com/google/uuid"
)

// BankProvider supplies the question bank (from a file, cache, or Postgres).
type BankProvider interface {
	Bank(ctx context.Context) (domain.QuestionBank, error)
}

// Notifier receives engine snapshots after state changes. Implementations
// must not block for long; the engine calls it outside its lock.
type Notifier interface {
	PublishSnapshot(snap domain.Snapshot)
}

// Engine is the process-wide quiz state machine. One instance owns all game
// state; every operation serializes through its guard. Reads return copies,
// never references into the guarded maps.
type Engine struct {
	banks    BankProvider
	notifier Notifier
	now      func() time.Time
	newID    func() string

	minPlayers int
	window     time.Duration

	mu          sync.RWMutex
	bank        domain.QuestionBank
	phase       domain.Phase
	questionIdx int
	players     map[string]*playerState
	joinOrder   []string
	ledger      map[string]answerRecord
	windowStart time.Time
	prevRanks   map[string]int
}

type playerState struct {
	name     string
	score    int
	joined   int
	joinedAt time.Time
}

type answerRecord struct {
	option int
	at     time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock injects a clock for deterministic timestamps in tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator injects the player ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// WithMinPlayers enables the minimum-player policy for start. Zero disables it.
func WithMinPlayers(n int) Option {
	return func(e *Engine) { e.minPlayers = n }
}

// WithWindow overrides the scoring window.
func WithWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.window = d
		}
	}
}

// WithNotifier attaches a best-effort snapshot sink (e.g. the Redis publisher).
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// New loads the bank through the provider and returns an engine in the
// waiting phase. A bank that fails validation aborts startup.
func New(ctx context.Context, banks BankProvider, opts ...Option) (*Engine, error) {
	e := &Engine{
		banks:  banks,
		now:    time.Now,
		newID:  uuid.NewString,
		window: DefaultWindow,
	}
	for _, opt := range opts {
		opt(e)
	}

	bank, err := banks.Bank(ctx)
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	if err := bank.Validate(); err != nil {
		return nil, err
	}
	e.bank = bank
	e.clearGameLocked()
	return e, nil
}

// clearGameLocked reinitializes all mutable game state. Callers hold the
// write lock (or own the engine exclusively during construction).
func (e *Engine) clearGameLocked() {
	e.phase = domain.PhaseWaiting
	e.questionIdx = -1
	e.players = make(map[string]*playerState)
	e.joinOrder = nil
	e.ledger = make(map[string]answerRecord)
	e.windowStart = time.Time{}
	e.prevRanks = nil
}

// Join registers a new player and returns the issued ID. Allowed in every
// phase except finished; a late joiner simply has no score for earlier
// questions.
func (e *Engine) Join(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.ErrInvalidName
	}

	id, err := func() (string, error) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.phase == domain.PhaseFinished {
			return "", fmt.Errorf("cannot join a finished game: %w", domain.ErrWrongPhase)
		}
		id := e.newID()
		e.players[id] = &playerState{
			name:     name,
			joined:   len(e.joinOrder),
			joinedAt: e.now(),
		}
		e.joinOrder = append(e.joinOrder, id)
		return id, nil
	}()
	if err != nil {
		return "", err
	}
	e.notify()
	return id, nil
}

// Player returns a copy of the player's current record.
func (e *Engine) Player(id string) (domain.Player, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.players[id]
	if !ok {
		return domain.Player{}, domain.ErrUnknownPlayer
	}
	return domain.Player{ID: id, Name: p.name, Score: p.score, JoinedAt: p.joinedAt}, nil
}

// PlayerNames lists display names in join order.
func (e *Engine) PlayerNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.joinOrder))
	for _, id := range e.joinOrder {
		names = append(names, e.players[id].name)
	}
	return names
}

// SubmitAnswer records the player's answer for the open question and awards
// points immediately. The first submission wins; retries fail with
// ErrDuplicateAnswer and never change the score. All precondition checks run
// before any mutation, so a rejected call has no side effects.
func (e *Engine) SubmitAnswer(playerID string, option int) (int, error) {
	points, err := func() (int, error) {
		e.mu.Lock()
		defer e.mu.Unlock()

		if e.phase != domain.PhaseAnswering {
			return 0, fmt.Errorf("phase is %s: %w", e.phase, domain.ErrNotAnswering)
		}
		player, ok := e.players[playerID]
		if !ok {
			return 0, domain.ErrUnknownPlayer
		}
		if option < 0 || option >= domain.OptionCount {
			return 0, fmt.Errorf("option %d: %w", option, domain.ErrInvalidOption)
		}
		if _, answered := e.ledger[playerID]; answered {
			return 0, domain.ErrDuplicateAnswer
		}

		at := e.now()
		question := e.bank.Questions[e.questionIdx]
		points := Score(at.Sub(e.windowStart), e.window, option == question.CorrectAnswer)
		e.ledger[playerID] = answerRecord{option: option, at: at}
		player.score += points
		return points, nil
	}()
	if err != nil {
		return 0, err
	}
	e.notify()
	return points, nil
}

// Status reports the current engine state. When playerID is non-empty the
// response carries that player's score and answered flag; an unknown ID fails.
// Options are withheld from the question payload until answering opens.
func (e *Engine) Status(playerID string) (domain.Status, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := e.statusLocked()
	if playerID != "" {
		p, ok := e.players[playerID]
		if !ok {
			return domain.Status{}, domain.ErrUnknownPlayer
		}
		_, answered := e.ledger[playerID]
		score := p.score
		st.HasAnswered = &answered
		st.Score = &score
	}
	return st, nil
}

func (e *Engine) statusLocked() domain.Status {
	st := domain.Status{
		Active:          e.phase != domain.PhaseWaiting && e.phase != domain.PhaseFinished,
		Phase:           e.phase,
		QuestionIndex:   e.questionIdx,
		TotalQuestions:  len(e.bank.Questions),
		PlayerCount:     len(e.players),
		AnsweredCount:   len(e.ledger),
		OptionsRevealed: e.optionsRevealedLocked(),
	}
	if e.questionIdx >= 0 && e.questionIdx < len(e.bank.Questions) {
		q := e.bank.Questions[e.questionIdx]
		view := &domain.QuestionView{ID: q.ID, Text: q.Text}
		if st.OptionsRevealed {
			view.Options = append([]string(nil), q.Options...)
		}
		st.Question = view
	}
	return st
}

func (e *Engine) optionsRevealedLocked() bool {
	switch e.phase {
	case domain.PhaseAnswering, domain.PhaseResults, domain.PhaseLeaderboard:
		return true
	}
	return false
}

// Start moves waiting -> question at the first question.
func (e *Engine) Start() error {
	err := func() error {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.phase != domain.PhaseWaiting {
			return transitionErr("start", e.phase)
		}
		if e.minPlayers > 0 && len(e.players) < e.minPlayers {
			return fmt.Errorf("%d joined, need %d: %w", len(e.players), e.minPlayers, domain.ErrTooFewPlayers)
		}
		e.phase = domain.PhaseQuestion
		e.questionIdx = 0
		e.ledger = make(map[string]answerRecord)
		return nil
	}()
	if err != nil {
		return err
	}
	e.notify()
	return nil
}

// RevealOptions moves question -> answering and anchors the scoring window.
func (e *Engine) RevealOptions() (time.Time, error) {
	start, err := func() (time.Time, error) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.phase != domain.PhaseQuestion {
			return time.Time{}, transitionErr("reveal options", e.phase)
		}
		e.phase = domain.PhaseAnswering
		e.windowStart = e.now()
		return e.windowStart, nil
	}()
	if err != nil {
		return time.Time{}, err
	}
	e.notify()
	return start, nil
}

// ShowAnswers moves answering -> results and returns the question results.
func (e *Engine) ShowAnswers() (domain.QuestionResults, error) {
	res, err := func() (domain.QuestionResults, error) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.phase != domain.PhaseAnswering {
			return domain.QuestionResults{}, transitionErr("show answers", e.phase)
		}
		e.phase = domain.PhaseResults
		return e.resultsLocked(), nil
	}()
	if err != nil {
		return domain.QuestionResults{}, err
	}
	e.notify()
	return res, nil
}

// Results re-queries the current question's results without changing phase.
// Valid once answering has closed (results, leaderboard, or finished).
func (e *Engine) Results() (domain.QuestionResults, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	switch e.phase {
	case domain.PhaseResults, domain.PhaseLeaderboard, domain.PhaseFinished:
		return e.resultsLocked(), nil
	}
	return domain.QuestionResults{}, fmt.Errorf("results not available in phase %s: %w", e.phase, domain.ErrWrongPhase)
}

func (e *Engine) resultsLocked() domain.QuestionResults {
	question := e.bank.Questions[e.questionIdx]
	res := domain.QuestionResults{
		QuestionID:     question.ID,
		CorrectOption:  question.CorrectAnswer,
		TotalPlayers:   len(e.players),
		AnsweredCount:  len(e.ledger),
		Unanswered:     len(e.players) - len(e.ledger),
		CorrectPlayers: []string{},
		WrongPlayers:   []string{},
	}
	// Iterate in join order so the name lists come out deterministic.
	for _, id := range e.joinOrder {
		rec, answered := e.ledger[id]
		if !answered {
			res.WrongPlayers = append(res.WrongPlayers, e.players[id].name)
			continue
		}
		res.Distribution[rec.option]++
		if rec.option == question.CorrectAnswer {
			res.CorrectPlayers = append(res.CorrectPlayers, e.players[id].name)
		} else {
			res.WrongPlayers = append(res.WrongPlayers, e.players[id].name)
		}
	}
	return res
}

// ShowLeaderboard moves results -> leaderboard, diffs standings against the
// snapshot from the previous reveal, and stores the new baseline.
func (e *Engine) ShowLeaderboard() ([]domain.LeaderboardEntry, error) {
	entries, err := func() ([]domain.LeaderboardEntry, error) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.phase != domain.PhaseResults {
			return nil, transitionErr("show leaderboard", e.phase)
		}
		e.phase = domain.PhaseLeaderboard
		entries := e.standingsLocked()
		baseline := make(map[string]int, len(entries))
		for _, entry := range entries {
			baseline[entry.PlayerID] = entry.Rank
		}
		e.prevRanks = baseline
		return entries, nil
	}()
	if err != nil {
		return nil, err
	}
	e.notify()
	return entries, nil
}

// Leaderboard returns current standings without changing phase or baseline.
func (e *Engine) Leaderboard() []domain.LeaderboardEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.standingsLocked()
}

// standingsLocked ranks players by score descending, ties broken by join
// order, so repeated calls without mutation are reproducible.
func (e *Engine) standingsLocked() []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(e.players))
	for _, id := range e.joinOrder {
		p := e.players[id]
		entries = append(entries, domain.LeaderboardEntry{PlayerID: id, Name: p.name, Score: p.score})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	for i := range entries {
		entries[i].Rank = i + 1
		if prev, ok := e.prevRanks[entries[i].PlayerID]; ok {
			prevCopy := prev
			entries[i].PreviousRank = &prevCopy
			entries[i].Change = prev - entries[i].Rank
		}
	}
	return entries
}

// Next moves leaderboard -> question (clearing the ledger for the new
// question) or -> finished when the current question was the last.
func (e *Engine) Next() (domain.Phase, error) {
	phase, err := func() (domain.Phase, error) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.phase != domain.PhaseLeaderboard {
			return "", transitionErr("next", e.phase)
		}
		if e.questionIdx+1 >= len(e.bank.Questions) {
			e.phase = domain.PhaseFinished
			return e.phase, nil
		}
		e.questionIdx++
		e.ledger = make(map[string]answerRecord)
		e.windowStart = time.Time{}
		e.phase = domain.PhaseQuestion
		return e.phase, nil
	}()
	if err != nil {
		return "", err
	}
	e.notify()
	return phase, nil
}

// Reset wipes all game state and returns to waiting. Safe from any phase.
// Previously issued player IDs become permanently unknown. The bank is
// refetched through the provider so content edits land between games; if the
// refetch fails the previous bank stays in place.
func (e *Engine) Reset(ctx context.Context) error {
	bank, err := e.banks.Bank(ctx)
	if err == nil {
		err = bank.Validate()
	}
	if err != nil {
		log.Printf("reset: reload question bank: %v; keeping previous bank", err)
	}

	e.mu.Lock()
	if err == nil {
		e.bank = bank
	}
	e.clearGameLocked()
	e.mu.Unlock()

	e.notify()
	return nil
}

// Snapshot assembles the publishable view of the engine.
func (e *Engine) Snapshot() domain.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return domain.Snapshot{
		Status:      e.statusLocked(),
		Leaderboard: e.standingsLocked(),
		UpdatedAt:   e.now(),
	}
}

// notify hands the current snapshot to the notifier. Called after the lock
// is released; publishing never blocks game operations.
func (e *Engine) notify() {
	if e.notifier == nil {
		return
	}
	e.notifier.PublishSnapshot(e.Snapshot())
}

func transitionErr(op string, from domain.Phase) error {
	return fmt.Errorf("cannot %s from phase %s: %w", op, from, domain.ErrInvalidTransition)
}
