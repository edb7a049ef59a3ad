package quiz

import (
	"errors"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Lllllllleong/documentintelligence/internal/models"
)

var (
	ErrQuizSubmitted   = errors.New("quiz already submitted")
	ErrUnknownQuestion = errors.New("unknown question")
	ErrInvalidOption   = errors.New("option is not offered by the question")
	ErrNothingAnswered = errors.New("answer at least one question before submitting")
	ErrNoQuestions     = errors.New("quiz has no questions")
)

// AttemptMeta identifies who took the quiz and on what page.
type AttemptMeta struct {
	UserID       string
	DocumentID   string
	DocumentName string
	PageNumber   int
}

// Session grades one pass through a question set. Each question can be
// answered once; after Submit the session is read-only.
type Session struct {
	mu           sync.Mutex
	questions    map[int]models.QuizQuestion
	results      map[int]models.AnswerResult
	selections   map[int]string
	explanations map[int]bool
	submitted    bool

	// Now is the clock used for SubmittedAt.
	Now func() time.Time
}

// NewSession validates and copies questions into a fresh session. The map
// key is the question's ordinal.
func NewSession(questions map[int]models.QuizQuestion) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	qs := make(map[int]models.QuizQuestion, len(questions))
	for n, q := range questions {
		q.Ordinal = n
		v, err := Validate(q)
		if err != nil {
			return nil, err
		}
		qs[n] = v
	}
	return &Session{
		questions:    qs,
		results:      make(map[int]models.AnswerResult),
		selections:   make(map[int]string),
		explanations: make(map[int]bool),
		Now:          time.Now,
	}, nil
}

// SelectAnswer records letter as the answer to question n and reveals its
// explanation. Answering an already answered question returns the stored
// result unchanged.
func (s *Session) SelectAnswer(n int, letter string) (models.AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return models.AnswerResult{}, ErrQuizSubmitted
	}
	q, ok := s.questions[n]
	if !ok {
		return models.AnswerResult{}, ErrUnknownQuestion
	}
	if r, answered := s.results[n]; answered {
		return r, nil
	}
	letter = strings.ToUpper(strings.TrimSpace(letter))
	if _, ok := q.Options[letter]; !ok {
		return models.AnswerResult{}, ErrInvalidOption
	}
	r := models.AnswerResult{
		Correct:       letter == q.Correct,
		CorrectLetter: q.Correct,
		Explanation:   q.Explanation,
	}
	s.results[n] = r
	s.selections[n] = letter
	s.explanations[n] = true
	return r, nil
}

// ToggleExplanation flips the visibility of question n's explanation and
// returns the new state.
func (s *Session) ToggleExplanation(n int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[n]; !ok {
		return false, ErrUnknownQuestion
	}
	s.explanations[n] = !s.explanations[n]
	return s.explanations[n], nil
}

// ExplanationVisible reports whether question n's explanation is shown.
func (s *Session) ExplanationVisible(n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.explanations[n]
}

// Score returns the number of correct answers and the size of the question set.
func (s *Session) Score() (score, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scoreLocked(), len(s.questions)
}

func (s *Session) scoreLocked() int {
	score := 0
	for _, r := range s.results {
		if r.Correct {
			score++
		}
	}
	return score
}

// Answered returns the answered ordinals in ascending order.
func (s *Session) Answered() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.results))
}

// Submit freezes the session and returns the attempt record.
func (s *Session) Submit(meta AttemptMeta) (models.QuizAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return models.QuizAttempt{}, ErrQuizSubmitted
	}
	if len(s.results) == 0 {
		return models.QuizAttempt{}, ErrNothingAnswered
	}

	attempt := models.QuizAttempt{
		UserID:         meta.UserID,
		DocumentID:     meta.DocumentID,
		DocumentName:   meta.DocumentName,
		PageNumber:     meta.PageNumber,
		Selections:     make(map[string]string, len(s.selections)),
		Results:        make(map[string]models.AnswerResult, len(s.results)),
		Questions:      make(map[string]models.QuizQuestion, len(s.questions)),
		Score:          s.scoreLocked(),
		TotalQuestions: len(s.questions),
		SubmittedAt:    s.Now().UTC(),
	}
	for n, letter := range s.selections {
		attempt.Selections[strconv.Itoa(n)] = letter
	}
	for n, r := range s.results {
		attempt.Results[strconv.Itoa(n)] = r
	}
	for n, q := range s.questions {
		q.Options = maps.Clone(q.Options)
		attempt.Questions[strconv.Itoa(n)] = q
	}
	s.submitted = true
	return attempt, nil
}
