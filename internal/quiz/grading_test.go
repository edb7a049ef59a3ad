package quiz

import (
	"testing"
	"time"

	"github.com/Lllllllleong/documentintelligence/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fiveQuestions() map[int]models.QuizQuestion {
	qs := make(map[int]models.QuizQuestion)
	for n := 1; n <= 5; n++ {
		qs[n] = models.QuizQuestion{
			Ordinal:     n,
			Prompt:      "question",
			Options:     map[string]string{"A": "a", "B": "b", "C": "c", "D": "d"},
			Correct:     "B",
			Explanation: "because",
		}
	}
	return qs
}

func TestSelectAnswerTwiceIsNoOp(t *testing.T) {
	s, err := NewSession(fiveQuestions())
	require.NoError(t, err)

	first, err := s.SelectAnswer(1, "A")
	require.NoError(t, err)
	assert.False(t, first.Correct)
	assert.Equal(t, "B", first.CorrectLetter)

	second, err := s.SelectAnswer(1, "B")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	score, total := s.Score()
	assert.Equal(t, 0, score)
	assert.Equal(t, 5, total)
}

func TestPartialAttemptScore(t *testing.T) {
	s, err := NewSession(fiveQuestions())
	require.NoError(t, err)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return fixed }

	_, err = s.SelectAnswer(1, "B")
	require.NoError(t, err)
	_, err = s.SelectAnswer(2, "b")
	require.NoError(t, err)
	_, err = s.SelectAnswer(4, "C")
	require.NoError(t, err)

	score, total := s.Score()
	assert.Equal(t, 2, score)
	assert.Equal(t, 5, total)
	assert.Equal(t, []int{1, 2, 4}, s.Answered())

	attempt, err := s.Submit(AttemptMeta{UserID: "u1", DocumentID: "d1", DocumentName: "bio.pdf", PageNumber: 3})
	require.NoError(t, err)
	assert.Equal(t, 2, attempt.Score)
	assert.Equal(t, 5, attempt.TotalQuestions)
	assert.Equal(t, fixed, attempt.SubmittedAt)
	assert.Equal(t, map[string]string{"1": "B", "2": "B", "4": "C"}, attempt.Selections)
	assert.Len(t, attempt.Results, 3)
	assert.Len(t, attempt.Questions, 5)
	assert.True(t, attempt.Results["1"].Correct)
	assert.False(t, attempt.Results["4"].Correct)

	_, err = s.SelectAnswer(5, "B")
	assert.ErrorIs(t, err, ErrQuizSubmitted)
	_, err = s.Submit(AttemptMeta{})
	assert.ErrorIs(t, err, ErrQuizSubmitted)
}

func TestSubmitRequiresAnAnswer(t *testing.T) {
	s, err := NewSession(fiveQuestions())
	require.NoError(t, err)
	_, err = s.Submit(AttemptMeta{UserID: "u1"})
	assert.ErrorIs(t, err, ErrNothingAnswered)

	// A refused submit leaves the session open.
	_, err = s.SelectAnswer(1, "B")
	require.NoError(t, err)
	attempt, err := s.Submit(AttemptMeta{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, attempt.Score)
}

func TestSelectAnswerValidation(t *testing.T) {
	s, err := NewSession(fiveQuestions())
	require.NoError(t, err)

	_, err = s.SelectAnswer(9, "A")
	assert.ErrorIs(t, err, ErrUnknownQuestion)
	_, err = s.SelectAnswer(1, "E")
	assert.ErrorIs(t, err, ErrInvalidOption)
	assert.Empty(t, s.Answered())

	_, err = NewSession(nil)
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestExplanationVisibility(t *testing.T) {
	s, err := NewSession(fiveQuestions())
	require.NoError(t, err)

	assert.False(t, s.ExplanationVisible(2))
	_, err = s.SelectAnswer(2, "B")
	require.NoError(t, err)
	assert.True(t, s.ExplanationVisible(2))

	visible, err := s.ToggleExplanation(2)
	require.NoError(t, err)
	assert.False(t, visible)
	score, _ := s.Score()
	assert.Equal(t, 1, score)

	_, err = s.ToggleExplanation(42)
	assert.ErrorIs(t, err, ErrUnknownQuestion)
}

func TestSessionDoesNotAliasInput(t *testing.T) {
	qs := fiveQuestions()
	s, err := NewSession(qs)
	require.NoError(t, err)
	qs[1].Options["E"] = "e"

	_, err = s.SelectAnswer(1, "E")
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestSessionRejectsUnanswerableQuestions(t *testing.T) {
	bad := map[string]models.QuizQuestion{
		"empty prompt":       {Prompt: " ", Options: map[string]string{"A": "a", "B": "b"}, Correct: "A", Explanation: "e"},
		"empty option":       {Prompt: "q", Options: map[string]string{"A": "", "B": "b"}, Correct: "A", Explanation: "e"},
		"correct not listed": {Prompt: "q", Options: map[string]string{"A": "a", "B": "b"}, Correct: "Q", Explanation: "e"},
		"single option":      {Prompt: "q", Options: map[string]string{"A": "a"}, Correct: "A", Explanation: "e"},
	}
	for name, q := range bad {
		qs := fiveQuestions()
		qs[3] = q
		_, err := NewSession(qs)
		var schemaErr *SchemaError
		require.ErrorAs(t, err, &schemaErr, name)
		assert.Equal(t, 3, schemaErr.Ordinal, name)
		assert.ErrorIs(t, err, ErrMalformedQuiz, name)
	}
}

func TestSessionNormalisesLetters(t *testing.T) {
	s, err := NewSession(map[int]models.QuizQuestion{
		7: {Prompt: "q", Options: map[string]string{"a": "x", "b": "y"}, Correct: " b ", Explanation: "e"},
	})
	require.NoError(t, err)

	r, err := s.SelectAnswer(7, "b")
	require.NoError(t, err)
	assert.True(t, r.Correct)
	assert.Equal(t, "B", r.CorrectLetter)
}
