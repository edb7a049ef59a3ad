package models

import "time"

// QuizQuestion is one generated multiple-choice question. Options are keyed
// by a single upper-case letter.
type QuizQuestion struct {
	Ordinal     int               `firestore:"no" json:"no"`
	Prompt      string            `firestore:"mcq" json:"mcq"`
	Options     map[string]string `firestore:"options" json:"options"`
	Correct     string            `firestore:"correct" json:"correct"`
	Explanation string            `firestore:"explanation" json:"explanation"`
}

// AnswerResult is the stored evaluation of one answered question.
type AnswerResult struct {
	Correct       bool   `firestore:"isCorrect" json:"isCorrect"`
	CorrectLetter string `firestore:"correctAnswer" json:"correctAnswer"`
	Explanation   string `firestore:"explanation" json:"explanation"`
}

// QuizAttempt is the immutable record written when a quiz is submitted.
// Map keys are stringified ordinals so the record stores cleanly in Firestore.
type QuizAttempt struct {
	UserID         string                  `firestore:"userId" json:"userId"`
	DocumentID     string                  `firestore:"documentId" json:"documentId"`
	DocumentName   string                  `firestore:"documentName,omitempty" json:"documentName,omitempty"`
	PageNumber     int                     `firestore:"pageNumber" json:"pageNumber"`
	Selections     map[string]string       `firestore:"userAnswers" json:"userAnswers"`
	Results        map[string]AnswerResult `firestore:"answerResults" json:"answerResults"`
	Questions      map[string]QuizQuestion `firestore:"mcqsAttempted,omitempty" json:"mcqsAttempted,omitempty"`
	Score          int                     `firestore:"score" json:"score"`
	TotalQuestions int                     `firestore:"totalQuestions" json:"totalQuestions"`
	SubmittedAt    time.Time               `firestore:"submittedAt" json:"submittedAt"`
}

// IssuedQuiz is the server-side copy of a generated quiz. Submissions are
// graded against it, never against questions sent back by the client.
type IssuedQuiz struct {
	UserID     string                  `firestore:"userId" json:"userId"`
	DocumentID string                  `firestore:"documentId" json:"documentId"`
	PageNumber int                     `firestore:"pageNumber" json:"pageNumber"`
	Questions  map[string]QuizQuestion `firestore:"mcqs" json:"mcqs"`
	Submitted  bool                    `firestore:"submitted" json:"submitted"`
	CreatedAt  time.Time               `firestore:"createdAt" json:"createdAt"`
}
