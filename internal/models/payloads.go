package models

// These structs define the JSON payloads for HTTP requests and responses
// of the document intelligence Cloud Functions.

// PageRequest identifies one page of one document owned by a user.
type PageRequest struct {
	UserID     string `json:"userId"`
	DocumentID string `json:"documentId"`
	PageNumber int    `json:"pageNumber"`
}

// AskQuestionRequest is the input for the ask-question function.
type AskQuestionRequest struct {
	PageRequest
	Question string `json:"question"`
}

// AskQuestionResponse is the output of the ask-question function.
type AskQuestionResponse struct {
	Status         string   `json:"status"`
	Answer         string   `json:"answer"`
	RelevantChunks []string `json:"relevantChunks"`
}

// SummarizePageRequest is the input for the summarize-page function.
type SummarizePageRequest struct {
	PageRequest
}

// SummarizePageResponse is the output of the summarize-page function.
type SummarizePageResponse struct {
	Status  string `json:"status"`
	Summary string `json:"summary"`
}

// GenerateQuizRequest is the input for the generate-quiz function.
type GenerateQuizRequest struct {
	PageRequest
	Number  int    `json:"number"`
	Tone    string `json:"tone"`
	Subject string `json:"subject"`
}

// GenerateQuizResponse is the output of the generate-quiz function.
type GenerateQuizResponse struct {
	Status    string                  `json:"status"`
	QuizID    string                  `json:"quizId"`
	Questions map[string]QuizQuestion `json:"mcqs"`
}

// SubmitQuizRequest is the input for the submit-quiz function. QuizID names
// the quiz returned by generate-quiz; only the selections come from the client.
type SubmitQuizRequest struct {
	UserID       string            `json:"userId"`
	QuizID       string            `json:"quizId"`
	DocumentName string            `json:"documentName"`
	Selections   map[string]string `json:"userAnswers"`
}

// SubmitQuizResponse is the output of the submit-quiz function.
type SubmitQuizResponse struct {
	Status    string      `json:"status"`
	AttemptID string      `json:"attemptId"`
	Attempt   QuizAttempt `json:"attempt"`
}

// DocumentAction names an operation of the manage-documents function.
type DocumentAction string

const (
	ActionListDocuments  DocumentAction = "listDocuments"
	ActionDeleteDocument DocumentAction = "deleteDocument"
	ActionReclassify     DocumentAction = "reclassify"
	ActionAddExternal    DocumentAction = "addExternal"
	ActionListSubjects   DocumentAction = "listSubjects"
	ActionAddSubject     DocumentAction = "addSubject"
)

// ManageDocumentsRequest is the input for the manage-documents function.
type ManageDocumentsRequest struct {
	Action     DocumentAction `json:"action"`
	UserID     string         `json:"userId"`
	DocumentID string         `json:"documentId,omitempty"`
	Subject    string         `json:"subject,omitempty"`
	Title      string         `json:"title,omitempty"`
	URL        string         `json:"url,omitempty"`
	Source     string         `json:"source,omitempty"`
}

// ManageDocumentsResponse is the output of the manage-documents function.
type ManageDocumentsResponse struct {
	Status           string                `json:"status"`
	DocumentID       string                `json:"documentId,omitempty"`
	FilesBySubject   map[string][]Document `json:"filesBySubject,omitempty"`
	Subjects         []Subject             `json:"subjects,omitempty"`
	StorageCleanupOK *bool                 `json:"storageCleanupOk,omitempty"`
}
