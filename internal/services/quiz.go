package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/Lllllllleong/documentintelligence/internal/config"
	"github.com/Lllllllleong/documentintelligence/internal/llm"
	"github.com/Lllllllleong/documentintelligence/internal/models"
	"github.com/Lllllllleong/documentintelligence/internal/pdftext"
	"github.com/Lllllllleong/documentintelligence/internal/quiz"
)

// GenerateQuizFunction creates multiple-choice questions for one page and
// keeps a copy so submissions can be graded server-side.
type GenerateQuizFunction struct {
	pages            *PageSource
	generator        *quiz.Generator
	issuedCollection string
	now              func() time.Time
}

func NewGenerateQuiz(ctx context.Context) (*GenerateQuizFunction, error) {
	rt, err := newCloudRuntime(ctx, true)
	if err != nil {
		return nil, err
	}
	pages := &PageSource{
		Metadata:   rt.metadata,
		Objects:    rt.documents,
		Extractor:  pdftext.Extractor{},
		Collection: rt.cfg.Cloud.DocumentsCollection,
	}
	return NewGenerateQuizWith(pages, rt.completer, rt.cfg.Engine, rt.cfg.Cloud), nil
}

func NewGenerateQuizWith(pages *PageSource, completer llm.Completer, engine config.Engine, cloud config.Cloud) *GenerateQuizFunction {
	return &GenerateQuizFunction{
		pages:            pages,
		generator:        &quiz.Generator{Completer: completer, Model: ModelFor(engine, engine.ChatModel)},
		issuedCollection: cloud.IssuedQuizCollection,
		now:              time.Now,
	}
}

func (f *GenerateQuizFunction) Process(ctx context.Context, req *models.GenerateQuizRequest) (*models.GenerateQuizResponse, error) {
	logCtx := slog.With("documentId", req.DocumentID, "pageNumber", req.PageNumber, "count", req.Number)
	if req.Number < 1 || req.Number > quiz.MaxQuestions {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, quiz.ErrInvalidCount)
	}
	doc, text, err := f.pages.Load(ctx, req.PageRequest)
	if err != nil {
		logCtx.Error("Failed to load page.", "error", err)
		return nil, err
	}
	subject := req.Subject
	if subject == "" && doc.Subject != models.DefaultSubject {
		subject = doc.Subject
	}

	questions, err := f.generator.Generate(ctx, text, quiz.Options{Count: req.Number, Tone: req.Tone, Subject: subject})
	if err != nil {
		logCtx.Error("Failed to generate quiz.", "error", err)
		return nil, err
	}
	out := make(map[string]models.QuizQuestion, len(questions))
	for n, q := range questions {
		out[strconv.Itoa(n)] = q
	}
	id, err := f.pages.Metadata.Create(ctx, f.issuedCollection, models.IssuedQuiz{
		UserID:     req.UserID,
		DocumentID: req.DocumentID,
		PageNumber: req.PageNumber,
		Questions:  out,
		CreatedAt:  f.now().UTC(),
	})
	if err != nil {
		logCtx.Error("Failed to store generated quiz.", "error", err)
		return nil, err
	}
	logCtx.Info("Quiz generated.", "quizId", id)
	return &models.GenerateQuizResponse{Status: "success", QuizID: id, Questions: out}, nil
}

// SubmitQuizFunction grades a finished quiz and stores the attempt.
type SubmitQuizFunction struct {
	metadata           MetadataStore
	documentCollection string
	quizCollection     string
	issuedCollection   string
}

func NewSubmitQuiz(ctx context.Context) (*SubmitQuizFunction, error) {
	rt, err := newCloudRuntime(ctx, false)
	if err != nil {
		return nil, err
	}
	return NewSubmitQuizWith(rt.metadata, rt.cfg.Cloud), nil
}

func NewSubmitQuizWith(metadata MetadataStore, cloud config.Cloud) *SubmitQuizFunction {
	return &SubmitQuizFunction{
		metadata:           metadata,
		documentCollection: cloud.DocumentsCollection,
		quizCollection:     cloud.QuizCollection,
		issuedCollection:   cloud.IssuedQuizCollection,
	}
}

// Process grades the client's selections against the stored copy of the
// quiz issued by generate-quiz. Each issued quiz can be submitted once.
func (f *SubmitQuizFunction) Process(ctx context.Context, req *models.SubmitQuizRequest) (*models.SubmitQuizResponse, error) {
	logCtx := slog.With("quizId", req.QuizID, "userId", req.UserID)
	if req.UserID == "" || req.QuizID == "" {
		return nil, fmt.Errorf("%w: userId and quizId are required", ErrInvalidRequest)
	}
	var issued models.IssuedQuiz
	if err := f.metadata.Get(ctx, f.issuedCollection, req.QuizID, &issued); err != nil {
		return nil, err
	}
	if issued.UserID != req.UserID {
		return nil, ErrForbidden
	}
	if issued.Submitted {
		return nil, fmt.Errorf("%w: quiz %s was already submitted", ErrConflict, req.QuizID)
	}
	logCtx = logCtx.With("documentId", issued.DocumentID, "pageNumber", issued.PageNumber)
	doc, err := ownedDocument(ctx, f.metadata, f.documentCollection, req.UserID, issued.DocumentID)
	if err != nil {
		return nil, err
	}

	questions := make(map[int]models.QuizQuestion, len(issued.Questions))
	for key, q := range issued.Questions {
		n, err := strconv.Atoi(key)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("stored quiz %s has question key %q", req.QuizID, key)
		}
		questions[n] = q
	}
	session, err := quiz.NewSession(questions)
	if err != nil {
		logCtx.Error("Stored quiz is not gradable.", "error", err)
		return nil, fmt.Errorf("stored quiz %s is not gradable: %v", req.QuizID, err)
	}

	keys := make([]string, 0, len(req.Selections))
	for k := range req.Selections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		n, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("%w: answer key %q is not an ordinal", ErrInvalidRequest, key)
		}
		if _, err := session.SelectAnswer(n, req.Selections[key]); err != nil {
			return nil, fmt.Errorf("question %d: %w", n, err)
		}
	}

	name := req.DocumentName
	if name == "" {
		name = doc.OriginalName
	}
	attempt, err := session.Submit(quiz.AttemptMeta{
		UserID:       req.UserID,
		DocumentID:   issued.DocumentID,
		DocumentName: name,
		PageNumber:   issued.PageNumber,
	})
	if err != nil {
		return nil, err
	}
	id, err := f.metadata.Create(ctx, f.quizCollection, attempt)
	if err != nil {
		logCtx.Error("Failed to store quiz attempt.", "error", err)
		return nil, err
	}
	if err := f.metadata.Update(ctx, f.issuedCollection, req.QuizID, map[string]any{"submitted": true}); err != nil {
		logCtx.Warn("Failed to mark quiz as submitted.", "error", err)
	}
	logCtx.Info("Quiz attempt stored.", "attemptId", id, "score", attempt.Score, "total", attempt.TotalQuestions)
	return &models.SubmitQuizResponse{Status: "success", AttemptID: id, Attempt: attempt}, nil
}
