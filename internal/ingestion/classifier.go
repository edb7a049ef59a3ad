package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/documentintelligence/internal/llm"
	"github.com/Lllllllleong/documentintelligence/internal/models"
)

// ClassifierWordLimit is how much leading text is sent for classification.
const ClassifierWordLimit = 1000

// Classifier assigns a document to one of the owner's subjects. It never
// fails: anything unexpected yields models.DefaultSubject.
type Classifier struct {
	Completer llm.Completer
	Model     string
	Logger    *slog.Logger
}

func (c *Classifier) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Classify returns a member of known (in its canonical spelling) or
// models.DefaultSubject.
func (c *Classifier) Classify(ctx context.Context, text string, known []string) string {
	text = truncateWords(text, ClassifierWordLimit)
	if c == nil || c.Completer == nil || text == "" || len(known) == 0 {
		return models.DefaultSubject
	}

	raw, err := c.Completer.Complete(ctx, llm.Request{
		Model: c.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are a document classifier. Respond with the subject name only."},
			{Role: llm.RoleUser, Content: classifyPrompt(text, known)},
		},
		Temperature:     0.1,
		MaxOutputTokens: 50,
	})
	if err != nil {
		c.logger().Warn("Subject classification failed, using default subject.", "error", err)
		return models.DefaultSubject
	}

	label := strings.Trim(llm.CleanText(raw), " \t\r\n\"'`.")
	if match, ok := matchSubject(label, known); ok {
		return match
	}
	c.logger().Info("Classifier returned an unknown subject.", "label", label)
	return models.DefaultSubject
}

func classifyPrompt(text string, known []string) string {
	return fmt.Sprintf("Classify the following document into exactly one of these subjects: %s, or %q if none apply. "+
		"Answer with the subject name exactly as written.\n\nDocument:\n%s",
		strings.Join(known, ", "), models.DefaultSubject, text)
}

func matchSubject(label string, known []string) (string, bool) {
	if label == "" {
		return "", false
	}
	if strings.EqualFold(label, models.DefaultSubject) {
		return models.DefaultSubject, true
	}
	for _, k := range known {
		if strings.EqualFold(strings.TrimSpace(k), label) {
			return k, true
		}
	}
	return "", false
}

func truncateWords(text string, limit int) string {
	words := strings.Fields(text)
	if len(words) > limit {
		words = words[:limit]
	}
	return strings.Join(words, " ")
}
