package cli

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/documentintelligence/internal/models"
	"github.com/Lllllllleong/documentintelligence/internal/quiz"
)

var (
	quizCount   int
	quizTone    string
	quizSubject string
	quizAnswers string
	quizJSON    bool
)

var quizCmd = &cobra.Command{
	Use:   "quiz [pdf]",
	Short: "Generate a multiple-choice quiz from one page",
	Long: `Generates questions from one page. With --answers the quiz is graded
immediately, e.g. --answers 1=A,2=C.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuiz,
}

func init() {
	quizCmd.Flags().IntVarP(&page, "page", "p", 1, "1-based page number")
	quizCmd.Flags().IntVarP(&quizCount, "count", "n", 5, "number of questions (1-20)")
	quizCmd.Flags().StringVar(&quizTone, "tone", "", "question tone, e.g. formal or playful")
	quizCmd.Flags().StringVar(&quizSubject, "subject", "", "subject hint")
	quizCmd.Flags().StringVar(&quizAnswers, "answers", "", "answers to grade, as ordinal=letter pairs")
	quizCmd.Flags().BoolVar(&quizJSON, "json", false, "print the questions as JSON")
	rootCmd.AddCommand(quizCmd)
}

func runQuiz(cmd *cobra.Command, args []string) error {
	if quizCount < 1 || quizCount > quiz.MaxQuestions {
		return quiz.ErrInvalidCount
	}
	answers, err := parseAnswers(quizAnswers)
	if err != nil {
		return err
	}
	cfg, text, completer, err := pageSetup(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	g := &quiz.Generator{Completer: completer, Model: modelName(cfg)}
	questions, err := g.Generate(cmd.Context(), text, quiz.Options{Count: quizCount, Tone: quizTone, Subject: quizSubject})
	if err != nil {
		return err
	}

	if quizJSON {
		data, err := json.MarshalIndent(questions, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal questions: %w", err)
		}
		cmd.Println(string(data))
	} else {
		printQuestions(cmd, questions)
	}
	if len(answers) == 0 {
		return nil
	}
	return gradeAnswers(cmd, questions, answers, args[0])
}

func printQuestions(cmd *cobra.Command, questions map[int]models.QuizQuestion) {
	for _, n := range slices.Sorted(maps.Keys(questions)) {
		q := questions[n]
		cmd.Printf("%d. %s\n", n, q.Prompt)
		for _, letter := range slices.Sorted(maps.Keys(q.Options)) {
			cmd.Printf("   %s) %s\n", letter, q.Options[letter])
		}
	}
}

func gradeAnswers(cmd *cobra.Command, questions map[int]models.QuizQuestion, answers map[int]string, source string) error {
	session, err := quiz.NewSession(questions)
	if err != nil {
		return err
	}
	cmd.Println()
	for _, n := range slices.Sorted(maps.Keys(answers)) {
		r, err := session.SelectAnswer(n, answers[n])
		if err != nil {
			return fmt.Errorf("question %d: %w", n, err)
		}
		verdict := "wrong"
		if r.Correct {
			verdict = "correct"
		}
		cmd.Printf("%d: %s (answer %s). %s\n", n, verdict, r.CorrectLetter, r.Explanation)
	}
	answered := session.Answered()
	var skipped []string
	for _, n := range slices.Sorted(maps.Keys(questions)) {
		if !slices.Contains(answered, n) {
			skipped = append(skipped, strconv.Itoa(n))
		}
	}
	if len(skipped) > 0 {
		cmd.Printf("Unanswered: %s\n", strings.Join(skipped, ", "))
	}
	attempt, err := session.Submit(quiz.AttemptMeta{DocumentName: source, PageNumber: page})
	if err != nil {
		return err
	}
	cmd.Printf("Score: %d/%d\n", attempt.Score, attempt.TotalQuestions)
	return nil
}

// parseAnswers reads "1=A,2=c" into ordinal/letter pairs.
func parseAnswers(s string) (map[int]string, error) {
	out := map[int]string{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		n, err := strconv.Atoi(strings.TrimSpace(k))
		letter := strings.ToUpper(strings.TrimSpace(v))
		if !ok || err != nil || !quiz.IsOptionLetter(letter) {
			return nil, fmt.Errorf("invalid answer %q, want ordinal=letter", pair)
		}
		out[n] = letter
	}
	return out, nil
}
