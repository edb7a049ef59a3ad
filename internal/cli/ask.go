package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/documentintelligence/internal/rag"
	"github.com/Lllllllleong/documentintelligence/internal/services"
)

var (
	askTopK        int
	askShowSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask [pdf] [question]",
	Short: "Answer a question from one page of a PDF",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runAsk,
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [pdf]",
	Short: "Summarize one page of a PDF in a few lines",
	Args:  cobra.ExactArgs(1),
	RunE:  runSummarize,
}

var chunksCmd = &cobra.Command{
	Use:   "chunks [pdf]",
	Short: "Print the retrieval chunks of one page",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunks,
}

func init() {
	for _, c := range []*cobra.Command{askCmd, summarizeCmd, chunksCmd} {
		c.Flags().IntVarP(&page, "page", "p", 1, "1-based page number")
		rootCmd.AddCommand(c)
	}
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "passages to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askShowSources, "sources", false, "print the retrieved passages")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, text, completer, err := pageSetup(ctx, args[0])
	if err != nil {
		return err
	}
	scope, err := rag.NewScope(services.NewEmbedder(cfg.Engine, completer), cfg.Engine.ChunkSize, cfg.Engine.ChunkOverlap)
	if err != nil {
		return err
	}
	if err := scope.Initialize(ctx, text); err != nil {
		return fmt.Errorf("failed to index page: %w", err)
	}

	answerer := rag.NewAnswerer(completer, modelName(cfg))
	answerer.TopK = cfg.Engine.TopK
	if askTopK > 0 {
		answerer.TopK = askTopK
	}
	answer, err := answerer.Answer(ctx, scope, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	cmd.Println(answer.Text)
	if askShowSources {
		for i, c := range answer.Sources {
			cmd.Printf("\n[%d] chunk %d:\n%s\n", i+1, c.Index, c.Text)
		}
	}
	return nil
}

func runSummarize(cmd *cobra.Command, args []string) error {
	cfg, text, completer, err := pageSetup(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	s := &rag.Summarizer{Completer: completer, Model: modelName(cfg)}
	summary, err := s.Summarize(cmd.Context(), text)
	if err != nil {
		return err
	}
	cmd.Println(summary)
	return nil
}

func runChunks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	text, err := readPage(args[0], page)
	if err != nil {
		return err
	}
	chunks, err := rag.ChunkText(text, cfg.Engine.ChunkSize, cfg.Engine.ChunkOverlap)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		cmd.Printf("--- chunk %d (offset %d, %d runes)\n%s\n", c.Index, c.Start, len([]rune(c.Text)), c.Text)
	}
	return nil
}
