package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/documentintelligence/internal/ingestion"
)

var ingestOwner string

var ingestCmd = &cobra.Command{
	Use:   "ingest [pdf...]",
	Short: "Classify and upload PDFs into a user's library",
	Long: `Uploads each PDF to the documents bucket, classifies it into one of the
owner's subjects and creates its Firestore record. Requires PROJECT_ID and
DOCUMENTS_BUCKET.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestOwner, "owner", "", "owner user id (required)")
	_ = ingestCmd.MarkFlagRequired("owner")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	files, err := readFiles(args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	f, err := newIngest(ctx)
	if err != nil {
		return err
	}

	events, stop := f.Queue().Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		printEvents(cmd, events)
	}()

	run, err := f.SubmitFiles(ctx, ingestOwner, files)
	if err != nil {
		stop()
		<-done
		return err
	}
	select {
	case <-run.Done():
	case <-ctx.Done():
		cmd.PrintErrln("Interrupted, canceling remaining uploads.")
		<-run.Done()
	}
	items := run.Wait()
	stop()
	<-done

	for _, name := range run.Skipped() {
		cmd.Printf("%-40s skipped, not a PDF\n", name)
	}

	failed := 0
	for _, it := range items {
		if it.Status == ingestion.StatusFailed {
			failed++
		}
	}
	cmd.Printf("%d ingested, %d failed\n", len(items)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(items))
	}
	return nil
}

func printEvents(cmd *cobra.Command, events <-chan ingestion.Event) {
	for ev := range events {
		it := ev.Item
		switch {
		case ev.Removed:
		case it.Status == ingestion.StatusUploading:
			cmd.Printf("%-40s uploading %3d%%\n", it.FileName, it.Progress)
		case it.Status == ingestion.StatusFailed:
			cmd.Printf("%-40s failed (%s): %s\n", it.FileName, it.ErrorKind, it.Error)
		case it.Status == ingestion.StatusCompleted:
			cmd.Printf("%-40s done -> %s [%s]\n", it.FileName, it.DocumentID, it.Subject)
		default:
			cmd.Printf("%-40s %s\n", it.FileName, it.Status)
		}
	}
}

func readFiles(paths []string) ([]ingestion.File, error) {
	files := make([]ingestion.File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, ingestion.File{
			Name:        filepath.Base(p),
			ContentType: mime.TypeByExtension(filepath.Ext(p)),
			Data:        data,
		})
	}
	return files, nil
}
