// Package export writes files derived from signed documents.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/pto-workflow/internal/application/dispatcher"
	"github.com/garyjia/pto-workflow/internal/application/projection"
	"github.com/garyjia/pto-workflow/internal/domain/event"
	domainwf "github.com/garyjia/pto-workflow/internal/domain/workflow"
)

const (
	sheetName       = "Approval"
	timelineHeadRow = 8
)

var timelineColumns = []string{"No.", "Action", "From", "To", "Performed by", "Occurred at", "Comment"}

// ErrNotSigned is returned when the history holds no matching SIGN transition
var ErrNotSigned = errors.New("no signature in history")

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DocumentSource supplies the views written to the sheet
type DocumentSource interface {
	Document(ctx context.Context, documentID string) (*projection.DocumentView, error)
	Timeline(ctx context.Context, documentID string) ([]projection.TimelineEntry, error)
}

// SignedSheetWriter renders the approval sheet of a signed document as .xlsx
type SignedSheetWriter struct {
	source    DocumentSource
	outputDir string
	logger    *zap.Logger
}

// NewSignedSheetWriter creates a writer that stores files under outputDir
func NewSignedSheetWriter(source DocumentSource, outputDir string, logger *zap.Logger) *SignedSheetWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignedSheetWriter{source: source, outputDir: outputDir, logger: logger}
}

// Register subscribes the writer to document.signed
func (w *SignedSheetWriter) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeDocumentSigned, "signed-sheet", w.Handle)
}

// Handle writes the sheet for the SIGN transition that declared the intent
func (w *SignedSheetWriter) Handle(ctx context.Context, evt *event.Event) error {
	_, err := w.Write(ctx, evt.DocumentID, evt.GetPayloadInt(event.KeySequenceNumber))
	return err
}

// Write renders the sheet as of the SIGN transition at signedSeq and returns
// its path. A signedSeq of zero selects the latest SIGN in the history.
func (w *SignedSheetWriter) Write(ctx context.Context, documentID string, signedSeq int64) (string, error) {
	view, err := w.source.Document(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("load document: %w", err)
	}
	timeline, err := w.source.Timeline(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("load timeline: %w", err)
	}
	timeline, signed, err := cutAtSignature(timeline, signedSeq)
	if err != nil {
		return "", fmt.Errorf("document %s: %w", documentID, err)
	}

	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName(file.GetSheetName(0), sheetName); err != nil {
		return "", fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := w.fillHeader(file, view, signed); err != nil {
		return "", fmt.Errorf("failed to fill header: %w", err)
	}
	if err := w.fillTimeline(file, timeline); err != nil {
		return "", fmt.Errorf("failed to fill timeline: %w", err)
	}

	dir := filepath.Join(w.outputDir, safeName(view.ProjectID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, safeName(view.ID)+"-signed.xlsx")

	if err := file.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	w.logger.Info("Signed approval sheet written",
		zap.String("document_id", view.ID),
		zap.Int64("signed_sequence", signed.SequenceNumber),
		zap.String("output_path", path),
		zap.Int("timeline_rows", len(timeline)))
	return path, nil
}

// cutAtSignature drops every entry after the SIGN transition and returns it.
// Transitions recorded later, such as ARCHIVE, never reach the sheet.
func cutAtSignature(timeline []projection.TimelineEntry, signedSeq int64) ([]projection.TimelineEntry, projection.TimelineEntry, error) {
	for i := len(timeline) - 1; i >= 0; i-- {
		e := timeline[i]
		if signedSeq > 0 && e.SequenceNumber != signedSeq {
			continue
		}
		if e.Action != domainwf.ActionSign {
			if signedSeq > 0 {
				return nil, projection.TimelineEntry{}, fmt.Errorf("%w: transition %d is %s", ErrNotSigned, signedSeq, e.Action)
			}
			continue
		}
		return timeline[:i+1], e, nil
	}
	if signedSeq > 0 {
		return nil, projection.TimelineEntry{}, fmt.Errorf("%w: transition %d not in history", ErrNotSigned, signedSeq)
	}
	return nil, projection.TimelineEntry{}, ErrNotSigned
}

func (w *SignedSheetWriter) fillHeader(file *excelize.File, view *projection.DocumentView, signed projection.TimelineEntry) error {
	rows := [][2]interface{}{
		{"Document", view.ID},
		{"Type", view.DocumentType},
		{"Project", view.ProjectID},
		{"Location", view.Location()},
		{"Status", signed.ToStatus.String()},
		{"Signed by", signed.PerformedBy},
		{"Signed at", signed.OccurredAt.UTC().Format(time.RFC3339)},
	}
	for i, r := range rows {
		if err := file.SetSheetRow(sheetName, fmt.Sprintf("A%d", i+1), &[]interface{}{r[0], r[1]}); err != nil {
			return err
		}
	}
	return nil
}

func (w *SignedSheetWriter) fillTimeline(file *excelize.File, timeline []projection.TimelineEntry) error {
	head := make([]interface{}, len(timelineColumns))
	for i, c := range timelineColumns {
		head[i] = c
	}
	if err := file.SetSheetRow(sheetName, fmt.Sprintf("A%d", timelineHeadRow), &head); err != nil {
		return err
	}

	for i, e := range timeline {
		comment := ""
		if e.Comment != nil {
			comment = *e.Comment
		}
		row := []interface{}{
			e.SequenceNumber,
			e.Action.String(),
			e.FromStatus.String(),
			e.ToStatus.String(),
			e.PerformedBy,
			e.OccurredAt.UTC().Format(time.RFC3339),
			comment,
		}
		cell := fmt.Sprintf("A%d", timelineHeadRow+1+i)
		if err := file.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return nil
}

func safeName(s string) string {
	s = unsafeName.ReplaceAllString(s, "_")
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
