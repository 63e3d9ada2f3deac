package worker

// archive_worker.go
// Processes bill_archive jobs: writes the saved bill's receipt as a PDF and,
// when the customer left an e-mail, queues the receipt mail.

import (
	"context"
	"encoding/json"
	"fmt"

	"tablepos/internal/printing"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// BillArchivePayload is the job envelope sent to QueueBillArchive.
type BillArchivePayload struct {
	RestaurantID  string  `json:"restaurant_id"`
	BillID        string  `json:"bill_id"`
	CustomerEmail *string `json:"customer_email,omitempty"`
}

// Receipt is a saved bill ready to be archived.
type Receipt struct {
	BillNumber string
	Restaurant string
	GrandTotal string
	Document   printing.Document
	Profile    printing.Profile
}

// ReceiptSource loads the receipt of a saved bill.
type ReceiptSource interface {
	Receipt(ctx context.Context, restaurantID, billID uuid.UUID) (*Receipt, error)
}

// PDFWriter writes a receipt PDF and returns its path.
type PDFWriter func(doc printing.Document, p printing.Profile, storagePath, fileName string) (string, error)

// EmailQueue is satisfied by Dispatcher.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, payload EmailJobPayload) error
}

type BillArchiveWorker struct {
	source      ReceiptSource
	writePDF    PDFWriter
	emails      EmailQueue
	storagePath string
}

func NewBillArchiveWorker(source ReceiptSource, writePDF PDFWriter, emails EmailQueue, storagePath string) *BillArchiveWorker {
	return &BillArchiveWorker{source: source, writePDF: writePDF, emails: emails, storagePath: storagePath}
}

// Process handles a single bill_archive job:
//  1. Load the saved bill's receipt document
//  2. Write it as a PDF at the printer paper width
//  3. Optionally enqueue the e-mail job
func (w *BillArchiveWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload BillArchivePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("archive_worker: invalid payload")
		return nil
	}
	restaurantID, err := uuid.Parse(payload.RestaurantID)
	if err != nil {
		log.Error().Str("restaurant_id", payload.RestaurantID).Msg("archive_worker: invalid restaurant_id")
		return nil
	}
	billID, err := uuid.Parse(payload.BillID)
	if err != nil {
		log.Error().Str("bill_id", payload.BillID).Msg("archive_worker: invalid bill_id")
		return nil
	}

	rc, err := w.source.Receipt(ctx, restaurantID, billID)
	if err != nil {
		return fmt.Errorf("archive_worker: load bill %s: %w", payload.BillID, err)
	}

	pdfPath, err := w.writePDF(rc.Document, rc.Profile, w.storagePath, fmt.Sprintf("bill_%s.pdf", rc.BillNumber))
	if err != nil {
		return fmt.Errorf("archive_worker: pdf for %s: %w", rc.BillNumber, err)
	}
	log.Info().Str("pdf", pdfPath).Str("bill", rc.BillNumber).Msg("archive_worker: receipt archived")

	if payload.CustomerEmail == nil || *payload.CustomerEmail == "" || w.emails == nil {
		return nil
	}
	job := EmailJobPayload{
		ToEmail: *payload.CustomerEmail,
		Subject: fmt.Sprintf("%s: Bill %s", rc.Restaurant, rc.BillNumber),
		Body:    fmt.Sprintf("Thank you for dining with us.\nBill %s\nTotal: %s", rc.BillNumber, rc.GrandTotal),
		PDFPath: pdfPath,
	}
	if err := w.emails.EnqueueEmail(ctx, job); err != nil {
		// the PDF exists; a retry would only duplicate it
		log.Warn().Err(err).Str("email", job.ToEmail).Msg("archive_worker: failed to enqueue email")
	}
	return nil
}
