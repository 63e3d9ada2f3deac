package service

import (
	"context"
	"strings"
	"time"

	"tablepos/internal/dto"
	"tablepos/internal/model"
	"tablepos/internal/printing"
	"tablepos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	PrintKindBill = "bill"
	PrintKindKOT  = "kot"
)

// PrintJob is one document to send for a session.
type PrintJob struct {
	Kind   string
	RefID  uuid.UUID
	KOTIDs []uuid.UUID
	// Document is rasterised; TextDocument, when set, is the rendition sent
	// to printers in text mode.
	Document     printing.Document
	TextDocument *printing.Document
	Settings     model.Settings
	Request      dto.PrintRequest
	// Window is the browser page sink for this request, nil for clients
	// that cannot show one.
	Window printing.WindowOpener
}

type PrinterConfig struct {
	Dispatcher  *printing.Dispatcher
	Profiles    printing.Profiles
	RasterScale float64
	AutoDelay   time.Duration
	Jobs        repository.PrintJobRepository
}

// Printer renders documents with the restaurant's printer profile, hands
// them to the dispatcher and keeps the print audit.
type Printer struct {
	dispatcher *printing.Dispatcher
	profiles   printing.Profiles
	scale      float64
	delay      time.Duration
	jobs       repository.PrintJobRepository
}

func NewPrinter(cfg PrinterConfig) *Printer {
	if cfg.Profiles == nil {
		cfg.Profiles = printing.DefaultProfiles()
	}
	if cfg.RasterScale <= 0 {
		cfg.RasterScale = printing.DefaultRasterScale
	}
	if cfg.AutoDelay <= 0 {
		cfg.AutoDelay = printing.DefaultAutoPrintDelay
	}
	return &Printer{
		dispatcher: cfg.Dispatcher,
		profiles:   cfg.Profiles,
		scale:      cfg.RasterScale,
		delay:      cfg.AutoDelay,
		jobs:       cfg.Jobs,
	}
}

// Profile returns the profile for the settings' paper width.
func (p *Printer) Profile(st model.Settings) printing.Profile {
	return p.profiles.Select(st.PrinterWidth)
}

// Print renders and dispatches job once. Auto requests wait for the layout
// delay before rendering; anything else prints immediately. Failures are
// returned, never retried.
func (p *Printer) Print(ctx context.Context, sess Session, job PrintJob) (printing.Result, error) {
	profile := p.Profile(job.Settings)
	route := printing.Route{
		Prefer: printing.TargetKind(job.Request.Target),
		Device: bridgeDevice(sess, job.Settings),
		Window: job.Window,
	}
	send := func(ctx context.Context) (printing.Result, error) {
		return p.dispatcher.Dispatch(ctx, p.payload(job, profile), route)
	}

	ps := printing.NewSession(p.delay, send)
	var (
		res printing.Result
		err error
	)
	if job.Request.Auto {
		res, err = ps.Start(ctx)
	} else {
		res, err = ps.PrintAgain(ctx)
	}
	p.audit(ctx, sess, job, res, err, ps.Attempts())
	return res, err
}

func (p *Printer) payload(job PrintJob, profile printing.Profile) printing.Payload {
	payload := printing.Payload{
		Title:   job.Document.Title,
		Image:   printing.Render(job.Document, profile, p.scale),
		Profile: profile,
	}
	if job.Settings.PrinterMode == "text" {
		textDoc := job.Document
		if job.TextDocument != nil {
			textDoc = *job.TextDocument
		}
		payload.Text = printing.EncodeText(textDoc, profile)
	}
	return payload
}

func (p *Printer) audit(ctx context.Context, sess Session, job PrintJob, res printing.Result, err error, attempts int) {
	if p.jobs == nil {
		return
	}
	rec := &model.PrintJob{
		RestaurantID: sess.RestaurantID,
		Kind:         job.Kind,
		RefID:        job.RefID,
		Target:       string(res.Target),
		Status:       "sent",
		Bytes:        res.Bytes,
		StaffID:      sess.UserID,
	}
	if rec.Target == "" {
		rec.Target = job.Request.Target
	}
	if rec.Target == "" {
		rec.Target = "auto"
	}
	if len(job.KOTIDs) > 0 {
		ids := make([]string, len(job.KOTIDs))
		for i, id := range job.KOTIDs {
			ids[i] = id.String()
		}
		joined := strings.Join(ids, ",")
		rec.KOTIDs = &joined
	}
	if err != nil {
		msg := err.Error()
		rec.Status = "failed"
		if attempts == 0 {
			// left the print screen before the auto print fired
			rec.Status = "cancelled"
		}
		rec.LastError = &msg
	}
	// the audit row must not turn a delivered job into a failure
	if aerr := p.jobs.Create(context.WithoutCancel(ctx), rec); aerr != nil {
		log.Warn().Err(aerr).Str("kind", job.Kind).Msg("print: audit write failed")
	}
}
