package printing

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/rs/zerolog/log"
)

type TargetKind string

const (
	// TargetBridge hands the image to the mobile host app that owns the
	// Bluetooth/USB printer.
	TargetBridge TargetKind = "bridge"
	// TargetWindow renders a print-formatted page for the browser.
	TargetWindow TargetKind = "window"
	// TargetNetwork streams ESC/POS to a LAN printer.
	TargetNetwork TargetKind = "network"
)

var (
	ErrNoTarget      = errors.New("no print target available")
	ErrWindowBlocked = errors.New("print window could not be opened")
	ErrDispatch      = errors.New("print dispatch failed")
)

// Payload is one rendered job ready to leave the process.
type Payload struct {
	Title   string
	Image   image.Image
	Profile Profile
	// Text is an optional ESC/POS text rendition used by printers running in
	// text mode.
	Text []byte
}

// Result describes a completed hand-off.
type Result struct {
	Target TargetKind `json:"target"`
	Bytes  int        `json:"bytes"`
	// Page is the HTML produced for window targets.
	Page []byte `json:"-"`
}

// Target is one destination for a rendered job. A nil error means the
// destination accepted the job; only then may a caller mark anything printed.
type Target interface {
	Kind() TargetKind
	Deliver(ctx context.Context, p Payload) (Result, error)
}

// Route is the per-request input to target selection.
type Route struct {
	// Prefer forces a target kind; empty selects automatically.
	Prefer TargetKind
	// Device is the paired printer configured for the caller's session.
	Device Device
	// Window opens browser pages for this request; nil when the caller
	// cannot display one.
	Window WindowOpener
}

type DispatcherConfig struct {
	Bridge          Bridge
	Printer         Printer
	PrinterTextMode bool
}

// Dispatcher picks a Target for each job and delivers to it. It never retries;
// a failed job is reported back so the operator can print again.
type Dispatcher struct {
	bridge   Bridge
	printer  Printer
	textMode bool
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		bridge:   cfg.Bridge,
		printer:  cfg.Printer,
		textMode: cfg.PrinterTextMode,
	}
}

// Select resolves r into a Target. Automatic selection prefers the bridge
// when one is wired and the session has a paired device, then the browser
// window, then the network printer.
func (d *Dispatcher) Select(r Route) (Target, error) {
	bridgeOK := d.bridge != nil && r.Device.Valid()
	switch r.Prefer {
	case TargetBridge:
		if bridgeOK {
			return &BridgeTarget{Bridge: d.bridge, Device: r.Device}, nil
		}
	case TargetWindow:
		if r.Window != nil {
			return &WindowTarget{Opener: r.Window}, nil
		}
	case TargetNetwork:
		if d.printer != nil {
			return &NetworkTarget{Printer: d.printer, TextMode: d.textMode}, nil
		}
	case "":
		switch {
		case bridgeOK:
			return &BridgeTarget{Bridge: d.bridge, Device: r.Device}, nil
		case r.Window != nil:
			return &WindowTarget{Opener: r.Window}, nil
		case d.printer != nil:
			return &NetworkTarget{Printer: d.printer, TextMode: d.textMode}, nil
		}
	default:
		return nil, fmt.Errorf("%w: unknown target %q", ErrNoTarget, r.Prefer)
	}
	return nil, ErrNoTarget
}

// Dispatch selects a target for r and delivers p to it.
func (d *Dispatcher) Dispatch(ctx context.Context, p Payload, r Route) (Result, error) {
	if p.Image == nil {
		return Result{}, fmt.Errorf("%w: empty image", ErrDispatch)
	}
	target, err := d.Select(r)
	if err != nil {
		return Result{}, err
	}
	res, err := target.Deliver(ctx, p)
	if err != nil {
		log.Warn().Err(err).Str("target", string(target.Kind())).Str("job", p.Title).Msg("print: dispatch failed")
		return res, fmt.Errorf("%w (%s): %w", ErrDispatch, target.Kind(), err)
	}
	res.Target = target.Kind()
	log.Debug().Str("target", string(res.Target)).Str("job", p.Title).Int("bytes", res.Bytes).Msg("print: dispatched")
	return res, nil
}
