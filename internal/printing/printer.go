package printing

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Printer sends raw ESC/POS bytes to a thermal printer.
type Printer interface {
	Print(ctx context.Context, data []byte) error
}

// NetworkPrinter dials a raw TCP printer port (usually 9100) per job.
type NetworkPrinter struct {
	address      string
	dialTimeout  time.Duration
	writeTimeout time.Duration
}

// NewNetworkPrinter returns a printer for address, e.g. "192.168.1.100:9100".
func NewNetworkPrinter(address string, timeout time.Duration) *NetworkPrinter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NetworkPrinter{address: address, dialTimeout: timeout, writeTimeout: 2 * timeout}
}

func (p *NetworkPrinter) Address() string { return p.address }

func (p *NetworkPrinter) Print(ctx context.Context, data []byte) error {
	dialer := net.Dialer{Timeout: p.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.address)
	if err != nil {
		return fmt.Errorf("printer: connect %s: %w", p.address, err)
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(p.writeTimeout))
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("printer: write %s: %w", p.address, err)
	}
	return nil
}

// NetworkTarget prints on a LAN printer, as a raster by default or as ESC/POS
// text when TextMode is set and the payload carries a text rendition.
type NetworkTarget struct {
	Printer  Printer
	TextMode bool
}

func (t *NetworkTarget) Kind() TargetKind { return TargetNetwork }

func (t *NetworkTarget) Deliver(ctx context.Context, p Payload) (Result, error) {
	data := p.Text
	if !t.TextMode || len(data) == 0 {
		data = EncodeRaster(p.Image)
	}
	if err := t.Printer.Print(ctx, data); err != nil {
		return Result{}, err
	}
	return Result{Target: TargetNetwork, Bytes: len(data)}, nil
}
