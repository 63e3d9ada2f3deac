package printing

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strconv"
	"sync"
)

// Window is a print-formatted page the receipt is injected into.
type Window interface {
	Write(page []byte) error
	Print() error
	Close() error
}

// WindowOpener opens a Window sized to the paper. It fails when no window can
// be shown to the operator.
type WindowOpener interface {
	Open(widthMM float64) (Window, error)
}

var pageTmpl = template.Must(template.New("print").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
@page { size: {{.Width}}mm auto; margin: 0; }
html, body { margin: 0; padding: 0; background: #fff; }
body { width: {{.Width}}mm; }
img { display: block; width: 100%; }
</style>
</head>
<body>
<img src="{{.Src}}" alt="{{.Title}}">
</body>
</html>
`))

type pageData struct {
	Title string
	Width string
	Src   template.URL
}

// WindowTarget renders the raster into an HTML page and asks the window to
// print and close itself.
type WindowTarget struct {
	Opener WindowOpener
}

func (t *WindowTarget) Kind() TargetKind { return TargetWindow }

func (t *WindowTarget) Deliver(_ context.Context, p Payload) (Result, error) {
	w, err := t.Opener.Open(p.Profile.PaperWidthMM)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrWindowBlocked, err)
	}
	if w == nil {
		return Result{}, ErrWindowBlocked
	}

	src, err := DataURI(p.Image)
	if err != nil {
		return Result{}, err
	}
	var page bytes.Buffer
	err = pageTmpl.Execute(&page, pageData{
		Title: p.Title,
		Width: strconv.FormatFloat(p.Profile.PaperWidthMM, 'f', -1, 64),
		Src:   template.URL(src),
	})
	if err != nil {
		return Result{}, fmt.Errorf("window: render page: %w", err)
	}
	if err := w.Write(page.Bytes()); err != nil {
		return Result{}, err
	}
	if err := w.Print(); err != nil {
		return Result{}, err
	}
	if err := w.Close(); err != nil {
		return Result{}, err
	}

	res := Result{Target: TargetWindow, Bytes: page.Len()}
	if pw, ok := w.(*PageWindow); ok {
		res.Page = pw.Bytes()
		res.Bytes = len(res.Page)
	}
	return res, nil
}

// PageOpener produces in-memory pages served back to the browser that made
// the request. The zero value is ready to use.
type PageOpener struct {
	mu    sync.Mutex
	pages []*PageWindow
}

func (o *PageOpener) Open(widthMM float64) (Window, error) {
	if widthMM <= 0 {
		return nil, fmt.Errorf("window: invalid paper width %v", widthMM)
	}
	w := &PageWindow{widthMM: widthMM}
	o.mu.Lock()
	o.pages = append(o.pages, w)
	o.mu.Unlock()
	return w, nil
}

// Last returns the most recently opened page, or nil.
func (o *PageOpener) Last() *PageWindow {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.pages) == 0 {
		return nil
	}
	return o.pages[len(o.pages)-1]
}

// PageWindow buffers one HTML page. Print and Close append the script that
// opens the print dialog and shuts the window once the image has loaded.
type PageWindow struct {
	widthMM float64
	body    []byte
	printed bool
	closed  bool
}

func (w *PageWindow) Write(page []byte) error {
	if w.closed {
		return fmt.Errorf("window: write after close")
	}
	w.body = append(w.body, page...)
	return nil
}

func (w *PageWindow) Print() error {
	if w.closed {
		return fmt.Errorf("window: print after close")
	}
	w.printed = true
	return nil
}

func (w *PageWindow) Close() error {
	w.closed = true
	return nil
}

func (w *PageWindow) Printed() bool    { return w.printed }
func (w *PageWindow) Closed() bool     { return w.closed }
func (w *PageWindow) WidthMM() float64 { return w.widthMM }

// Bytes is the finished page including the print script.
func (w *PageWindow) Bytes() []byte {
	if !w.printed {
		return w.body
	}
	script := "<script>window.onload=function(){window.focus();window.print();"
	if w.closed {
		script += "window.close();"
	}
	script += "};</script>\n"

	idx := bytes.LastIndex(w.body, []byte("</body>"))
	if idx < 0 {
		return append(append([]byte{}, w.body...), script...)
	}
	out := make([]byte, 0, len(w.body)+len(script))
	out = append(out, w.body[:idx]...)
	out = append(out, script...)
	return append(out, w.body[idx:]...)
}
