package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/edgecomet/catalog/internal/common/configtypes"
)

const defaultPDFTimeout = 60 * time.Second

// ChromePDFPrinter prints HTML documents through one headless Chrome process.
// Each print runs in its own tab.
type ChromePDFPrinter struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	timeout       time.Duration
	logger        *zap.Logger
}

// NewChromePDFPrinter starts the browser
func NewChromePDFPrinter(cfg configtypes.PDFConfig, logger *zap.Logger) (*ChromePDFPrinter, error) {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-sync", true),
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocatorOpts := append(chromedp.DefaultExecAllocatorOptions[:], opts...)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start Chrome: %w", err)
	}

	timeout := cfg.Timeout.ToDuration()
	if timeout <= 0 {
		timeout = defaultPDFTimeout
	}

	logger.Info("Chrome PDF printer started", zap.Duration("timeout", timeout))

	return &ChromePDFPrinter{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		timeout:       timeout,
		logger:        logger,
	}, nil
}

func (p *ChromePDFPrinter) PrintPDF(ctx context.Context, document []byte) ([]byte, error) {
	tabCtx, cancelTab := chromedp.NewContext(p.browserCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, p.timeout)
	defer cancelTimeout()

	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	start := time.Now().UTC()
	var pdf []byte

	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(document)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("pdf print failed: %w", err)
	}

	p.logger.Debug("PDF printed",
		zap.Int("html_bytes", len(document)),
		zap.Int("pdf_bytes", len(pdf)),
		zap.Duration("duration", time.Since(start)))
	return pdf, nil
}

// Close stops the browser process
func (p *ChromePDFPrinter) Close() {
	p.browserCancel()
	p.allocCancel()
	p.logger.Info("Chrome PDF printer stopped")
}
