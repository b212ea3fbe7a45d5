package reports

import (
	"bytes"
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edgecomet/catalog/internal/common/configtypes"
)

func findChrome(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("chrome not installed")
	return ""
}

func TestChromePDFPrinter_PrintsTable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	execPath := findChrome(t)

	printer, err := NewChromePDFPrinter(configtypes.PDFConfig{
		Enabled:  true,
		ExecPath: execPath,
		Timeout:  configtypes.Duration(30 * time.Second),
	}, zap.NewNop())
	require.NoError(t, err)
	defer printer.Close()

	out, err := testTable().Render(context.Background(), FormatPDF, printer)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
