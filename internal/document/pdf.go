package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// extractPDF validates the file and counts pages with pdfcpu, then pulls the
// text layer page by page. Unreadable pages are skipped. Corrupt streams can
// panic inside the text extractor, so that is recovered into an error.
func extractPDF(data []byte) (pages int, text string, err error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	pages = ctx.PageCount

	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: panic during text extraction: %v", ErrInvalidPDF, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return pages, "", fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, perr := page.GetPlainText(nil)
		if perr != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return pages, sb.String(), nil
}
