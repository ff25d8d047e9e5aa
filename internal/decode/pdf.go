package decode

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
)

// lineTolerance is the baseline shift, in text space units, that separates two lines.
const lineTolerance = 1.0

// decodePDF extracts text one line per baseline, pages in order.
func decodePDF(data []byte) (text string, err error) {
	// The PDF reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var lines []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		lines = append(lines, pageLines(page.Content().Text)...)
	}

	return joinLines(lines), nil
}

// pageLines groups text runs into lines in content-stream order.
// A run starts a new line when its baseline moves by more than lineTolerance.
func pageLines(runs []pdf.Text) []string {
	var (
		lines []string
		b     strings.Builder
		y     float64
	)
	for i, run := range runs {
		if i > 0 && math.Abs(run.Y-y) > lineTolerance {
			lines = append(lines, b.String())
			b.Reset()
		}
		y = run.Y
		b.WriteString(run.S)
	}
	if b.Len() > 0 {
		lines = append(lines, b.String())
	}
	return lines
}
