package reports

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/dataset"
)

// CSVGenerator writes the annotated table of one class as CSV.
type CSVGenerator struct {
	Class dataset.Class
}

// Generate renders the class table, header included even when empty.
func (g *CSVGenerator) Generate(ctx context.Context, set ResultSet) (io.Reader, error) {
	t := set.Table(g.Class)
	if t == nil {
		return nil, fmt.Errorf("no %s results in report", g.Class)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	if err := t.WriteCSV(buf); err != nil {
		return nil, fmt.Errorf("failed to write %s csv: %w", g.Class, err)
	}
	return buf, nil
}
