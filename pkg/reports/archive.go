package reports

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/dataset"
)

// EntryName is the CSV file name of a class inside the archive.
func EntryName(c dataset.Class, identifier string) string {
	return fmt.Sprintf("%s_impact_%s.csv", c, identifier)
}

// ArchiveName is the download name for an identifier at time t.
func ArchiveName(identifier string, t time.Time) string {
	return downloadName(identifier, t, "zip")
}

// SummaryName is the download name of the JSON summary.
func SummaryName(identifier string, t time.Time) string {
	return downloadName(identifier, t, "json")
}

func downloadName(identifier string, t time.Time, ext string) string {
	safe := strings.NewReplacer("/", "_", `\`, "_", ".", "_").Replace(identifier)
	return fmt.Sprintf("network_impact_%s_%s.%s", safe, t.Format("20060102_150405"), ext)
}

// ArchiveGenerator packs every class table into one zip archive.
type ArchiveGenerator struct{}

func (g *ArchiveGenerator) Generate(ctx context.Context, set ResultSet) (io.Reader, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	for _, c := range dataset.Classes {
		t := set.Table(c)
		if t == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w, err := zw.Create(EntryName(c, set.Identifier))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s entry: %w", c, err)
		}
		if err := t.WriteCSV(w); err != nil {
			return nil, fmt.Errorf("failed to write %s entry: %w", c, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close archive: %w", err)
	}
	return buf, nil
}
