// Package snapshot loads the frozen set of report and topology tables the
// analyzers are built from.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/blob"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/dataset"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/engine"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/graph"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/table"
)

// Source yields tables by name.
type Source interface {
	LoadTable(ctx context.Context, name string) (*table.Table, error)
}

// Inventory is a Source that can tell which tables exist without reading
// them. Load checks it first so that every absent table is named at once.
type Inventory interface {
	Missing(ctx context.Context, names ...string) ([]string, error)
}

// Names maps the five snapshot tables to source names.
type Names struct {
	ReportWE     string `mapstructure:"report_we" yaml:"report_we"`
	ReportOthers string `mapstructure:"report_others" yaml:"report_others"`
	OSPF         string `mapstructure:"ospf" yaml:"ospf"`
	WAN          string `mapstructure:"wan" yaml:"wan"`
	Aggregation  string `mapstructure:"agg" yaml:"agg"`
}

// BlobNames are the export file names of the provisioning system.
var BlobNames = Names{
	ReportWE:     "Report(11).csv",
	ReportOthers: "Report(12).csv",
	OSPF:         "res_ospf.csv",
	WAN:          "wan.csv",
	Aggregation:  "agg.csv",
}

// TableNames are the names used by the import command for database stores.
var TableNames = Names{
	ReportWE:     "report_we",
	ReportOthers: "report_others",
	OSPF:         "ospf",
	WAN:          "wan",
	Aggregation:  "agg",
}

// WithDefaults fills empty names from def.
func (n Names) WithDefaults(def Names) Names {
	pick := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	return Names{
		ReportWE:     pick(n.ReportWE, def.ReportWE),
		ReportOthers: pick(n.ReportOthers, def.ReportOthers),
		OSPF:         pick(n.OSPF, def.OSPF),
		WAN:          pick(n.WAN, def.WAN),
		Aggregation:  pick(n.Aggregation, def.Aggregation),
	}
}

// Report returns the source name of a class report.
func (n Names) Report(c dataset.Class) string {
	if c == dataset.ClassOthers {
		return n.ReportOthers
	}
	return n.ReportWE
}

// Snapshot is the read-only input of every analysis.
type Snapshot struct {
	Reports  map[dataset.Class]*table.Table
	Topology graph.Sources
	LoadedAt time.Time
}

// Load reads all five tables concurrently.
func Load(ctx context.Context, src Source, names Names) (*Snapshot, error) {
	var (
		we, others, ospf, wan, agg *table.Table
	)
	targets := []struct {
		name string
		dst  **table.Table
	}{
		{names.ReportWE, &we},
		{names.ReportOthers, &others},
		{names.OSPF, &ospf},
		{names.WAN, &wan},
		{names.Aggregation, &agg},
	}

	if inv, ok := src.(Inventory); ok {
		all := make([]string, 0, len(targets))
		for _, tgt := range targets {
			all = append(all, tgt.name)
		}
		missing, err := inv.Missing(ctx, all...)
		if err != nil {
			return nil, err
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("load %s: %w", strings.Join(missing, ", "), blob.ErrNotFound)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, tgt := range targets {
		g.Go(func() error {
			t, err := src.LoadTable(gctx, tgt.name)
			if err != nil {
				return fmt.Errorf("load %s: %w", tgt.name, err)
			}
			*tgt.dst = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Snapshot{
		Reports: map[dataset.Class]*table.Table{
			dataset.ClassWE:     we,
			dataset.ClassOthers: others,
		},
		Topology: graph.Sources{OSPF: ospf, WAN: wan, Aggregation: agg},
		LoadedAt: time.Now().UTC(),
	}, nil
}

// Analyzers builds one analyzer per class. Both graphs share the layer
// hints of every report, so a BNG named only by the WE report is a root for
// Others circuits too. A class whose report is unusable is logged and left
// out, so the runner reports not ready.
func (s *Snapshot) Analyzers(logger *slog.Logger, opts ...engine.Option) (*engine.Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]engine.Option{
		engine.WithLogger(logger),
		engine.WithLayerHints(dataset.ReportHints(s.Reports)),
	}, opts...)

	var analyzers []*engine.Analyzer
	var errs []error
	for _, c := range dataset.Classes {
		a, err := engine.New(s.Reports[c], c, s.Topology, opts...)
		if err != nil {
			logger.Error("analyzer_init_failed", "class", c, "error", err)
			errs = append(errs, err)
			continue
		}
		analyzers = append(analyzers, a)
	}
	if len(analyzers) == 0 {
		return nil, errors.Join(errs...)
	}
	return engine.NewRunner(analyzers...), nil
}

// BlobSource reads CSV exports from a blob store.
type BlobSource struct {
	Store blob.BlobStore
}

func (b BlobSource) LoadTable(ctx context.Context, name string) (*table.Table, error) {
	r, err := b.Store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return table.ReadCSV(name, r)
}

// Missing lists the names that have no object in the store, in order.
func (b BlobSource) Missing(ctx context.Context, names ...string) ([]string, error) {
	keys, err := b.Store.List(ctx, "")
	if err != nil {
		return nil, err
	}
	present := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		present[k] = struct{}{}
	}
	var missing []string
	for _, n := range names {
		if _, ok := present[n]; !ok {
			missing = append(missing, n)
		}
	}
	return missing, nil
}

// Export writes a table to a blob store as CSV.
func Export(ctx context.Context, store blob.BlobStore, name string, t *table.Table) error {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(t.WriteCSV(pw))
	}()
	err := store.Put(ctx, name, pr)
	pr.Close()
	return err
}
