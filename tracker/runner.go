package tracker

import (
	"fmt"
	"io"
	"log"
	"os"
)

// RunnerConfig collects everything one run of the tool needs, already
// merged from CLI flags and an optional options file by the caller.
type RunnerConfig struct {
	ConfigPath         string
	DRFPath            string
	XLSPath            string
	StudyDir           string
	DBPath             string
	ExclusionPath      string
	AllowSignerChanges bool
	ArrivedOnly        bool
	ResignWhenFinal    bool
	SDV                bool
	Debug              bool
}

// Runner owns one end-to-end pass: parse configuration, open sinks,
// stream the audit trail through the engine, propagate, and write
// results. It follows the teacher's Runner in shape — a single
// long-lived struct built once per process, with one Run call
// doing the actual work — generalized from "poll a directory
// repeatedly" to "process one audit stream."
type Runner struct {
	cfg   RunnerConfig
	sink  *Sink
	sites *SiteTable
}

// NewRunner parses the signature configuration and opens the SQLite
// sink, returning an error for any fatal setup failure (bad config
// path, unparseable configuration, bad DB open) per spec.md §7.
func NewRunner(cfg RunnerConfig) (*Runner, []*SignatureConfig, *ExclusionTable, error) {
	src, err := os.ReadFile(cfg.ConfigPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening configuration %s: %w", cfg.ConfigPath, err)
	}
	configs, errCount := ParseConfig(string(src))
	if errCount > 0 {
		return nil, nil, nil, fmt.Errorf("configuration %s: %d syntax error(s)", cfg.ConfigPath, errCount)
	}

	var exclusions *ExclusionTable
	if cfg.ExclusionPath != "" {
		f, err := os.Open(cfg.ExclusionPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening exclusion table %s: %w", cfg.ExclusionPath, err)
		}
		exclusions, err = LoadExclusions(f)
		f.Close()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("loading exclusion table %s: %w", cfg.ExclusionPath, err)
		}
	}

	var sink *Sink
	if cfg.DBPath != "" {
		sink, err = NewSink(cfg.DBPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening database %s: %w", cfg.DBPath, err)
		}
	}

	var sites *SiteTable
	if cfg.StudyDir != "" {
		sites, err = loadSiteTable(cfg.StudyDir)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("loading site tables from %s: %w", cfg.StudyDir, err)
		}
	}

	r := &Runner{cfg: cfg, sink: sink, sites: sites}
	return r, configs, exclusions, nil
}

func loadSiteTable(studyDir string) (*SiteTable, error) {
	centersPath := studyDir + "/centers.txt"
	f, err := os.Open(centersPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &SiteTable{}, nil
		}
		return nil, err
	}
	defer f.Close()
	table, err := LoadCenters(f)
	if err != nil {
		return nil, err
	}

	countriesPath := studyDir + "/countries.txt"
	cf, err := os.Open(countriesPath)
	if err != nil {
		if os.IsNotExist(err) {
			return table, nil
		}
		return nil, err
	}
	defer cf.Close()
	if err := table.LoadCountries(cf); err != nil {
		return nil, err
	}
	return table, nil
}

// ApplySiteOverrides merges operator-supplied center overrides into the
// runner's loaded site table. It is a no-op when --studydir was not
// given, since there is then no site table to adjust.
func (r *Runner) ApplySiteOverrides(overrides SiteOverrides) error {
	if r.sites == nil || len(overrides.Items) == 0 {
		return nil
	}
	return overrides.Apply(r.sites)
}

// Close commits and closes the sink, if one was opened.
func (r *Runner) Close() error {
	if r.sink == nil {
		return nil
	}
	return r.sink.Close()
}

func (r *Runner) debugf(format string, args ...interface{}) {
	if !r.cfg.Debug {
		return
	}
	log.Printf("debug: "+format, args...)
}

// Run streams audit, builds the engine, propagates, and writes the DRF
// output if a DRF path was configured. It does not write the report;
// it returns the finished node list so callers (tests, main) can
// inspect, digest or render the result (see ReportRows).
func (r *Runner) Run(audit io.Reader, configs []*SignatureConfig, exclusions *ExclusionTable) ([]*SigNode, error) {
	engine := NewEngine(configs, exclusions)
	engine.AllowSignerChanges = r.cfg.AllowSignerChanges
	engine.ResignWhenFinal = r.cfg.ResignWhenFinal
	if r.sink != nil {
		engine.Sink = r.sink
	}

	scanner := NewRecordScanner(audit)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		ev, ok := scanner.Event()
		if !ok {
			r.debugf("line %d: malformed audit row, skipping", lineNo)
			continue
		}
		engine.Dispatch(ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading audit stream: %w", err)
	}

	Propagate(engine.Nodes(), PropagateOptions{
		AllowSignerChanges: r.cfg.AllowSignerChanges,
		ResignWhenFinal:    r.cfg.ResignWhenFinal,
	})

	if r.cfg.DRFPath != "" {
		if err := r.writeDRF(engine.Nodes()); err != nil {
			return nil, err
		}
	}

	r.debugf("run digest: %s", RunDigest(engine.Nodes(), 16))
	return engine.Nodes(), nil
}

func (r *Runner) writeDRF(nodes []*SigNode) error {
	f, err := os.Create(r.cfg.DRFPath)
	if err != nil {
		return fmt.Errorf("opening DRF output %s: %w", r.cfg.DRFPath, err)
	}
	defer f.Close()
	return WriteDRF(f, nodes)
}

// ReportRows builds the report rows for a finished run, using the
// runner's loaded site table and the SDV/arrived-only flags it was
// configured with. The caller (main) is responsible for rendering
// these rows to r.cfg.XLSPath with whatever writer it chooses — this
// keeps the rendering adapter outside the tracker package, per
// spec.md's "pure function from the tracked-object forest to rows"
// boundary.
func (r *Runner) ReportRows(nodes []*SigNode) []ReportRow {
	return BuildReportRows(nodes, ReportOptions{
		SDVMode:     r.cfg.SDV,
		ArrivedOnly: r.cfg.ArrivedOnly,
		Sites:       r.sites,
	})
}
