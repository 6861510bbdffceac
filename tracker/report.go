package tracker

// ReportOptions controls how BuildReportRows renders the tracked-object
// forest: whether to use the SDV vocabulary, whether to omit
// obligations that were never observed in the run, and the site table
// (may be nil) used to fill in center, country and region.
type ReportOptions struct {
	SDVMode     bool
	ArrivedOnly bool
	Sites       *SiteTable
}

// ReportRow is one rendered line of the report: the decision for a
// single signature obligation. Rendering (colour, merged cells) is the
// concern of a downstream writer; this struct carries only data.
type ReportRow struct {
	Patient     int64
	Visit       int64
	SigPlate    int64
	Name        string
	StateLabel  string
	Signer      string
	Date        string
	Time        string
	CenterName  string
	Country     string
	Region      string
	ChangeCount int
}

// BuildReportRows converts a finished (post-Propagate) forest of nodes
// into plain report rows, one per obligation. Nodes that never saw
// their signature plate are omitted when opts.ArrivedOnly is set.
func BuildReportRows(nodes []*SigNode, opts ReportOptions) []ReportRow {
	var rows []ReportRow
	for _, node := range nodes {
		if opts.ArrivedOnly && !node.RecSeen {
			continue
		}
		row := ReportRow{
			Patient:    node.Patient,
			Visit:      node.Visit,
			SigPlate:   node.Config.SigPlate,
			Name:       node.Config.Name,
			StateLabel: StateLabel(node.Status, opts.SDVMode),
			Signer:     node.Signer,
			Date:       node.Date,
			Time:       node.Time,
		}
		for _, plate := range node.plates {
			row.ChangeCount += len(plate.changes)
		}
		if opts.Sites != nil {
			if c := opts.Sites.FindCenter(node.Patient); c != nil {
				row.CenterName = c.Contact
				row.Country = opts.Sites.FindCountry(c.Number)
				row.Region = opts.Sites.FindRegion(c.Number)
			}
		}
		rows = append(rows, row)
	}
	return rows
}
