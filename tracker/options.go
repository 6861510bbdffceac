package tracker

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SiteOverride gives one center a patient range override outside of
// the normal centers file, for studies that need to carve out a
// temporary or corrected range without re-running the centers loader.
type SiteOverride struct {
	Center int64  `yaml:"center"`
	Ranges string `yaml:"ranges"`
}

// SiteOverrides accepts either:
//  1. mapping form (preferred):
//     site_overrides:
//       101: "1-50"
//       102: "51-100"
//  2. legacy list form:
//     site_overrides:
//       - center: 101
//         ranges: "1-50"
type SiteOverrides struct {
	Items []SiteOverride
}

func (s *SiteOverrides) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case yaml.MappingNode:
		items := make([]SiteOverride, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			k := value.Content[i]
			v := value.Content[i+1]
			center, err := strconv.ParseInt(strings.TrimSpace(k.Value), 10, 64)
			if err != nil {
				return fmt.Errorf("site override key %q is not a center number: %w", k.Value, err)
			}
			ranges := strings.TrimSpace(v.Value)
			if ranges == "" {
				continue
			}
			items = append(items, SiteOverride{Center: center, Ranges: ranges})
		}
		s.Items = items
		return nil
	case yaml.SequenceNode:
		var items []SiteOverride
		if err := value.Decode(&items); err != nil {
			return err
		}
		s.Items = items
		return nil
	default:
		return nil
	}
}

// Apply merges overrides into an already-loaded SiteTable, replacing
// each named center's patient range wholesale. This is operator-supplied
// configuration, not audit-trail data, so an unknown center number or a
// malformed range is returned as an error rather than skipped — the
// caller should treat a non-nil error as fatal.
func (s *SiteOverrides) Apply(t *SiteTable) error {
	for _, o := range s.Items {
		rs, err := ParseRangeSet(o.Ranges)
		if err != nil {
			return fmt.Errorf("site override for center %d: %w", o.Center, err)
		}
		var found bool
		for _, c := range t.centers {
			if c.Number == o.Center {
				c.Patients = rs
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("site override for center %d: no such center", o.Center)
		}
	}
	return nil
}

// RunOptions seeds CLI flag defaults from an optional --options-file.
// Flags explicitly given on the command line always win; this mirrors
// the teacher's config-file-vs-flag precedence, generalized from a
// single monolithic FileConfig to the handful of flags this tool
// exposes.
type RunOptions struct {
	ConfigPath         string         `yaml:"config_path"`
	DRFPath            string         `yaml:"drf_path"`
	XLSPath            string         `yaml:"xls_path"`
	StudyDir           string         `yaml:"study_dir"`
	DBPath             string         `yaml:"db_path"`
	ExclusionPath      string         `yaml:"exclusion_path"`
	PriorityFilePath   string         `yaml:"priority_file_path"`
	AllowSignerChanges bool           `yaml:"allow_signer_changes"`
	ArrivedOnly        bool           `yaml:"arrived_only"`
	ResignWhenFinal    bool           `yaml:"resign_when_final"`
	SDV                bool           `yaml:"sdv"`
	SiteOverrides      SiteOverrides  `yaml:"site_overrides"`
}

// LoadRunOptions reads a YAML options file. A missing or unreadable file
// is returned as an error, as is YAML that does not decode.
func LoadRunOptions(path string) (*RunOptions, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading options file %s: %w", path, err)
	}
	var opts RunOptions
	if err := yaml.Unmarshal(b, &opts); err != nil {
		return nil, fmt.Errorf("parsing options file %s: %w", path, err)
	}
	return &opts, nil
}
