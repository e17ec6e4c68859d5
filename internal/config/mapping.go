package config

import (
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// FieldKind controls how a source field is converted into a destination attribute.
type FieldKind string

const (
	KindText      FieldKind = "text"
	KindNumber    FieldKind = "number"
	KindDate      FieldKind = "date"
	KindBool      FieldKind = "bool"
	KindPrimary   FieldKind = "primary"   // first of several ';' separated values
	KindList      FieldKind = "list"      // every ';' separated value
	KindRichText  FieldKind = "richtext"  // plain-text extraction into a single block
	KindImage     FieldKind = "image"     // relocated asset
	KindCategory  FieldKind = "category"  // remapped through the job category table
	KindReference FieldKind = "reference" // ordered list of weak references
)

var knownKinds = map[FieldKind]bool{
	KindText: true, KindNumber: true, KindDate: true, KindBool: true, KindPrimary: true,
	KindList: true, KindRichText: true, KindImage: true, KindCategory: true, KindReference: true,
}

type SourceKind string

const (
	SourceWebflow SourceKind = "webflow"
	SourceCSV     SourceKind = "csv"
)

type (
	// Mapping is the parsed job file.
	Mapping struct {
		Jobs []Job `yaml:"jobs"`
	}

	// Job migrates one source collection into one destination document type.
	Job struct {
		Name          string            `yaml:"name"`
		Type          string            `yaml:"type"`
		Source        JobSource         `yaml:"source"`
		NameField     string            `yaml:"name_field"`
		SlugField     string            `yaml:"slug_field"`
		ExcludeIfTrue []string          `yaml:"exclude_if_true"`
		SkipArchived  bool              `yaml:"skip_archived"`
		SkipDrafts    bool              `yaml:"skip_drafts"`
		Categories    map[string]string `yaml:"categories"`
		Fields        []FieldMapping    `yaml:"fields"`
		Enrich        *EnrichMapping    `yaml:"enrich"`
	}

	JobSource struct {
		Kind       SourceKind `yaml:"kind"`
		Collection string     `yaml:"collection"` // Webflow collection id, slug or display name
		Path       string     `yaml:"path"`       // CSV file path
	}

	FieldMapping struct {
		Source    string    `yaml:"source"`
		Target    string    `yaml:"target"`
		Kind      FieldKind `yaml:"kind"`
		RefPrefix string    `yaml:"ref_prefix"`
	}

	EnrichMapping struct {
		Field         string `yaml:"field"`
		SummaryTarget string `yaml:"summary_target"`
		TagsTarget    string `yaml:"tags_target"`
		ImageAlt      bool   `yaml:"image_alt"`
	}
)

// LoadMapping reads and validates a job file from disk.
func LoadMapping(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open mapping file %s", path)
	}
	defer f.Close()

	return ParseMapping(f)
}

func ParseMapping(r io.Reader) (*Mapping, error) {
	var m Mapping
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrap(err, "decode mapping")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Mapping) Validate() error {
	if len(m.Jobs) == 0 {
		return errors.New("mapping defines no jobs")
	}

	names := make(map[string]bool, len(m.Jobs))
	for i := range m.Jobs {
		job := &m.Jobs[i]
		if job.Name == "" {
			return errors.Newf("job #%d: name is required", i+1)
		}
		if names[job.Name] {
			return errors.Newf("job %s: duplicate name", job.Name)
		}
		names[job.Name] = true

		// Every created document must carry a type tag
		if strings.TrimSpace(job.Type) == "" {
			return errors.Newf("job %s: type is required", job.Name)
		}
		if job.NameField == "" && job.SlugField == "" {
			return errors.Newf("job %s: name_field or slug_field is required to derive a slug", job.Name)
		}

		switch job.Source.Kind {
		case SourceWebflow:
			if job.Source.Collection == "" {
				return errors.Newf("job %s: webflow source needs a collection", job.Name)
			}
		case SourceCSV:
			if job.Source.Path == "" {
				return errors.Newf("job %s: csv source needs a path", job.Name)
			}
		default:
			return errors.Newf("job %s: unknown source kind %q", job.Name, job.Source.Kind)
		}

		for j := range job.Fields {
			f := &job.Fields[j]
			if f.Source == "" {
				return errors.Newf("job %s: field #%d has no source", job.Name, j+1)
			}
			if f.Target == "" {
				f.Target = f.Source
			}
			if f.Kind == "" {
				f.Kind = KindText
			}
			if !knownKinds[f.Kind] {
				return errors.Newf("job %s: field %s has unknown kind %q", job.Name, f.Source, f.Kind)
			}
		}
	}
	return nil
}

// Select returns the named jobs in file order, or every job when names is empty.
func (m *Mapping) Select(names []string) ([]Job, error) {
	if len(names) == 0 {
		return m.Jobs, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var jobs []Job
	for _, job := range m.Jobs {
		if wanted[job.Name] {
			jobs = append(jobs, job)
			delete(wanted, job.Name)
		}
	}
	if len(wanted) > 0 {
		var unknown []string
		for n := range wanted {
			unknown = append(unknown, n)
		}
		sort.Strings(unknown)
		return nil, errors.Newf("unknown job(s): %s", strings.Join(unknown, ", "))
	}
	return jobs, nil
}

// Types returns the distinct destination types across jobs.
func (m *Mapping) Types() []string {
	seen := make(map[string]bool)
	var types []string
	for _, job := range m.Jobs {
		if !seen[job.Type] {
			seen[job.Type] = true
			types = append(types, job.Type)
		}
	}
	return types
}

// HasWebflowSource reports whether any job reads from Webflow.
func HasWebflowSource(jobs []Job) bool {
	for _, job := range jobs {
		if job.Source.Kind == SourceWebflow {
			return true
		}
	}
	return false
}

// NeedsAssets reports whether any job relocates images.
func NeedsAssets(jobs []Job) bool {
	for _, job := range jobs {
		for _, f := range job.Fields {
			if f.Kind == KindImage {
				return true
			}
		}
	}
	return false
}
