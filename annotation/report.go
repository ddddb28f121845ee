package annotation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
)

// FoundBySafelist is the FoundBy value of records that come from a
// safelist rather than from source comments.
const FoundBySafelist = "safelist"

// ReportTimeFormat names report files written by [WriteReport].
const ReportTimeFormat = "2006-01-02-15-04-05"

// Record is one annotation in a report.
type Record struct {
	Extra      map[string]string `json:"extra,omitempty"           yaml:"extra,omitempty"`
	FoundBy    string            `json:"found_by"                  yaml:"found_by"`
	Filename   string            `json:"filename"                  yaml:"filename"`
	Token      string            `json:"annotation_token"          yaml:"annotation_token"`
	Data       Data              `json:"annotation_data"           yaml:"annotation_data"`
	LineNumber int               `json:"line_number"               yaml:"line_number"`
	// GroupID is shared by every record of one group instance. Zero means
	// the record is not part of a group.
	GroupID int `json:"report_group_id,omitempty" yaml:"report_group_id,omitempty"`
}

// Normalizer turns assemblies into [Record]s and assigns report group IDs.
// IDs start at 1 and increase across every assembly passed to the same
// Normalizer, so they are unique within a run.
type Normalizer struct {
	next int
}

// NewNormalizer returns a [Normalizer] whose first group ID is 1.
func NewNormalizer() *Normalizer {
	return &Normalizer{next: 1}
}

// Records returns one record per annotation of asm, in discovery order.
func (n *Normalizer) Records(asm *Assembly) []Record {
	if asm == nil {
		return nil
	}

	ids := make(map[*GroupInstance]int, len(asm.Instances))
	recs := make([]Record, 0, len(asm.Annotations))

	for i, a := range asm.Annotations {
		rec := Record{
			FoundBy:    a.FoundBy,
			Filename:   a.File,
			LineNumber: a.Line,
			Token:      a.Token,
			Data:       a.Data,
			Extra:      a.Extra,
		}

		if gi := asm.InstanceOf(i); gi != nil {
			id, ok := ids[gi]
			if !ok {
				id = n.next
				ids[gi] = id
				n.next++
			}

			rec.GroupID = id
		}

		recs = append(recs, rec)
	}

	return recs
}

// Report holds records grouped by file, in the order files were first
// seen.
type Report struct {
	records map[string][]Record
	files   []string
}

// NewReport returns an empty [Report].
func NewReport() *Report {
	return &Report{records: map[string][]Record{}}
}

// Add appends records to the report.
func (r *Report) Add(recs ...Record) {
	for _, rec := range recs {
		if _, ok := r.records[rec.Filename]; !ok {
			r.files = append(r.files, rec.Filename)
		}

		r.records[rec.Filename] = append(r.records[rec.Filename], rec)
	}
}

// Files returns the files of the report in order.
func (r *Report) Files() []string {
	return r.files
}

// Records returns the records of file.
func (r *Report) Records(file string) []Record {
	return r.records[file]
}

// Count returns the total number of records.
func (r *Report) Count() int {
	n := 0
	for _, recs := range r.records {
		n += len(recs)
	}

	return n
}

// MarshalYAML encodes the report as a mapping of file to records.
func (r *Report) MarshalYAML() (any, error) {
	ms := make(yaml.MapSlice, 0, len(r.files))
	for _, file := range r.files {
		ms = append(ms, yaml.MapItem{Key: file, Value: r.records[file]})
	}

	return ms, nil
}

// MarshalJSON encodes the report as an object of file to records, keeping
// file order.
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, file := range r.files {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(file)
		if err != nil {
			return nil, fmt.Errorf("encode file name: %w", err)
		}

		recs, err := json.Marshal(r.records[file])
		if err != nil {
			return nil, fmt.Errorf("encode records of %s: %w", file, err)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(recs)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// WriteReport writes r as YAML to a file named after now inside dir,
// creating dir if needed, and returns the path of the file.
func WriteReport(dir string, r *Report, now time.Time) (string, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}

	data, err := yaml.MarshalWithOptions(r, yaml.IndentSequence(true))
	if err != nil {
		return "", fmt.Errorf("%w: encode report: %w", ErrWriteOutput, err)
	}

	path := filepath.Join(dir, now.Format(ReportTimeFormat)+".yaml")

	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}

	return path, nil
}
