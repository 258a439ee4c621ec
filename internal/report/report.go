// Package report builds the machine-readable summary printed by
// "gopatch --json" and validates it against the published schema.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/asynkron/gopatch/internal/schema"
	"github.com/asynkron/gopatch/pkg/patch"
)

// Mode names the operation a report describes.
type Mode string

const (
	ModeApply    Mode = "apply"
	ModeRevert   Mode = "revert"
	ModeCheck    Mode = "check"
	ModeDiffstat Mode = "diffstat"
	ModeDryRun   Mode = "dry-run"
)

// File is the per-entry part of a report.
type File struct {
	Source string        `json:"source"`
	Target string        `json:"target"`
	Type   patch.Dialect `json:"type"`
	Hunks  int           `json:"hunks"`
}

// Check is the applicability of one source file.
type Check struct {
	Path          string `json:"path"`
	Applicability string `json:"applicability"`
	Patched       bool   `json:"patched,omitempty"`
}

// Failure describes the error that stopped the operation.
type Failure struct {
	Code    string `json:"code,omitempty"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// Report is the document written by Encode.
type Report struct {
	Version     int                `json:"version"`
	OK          bool               `json:"ok"`
	Mode        Mode               `json:"mode"`
	Dialect     patch.Dialect      `json:"dialect"`
	Errors      int                `json:"errors"`
	Warnings    int                `json:"warnings"`
	Diagnostics []patch.Diagnostic `json:"diagnostics"`
	Files       []File             `json:"files"`
	Stats       patch.Stats        `json:"stats"`
	Results     []patch.Result     `json:"results,omitempty"`
	Checks      []Check            `json:"checks,omitempty"`
	Preview     string             `json:"preview,omitempty"`
	Error       *Failure           `json:"error,omitempty"`
}

// New summarises a parsed set. OK mirrors ps.OK until SetError is called.
func New(mode Mode, ps *patch.PatchSet) *Report {
	r := &Report{
		Version:     schema.ReportSchemaVersion,
		OK:          ps.OK(),
		Mode:        mode,
		Dialect:     ps.Dialect,
		Errors:      ps.Errors,
		Warnings:    ps.Warnings,
		Diagnostics: append([]patch.Diagnostic{}, ps.Diagnostics...),
		Files:       make([]File, 0, ps.Len()),
		Stats:       ps.Stats(),
	}
	if r.Stats.Files == nil {
		r.Stats.Files = []patch.FileStat{}
	}
	for _, p := range ps.Items {
		r.Files = append(r.Files, File{Source: p.Source, Target: p.Target, Type: p.Type, Hunks: len(p.Hunks)})
	}
	return r
}

// SetError marks the report failed. A *patch.Error contributes its code and
// path.
func (r *Report) SetError(err error) {
	if err == nil {
		return
	}
	r.OK = false
	failure := &Failure{Message: err.Error()}
	var perr *patch.Error
	if errors.As(err, &perr) {
		failure.Code = perr.Code
		failure.Path = perr.RelativePath
	}
	if strings.TrimSpace(failure.Message) == "" {
		failure.Message = "unknown error"
	}
	r.Error = failure
}

type schemaValidationError struct {
	issues []string
}

func (e schemaValidationError) Error() string {
	if len(e.issues) == 0 {
		return "report failed schema validation"
	}
	return strings.Join(e.issues, "; ")
}

var (
	reportSchemaLoader     gojsonschema.JSONLoader
	reportSchemaLoaderErr  error
	reportSchemaLoaderOnce sync.Once
)

func loadReportSchema() (gojsonschema.JSONLoader, error) {
	reportSchemaLoaderOnce.Do(func() {
		schemaMap, err := schema.ReportSchema()
		if err != nil {
			reportSchemaLoaderErr = err
			return
		}
		reportSchemaLoader = gojsonschema.NewGoLoader(schemaMap)
	})
	if reportSchemaLoaderErr != nil {
		return nil, reportSchemaLoaderErr
	}
	return reportSchemaLoader, nil
}

// Validate checks raw JSON against the report schema.
func Validate(raw []byte) error {
	loader, err := loadReportSchema()
	if err != nil {
		return fmt.Errorf("report: load schema: %w", err)
	}
	result, err := gojsonschema.Validate(loader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("report: schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return schemaValidationError{issues: issues}
}

// Encode writes r as indented JSON after validating it.
func Encode(w io.Writer, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("report: encode: %w", err)
	}
	if err := Validate(data); err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
