// Package persistence writes run reports to disk.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	dm "github.com/andrej220/wpdeploy/pkg/shared-models"
)

const (
	indent = "    "
	prefix = ""
)

type Serializer interface {
	Marshal(data any) ([]byte, error)
}

type Writer interface {
	Write(filename string, data []byte) error
}

type JSONSerializer struct {
	Prefix, Indent string
}

func (s JSONSerializer) Marshal(data any) ([]byte, error) {
	return json.MarshalIndent(data, s.Prefix, s.Indent)
}

// FileWriter replaces filename through a temp file in the same directory,
// so readers never see a half written report.
type FileWriter struct {
	Perm os.FileMode
}

func (w FileWriter) Write(filename string, data []byte) error {
	if filename == "" {
		return os.ErrInvalid
	}
	perm := w.Perm
	if perm == 0 {
		perm = 0644
	}
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(filename)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filename)
}

// WriteReportToFile persists report using the provided Serializer and Writer.
func WriteReportToFile(report *dm.RunReport, filename string, serializer Serializer, writer Writer) error {
	if report == nil {
		return fmt.Errorf("nil report: %w", os.ErrInvalid)
	}
	if filename == "" {
		return fmt.Errorf("invalid filename: %w", os.ErrInvalid)
	}

	bytes, err := serializer.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := writer.Write(filename, bytes); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteReport writes report as indented JSON.
func WriteReport(report *dm.RunReport, filename string) error {
	return WriteReportToFile(report, filename, JSONSerializer{Prefix: prefix, Indent: indent}, FileWriter{})
}
