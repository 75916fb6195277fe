// Package backup converts the report collection to and from the portable
// backup document: a pretty-printed JSON array of reports.
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pathoreport/pathoreport/internal/domain/report"
)

var (
	// ErrMalformedDocument means the document is not valid JSON.
	ErrMalformedDocument = errors.New("backup document is not valid JSON")
	// ErrUnexpectedShape means the document parsed but is not a JSON array.
	ErrUnexpectedShape = errors.New("backup document is not a list of reports")
)

// Export encodes reports as a JSON array indented with two spaces.
func Export(reports []report.Report) ([]byte, error) {
	if reports == nil {
		reports = []report.Report{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Import validates a backup document and migrates every record in it to
// the current report shape. It never writes anywhere; committing the result
// is up to the caller.
func Import(doc []byte) ([]report.Report, error) {
	var v json.RawMessage
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(v, &records); err != nil || records == nil {
		return nil, fmt.Errorf("%w: top-level value is %s", ErrUnexpectedShape, kind(v))
	}
	return report.MigrateAll(records), nil
}

// FileName is the suggested download name of a backup taken at now.
func FileName(now time.Time) string {
	return "pathoreport-backup-" + now.Format("2006-01-02") + ".json"
}

func kind(v json.RawMessage) string {
	trimmed := bytes.TrimSpace(v)
	switch {
	case len(trimmed) == 0:
		return "empty"
	case trimmed[0] == '{':
		return "an object"
	case trimmed[0] == '"':
		return "a string"
	case bytes.Equal(trimmed, []byte("null")):
		return "null"
	case bytes.Equal(trimmed, []byte("true")), bytes.Equal(trimmed, []byte("false")):
		return "a boolean"
	}
	return "a number"
}
