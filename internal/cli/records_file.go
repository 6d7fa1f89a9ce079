package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arslant84/vendori/internal/record"
)

// readRecordFile reads one record or a list of records from a YAML or JSON
// file ("-" is stdin). Unknown fields are rejected so a misspelled column
// never silently becomes an empty value.
func readRecordFile(path string, stdin io.Reader) ([]record.VendorRecord, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read record file: %w", err)
	}
	return decodeRecords(data)
}

// decodeRecords accepts a mapping or a sequence of mappings. JSON is a
// subset of YAML, so one decoder serves both.
func decodeRecords(data []byte) ([]record.VendorRecord, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse record file: %w", err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, errors.New("parse record file: empty document")
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	switch root.Content[0].Kind {
	case yaml.SequenceNode:
		var recs []record.VendorRecord
		if err := dec.Decode(&recs); err != nil {
			return nil, fmt.Errorf("parse record file: %w", err)
		}
		return recs, nil
	case yaml.MappingNode:
		var rec record.VendorRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("parse record file: %w", err)
		}
		return []record.VendorRecord{rec}, nil
	default:
		return nil, errors.New("parse record file: expected a record or a list of records")
	}
}

// applySets applies column=value assignments to rec.
func applySets(rec *record.VendorRecord, sets []string) error {
	for _, s := range sets {
		col, val, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("invalid --set %q: want column=value", s)
		}
		if err := rec.Set(col, val); err != nil {
			return fmt.Errorf("invalid --set %q: %w", s, err)
		}
	}
	return nil
}
