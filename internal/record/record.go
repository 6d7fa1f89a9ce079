package record

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// TableName is the single table holding vendor records.
const TableName = "vendors"

// KeyColumn is the primary key column.
const KeyColumn = "vendorName"

// ErrInvalidKey is returned when a record key is empty.
var ErrInvalidKey = errors.New("invalid key: vendorName must not be empty")

// VendorRecord is one vendor financial evaluation.
//
// Field order is column order. Adding a field here adds a column everywhere;
// there is no second list to keep in sync.
type VendorRecord struct {
	VendorName                       string `col:"vendorName" json:"vendorName" yaml:"vendorName"`
	TenderNumber                     string `col:"tenderNumber" json:"tenderNumber" yaml:"tenderNumber"`
	TenderTitle                      string `col:"tenderTitle" json:"tenderTitle" yaml:"tenderTitle"`
	DateOfFinancialEvaluation        string `col:"dateOfFinancialEvaluation" json:"dateOfFinancialEvaluation" yaml:"dateOfFinancialEvaluation"`
	EvaluationValidityDate           string `col:"evaluationValidityDate" json:"evaluationValidityDate" yaml:"evaluationValidityDate"`
	EvaluatorNameDepartment          string `col:"evaluatorNameDepartment" json:"evaluatorNameDepartment" yaml:"evaluatorNameDepartment"`
	OverallResult                    string `col:"overallResult" json:"overallResult" yaml:"overallResult"`
	QuantitativeScore                string `col:"quantitativeScore" json:"quantitativeScore" yaml:"quantitativeScore"`
	QuantitativeBand                 string `col:"quantitativeBand" json:"quantitativeBand" yaml:"quantitativeBand"`
	QuantitativeRiskCategory         string `col:"quantitativeRiskCategory" json:"quantitativeRiskCategory" yaml:"quantitativeRiskCategory"`
	AltmanZScore                     string `col:"altmanZScore" json:"altmanZScore" yaml:"altmanZScore"`
	AltmanZBand                      string `col:"altmanZBand" json:"altmanZBand" yaml:"altmanZBand"`
	AltmanZRiskCategory              string `col:"altmanZRiskCategory" json:"altmanZRiskCategory" yaml:"altmanZRiskCategory"`
	QualitativeScore                 string `col:"qualitativeScore" json:"qualitativeScore" yaml:"qualitativeScore"`
	QualitativeBand                  string `col:"qualitativeBand" json:"qualitativeBand" yaml:"qualitativeBand"`
	QualitativeRiskCategory          string `col:"qualitativeRiskCategory" json:"qualitativeRiskCategory" yaml:"qualitativeRiskCategory"`
	OverallFinancialEvaluationResult string `col:"overallFinancialEvaluationResult" json:"overallFinancialEvaluationResult" yaml:"overallFinancialEvaluationResult"`
	KeyInformation                   string `col:"keyInformation" json:"keyInformation" yaml:"keyInformation"`
}

// columns and columnIndex are computed once from the VendorRecord tags.
var (
	columns     = deriveColumns()
	columnIndex = indexColumns(columns)
)

func deriveColumns() []string {
	t := reflect.TypeOf(VendorRecord{})
	cols := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Tag.Get("col")
		if name == "" || f.Type.Kind() != reflect.String {
			panic(fmt.Sprintf("record: field %s must be a string with a col tag", f.Name))
		}
		cols = append(cols, name)
	}
	if len(cols) == 0 || cols[0] != KeyColumn {
		panic("record: first column must be " + KeyColumn)
	}
	return cols
}

func indexColumns(cols []string) map[string]int {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, dup := idx[c]; dup {
			panic("record: duplicate column " + c)
		}
		idx[c] = i
	}
	return idx
}

// Columns returns the ordered column names, key first.
// The returned slice is a copy.
func Columns() []string {
	out := make([]string, len(columns))
	copy(out, columns)
	return out
}

// NonKeyColumns returns every column except the key, in order.
func NonKeyColumns() []string {
	return Columns()[1:]
}

// IsColumn reports whether name is a schema column.
func IsColumn(name string) bool {
	_, ok := columnIndex[name]
	return ok
}

// ValidateKey checks a primary key value.
// Keys are case-sensitive and are not trimmed; a key made only of
// whitespace is rejected because it renders as empty everywhere.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	return nil
}

// Values returns the record's values in column order, ready for binding.
// Empty strings bind as NULL.
func (r VendorRecord) Values() []any {
	v := reflect.ValueOf(r)
	out := make([]any, len(columns))
	for i := range columns {
		s := v.Field(i).String()
		if s == "" {
			out[i] = nil
		} else {
			out[i] = s
		}
	}
	return out
}

// NonKeyValues returns Values() without the leading key.
func (r VendorRecord) NonKeyValues() []any {
	return r.Values()[1:]
}

// Get returns the value of a column.
func (r VendorRecord) Get(column string) (string, bool) {
	i, ok := columnIndex[column]
	if !ok {
		return "", false
	}
	return reflect.ValueOf(r).Field(i).String(), true
}

// Set assigns a column value.
func (r *VendorRecord) Set(column, value string) error {
	i, ok := columnIndex[column]
	if !ok {
		return fmt.Errorf("unknown column %q", column)
	}
	reflect.ValueOf(r).Elem().Field(i).SetString(value)
	return nil
}

// FromValues builds a record from a row scanned in column order.
// NULL becomes "".
func FromValues(row []sql.NullString) (VendorRecord, error) {
	if len(row) != len(columns) {
		return VendorRecord{}, fmt.Errorf("row has %d values, schema has %d columns", len(row), len(columns))
	}
	var r VendorRecord
	v := reflect.ValueOf(&r).Elem()
	for i, ns := range row {
		if ns.Valid {
			v.Field(i).SetString(ns.String)
		}
	}
	return r, nil
}
