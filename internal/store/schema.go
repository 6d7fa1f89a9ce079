package store

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/arslant84/vendori/internal/record"
)

// sqliteHeader is the 16-byte magic every SQLite database image starts with.
var sqliteHeader = []byte("SQLite format 3\x00")

// minImageSize is the size of the SQLite database header; nothing shorter
// can be a database image.
const minImageSize = 100

// Statements derived from record.Columns(). Built once at init; no other
// column list exists.
var (
	createTableSQL = buildCreateTable()
	tableInfoSQL   = fmt.Sprintf("SELECT name FROM pragma_table_info(%s) ORDER BY cid", quoteLiteral(record.TableName))

	SelectAllSQL = fmt.Sprintf("SELECT %s FROM %s ORDER BY %s COLLATE BINARY ASC",
		columnList(record.Columns()), quoteIdent(record.TableName), quoteIdent(record.KeyColumn))
	SelectByKeySQL = fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		columnList(record.Columns()), quoteIdent(record.TableName), quoteIdent(record.KeyColumn))
	ExistsSQL = fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ?",
		quoteIdent(record.TableName), quoteIdent(record.KeyColumn))
	CountSQL = fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(record.TableName))
	InsertSQL = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(record.TableName), columnList(record.Columns()), placeholders(len(record.Columns())))
	UpdateSQL = buildUpdate()
	DeleteSQL = fmt.Sprintf("DELETE FROM %s WHERE %s = ?",
		quoteIdent(record.TableName), quoteIdent(record.KeyColumn))
	RenameSQL = fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?",
		quoteIdent(record.TableName), quoteIdent(record.KeyColumn), quoteIdent(record.KeyColumn))
)

func buildCreateTable() string {
	defs := make([]string, 0, len(record.Columns()))
	for _, c := range record.Columns() {
		if c == record.KeyColumn {
			defs = append(defs, quoteIdent(c)+" TEXT PRIMARY KEY NOT NULL")
			continue
		}
		defs = append(defs, quoteIdent(c)+" TEXT")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(record.TableName), strings.Join(defs, ", "))
}

// buildUpdate sets every non-key column; bind NonKeyValues() then the key.
func buildUpdate() string {
	sets := make([]string, 0, len(record.NonKeyColumns()))
	for _, c := range record.NonKeyColumns() {
		sets = append(sets, quoteIdent(c)+" = ?")
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		quoteIdent(record.TableName), strings.Join(sets, ", "), quoteIdent(record.KeyColumn))
}

func columnList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}

// checkHeader rejects bytes that cannot be a SQLite image before the engine
// is even opened.
func checkHeader(snapshot []byte) error {
	if len(snapshot) < minImageSize {
		return &SnapshotCorruptError{Reason: fmt.Sprintf("snapshot too short (%d bytes)", len(snapshot)), Size: len(snapshot)}
	}
	if !bytes.HasPrefix(snapshot, sqliteHeader) {
		return &SnapshotCorruptError{Reason: "missing SQLite header", Size: len(snapshot)}
	}
	return nil
}

// IsImage reports whether b starts with the SQLite header.
func IsImage(b []byte) bool {
	return bytes.HasPrefix(b, sqliteHeader)
}

// checkColumns compares a table's columns with the schema, in order.
func checkColumns(got []string) error {
	want := record.Columns()
	if len(got) == 0 {
		return fmt.Errorf("table %s not found", record.TableName)
	}
	if !slices.Equal(got, want) {
		return fmt.Errorf("table %s has columns %v, want %v", record.TableName, got, want)
	}
	return nil
}
