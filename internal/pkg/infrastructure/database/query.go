package database

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/diwise/data-gateway/pkg/gateway/errors"
	"github.com/diwise/data-gateway/pkg/provider"
)

type dialect struct {
	name     string
	driver   string
	numbered bool
	blobType string
	timeType string
}

var postgresDialect = dialect{name: "postgres", driver: "pgx", numbered: true, blobType: "BYTEA", timeType: "TIMESTAMPTZ"}
var sqliteDialect = dialect{name: "sqlite", driver: "sqlite", numbered: false, blobType: "BLOB", timeType: "DATETIME"}

func (d dialect) placeholder(n int) string {
	if d.numbered {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func quote(identifier string) string {
	return `"` + identifier + `"`
}

// statement collects sql text and its positional arguments.
type statement struct {
	d    dialect
	sql  strings.Builder
	args []any
}

func newStatement(d dialect) *statement {
	return &statement{d: d}
}

func (s *statement) write(parts ...string) *statement {
	for _, p := range parts {
		s.sql.WriteString(p)
	}
	return s
}

func (s *statement) bind(value any) string {
	s.args = append(s.args, toArgument(value))
	return s.d.placeholder(len(s.args))
}

func (s *statement) String() string {
	return s.sql.String()
}

func checkIdentifiers(kind string, names ...string) error {
	for _, n := range names {
		if !provider.IsValidIdentifier(n) {
			return errors.NewValidationError(fmt.Sprintf("invalid %s %q", kind, n))
		}
	}
	return nil
}

func (s *statement) where(filters []provider.Filter) error {
	for idx, f := range filters {
		if err := checkIdentifiers("filter column", f.Column); err != nil {
			return err
		}

		if idx == 0 {
			s.write(" WHERE ")
		} else {
			s.write(" AND ")
		}

		if f.Value == nil {
			s.write(quote(f.Column), " IS NULL")
			continue
		}

		s.write(quote(f.Column), " = ", s.bind(f.Value))
	}
	return nil
}

func selectStatement(d dialect, collection string, req *provider.Request) (*statement, error) {
	if err := checkIdentifiers("collection name", collection); err != nil {
		return nil, err
	}

	columns := "*"
	if len(req.Columns) > 0 {
		if err := checkIdentifiers("column", req.Columns...); err != nil {
			return nil, err
		}
		quoted := make([]string, 0, len(req.Columns))
		for _, c := range req.Columns {
			quoted = append(quoted, quote(c))
		}
		columns = strings.Join(quoted, ", ")
	}

	stmt := newStatement(d).write("SELECT ", columns, " FROM ", quote(collection))

	if err := stmt.where(req.Filters); err != nil {
		return nil, err
	}

	if len(req.Order) > 0 {
		order := make([]string, 0, len(req.Order))
		for _, o := range req.Order {
			if err := checkIdentifiers("order column", o.Column); err != nil {
				return nil, err
			}
			direction := " ASC"
			if o.Descending {
				direction = " DESC"
			}
			order = append(order, quote(o.Column)+direction)
		}
		stmt.write(" ORDER BY ", strings.Join(order, ", "))
	}

	limit := req.Limit
	if req.Single && limit == 0 {
		// two rows are enough to tell a single match from an ambiguous one
		limit = 2
	}

	if limit > 0 {
		stmt.write(fmt.Sprintf(" LIMIT %d", limit))
	}

	if req.Offset > 0 {
		if limit == 0 && !d.numbered {
			// sqlite only accepts an offset after a limit clause
			stmt.write(" LIMIT -1")
		}
		stmt.write(fmt.Sprintf(" OFFSET %d", req.Offset))
	}

	return stmt, nil
}

func insertStatement(d dialect, collection string, row provider.Record) (*statement, error) {
	if err := checkIdentifiers("collection name", collection); err != nil {
		return nil, err
	}

	fields := sortedFields(row)
	if err := checkIdentifiers("field", fields...); err != nil {
		return nil, err
	}

	stmt := newStatement(d)

	quoted := make([]string, 0, len(fields))
	values := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, quote(f))
		values = append(values, stmt.bind(row[f]))
	}

	stmt.write(
		"INSERT INTO ", quote(collection),
		" (", strings.Join(quoted, ", "), ") VALUES (", strings.Join(values, ", "), ") RETURNING *",
	)

	return stmt, nil
}

func updateStatement(d dialect, collection string, patch provider.Record, filters []provider.Filter) (*statement, error) {
	if err := checkIdentifiers("collection name", collection); err != nil {
		return nil, err
	}

	fields := sortedFields(patch)
	if err := checkIdentifiers("field", fields...); err != nil {
		return nil, err
	}

	stmt := newStatement(d).write("UPDATE ", quote(collection), " SET ")

	for idx, f := range fields {
		if idx > 0 {
			stmt.write(", ")
		}
		stmt.write(quote(f), " = ", stmt.bind(patch[f]))
	}

	if err := stmt.where(filters); err != nil {
		return nil, err
	}

	stmt.write(" RETURNING *")

	return stmt, nil
}

func deleteStatement(d dialect, collection string, filters []provider.Filter) (*statement, error) {
	if err := checkIdentifiers("collection name", collection); err != nil {
		return nil, err
	}

	stmt := newStatement(d).write("DELETE FROM ", quote(collection))

	if err := stmt.where(filters); err != nil {
		return nil, err
	}

	stmt.write(" RETURNING *")

	return stmt, nil
}

// embedStatement selects the rows of relation that reference any of keys.
func embedStatement(d dialect, e provider.Embed, keys []any) (*statement, error) {
	if err := checkIdentifiers("relation", e.Relation, e.ForeignKey); err != nil {
		return nil, err
	}

	stmt := newStatement(d).write("SELECT * FROM ", quote(e.Relation), " WHERE ", quote(e.ForeignKey), " IN (")

	for idx, k := range keys {
		if idx > 0 {
			stmt.write(", ")
		}
		stmt.write(stmt.bind(k))
	}

	stmt.write(")")

	return stmt, nil
}

func sortedFields(r provider.Record) []string {
	fields := make([]string, 0, len(r))
	for f := range r {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// toArgument converts decoded JSON values into something both drivers accept.
// Objects and arrays are stored as JSON text.
func toArgument(v any) any {
	switch value := v.(type) {
	case json.Number:
		if i, err := value.Int64(); err == nil {
			return i
		}
		if f, err := value.Float64(); err == nil {
			return f
		}
		return value.String()
	case map[string]any, []any, provider.Record, []provider.Record:
		b, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(b)
	default:
		return v
	}
}

type columnKind int

const (
	plainColumn columnKind = iota
	boolColumn
	floatColumn
	jsonColumn
)

// kindOf groups declared column types by how their values are read back.
// SQLite reports the declared type of a column, e.g. "BOOLEAN" or "VARCHAR(20)".
func kindOf(databaseType string) columnKind {
	t := strings.ToUpper(strings.TrimSpace(databaseType))
	if idx := strings.IndexAny(t, "( "); idx > 0 {
		t = t[:idx]
	}

	switch t {
	case "BOOL", "BOOLEAN":
		return boolColumn
	case "REAL", "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "NUMERIC", "DECIMAL":
		return floatColumn
	case "JSON", "JSONB":
		return jsonColumn
	}

	return plainColumn
}

// fromColumn converts a scanned column value into its JSON friendly form.
func fromColumn(v any, kind columnKind) any {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}

	switch kind {
	case boolColumn:
		if i, ok := v.(int64); ok {
			return i != 0
		}
	case floatColumn:
		if i, ok := v.(int64); ok {
			return float64(i)
		}
	case jsonColumn:
		if text, ok := v.(string); ok {
			var decoded any
			if err := json.Unmarshal([]byte(text), &decoded); err == nil {
				return decoded
			}
		}
	}

	return v
}

func keyOf(v any) string {
	return fmt.Sprint(fromColumn(v, plainColumn))
}
