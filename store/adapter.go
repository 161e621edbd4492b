package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"
	"github.com/m-mizutani/goerr/v2"
	"github.com/xcono/parkrest/apperr"
	"github.com/xcono/parkrest/schema"
)

type (
	// Page carries pagination and search parameters into a list query.
	// Owner, when non-nil, restricts results to records whose owner field
	// equals it; entities without an owner field ignore it.
	Page struct {
		Page   int
		Limit  int
		Search string
		Owner  any
	}

	// Result is one page of records plus the total count matching the
	// search predicate across all pages.
	Result struct {
		Total int
		Page  int
		Items []Record
	}

	// Adapter executes CRUD operations for a single entity. The table
	// name, primary key, searchable fields and ordering key all come
	// from the entity schema.
	Adapter struct {
		exec     *Executor
		flavor   sqlbuilder.Flavor
		table    string
		pk       string
		orderBy  string
		owner    string
		searched []string
	}
)

// NewAdapter builds an adapter bound to one entity schema.
func NewAdapter(exec *Executor, s *schema.EntitySchema, flavor sqlbuilder.Flavor) *Adapter {
	orderBy := s.OrderField
	if orderBy == "" {
		orderBy = s.PrimaryField().Name
	}
	return &Adapter{
		exec:     exec,
		flavor:   flavor,
		table:    s.PluralName,
		pk:       s.PrimaryField().Name,
		orderBy:  orderBy,
		owner:    s.OwnerField,
		searched: s.SearchFields(),
	}
}

// FlavorForDSN maps a scheme-prefixed DSN to a sqlbuilder flavor.
func FlavorForDSN(dsn string) sqlbuilder.Flavor {
	switch {
	case strings.HasPrefix(dsn, "postgres://"):
		return sqlbuilder.PostgreSQL
	case strings.HasPrefix(dsn, "sqlite3://"):
		return sqlbuilder.SQLite
	default:
		return sqlbuilder.MySQL
	}
}

// Search returns one page of records matching the free-text search. The
// search term is matched case-insensitively as a substring against every
// searchable field, ORed together; an empty term matches all records.
// Out-of-range pages yield an empty slice, not an error.
func (a *Adapter) Search(ctx context.Context, page Page) (Result, error) {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.Limit < 1 {
		page.Limit = 10
	}

	total, err := a.count(ctx, page)
	if err != nil {
		return Result{}, err
	}

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("*").From(a.table)
	a.applySearch(sb, page.Search)
	a.applyOwner(sb, page.Owner)
	sb.OrderBy(a.orderBy + " DESC")
	sb.Limit(page.Limit).Offset((page.Page - 1) * page.Limit)

	query, args := sb.BuildWithFlavor(a.flavor)
	rows, err := a.exec.Query(ctx, query, args...)
	if err != nil {
		return Result{}, goerr.Wrap(err, "search query failed", goerr.V("table", a.table))
	}
	defer rows.Close()

	items, err := scanRows(rows)
	if err != nil {
		return Result{}, goerr.Wrap(err, "failed to scan search results", goerr.V("table", a.table))
	}

	return Result{Total: total, Page: page.Page, Items: items}, nil
}

func (a *Adapter) count(ctx context.Context, page Page) (int, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("COUNT(*)").From(a.table)
	a.applySearch(sb, page.Search)
	a.applyOwner(sb, page.Owner)

	query, args := sb.BuildWithFlavor(a.flavor)
	var total int
	if err := a.exec.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, goerr.Wrap(err, "count query failed", goerr.V("table", a.table))
	}
	return total, nil
}

func (a *Adapter) applySearch(sb *sqlbuilder.SelectBuilder, search string) {
	if search == "" || len(a.searched) == 0 {
		return
	}
	pattern := "%" + strings.ToLower(search) + "%"
	conds := make([]string, 0, len(a.searched))
	for _, field := range a.searched {
		conds = append(conds, sb.Like(fmt.Sprintf("LOWER(%s)", field), pattern))
	}
	sb.Where(sb.Or(conds...))
}

func (a *Adapter) applyOwner(sb *sqlbuilder.SelectBuilder, owner any) {
	if owner == nil || a.owner == "" {
		return
	}
	sb.Where(sb.EQ(a.owner, owner))
}

// GetByID returns a single record by primary key.
func (a *Adapter) GetByID(ctx context.Context, id int64) (Record, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("*").From(a.table)
	sb.Where(sb.EQ(a.pk, id))

	query, args := sb.BuildWithFlavor(a.flavor)
	rows, err := a.exec.Query(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "get query failed", goerr.V("table", a.table), goerr.V("id", id))
	}
	defer rows.Close()

	items, err := scanRows(rows)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to scan record", goerr.V("table", a.table))
	}
	if len(items) == 0 {
		return nil, apperr.NotFound("record not found", goerr.V("table", a.table), goerr.V("id", id))
	}
	return items[0], nil
}

// Create inserts a record and returns it re-read from the store, so
// database defaults are filled in. Constraint violations are classified;
// the database is the only serialization point for races on unique keys.
func (a *Adapter) Create(ctx context.Context, fields Record) (Record, error) {
	columns, values := orderedColumns(fields)
	if len(columns) == 0 {
		return nil, apperr.Validation("no fields to insert", goerr.V("table", a.table))
	}

	ib := sqlbuilder.NewInsertBuilder()
	ib.InsertInto(a.table)
	ib.Cols(columns...)
	ib.Values(values...)

	query, args := ib.BuildWithFlavor(a.flavor)
	var id int64
	if a.flavor == sqlbuilder.PostgreSQL {
		// lib/pq has no LastInsertId; the key comes back via RETURNING.
		query += " RETURNING " + a.pk
		if err := a.exec.QueryRow(ctx, query, args...).Scan(&id); err != nil {
			return nil, a.classify(err, "insert")
		}
	} else {
		result, err := a.exec.Exec(ctx, query, args...)
		if err != nil {
			return nil, a.classify(err, "insert")
		}
		id, err = result.LastInsertId()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read inserted id", goerr.V("table", a.table))
		}
	}
	return a.GetByID(ctx, id)
}

// Update applies a partial merge: only the supplied fields overwrite,
// everything else keeps its prior value. Absent ids yield a not-found
// error before any write is attempted.
func (a *Adapter) Update(ctx context.Context, id int64, partial Record) (Record, error) {
	if _, err := a.GetByID(ctx, id); err != nil {
		return nil, err
	}

	columns, values := orderedColumns(partial)
	if len(columns) == 0 {
		// Nothing to change; return the current record.
		return a.GetByID(ctx, id)
	}

	ub := sqlbuilder.NewUpdateBuilder()
	ub.Update(a.table)
	assignments := make([]string, 0, len(columns))
	for i, col := range columns {
		assignments = append(assignments, ub.Assign(col, values[i]))
	}
	ub.Set(assignments...)
	ub.Where(ub.EQ(a.pk, id))

	query, args := ub.BuildWithFlavor(a.flavor)
	if _, err := a.exec.Exec(ctx, query, args...); err != nil {
		return nil, a.classify(err, "update")
	}
	return a.GetByID(ctx, id)
}

// Delete removes a record by primary key. Deleting an absent id yields a
// not-found error, so a second delete of the same id fails.
func (a *Adapter) Delete(ctx context.Context, id int64) error {
	db := sqlbuilder.NewDeleteBuilder()
	db.DeleteFrom(a.table)
	db.Where(db.EQ(a.pk, id))

	query, args := db.BuildWithFlavor(a.flavor)
	result, err := a.exec.Exec(ctx, query, args...)
	if err != nil {
		return a.classify(err, "delete")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to read delete result", goerr.V("table", a.table))
	}
	if affected == 0 {
		return apperr.NotFound("record not found", goerr.V("table", a.table), goerr.V("id", id))
	}
	return nil
}

// BulkCreate inserts all records inside a single transaction. The batch is
// observably atomic: the first failure rolls back everything already
// inserted and nothing commits.
func (a *Adapter) BulkCreate(ctx context.Context, batch []Record) ([]Record, error) {
	if len(batch) == 0 {
		return nil, apperr.Validation("empty batch", goerr.V("table", a.table))
	}

	tx, err := a.exec.Begin(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin transaction", goerr.V("table", a.table))
	}

	ids := make([]int64, 0, len(batch))
	for i, fields := range batch {
		columns, values := orderedColumns(fields)
		if len(columns) == 0 {
			tx.Rollback()
			return nil, apperr.Validation("empty record in batch",
				goerr.V("table", a.table), goerr.V("index", i))
		}

		ib := sqlbuilder.NewInsertBuilder()
		ib.InsertInto(a.table)
		ib.Cols(columns...)
		ib.Values(values...)

		query, args := ib.BuildWithFlavor(a.flavor)
		var id int64
		if a.flavor == sqlbuilder.PostgreSQL {
			query += " RETURNING " + a.pk
			if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
				tx.Rollback()
				return nil, goerr.Wrap(a.classify(err, "bulk insert"), "bulk create aborted",
					goerr.V("index", i))
			}
		} else {
			result, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				tx.Rollback()
				return nil, goerr.Wrap(a.classify(err, "bulk insert"), "bulk create aborted",
					goerr.V("index", i))
			}
			id, err = result.LastInsertId()
			if err != nil {
				tx.Rollback()
				return nil, goerr.Wrap(err, "failed to read inserted id", goerr.V("table", a.table))
			}
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit bulk create", goerr.V("table", a.table))
	}

	created := make([]Record, 0, len(ids))
	for _, id := range ids {
		rec, err := a.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		created = append(created, rec)
	}
	return created, nil
}

// orderedColumns flattens a record into parallel column/value slices with
// a stable order, so generated SQL is deterministic.
func orderedColumns(fields Record) ([]string, []any) {
	columns := make([]string, 0, len(fields))
	for col := range fields {
		columns = append(columns, col)
	}
	// Map iteration order is random; sort for reproducible SQL.
	sort.Strings(columns)
	values := make([]any, 0, len(columns))
	for _, col := range columns {
		values = append(values, fields[col])
	}
	return columns, values
}

// classify maps driver errors onto the shared taxonomy. Unique and
// foreign-key violations become constraint errors; anything else is
// wrapped untagged and surfaces as an internal error upstream.
func (a *Adapter) classify(err error, op string) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1062:
			return apperr.Constraint("duplicate value for unique field",
				goerr.V("table", a.table), goerr.V("cause", mysqlErr.Message))
		case 1452:
			return apperr.Constraint("referenced record does not exist",
				goerr.V("table", a.table), goerr.V("cause", mysqlErr.Message))
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return apperr.Constraint("duplicate value for unique field",
				goerr.V("table", a.table), goerr.V("cause", pqErr.Message))
		case "23503":
			return apperr.Constraint("referenced record does not exist",
				goerr.V("table", a.table), goerr.V("cause", pqErr.Message))
		}
	}

	// sqlite3 reports constraint violations in the message text.
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return apperr.Constraint("duplicate value for unique field",
			goerr.V("table", a.table), goerr.V("cause", msg))
	}
	if strings.Contains(msg, "FOREIGN KEY constraint failed") {
		return apperr.Constraint("referenced record does not exist",
			goerr.V("table", a.table), goerr.V("cause", msg))
	}

	return goerr.Wrap(err, op+" failed", goerr.V("table", a.table))
}
