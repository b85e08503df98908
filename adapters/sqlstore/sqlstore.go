// Package sqlstore implements the record store on MySQL. The record id is the
// primary key and every write is an upsert inside a transaction, so
// re-processing an id can only overwrite the existing row.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"

	"github.com/andrewwormald/notifier"
)

type Store struct {
	writer *sql.DB
	reader *sql.DB

	tableName    string
	cols         string
	selectPrefix string
}

func New(writer *sql.DB, reader *sql.DB, tableName string) *Store {
	s := &Store{
		writer:    writer,
		reader:    reader,
		tableName: tableName,
	}

	s.cols = " `id`, `record_type`, `status`, `object`, `created_at`, `updated_at` "
	s.selectPrefix = " select " + s.cols + " from " + s.tableName + " where "

	return s
}

var _ notifier.RecordStore = (*Store)(nil)

func (s *Store) Store(ctx context.Context, r *notifier.Record) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = s.upsert(ctx, tx, *r)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) BatchStore(ctx context.Context, rs []notifier.Record) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range rs {
		err = s.upsert(ctx, tx, r)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) upsert(ctx context.Context, tx *sql.Tx, r notifier.Record) error {
	object, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "marshal record", j.KV("record_id", r.ID))
	}

	_, err = tx.ExecContext(ctx, "insert into "+s.tableName+
		" (id, record_type, status, object, created_at, updated_at) "+
		" values (?, ?, ?, ?, ?, ?) "+
		" on duplicate key update status=values(status), object=values(object), updated_at=values(updated_at) ",
		r.ID,
		r.Type,
		int(r.Status),
		object,
		r.CreatedAt,
		r.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "upsert record", j.MKV{
			"record_id":   r.ID,
			"record_type": r.Type,
			"status":      r.Status.String(),
		})
	}

	return nil
}

func (s *Store) Lookup(ctx context.Context, id string) (*notifier.Record, error) {
	return recordScan(s.reader.QueryRowContext(ctx, s.selectPrefix+"id=?", id))
}

func (s *Store) List(ctx context.Context, limit int) ([]notifier.Record, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.reader.QueryContext(ctx,
		" select "+s.cols+" from "+s.tableName+" order by created_at, id limit ?", limit)
	if err != nil {
		return nil, errors.Wrap(err, "list records")
	}
	defer rows.Close()

	var out []notifier.Record
	for rows.Next() {
		r, err := recordScan(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *r)
	}

	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}

	return out, nil
}

type row interface {
	Scan(dest ...any) error
}

func recordScan(rw row) (*notifier.Record, error) {
	var (
		id, recordType       string
		status               int
		object               []byte
		createdAt, updatedAt sql.NullTime
	)

	err := rw.Scan(&id, &recordType, &status, &object, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(notifier.ErrRecordNotFound, "")
	} else if err != nil {
		return nil, errors.Wrap(err, "record scan")
	}

	var r notifier.Record
	err = json.Unmarshal(object, &r)
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal record", j.KV("record_id", id))
	}

	return &r, nil
}
