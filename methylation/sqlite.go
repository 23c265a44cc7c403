// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package methylation

import (
	"github.com/grailbio/implicon/amplicon"
	"github.com/jmoiron/sqlx"
	pkgerrors "github.com/pkg/errors"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS genes (
	gene TEXT NOT NULL,
	col INTEGER NOT NULL,
	pos INTEGER NOT NULL,
	PRIMARY KEY (gene, col)
);
CREATE TABLE IF NOT EXISTS reads (
	read_id INTEGER PRIMARY KEY,
	sample TEXT NOT NULL,
	allele TEXT NOT NULL,
	gene TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS states (
	read_id INTEGER NOT NULL REFERENCES reads(read_id),
	col INTEGER NOT NULL,
	state INTEGER,
	PRIMARY KEY (read_id, col)
);
`

// SQLiteRead is a row of the reads table.
type SQLiteRead struct {
	ReadID int64  `db:"read_id"`
	Sample string `db:"sample"`
	Allele string `db:"allele"`
	Gene   string `db:"gene"`
}

// SQLiteState is a row of the states table. Col is the 1-based column of the
// gene; State is NULL for sites the read does not cover.
type SQLiteState struct {
	ReadID int64 `db:"read_id"`
	Col    int   `db:"col"`
	State  *int  `db:"state"`
}

// SQLiteSink stores rows in long form in an SQLite database, with the
// panel's gene layout in the genes table. All writes of a run happen in one
// transaction, committed by Close.
type SQLiteSink struct {
	db *sqlx.DB
	tx *sqlx.Tx
}

// OpenSQLiteSink creates or opens the database at path and records the
// panel layout. Rows of an earlier run are deleted in the same transaction,
// so the database keeps its old contents until Close commits the new ones.
func OpenSQLiteSink(path string, panel *amplicon.Panel) (*SQLiteSink, error) {
	db, err := sqlx.Connect(whichSQLiteDriver, sqliteDSN(path))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "open %s", path)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = MEMORY; PRAGMA synchronous = OFF;`); err != nil {
		db.Close() // nolint: errcheck
		return nil, pkgerrors.Wrap(err, "unable to set pragmas")
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close() // nolint: errcheck
		return nil, pkgerrors.Wrap(err, "create schema")
	}
	tx, err := db.Beginx()
	if err != nil {
		db.Close() // nolint: errcheck
		return nil, err
	}
	s := &SQLiteSink{db: db, tx: tx}
	for _, table := range []string{"states", "reads", "genes"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			s.abort()
			return nil, pkgerrors.Wrapf(err, "clear %s", table)
		}
	}
	for _, gene := range panel.Genes {
		for i, pos := range panel.Positions[gene] {
			if _, err := tx.Exec(`INSERT INTO genes (gene, col, pos) VALUES (?, ?, ?)`, gene, i+1, pos); err != nil {
				s.abort()
				return nil, pkgerrors.Wrap(err, "insert gene layout")
			}
		}
	}
	return s, nil
}

// Write stores one row.
func (s *SQLiteSink) Write(r *Row) error {
	if _, err := s.tx.NamedExec(`INSERT INTO reads (read_id, sample, allele, gene) VALUES (:read_id, :sample, :allele, :gene)`,
		&SQLiteRead{ReadID: r.ID, Sample: r.Sample, Allele: r.Allele, Gene: r.Gene}); err != nil {
		return pkgerrors.Wrapf(err, "insert read %d", r.ID)
	}
	for i, st := range r.States {
		var state *int
		if st != NotCovered {
			v := int(st)
			state = &v
		}
		if _, err := s.tx.Exec(`INSERT INTO states (read_id, col, state) VALUES (?, ?, ?)`, r.ID, i+1, state); err != nil {
			return pkgerrors.Wrapf(err, "insert states of read %d", r.ID)
		}
	}
	return nil
}

// Close commits the rows written so far and closes the database.
func (s *SQLiteSink) Close() error {
	err := s.tx.Commit()
	if e := s.db.Close(); e != nil && err == nil {
		err = e
	}
	return err
}

func (s *SQLiteSink) abort() {
	_ = s.tx.Rollback()
	_ = s.db.Close()
}
