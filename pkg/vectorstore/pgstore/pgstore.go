// Package pgstore implements vectorstore.Store on Postgres with the
// pgvector extension, generalizing the teacher's note-embedding
// repository from a single fixed table into an arbitrary number of
// collection-scoped tables sharing one schema.
package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tenderanalysis/pkg/vectorstore"
)

var collectionNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// fragmentVector is the row shape for every collection table. Each
// collection gets its own physical table (fragvec_<collection>) so that
// ivfflat indexes stay scoped to one document-level corpus at a time.
type fragmentVector struct {
	ID        string          `gorm:"primaryKey;type:text"`
	Text      string          `gorm:"type:text"`
	Vector    pgvector.Vector `gorm:"column:vector"`
	Metadata  datatypes.JSON  `gorm:"type:jsonb"`
	CreatedAt int64           `gorm:"autoCreateTime"`
}

// PgStore is a Postgres+pgvector backed vectorstore.Store. One instance
// serves any number of collections; each collection's table is created
// lazily on first Upsert.
type PgStore struct {
	db        *gorm.DB
	dimension int
	known     map[string]bool
}

func New(db *gorm.DB, dimension int) *PgStore {
	return &PgStore{db: db, dimension: dimension, known: make(map[string]bool)}
}

func tableName(collection string) string {
	return "fragvec_" + collection
}

func (s *PgStore) ensureTable(ctx context.Context, collection string) error {
	if s.known[collection] {
		return nil
	}
	if !collectionNamePattern.MatchString(collection) {
		return fmt.Errorf("vectorstore: invalid collection name %q", collection)
	}
	table := tableName(collection)
	ddl := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
			id text PRIMARY KEY,
			text text,
			vector vector(%d),
			metadata jsonb,
			created_at bigint
		)`, table, s.dimension)
	if err := s.db.WithContext(ctx).Exec(ddl).Error; err != nil {
		return fmt.Errorf("vectorstore: create table %s: %w", table, err)
	}
	s.known[collection] = true
	return nil
}

func (s *PgStore) Upsert(ctx context.Context, collection string, items []vectorstore.Item) error {
	if len(items) == 0 {
		return nil
	}
	if err := s.ensureTable(ctx, collection); err != nil {
		return err
	}

	rows := make([]fragmentVector, 0, len(items))
	for _, it := range items {
		if s.dimension > 0 && len(it.Vector) != s.dimension {
			return vectorstore.ErrDimensionMismatch
		}
		metaJSON, err := json.Marshal(it.Metadata)
		if err != nil {
			return err
		}
		rows = append(rows, fragmentVector{
			ID:       it.ID,
			Text:     it.Text,
			Vector:   pgvector.NewVector(it.Vector),
			Metadata: datatypes.JSON(metaJSON),
		})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Table(tableName(collection)).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).
			Create(&rows).Error
	})
}

func (s *PgStore) Query(ctx context.Context, collection string, vector []float32, k int, filter vectorstore.Filter) ([]vectorstore.QueryResult, error) {
	if err := s.ensureTable(ctx, collection); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 10
	}

	type row struct {
		fragmentVector
		Similarity float64
	}
	var rows []row

	q := pgvector.NewVector(vector)
	tx := s.db.WithContext(ctx).
		Table(tableName(collection)).
		Select("*, 1 - (vector <=> ?) as similarity", q).
		Order(clause.Expr{SQL: "vector <=> ?", Vars: []interface{}{q}}).
		Limit(k)
	tx = applyFilter(tx, filter)

	if err := tx.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("vectorstore: query: %w", err)
	}

	results := make([]vectorstore.QueryResult, 0, len(rows))
	for _, r := range rows {
		var meta map[string]any
		if len(r.Metadata) > 0 {
			if err := json.Unmarshal(r.Metadata, &meta); err != nil {
				return nil, err
			}
		}
		results = append(results, vectorstore.QueryResult{
			Item: vectorstore.Item{
				ID:       r.ID,
				Text:     r.Text,
				Vector:   r.Vector.Slice(),
				Metadata: meta,
			},
			Similarity: r.Similarity,
		})
	}
	return results, nil
}

func (s *PgStore) Delete(ctx context.Context, collection string, filter vectorstore.Filter) error {
	if err := s.ensureTable(ctx, collection); err != nil {
		return err
	}
	tx := s.db.WithContext(ctx).Table(tableName(collection))
	if len(filter) == 0 {
		return tx.Exec("DELETE FROM " + tableName(collection)).Error
	}
	tx = applyFilter(tx, filter)
	return tx.Delete(&fragmentVector{}).Error
}

func (s *PgStore) ListCollections(ctx context.Context) ([]string, error) {
	var tables []string
	err := s.db.WithContext(ctx).
		Raw(`SELECT table_name FROM information_schema.tables WHERE table_name LIKE 'fragvec_%'`).
		Scan(&tables).Error
	if err != nil {
		return nil, err
	}
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t[len("fragvec_"):]
	}
	return names, nil
}

func applyFilter(tx *gorm.DB, filter vectorstore.Filter) *gorm.DB {
	for k, v := range filter {
		tx = tx.Where("metadata ->> ? = ?", k, fmt.Sprintf("%v", v))
	}
	return tx
}
