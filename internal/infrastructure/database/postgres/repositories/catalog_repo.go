package repositories

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/turtacn/reagent-match/internal/domain/catalog"
	"github.com/turtacn/reagent-match/internal/infrastructure/database/postgres"
	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/reagent-match/pkg/errors"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// PostgresProductRepo reads and replaces the products table.
type PostgresProductRepo struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewPostgresProductRepo returns a product repository over the products table.
func NewPostgresProductRepo(conn *postgres.Connection, log logging.Logger) *PostgresProductRepo {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PostgresProductRepo{conn: conn, log: log}
}

const listProductsQuery = `
		SELECT id, name, quantity, unit, purity, attributes
		FROM products
		ORDER BY position, id`

func (r *PostgresProductRepo) ListProducts(ctx context.Context) ([]*catalog.Product, error) {
	rows, err := r.conn.DB().QueryContext(ctx, listProductsQuery)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCatalogUnavailable, "failed to query products")
	}
	defer rows.Close()

	var products []*catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCatalogUnavailable, "failed to scan product")
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCatalogUnavailable, "failed to iterate products")
	}
	r.log.Debug("products loaded", logging.Int("rows", len(products)))
	return products, nil
}

func scanProduct(s scanner) (*catalog.Product, error) {
	var (
		p        catalog.Product
		quantity sql.NullFloat64
		unit     sql.NullString
		purity   sql.NullFloat64
		attrs    []byte
	)
	if err := s.Scan(&p.ID, &p.Name, &quantity, &unit, &purity, &attrs); err != nil {
		return nil, err
	}
	if quantity.Valid {
		p.Quantity = &quantity.Float64
	}
	if unit.Valid {
		p.Unit = catalog.Unit(unit.String)
	}
	if purity.Valid {
		p.Purity = &purity.Float64
	}
	if len(attrs) > 0 {
		m := make(map[string]string)
		if err := json.Unmarshal(attrs, &m); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "invalid product attributes").WithDetail("id=" + p.ID)
		}
		if len(m) > 0 {
			p.Attributes = m
		}
	}
	return &p, nil
}

// ReplaceProducts swaps the whole table content for products inside one
// transaction. Row order becomes the position column.
func (r *PostgresProductRepo) ReplaceProducts(ctx context.Context, products []*catalog.Product) error {
	return withTx(ctx, r.conn.DB(), func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to clear products")
		}
		stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products (id, position, name, quantity, unit, purity, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to prepare product insert")
		}
		defer stmt.Close()

		for i, p := range products {
			attrs, err := json.Marshal(p.Attributes)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode product attributes")
			}
			if p.Attributes == nil {
				attrs = []byte("{}")
			}
			if _, err := stmt.ExecContext(ctx, p.ID, i, p.Name, nullFloat(p.Quantity), nullString(string(p.Unit)), nullFloat(p.Purity), attrs); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert product").WithDetail("id=" + p.ID)
			}
		}
		r.log.Info("products replaced", logging.Int("rows", len(products)))
		return nil
	})
}

// PostgresSynonymRepo reads and replaces the substance_synonyms table.
type PostgresSynonymRepo struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewPostgresSynonymRepo returns a synonym repository over substance_synonyms.
func NewPostgresSynonymRepo(conn *postgres.Connection, log logging.Logger) *PostgresSynonymRepo {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PostgresSynonymRepo{conn: conn, log: log}
}

func (r *PostgresSynonymRepo) ListSynonyms(ctx context.Context) ([]catalog.SynonymRow, error) {
	rows, err := r.conn.DB().QueryContext(ctx, `SELECT canonical, synonym FROM substance_synonyms ORDER BY position`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSynonymsUnavailable, "failed to query synonyms")
	}
	defer rows.Close()

	var out []catalog.SynonymRow
	for rows.Next() {
		var (
			row catalog.SynonymRow
			syn sql.NullString
		)
		if err := rows.Scan(&row.Canonical, &syn); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSynonymsUnavailable, "failed to scan synonym")
		}
		row.Synonym = syn.String
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSynonymsUnavailable, "failed to iterate synonyms")
	}
	r.log.Debug("synonyms loaded", logging.Int("rows", len(out)))
	return out, nil
}

// ReplaceSynonyms swaps the synonym table for rows, keeping their order.
func (r *PostgresSynonymRepo) ReplaceSynonyms(ctx context.Context, rows []catalog.SynonymRow) error {
	return withTx(ctx, r.conn.DB(), func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM substance_synonyms`); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to clear synonyms")
		}
		for i, row := range rows {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO substance_synonyms (position, canonical, synonym) VALUES ($1, $2, $3)`,
				i, row.Canonical, nullString(row.Synonym)); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert synonym")
			}
		}
		r.log.Info("synonyms replaced", logging.Int("rows", len(rows)))
		return nil
	})
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit transaction")
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var (
	_ catalog.ProductStore = (*PostgresProductRepo)(nil)
	_ catalog.SynonymStore = (*PostgresSynonymRepo)(nil)
)
