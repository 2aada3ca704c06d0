package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return classify("ping db", s.db.PingContext(ctx))
}

func (s *PostgresStore) DatabaseVersion(ctx context.Context) (string, error) {
	var version string
	if err := s.db.QueryRowContext(ctx, `SELECT version()`).Scan(&version); err != nil {
		return "", classify("read version", err)
	}
	return version, nil
}

const residentColumns = `
	r.id, r.email, r.password, r.first_name, r.last_name, r.street, r.zip_code, r.neighborhood, r.is_volunteer,
	EXISTS(SELECT 1 FROM organization_members om WHERE om.resident_id = r.id)
`

func scanResident(row interface{ Scan(...any) error }) (Resident, error) {
	var item Resident
	err := row.Scan(
		&item.ID, &item.Email, &item.PasswordHash, &item.FirstName, &item.LastName,
		&item.Street, &item.ZipCode, &item.Neighborhood, &item.IsVolunteer, &item.IsOrganizationMember,
	)
	return item, err
}

func (s *PostgresStore) CreateResident(ctx context.Context, resident NewResident) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO residents (email, password, first_name, last_name, street, zip_code, neighborhood, is_volunteer)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
		RETURNING id
	`,
		strings.ToLower(strings.TrimSpace(resident.Email)),
		resident.PasswordHash,
		resident.FirstName,
		resident.LastName,
		resident.Street,
		resident.ZipCode,
		resident.Neighborhood,
	).Scan(&id)
	if err != nil {
		return 0, classify("insert resident", err)
	}
	return id, nil
}

func (s *PostgresStore) GetResidentByEmail(ctx context.Context, email string) (Resident, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+residentColumns+` FROM residents r WHERE r.email = $1`,
		strings.ToLower(strings.TrimSpace(email)))
	item, err := scanResident(row)
	if err != nil {
		return Resident{}, classify("get resident by email", err)
	}
	return item, nil
}

func (s *PostgresStore) GetResidentByID(ctx context.Context, id int64) (Resident, error) {
	item, err := scanResident(s.db.QueryRowContext(ctx, `SELECT `+residentColumns+` FROM residents r WHERE r.id = $1`, id))
	if err != nil {
		return Resident{}, classify("get resident", err)
	}
	return item, nil
}

func (s *PostgresStore) IsOrganizationMember(ctx context.Context, residentID int64) (bool, error) {
	var member bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM organization_members WHERE resident_id = $1)`, residentID).Scan(&member)
	if err != nil {
		return false, classify("check organization member", err)
	}
	return member, nil
}

func (s *PostgresStore) AddOrganizationMember(ctx context.Context, residentID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organization_members (resident_id) VALUES ($1)
		ON CONFLICT (resident_id) DO NOTHING
	`, residentID)
	if err != nil {
		return classify("insert organization member", err)
	}
	return nil
}

func (s *PostgresStore) ListNeighborhoods(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM neighborhoods ORDER BY name`)
	if err != nil {
		return nil, classify("list neighborhoods", err)
	}
	defer rows.Close()

	items := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan neighborhood: %w", err)
		}
		items = append(items, name)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate neighborhoods", err)
	}
	return items, nil
}

func (s *PostgresStore) ListTrees(ctx context.Context) ([]Tree, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, common_name, scientific_name, inventory
		FROM trees
		ORDER BY common_name
	`)
	if err != nil {
		return nil, classify("list trees", err)
	}
	defer rows.Close()

	items := make([]Tree, 0)
	for rows.Next() {
		var item Tree
		if err := rows.Scan(&item.ID, &item.CommonName, &item.ScientificName, &item.Inventory); err != nil {
			return nil, fmt.Errorf("scan tree: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate trees", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateTreeInventory(ctx context.Context, treeID int64, inventory int) (Tree, error) {
	var item Tree
	err := s.db.QueryRowContext(ctx, `
		UPDATE trees SET inventory = $2
		WHERE id = $1
		RETURNING id, common_name, scientific_name, inventory
	`, treeID, inventory).Scan(&item.ID, &item.CommonName, &item.ScientificName, &item.Inventory)
	if err != nil {
		return Tree{}, classify("update tree inventory", err)
	}
	return item, nil
}

func (s *PostgresStore) GetTree(ctx context.Context, treeID int64) (Tree, error) {
	var item Tree
	err := s.db.QueryRowContext(ctx, `
		SELECT id, common_name, scientific_name, inventory FROM trees WHERE id = $1
	`, treeID).Scan(&item.ID, &item.CommonName, &item.ScientificName, &item.Inventory)
	if err != nil {
		return Tree{}, classify("get tree", err)
	}
	return item, nil
}

// SeedCatalog inserts neighborhoods and trees that are not present yet.
func (s *PostgresStore) SeedCatalog(ctx context.Context, neighborhoods []string, trees []TreeSeed) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, name := range neighborhoods {
			if _, err := tx.ExecContext(ctx, `INSERT INTO neighborhoods (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name); err != nil {
				return classify("seed neighborhood", err)
			}
		}
		for _, tree := range trees {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO trees (common_name, scientific_name, inventory, height_range, width_range)
				VALUES ($1, $2, $3, numrange($4, $5, '[]'), numrange($6, $7, '[]'))
				ON CONFLICT (common_name) DO NOTHING
			`, tree.CommonName, tree.ScientificName, tree.Inventory, tree.MinHeight, tree.MaxHeight, tree.MinWidth, tree.MaxWidth)
			if err != nil {
				return classify("seed tree", err)
			}
		}
		return nil
	})
}

func execExpectingRow(ctx context.Context, db *sql.DB, op, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return classify(op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// IsNotFound reports whether err means the addressed row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
