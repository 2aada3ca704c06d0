package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *PostgresStore) CreateVolunteerApplication(ctx context.Context, residentID int64, notes string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO volunteer_applications (resident_id, created, approved, notes)
		VALUES ($1, NOW(), NULL, $2)
	`, residentID, notes)
	if err != nil {
		return classify("insert volunteer application", err)
	}
	return nil
}

func (s *PostgresStore) ListPendingVolunteerApplications(ctx context.Context) ([]VolunteerApplication, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT va.resident_id, va.created, va.notes, r.first_name, r.last_name, r.email
		FROM volunteer_applications va
		JOIN residents r ON r.id = va.resident_id
		WHERE va.approved IS NULL
		ORDER BY va.created ASC
	`)
	if err != nil {
		return nil, classify("list volunteer applications", err)
	}
	defer rows.Close()

	items := make([]VolunteerApplication, 0)
	for rows.Next() {
		var item VolunteerApplication
		if err := rows.Scan(&item.ResidentID, &item.Created, &item.Notes, &item.FirstName, &item.LastName, &item.Email); err != nil {
			return nil, fmt.Errorf("scan volunteer application: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate volunteer applications", err)
	}
	return items, nil
}

// ApproveVolunteer approves the resident's pending applications and promotes
// the resident to volunteer in one transaction.
func (s *PostgresStore) ApproveVolunteer(ctx context.Context, residentID int64) (Resident, error) {
	var resident Resident
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE volunteer_applications
			SET approved = TRUE
			WHERE resident_id = $1 AND approved IS NULL
		`, residentID)
		if err != nil {
			return classify("approve volunteer application", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return classify("approve volunteer application", err)
		}
		if affected == 0 {
			return fmt.Errorf("approve volunteer application: %w", ErrNotFound)
		}

		err = tx.QueryRowContext(ctx, `
			UPDATE residents SET is_volunteer = TRUE
			WHERE id = $1
			RETURNING id, email, first_name, last_name, is_volunteer
		`, residentID).Scan(&resident.ID, &resident.Email, &resident.FirstName, &resident.LastName, &resident.IsVolunteer)
		if err != nil {
			return classify("promote volunteer", err)
		}
		return nil
	})
	if err != nil {
		return Resident{}, err
	}
	return resident, nil
}
