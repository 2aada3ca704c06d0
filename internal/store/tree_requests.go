package store

import (
	"context"
	"database/sql"
	"fmt"

	"treeplant/api/internal/lifecycle"
)

func (s *PostgresStore) ListTreeRequests(ctx context.Context, residentID int64) ([]TreeRequestSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, submission_timestamp, approved
		FROM tree_requests
		WHERE resident_id = $1
		ORDER BY submission_timestamp DESC, id DESC
	`, residentID)
	if err != nil {
		return nil, classify("list tree requests", err)
	}
	defer rows.Close()

	items := make([]TreeRequestSummary, 0)
	for rows.Next() {
		var item TreeRequestSummary
		var approved sql.NullBool
		if err := rows.Scan(&item.ID, &item.SubmissionTimestamp, &approved); err != nil {
			return nil, fmt.Errorf("scan tree request: %w", err)
		}
		item.Approved = nullBoolPtr(approved)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate tree requests", err)
	}
	return items, nil
}

// GetTreeRequestDetails returns one of the resident's own requests. Status is
// left empty for the caller to derive.
func (s *PostgresStore) GetTreeRequestDetails(ctx context.Context, residentID, treeRequestID int64) (TreeRequestDetails, error) {
	var item TreeRequestDetails
	var permitStatus sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT t.common_name,
		       t.scientific_name,
		       CURRENT_DATE - tr.submission_timestamp::DATE AS days_since_submission,
		       p.status
		FROM tree_requests tr
		JOIN trees t ON t.id = tr.tree_id
		LEFT JOIN permits p ON p.tree_request_id = tr.id
		WHERE tr.id = $1 AND tr.resident_id = $2
	`, treeRequestID, residentID).Scan(&item.CommonName, &item.ScientificName, &item.DaysSinceSubmission, &permitStatus)
	if err != nil {
		return TreeRequestDetails{}, classify("get tree request details", err)
	}
	item.PermitStatus = permitStatus.String
	return item, nil
}

// CreateTreeRequest stores the request and its pending permit atomically.
func (s *PostgresStore) CreateTreeRequest(ctx context.Context, request NewTreeRequest) (int64, error) {
	var id int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO tree_requests (resident_id, tree_id, site_description)
			VALUES ($1, $2, $3)
			RETURNING id
		`, request.ResidentID, request.TreeID, request.SiteDescription).Scan(&id); err != nil {
			return classify("insert tree request", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO permits (resident_id, tree_request_id, status, decision_date)
			VALUES ($1, $2, $3, NULL)
		`, request.ResidentID, id, lifecycle.PermitPending); err != nil {
			return classify("insert permit", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *PostgresStore) TreeRequestOwner(ctx context.Context, treeRequestID int64) (int64, error) {
	var residentID int64
	err := s.db.QueryRowContext(ctx, `SELECT resident_id FROM tree_requests WHERE id = $1`, treeRequestID).Scan(&residentID)
	if err != nil {
		return 0, classify("get tree request owner", err)
	}
	return residentID, nil
}

func (s *PostgresStore) ListAllTreeRequests(ctx context.Context) ([]AdminTreeRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tr.id,
		       tr.submission_timestamp,
		       tr.approved,
		       get_tree_request_status(tr.id) AS status,
		       t.common_name,
		       t.scientific_name
		FROM tree_requests tr
		JOIN trees t ON t.id = tr.tree_id
		ORDER BY tr.submission_timestamp DESC, tr.id DESC
	`)
	if err != nil {
		return nil, classify("list all tree requests", err)
	}
	defer rows.Close()

	items := make([]AdminTreeRequest, 0)
	for rows.Next() {
		var item AdminTreeRequest
		var approved sql.NullBool
		if err := rows.Scan(&item.ID, &item.SubmissionTimestamp, &approved, &item.Status, &item.CommonName, &item.ScientificName); err != nil {
			return nil, fmt.Errorf("scan tree request: %w", err)
		}
		item.Approved = nullBoolPtr(approved)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate all tree requests", err)
	}
	return items, nil
}

// GetAdminTreeRequestDetails loads a request with its visits and plantings.
// Status is left empty for the caller to derive.
func (s *PostgresStore) GetAdminTreeRequestDetails(ctx context.Context, treeRequestID int64) (AdminTreeRequestDetails, error) {
	var item AdminTreeRequestDetails
	var approved sql.NullBool
	var permitStatus sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT tr.id, tr.resident_id, t.common_name, t.scientific_name, t.inventory,
		       tr.site_description, r.street, r.zip_code, r.neighborhood,
		       tr.approved, p.status
		FROM tree_requests tr
		JOIN trees t ON t.id = tr.tree_id
		JOIN residents r ON r.id = tr.resident_id
		LEFT JOIN permits p ON p.tree_request_id = tr.id
		WHERE tr.id = $1
	`, treeRequestID).Scan(
		&item.ID, &item.ResidentID, &item.TreeCommonName, &item.TreeScientificName, &item.TreeInventory,
		&item.SiteDescription, &item.ResidentStreet, &item.ResidentZipCode, &item.ResidentNeighborhood,
		&approved, &permitStatus,
	)
	if err != nil {
		return AdminTreeRequestDetails{}, classify("get tree request", err)
	}
	item.Approved = nullBoolPtr(approved)
	item.PermitStatus = permitStatus.String

	if item.ScheduledVisits, err = s.listVisitsForRequest(ctx, treeRequestID); err != nil {
		return AdminTreeRequestDetails{}, err
	}
	if item.ScheduledPlantings, err = s.listPlantingsForRequest(ctx, treeRequestID); err != nil {
		return AdminTreeRequestDetails{}, err
	}
	return item, nil
}

func (s *PostgresStore) listVisitsForRequest(ctx context.Context, treeRequestID int64) ([]VisitSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sv.event_id, sv.event_timestamp, sv.cancelled, sv.notes, sv.organization_member_id,
		       ve.scheduled_visit_id IS NOT NULL AS outcome_recorded
		FROM scheduled_visits sv
		LEFT JOIN visit_events ve ON ve.scheduled_visit_id = sv.event_id
		WHERE sv.tree_request_id = $1
		ORDER BY sv.event_timestamp
	`, treeRequestID)
	if err != nil {
		return nil, classify("list scheduled visits", err)
	}
	defer rows.Close()

	items := make([]VisitSummary, 0)
	for rows.Next() {
		var item VisitSummary
		if err := rows.Scan(&item.EventID, &item.EventTimestamp, &item.Cancelled, &item.Notes, &item.OrganizationMemberID, &item.OutcomeRecorded); err != nil {
			return nil, fmt.Errorf("scan scheduled visit: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate scheduled visits", err)
	}
	return items, nil
}

func (s *PostgresStore) listPlantingsForRequest(ctx context.Context, treeRequestID int64) ([]PlantingSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sp.event_id, sp.event_timestamp, sp.cancelled, sp.notes,
		       pe.scheduled_planting_id IS NOT NULL AS outcome_recorded
		FROM scheduled_plantings sp
		LEFT JOIN planting_events pe ON pe.scheduled_planting_id = sp.event_id
		WHERE sp.tree_request_id = $1
		ORDER BY sp.event_timestamp
	`, treeRequestID)
	if err != nil {
		return nil, classify("list scheduled plantings", err)
	}
	defer rows.Close()

	items := make([]PlantingSummary, 0)
	for rows.Next() {
		var item PlantingSummary
		if err := rows.Scan(&item.EventID, &item.EventTimestamp, &item.Cancelled, &item.Notes, &item.OutcomeRecorded); err != nil {
			return nil, fmt.Errorf("scan scheduled planting: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate scheduled plantings", err)
	}
	return items, nil
}

func (s *PostgresStore) SetTreeRequestApproval(ctx context.Context, treeRequestID int64, approved bool) error {
	return execExpectingRow(ctx, s.db, "update tree request approval",
		`UPDATE tree_requests SET approved = $2 WHERE id = $1`, treeRequestID, approved)
}

// UpdatePermitStatus stamps decision_date for approved or denied permits and
// clears it when the permit goes back to pending.
func (s *PostgresStore) UpdatePermitStatus(ctx context.Context, treeRequestID int64, status string) error {
	return execExpectingRow(ctx, s.db, "update permit status", `
		UPDATE permits
		SET status = $2,
		    decision_date = CASE WHEN $2 = 'pending' THEN NULL ELSE NOW() END
		WHERE tree_request_id = $1
	`, treeRequestID, status)
}

// StatusFacts loads the inputs of lifecycle.Derive for one request.
func (s *PostgresStore) StatusFacts(ctx context.Context, treeRequestID int64) (lifecycle.Facts, error) {
	var approved sql.NullBool
	var permitStatus sql.NullString
	var facts lifecycle.Facts
	err := s.db.QueryRowContext(ctx, `
		SELECT tr.approved,
		       p.status,
		       EXISTS (
		         SELECT 1 FROM scheduled_visits sv
		         JOIN visit_events ve ON ve.scheduled_visit_id = sv.event_id
		         WHERE sv.tree_request_id = tr.id AND sv.cancelled = FALSE AND ve.additional_visit_required = FALSE
		       ),
		       EXISTS (
		         SELECT 1 FROM scheduled_plantings sp
		         JOIN planting_events pe ON pe.scheduled_planting_id = sp.event_id
		         WHERE sp.tree_request_id = tr.id AND sp.cancelled = FALSE AND pe.successful = TRUE
		       )
		FROM tree_requests tr
		LEFT JOIN permits p ON p.tree_request_id = tr.id
		WHERE tr.id = $1
	`, treeRequestID).Scan(&approved, &permitStatus, &facts.VisitRecorded, &facts.PlantingSucceeded)
	if err != nil {
		return lifecycle.Facts{}, classify("load status facts", err)
	}
	facts.Approved = nullBoolPtr(approved)
	facts.PermitStatus = permitStatus.String
	return facts, nil
}

// DerivedStatus asks the database function for the label of one request.
func (s *PostgresStore) DerivedStatus(ctx context.Context, treeRequestID int64) (string, error) {
	var status sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT get_tree_request_status($1)`, treeRequestID).Scan(&status); err != nil {
		return "", classify("derive status", err)
	}
	if !status.Valid {
		return "", fmt.Errorf("derive status: %w", ErrNotFound)
	}
	return status.String, nil
}

func (s *PostgresStore) RequestContact(ctx context.Context, treeRequestID int64) (RequestContact, error) {
	item := RequestContact{TreeRequestID: treeRequestID}
	err := s.db.QueryRowContext(ctx, `
		SELECT r.email, r.first_name, t.common_name
		FROM tree_requests tr
		JOIN residents r ON r.id = tr.resident_id
		JOIN trees t ON t.id = tr.tree_id
		WHERE tr.id = $1
	`, treeRequestID).Scan(&item.Email, &item.FirstName, &item.CommonName)
	if err != nil {
		return RequestContact{}, classify("get request contact", err)
	}
	return item, nil
}

func nullBoolPtr(value sql.NullBool) *bool {
	if !value.Valid {
		return nil
	}
	v := value.Bool
	return &v
}
