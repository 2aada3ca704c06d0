package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *PostgresStore) ScheduleVisit(ctx context.Context, visit NewVisit) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO scheduled_visits (tree_request_id, event_timestamp, cancelled, notes, organization_member_id)
		VALUES ($1, $2, FALSE, $3, $4)
		RETURNING event_id
	`, visit.TreeRequestID, visit.Timestamp, visit.Notes, visit.OrganizationMemberID).Scan(&id)
	if err != nil {
		return 0, classify("insert scheduled visit", err)
	}
	return id, nil
}

func (s *PostgresStore) CancelVisit(ctx context.Context, eventID int64) error {
	return execExpectingRow(ctx, s.db, "cancel visit",
		`UPDATE scheduled_visits SET cancelled = TRUE WHERE event_id = $1`, eventID)
}

func (s *PostgresStore) RecordVisitOutcome(ctx context.Context, outcome VisitOutcome) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visit_events (scheduled_visit_id, observations, photo_library_link, additional_visit_required)
		VALUES ($1, $2, $3, $4)
	`, outcome.ScheduledVisitID, outcome.Observations, outcome.PhotoLibraryLink, outcome.AdditionalVisitRequired)
	if err != nil {
		return classify("insert visit event", err)
	}
	return nil
}

func (s *PostgresStore) VisitTreeRequest(ctx context.Context, visitID int64) (int64, error) {
	var treeRequestID int64
	err := s.db.QueryRowContext(ctx, `SELECT tree_request_id FROM scheduled_visits WHERE event_id = $1`, visitID).Scan(&treeRequestID)
	if err != nil {
		return 0, classify("get visit", err)
	}
	return treeRequestID, nil
}

func (s *PostgresStore) SchedulePlanting(ctx context.Context, planting NewPlanting) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO scheduled_plantings (tree_request_id, event_timestamp, cancelled, notes)
		VALUES ($1, $2, FALSE, $3)
		RETURNING event_id
	`, planting.TreeRequestID, planting.Timestamp, planting.Notes).Scan(&id)
	if err != nil {
		return 0, classify("insert scheduled planting", err)
	}
	return id, nil
}

// CancelPlanting fails with ErrNotFound when the planting does not exist or
// was already cancelled.
func (s *PostgresStore) CancelPlanting(ctx context.Context, eventID int64) error {
	return execExpectingRow(ctx, s.db, "cancel planting",
		`UPDATE scheduled_plantings SET cancelled = TRUE WHERE event_id = $1 AND cancelled = FALSE`, eventID)
}

func (s *PostgresStore) AddOrgMemberToPlanting(ctx context.Context, organizationMemberID, scheduledPlantingID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organization_members_lead_scheduled_plantings (organization_member_id, scheduled_planting_id)
		VALUES ($1, $2)
	`, organizationMemberID, scheduledPlantingID)
	if err != nil {
		return classify("assign organization member", err)
	}
	return nil
}

func (s *PostgresStore) AddVolunteerToPlanting(ctx context.Context, volunteerID, scheduledPlantingID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scheduled_plantings_have_volunteers (volunteer_id, planting_event_id)
		VALUES ($1, $2)
	`, volunteerID, scheduledPlantingID)
	if err != nil {
		return classify("assign volunteer", err)
	}
	return nil
}

// RecordPlantingOutcome stores the outcome and, when the planting succeeded,
// takes one tree of the requested species out of inventory. Inventory never
// goes below zero: an empty stock leaves InventoryDecreased false.
func (s *PostgresStore) RecordPlantingOutcome(ctx context.Context, outcome PlantingOutcome) (PlantingOutcomeResult, error) {
	var result PlantingOutcomeResult
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO planting_events (scheduled_planting_id, observations, successful, before_photos_library_link, after_photos_library_link)
			VALUES ($1, $2, $3, $4, $5)
		`, outcome.ScheduledPlantingID, outcome.Observations, outcome.Successful,
			outcome.BeforePhotosLibraryLink, outcome.AfterPhotosLibraryLink); err != nil {
			return classify("insert planting event", err)
		}
		if !outcome.Successful {
			return nil
		}

		if err := tx.QueryRowContext(ctx, `
			SELECT tr.tree_id
			FROM scheduled_plantings sp
			JOIN tree_requests tr ON tr.id = sp.tree_request_id
			WHERE sp.event_id = $1
		`, outcome.ScheduledPlantingID).Scan(&result.TreeID); err != nil {
			return classify("get planted tree", err)
		}

		updated, err := tx.ExecContext(ctx, `UPDATE trees SET inventory = inventory - 1 WHERE id = $1 AND inventory > 0`, result.TreeID)
		if err != nil {
			return classify("decrement inventory", err)
		}
		affected, err := updated.RowsAffected()
		if err != nil {
			return classify("decrement inventory", err)
		}
		result.InventoryDecreased = affected == 1
		return nil
	})
	if err != nil {
		return PlantingOutcomeResult{}, err
	}
	return result, nil
}

func (s *PostgresStore) AddVolunteerToPlantingEvent(ctx context.Context, volunteerID, plantingEventID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO planting_events_have_volunteers (volunteer_id, planting_event_id)
		VALUES ($1, $2)
	`, volunteerID, plantingEventID)
	if err != nil {
		return classify("record volunteer attendance", err)
	}
	return nil
}

func (s *PostgresStore) GetPlantingDetails(ctx context.Context, eventID int64) (PlantingDetails, error) {
	var item PlantingDetails
	var successful sql.NullBool
	var observations sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT sp.event_id, sp.tree_request_id, sp.event_timestamp, sp.cancelled, sp.notes,
		       tr.site_description,
		       pe.scheduled_planting_id IS NOT NULL AS outcome_recorded,
		       pe.successful,
		       pe.observations
		FROM scheduled_plantings sp
		JOIN tree_requests tr ON tr.id = sp.tree_request_id
		LEFT JOIN planting_events pe ON pe.scheduled_planting_id = sp.event_id
		WHERE sp.event_id = $1
	`, eventID).Scan(
		&item.EventID, &item.TreeRequestID, &item.EventTimestamp, &item.Cancelled, &item.Notes,
		&item.SiteDescription, &item.OutcomeRecorded, &successful, &observations,
	)
	if err != nil {
		return PlantingDetails{}, classify("get planting", err)
	}

	if item.OutcomeRecorded {
		item.OutcomeSuccessful = nullBoolPtr(successful)
		if observations.Valid {
			text := observations.String
			item.OutcomeObservations = &text
		}
		item.AttendedVolunteers, err = s.listPeople(ctx, "list attended volunteers", `
			SELECT r.id, r.first_name, r.last_name
			FROM planting_events_have_volunteers pev
			JOIN residents r ON r.id = pev.volunteer_id
			WHERE pev.planting_event_id = $1
			ORDER BY r.last_name, r.first_name
		`, eventID)
		if err != nil {
			return PlantingDetails{}, err
		}
	}

	item.AssignedVolunteers, err = s.listPeople(ctx, "list assigned volunteers", `
		SELECT r.id, r.first_name, r.last_name
		FROM scheduled_plantings_have_volunteers sphv
		JOIN residents r ON r.id = sphv.volunteer_id
		WHERE sphv.planting_event_id = $1
		ORDER BY r.last_name, r.first_name
	`, eventID)
	if err != nil {
		return PlantingDetails{}, err
	}
	item.AssignedOrgMembers, err = s.listPeople(ctx, "list assigned organization members", `
		SELECT r.id, r.first_name, r.last_name
		FROM organization_members_lead_scheduled_plantings omlsp
		JOIN residents r ON r.id = omlsp.organization_member_id
		WHERE omlsp.scheduled_planting_id = $1
		ORDER BY r.last_name, r.first_name
	`, eventID)
	if err != nil {
		return PlantingDetails{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListAvailableVolunteers(ctx context.Context) ([]Person, error) {
	return s.listPeople(ctx, "list volunteers", `
		SELECT id, first_name, last_name
		FROM residents
		WHERE is_volunteer = TRUE
		ORDER BY last_name, first_name
	`)
}

func (s *PostgresStore) ListAvailableOrgMembers(ctx context.Context) ([]Person, error) {
	return s.listPeople(ctx, "list organization members", `
		SELECT r.id, r.first_name, r.last_name
		FROM organization_members om
		JOIN residents r ON r.id = om.resident_id
		ORDER BY r.last_name, r.first_name
	`)
}

func (s *PostgresStore) listPeople(ctx context.Context, op, query string, args ...any) ([]Person, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	items := make([]Person, 0)
	for rows.Next() {
		var item Person
		if err := rows.Scan(&item.ID, &item.FirstName, &item.LastName); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return items, nil
}
