package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Report rows. Peak-year values are nil when nothing was planted; ties go to
// the most recent year.

type RequestStatusRow struct {
	ID                  int64  `json:"id"`
	Status              string `json:"status"`
	DaysSinceSubmission int    `json:"days_since_submission"`
}

type TreesPlantedRow struct {
	CommonName    string `json:"common_name"`
	NumberOfTrees int    `json:"number_of_trees"`
}

type SpeciesStatisticsRow struct {
	CommonName              string `json:"common_name"`
	NumberOfTreesPlanted    int    `json:"number_of_trees_planted"`
	YearsSincePlanting      int    `json:"years_since_planting"`
	YearsSinceFirstPlanting int    `json:"years_since_first_planting"`
	YearMostPlanted         *int   `json:"year_most_planted"`
	NumPlantedInPeakYear    *int   `json:"num_planted_in_peak_year"`
}

type NeighborhoodReportRow struct {
	NeighborhoodName                string `json:"neighborhood_name"`
	NumOfPlantedTrees               int    `json:"num_of_planted_trees"`
	NumOfRequests                   int    `json:"num_of_requests"`
	NumOfCompletedRequests          int    `json:"num_of_completed_requests"`
	NumOfRequestsWaitingForPlanting int    `json:"num_of_requests_waiting_for_planting"`
	NumOfRequestsWaitingForVisit    int    `json:"num_of_requests_waiting_for_visit"`
	NumOfRequestsNeedsPermit        int    `json:"num_of_requests_needs_permit"`
	NumOfDeniedRequests             int    `json:"num_of_denied_requests"`
	NumOfRequestsPendingApproval    int    `json:"num_of_requests_pending_approval"`
}

type VolunteerActivityRow struct {
	VolunteerName          string    `json:"volunteer_name"`
	FirstPlanting          time.Time `json:"first_planting"`
	MostRecentPlanting     time.Time `json:"most_recent_planting"`
	TreesPlanted           int       `json:"trees_planted"`
	PeakYear               *int      `json:"peak_year"`
	TreesPlantedInPeakYear *int      `json:"trees_planted_in_peak_year"`
}

type OrgMemberActivityRow struct {
	OrgMemberName            string `json:"org_member_name"`
	PlantingsLed             int    `json:"plantings_led"`
	SuccessfulPlantingsLed   int    `json:"successful_plantings_led"`
	PlantingsLedPeakYear     *int   `json:"plantings_led_peak_year"`
	PlantingsLedInPeakYear   *int   `json:"plantings_led_in_peak_year"`
	VisitsAttended           int    `json:"visits_attended"`
	VisitsAttendedPeakYear   *int   `json:"visits_attended_peak_year"`
	VisitsAttendedInPeakYear *int   `json:"visits_attended_in_peak_year"`
}

type SpeciesNeighborhoodRow struct {
	CommonName             string `json:"common_name"`
	NeighborhoodName       string `json:"neighborhood_name"`
	TotalTreesPlanted      int    `json:"total_trees_planted"`
	TreesPlantedThisYear   int    `json:"trees_planted_this_year"`
	PeakYear               *int   `json:"peak_year"`
	TreesPlantedInPeakYear *int   `json:"trees_planted_in_peak_year"`
}

type TreeSizeRow struct {
	CommonName string `json:"common_name"`
	Inventory  int    `json:"inventory"`
	NumPlanted int    `json:"num_planted"`
}

type VolunteerAttendanceRow struct {
	VolunteerName                  string   `json:"volunteer_name"`
	NumPlantingsAttended           int      `json:"num_plantings_attended"`
	NumPlantingsMissed             int      `json:"num_plantings_missed"`
	SuccessRateOfAttendedPlantings *float64 `json:"success_rate_of_attended_plantings"`
}

// SizeBounds limits mature height and width in feet.
type SizeBounds struct {
	MinHeight float64
	MaxHeight float64
	MinWidth  float64
	MaxWidth  float64
}

func queryRows[T any](ctx context.Context, db *sql.DB, op, query string, scan func(*sql.Rows) (T, error), args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", op, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return items, nil
}

func nullIntPtr(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	v := int(value.Int64)
	return &v
}

func (s *PostgresStore) ReportTreeRequestsStatus(ctx context.Context) ([]RequestStatusRow, error) {
	return queryRows(ctx, s.db, "tree requests status report", `
		SELECT id, status, days_since_submission
		FROM (
		  SELECT id,
		         get_tree_request_status(id) AS status,
		         CURRENT_DATE - submission_timestamp::DATE AS days_since_submission
		  FROM tree_requests
		) requests
		WHERE status <> 'completed'
		ORDER BY id
	`, func(rows *sql.Rows) (RequestStatusRow, error) {
		var item RequestStatusRow
		err := rows.Scan(&item.ID, &item.Status, &item.DaysSinceSubmission)
		return item, err
	})
}

func (s *PostgresStore) ReportTreesPlanted(ctx context.Context, neighborhood string) ([]TreesPlantedRow, error) {
	return queryRows(ctx, s.db, "trees planted report", `
		SELECT t.common_name, COUNT(*) AS number_of_trees
		FROM residents r
		JOIN tree_requests tr ON tr.resident_id = r.id
		JOIN scheduled_plantings sp ON sp.tree_request_id = tr.id
		JOIN planting_events pe ON pe.scheduled_planting_id = sp.event_id AND pe.successful = TRUE
		JOIN trees t ON t.id = tr.tree_id
		WHERE r.neighborhood = $1
		GROUP BY t.common_name
		ORDER BY t.common_name
	`, func(rows *sql.Rows) (TreesPlantedRow, error) {
		var item TreesPlantedRow
		err := rows.Scan(&item.CommonName, &item.NumberOfTrees)
		return item, err
	}, neighborhood)
}

func (s *PostgresStore) ReportTreeSpeciesStatistics(ctx context.Context) ([]SpeciesStatisticsRow, error) {
	return queryRows(ctx, s.db, "tree species statistics report", `
		WITH planted AS (
		  SELECT t.id, t.common_name, EXTRACT(YEAR FROM sp.event_timestamp)::INT AS year
		  FROM trees t
		  JOIN tree_requests tr ON tr.tree_id = t.id
		  JOIN scheduled_plantings sp ON sp.tree_request_id = tr.id
		  JOIN planting_events pe ON pe.scheduled_planting_id = sp.event_id
		  WHERE pe.successful = TRUE
		), per_year AS (
		  SELECT id, year, COUNT(*) AS planted FROM planted GROUP BY id, year
		), peak AS (
		  SELECT DISTINCT ON (id) id, year, planted
		  FROM per_year
		  ORDER BY id, planted DESC, year DESC
		)
		SELECT p.common_name,
		       COUNT(*) AS number_of_trees_planted,
		       EXTRACT(YEAR FROM CURRENT_DATE)::INT - MAX(p.year) AS years_since_planting,
		       EXTRACT(YEAR FROM CURRENT_DATE)::INT - MIN(p.year) AS years_since_first_planting,
		       pk.year,
		       pk.planted
		FROM planted p
		JOIN peak pk ON pk.id = p.id
		GROUP BY p.id, p.common_name, pk.year, pk.planted
		ORDER BY p.common_name
	`, func(rows *sql.Rows) (SpeciesStatisticsRow, error) {
		var item SpeciesStatisticsRow
		var peakYear, peakCount sql.NullInt64
		err := rows.Scan(&item.CommonName, &item.NumberOfTreesPlanted, &item.YearsSincePlanting, &item.YearsSinceFirstPlanting, &peakYear, &peakCount)
		item.YearMostPlanted = nullIntPtr(peakYear)
		item.NumPlantedInPeakYear = nullIntPtr(peakCount)
		return item, err
	})
}

func (s *PostgresStore) ReportNeighborhoods(ctx context.Context) ([]NeighborhoodReportRow, error) {
	return queryRows(ctx, s.db, "neighborhood report", `
		WITH request_status AS (
		  SELECT tr.id, r.neighborhood, get_tree_request_status(tr.id) AS status
		  FROM tree_requests tr
		  JOIN residents r ON r.id = tr.resident_id
		), planted AS (
		  SELECT r.neighborhood, COUNT(*) AS trees
		  FROM planting_events pe
		  JOIN scheduled_plantings sp ON sp.event_id = pe.scheduled_planting_id
		  JOIN tree_requests tr ON tr.id = sp.tree_request_id
		  JOIN residents r ON r.id = tr.resident_id
		  WHERE pe.successful = TRUE
		  GROUP BY r.neighborhood
		)
		SELECT n.name,
		       COALESCE(p.trees, 0),
		       COUNT(rs.id),
		       COUNT(rs.id) FILTER (WHERE rs.status = 'completed'),
		       COUNT(rs.id) FILTER (WHERE rs.status = 'waiting for planting'),
		       COUNT(rs.id) FILTER (WHERE rs.status = 'waiting for visit'),
		       COUNT(rs.id) FILTER (WHERE rs.status = 'needs permit'),
		       COUNT(rs.id) FILTER (WHERE rs.status = 'denied'),
		       COUNT(rs.id) FILTER (WHERE rs.status = 'pending approval')
		FROM neighborhoods n
		LEFT JOIN request_status rs ON rs.neighborhood = n.name
		LEFT JOIN planted p ON p.neighborhood = n.name
		GROUP BY n.name, p.trees
		ORDER BY n.name
	`, func(rows *sql.Rows) (NeighborhoodReportRow, error) {
		var item NeighborhoodReportRow
		err := rows.Scan(
			&item.NeighborhoodName,
			&item.NumOfPlantedTrees,
			&item.NumOfRequests,
			&item.NumOfCompletedRequests,
			&item.NumOfRequestsWaitingForPlanting,
			&item.NumOfRequestsWaitingForVisit,
			&item.NumOfRequestsNeedsPermit,
			&item.NumOfDeniedRequests,
			&item.NumOfRequestsPendingApproval,
		)
		return item, err
	})
}

// ReportVolunteerActivity covers successful plantings in year. Peak values
// count every recorded planting event the volunteer attended, in any year.
func (s *PostgresStore) ReportVolunteerActivity(ctx context.Context, year int) ([]VolunteerActivityRow, error) {
	return queryRows(ctx, s.db, "volunteer activity report", `
		WITH events AS (
		  SELECT pev.volunteer_id, sp.event_timestamp, pe.successful,
		         EXTRACT(YEAR FROM sp.event_timestamp)::INT AS year
		  FROM planting_events_have_volunteers pev
		  JOIN planting_events pe ON pe.scheduled_planting_id = pev.planting_event_id
		  JOIN scheduled_plantings sp ON sp.event_id = pe.scheduled_planting_id
		), attended AS (
		  SELECT volunteer_id, event_timestamp, year FROM events WHERE successful = TRUE
		), per_year AS (
		  SELECT volunteer_id, year, COUNT(*) AS planted FROM events GROUP BY volunteer_id, year
		), peak AS (
		  SELECT DISTINCT ON (volunteer_id) volunteer_id, year, planted
		  FROM per_year
		  ORDER BY volunteer_id, planted DESC, year DESC
		)
		SELECT r.first_name || ' ' || r.last_name AS volunteer_name,
		       MIN(a.event_timestamp) AS first_planting,
		       MAX(a.event_timestamp) AS most_recent_planting,
		       COUNT(*) AS trees_planted,
		       pk.year,
		       pk.planted
		FROM attended a
		JOIN residents r ON r.id = a.volunteer_id
		JOIN peak pk ON pk.volunteer_id = a.volunteer_id
		WHERE r.is_volunteer = TRUE AND a.year = $1
		GROUP BY r.id, r.first_name, r.last_name, pk.year, pk.planted
		ORDER BY trees_planted DESC, pk.planted DESC
	`, func(rows *sql.Rows) (VolunteerActivityRow, error) {
		var item VolunteerActivityRow
		var peakYear, peakCount sql.NullInt64
		err := rows.Scan(&item.VolunteerName, &item.FirstPlanting, &item.MostRecentPlanting, &item.TreesPlanted, &peakYear, &peakCount)
		item.PeakYear = nullIntPtr(peakYear)
		item.TreesPlantedInPeakYear = nullIntPtr(peakCount)
		return item, err
	}, year)
}

func (s *PostgresStore) ReportOrgMemberActivity(ctx context.Context, year int) ([]OrgMemberActivityRow, error) {
	return queryRows(ctx, s.db, "organization member activity report", `
		WITH led AS (
		  SELECT omlsp.organization_member_id AS member_id,
		         COUNT(*) AS plantings_led,
		         COUNT(pe.scheduled_planting_id) FILTER (WHERE pe.successful) AS successful_led
		  FROM organization_members_lead_scheduled_plantings omlsp
		  JOIN scheduled_plantings sp ON sp.event_id = omlsp.scheduled_planting_id
		  LEFT JOIN planting_events pe ON pe.scheduled_planting_id = sp.event_id
		  WHERE sp.cancelled = FALSE AND EXTRACT(YEAR FROM sp.event_timestamp)::INT = $1
		  GROUP BY omlsp.organization_member_id
		), visits AS (
		  SELECT organization_member_id AS member_id, COUNT(*) AS visits_attended
		  FROM scheduled_visits
		  WHERE cancelled = FALSE AND EXTRACT(YEAR FROM event_timestamp)::INT = $1
		  GROUP BY organization_member_id
		), led_peak AS (
		  SELECT DISTINCT ON (member_id) member_id, year, led
		  FROM (
		    SELECT omlsp.organization_member_id AS member_id, EXTRACT(YEAR FROM sp.event_timestamp)::INT AS year, COUNT(*) AS led
		    FROM organization_members_lead_scheduled_plantings omlsp
		    JOIN scheduled_plantings sp ON sp.event_id = omlsp.scheduled_planting_id
		    JOIN planting_events pe ON pe.scheduled_planting_id = sp.event_id AND pe.successful = TRUE
		    GROUP BY 1, 2
		  ) per_year
		  ORDER BY member_id, led DESC, year DESC
		), visit_peak AS (
		  SELECT DISTINCT ON (member_id) member_id, year, attended
		  FROM (
		    SELECT organization_member_id AS member_id, EXTRACT(YEAR FROM event_timestamp)::INT AS year, COUNT(*) AS attended
		    FROM scheduled_visits
		    WHERE cancelled = FALSE
		    GROUP BY 1, 2
		  ) per_year
		  ORDER BY member_id, attended DESC, year DESC
		)
		SELECT r.first_name || ' ' || r.last_name AS org_member_name,
		       COALESCE(l.plantings_led, 0) AS plantings_led,
		       COALESCE(l.successful_led, 0),
		       lp.year,
		       lp.led,
		       COALESCE(v.visits_attended, 0) AS visits_attended,
		       vp.year,
		       vp.attended
		FROM organization_members om
		JOIN residents r ON r.id = om.resident_id
		LEFT JOIN led l ON l.member_id = om.resident_id
		LEFT JOIN visits v ON v.member_id = om.resident_id
		LEFT JOIN led_peak lp ON lp.member_id = om.resident_id
		LEFT JOIN visit_peak vp ON vp.member_id = om.resident_id
		WHERE l.member_id IS NOT NULL OR v.member_id IS NOT NULL
		ORDER BY plantings_led DESC, visits_attended DESC, org_member_name
	`, func(rows *sql.Rows) (OrgMemberActivityRow, error) {
		var item OrgMemberActivityRow
		var ledYear, ledCount, visitYear, visitCount sql.NullInt64
		err := rows.Scan(&item.OrgMemberName, &item.PlantingsLed, &item.SuccessfulPlantingsLed, &ledYear, &ledCount,
			&item.VisitsAttended, &visitYear, &visitCount)
		item.PlantingsLedPeakYear = nullIntPtr(ledYear)
		item.PlantingsLedInPeakYear = nullIntPtr(ledCount)
		item.VisitsAttendedPeakYear = nullIntPtr(visitYear)
		item.VisitsAttendedInPeakYear = nullIntPtr(visitCount)
		return item, err
	}, year)
}

func (s *PostgresStore) ReportSpeciesByNeighborhood(ctx context.Context, commonName string) ([]SpeciesNeighborhoodRow, error) {
	return queryRows(ctx, s.db, "species by neighborhood report", `
		WITH planted AS (
		  SELECT t.common_name, r.neighborhood, EXTRACT(YEAR FROM sp.event_timestamp)::INT AS year
		  FROM trees t
		  JOIN tree_requests tr ON tr.tree_id = t.id
		  JOIN residents r ON r.id = tr.resident_id
		  JOIN scheduled_plantings sp ON sp.tree_request_id = tr.id
		  JOIN planting_events pe ON pe.scheduled_planting_id = sp.event_id
		  WHERE pe.successful = TRUE AND t.common_name = $1
		), peak AS (
		  SELECT DISTINCT ON (neighborhood) neighborhood, year, planted
		  FROM (SELECT neighborhood, year, COUNT(*) AS planted FROM planted GROUP BY neighborhood, year) per_year
		  ORDER BY neighborhood, planted DESC, year DESC
		)
		SELECT p.common_name,
		       p.neighborhood,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE p.year = EXTRACT(YEAR FROM CURRENT_DATE)::INT),
		       pk.year,
		       pk.planted
		FROM planted p
		JOIN peak pk ON pk.neighborhood = p.neighborhood
		GROUP BY p.common_name, p.neighborhood, pk.year, pk.planted
		ORDER BY p.neighborhood
	`, func(rows *sql.Rows) (SpeciesNeighborhoodRow, error) {
		var item SpeciesNeighborhoodRow
		var peakYear, peakCount sql.NullInt64
		err := rows.Scan(&item.CommonName, &item.NeighborhoodName, &item.TotalTreesPlanted, &item.TreesPlantedThisYear, &peakYear, &peakCount)
		item.PeakYear = nullIntPtr(peakYear)
		item.TreesPlantedInPeakYear = nullIntPtr(peakCount)
		return item, err
	}, commonName)
}

// ReportTreesBySize returns the five best-stocked species whose mature size
// fits inside bounds.
func (s *PostgresStore) ReportTreesBySize(ctx context.Context, bounds SizeBounds) ([]TreeSizeRow, error) {
	return queryRows(ctx, s.db, "trees by size report", `
		WITH valid_trees AS (
		  SELECT id, common_name, inventory
		  FROM trees
		  WHERE inventory > 0
		    AND LOWER(height_range) >= $1 AND UPPER(height_range) <= $2
		    AND LOWER(width_range) >= $3 AND UPPER(width_range) <= $4
		)
		SELECT vt.common_name, vt.inventory, COUNT(pe.scheduled_planting_id) AS num_planted
		FROM valid_trees vt
		LEFT JOIN tree_requests tr ON tr.tree_id = vt.id
		LEFT JOIN scheduled_plantings sp ON sp.tree_request_id = tr.id
		LEFT JOIN planting_events pe ON pe.scheduled_planting_id = sp.event_id AND pe.successful = TRUE
		GROUP BY vt.id, vt.common_name, vt.inventory
		ORDER BY vt.inventory DESC, vt.common_name
		LIMIT 5
	`, func(rows *sql.Rows) (TreeSizeRow, error) {
		var item TreeSizeRow
		err := rows.Scan(&item.CommonName, &item.Inventory, &item.NumPlanted)
		return item, err
	}, bounds.MinHeight, bounds.MaxHeight, bounds.MinWidth, bounds.MaxWidth)
}

func (s *PostgresStore) ReportVolunteerAttendance(ctx context.Context) ([]VolunteerAttendanceRow, error) {
	return queryRows(ctx, s.db, "volunteer attendance report", `
		WITH scheduled AS (
		  SELECT sphv.volunteer_id, COUNT(*) AS plantings
		  FROM scheduled_plantings_have_volunteers sphv
		  JOIN scheduled_plantings sp ON sp.event_id = sphv.planting_event_id AND sp.cancelled = FALSE
		  GROUP BY sphv.volunteer_id
		), attended AS (
		  SELECT pehv.volunteer_id,
		         COUNT(*) AS plantings,
		         COUNT(*) FILTER (WHERE pe.successful) AS successful
		  FROM planting_events_have_volunteers pehv
		  JOIN planting_events pe ON pe.scheduled_planting_id = pehv.planting_event_id
		  GROUP BY pehv.volunteer_id
		)
		SELECT r.first_name || ' ' || r.last_name AS volunteer_name,
		       COALESCE(a.plantings, 0) AS attended,
		       GREATEST(COALESCE(sc.plantings, 0) - COALESCE(a.plantings, 0), 0) AS missed,
		       CASE WHEN COALESCE(a.plantings, 0) = 0 THEN NULL
		            ELSE a.successful::FLOAT8 / a.plantings::FLOAT8 END AS success_rate
		FROM residents r
		LEFT JOIN scheduled sc ON sc.volunteer_id = r.id
		LEFT JOIN attended a ON a.volunteer_id = r.id
		WHERE r.is_volunteer = TRUE AND (sc.volunteer_id IS NOT NULL OR a.volunteer_id IS NOT NULL)
		ORDER BY success_rate ASC, missed DESC, volunteer_name
	`, func(rows *sql.Rows) (VolunteerAttendanceRow, error) {
		var item VolunteerAttendanceRow
		var rate sql.NullFloat64
		err := rows.Scan(&item.VolunteerName, &item.NumPlantingsAttended, &item.NumPlantingsMissed, &rate)
		if rate.Valid {
			v := rate.Float64
			item.SuccessRateOfAttendedPlantings = &v
		}
		return item, err
	})
}
