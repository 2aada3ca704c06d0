package app

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"treeplant/api/internal/export"
	"treeplant/api/internal/store"
)

// ReportParams carries the query parameters any report may take.
type ReportParams struct {
	Neighborhood string
	Year         int
	CommonName   string
	Bounds       store.SizeBounds
}

type reportDef struct {
	title string
	parse func(url.Values) (ReportParams, error)
	run   func(context.Context, reportStore, ReportParams) (any, error)
}

func noParams(url.Values) (ReportParams, error) { return ReportParams{}, nil }

var reports = map[string]reportDef{
	"tree-requests-status": {
		title: "Open Tree Requests",
		parse: noParams,
		run: func(ctx context.Context, s reportStore, _ ReportParams) (any, error) {
			return s.ReportTreeRequestsStatus(ctx)
		},
	},
	"trees-planted": {
		title: "Trees Planted by Neighborhood",
		parse: func(q url.Values) (ReportParams, error) {
			name, err := requiredParam(q, "neighborhood")
			return ReportParams{Neighborhood: name}, err
		},
		run: func(ctx context.Context, s reportStore, p ReportParams) (any, error) {
			return s.ReportTreesPlanted(ctx, p.Neighborhood)
		},
	},
	"tree-species-statistics": {
		title: "Tree Species Statistics",
		parse: noParams,
		run: func(ctx context.Context, s reportStore, _ ReportParams) (any, error) {
			return s.ReportTreeSpeciesStatistics(ctx)
		},
	},
	"neighborhood-report": {
		title: "Neighborhood Report",
		parse: noParams,
		run: func(ctx context.Context, s reportStore, _ ReportParams) (any, error) {
			return s.ReportNeighborhoods(ctx)
		},
	},
	"custom-report-1": {
		title: "Volunteer Activity",
		parse: yearParam,
		run: func(ctx context.Context, s reportStore, p ReportParams) (any, error) {
			return s.ReportVolunteerActivity(ctx, p.Year)
		},
	},
	"custom-report-2": {
		title: "Organization Member Activity",
		parse: yearParam,
		run: func(ctx context.Context, s reportStore, p ReportParams) (any, error) {
			return s.ReportOrgMemberActivity(ctx, p.Year)
		},
	},
	"custom-report-3": {
		title: "Species by Neighborhood",
		parse: func(q url.Values) (ReportParams, error) {
			name, err := requiredParam(q, "common_name")
			return ReportParams{CommonName: name}, err
		},
		run: func(ctx context.Context, s reportStore, p ReportParams) (any, error) {
			return s.ReportSpeciesByNeighborhood(ctx, p.CommonName)
		},
	},
	"custom-report-4": {
		title: "Top Species by Size",
		parse: sizeParams,
		run: func(ctx context.Context, s reportStore, p ReportParams) (any, error) {
			return s.ReportTreesBySize(ctx, p.Bounds)
		},
	},
	"custom-report-5": {
		title: "Volunteer Attendance",
		parse: noParams,
		run: func(ctx context.Context, s reportStore, _ ReportParams) (any, error) {
			return s.ReportVolunteerAttendance(ctx)
		},
	},
}

// ReportNames lists the registered reports.
func ReportNames() []string {
	names := make([]string, 0, len(reports))
	for name := range reports {
		names = append(names, name)
	}
	return names
}

// RunReport recomputes the named report from the query parameters.
func (s *Service) RunReport(ctx context.Context, name string, query url.Values) (any, error) {
	def, ok := reports[name]
	if !ok {
		return nil, notFound("Unknown report " + name)
	}
	params, err := def.parse(query)
	if err != nil {
		return nil, err
	}
	return def.run(ctx, s.store, params)
}

// ExportReport renders the named report as a downloadable file.
func (s *Service) ExportReport(ctx context.Context, name string, query url.Values) (*export.Result, error) {
	format, err := export.ParseFormat(query.Get("format"))
	if err != nil {
		return nil, err
	}
	if s.deps.Exporter == nil {
		return nil, fmt.Errorf("report export: %w", export.ErrPDFDependencyMissing)
	}
	rows, err := s.RunReport(ctx, name, query)
	if err != nil {
		return nil, err
	}
	table, err := export.TableFromRows(reports[name].title, rows)
	if err != nil {
		return nil, err
	}
	table.Subtitle = reportSubtitle(query)
	table.GeneratedAt = s.now()
	return s.deps.Exporter.Export(ctx, table, format)
}

func reportSubtitle(query url.Values) string {
	var parts []string
	for _, key := range []string{"neighborhood", "year", "common_name", "min_height", "max_height", "min_width", "max_width"} {
		if value := strings.TrimSpace(query.Get(key)); value != "" {
			parts = append(parts, key+"="+value)
		}
	}
	return strings.Join(parts, ", ")
}

func requiredParam(q url.Values, name string) (string, error) {
	value := strings.TrimSpace(q.Get(name))
	if value == "" {
		return "", validationError(name, "is required")
	}
	return value, nil
}

func yearParam(q url.Values) (ReportParams, error) {
	raw, err := requiredParam(q, "year")
	if err != nil {
		return ReportParams{}, err
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1900 || year > 9999 {
		return ReportParams{}, validationError("year", "must be a four digit year")
	}
	return ReportParams{Year: year}, nil
}

func sizeParams(q url.Values) (ReportParams, error) {
	values := make(map[string]float64, 4)
	for _, name := range []string{"min_height", "max_height", "min_width", "max_width"} {
		raw, err := requiredParam(q, name)
		if err != nil {
			return ReportParams{}, err
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
			return ReportParams{}, validationError(name, "must be a non-negative number")
		}
		values[name] = value
	}
	if values["min_height"] > values["max_height"] {
		return ReportParams{}, validationError("min_height", "must not exceed max_height")
	}
	if values["min_width"] > values["max_width"] {
		return ReportParams{}, validationError("min_width", "must not exceed max_width")
	}
	return ReportParams{Bounds: store.SizeBounds{
		MinHeight: values["min_height"],
		MaxHeight: values["max_height"],
		MinWidth:  values["min_width"],
		MaxWidth:  values["max_width"],
	}}, nil
}
