package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"treeplant/api/internal/photostore"
	"treeplant/api/internal/store"
)

type ScheduleVisitInput struct {
	TreeRequestID        int64  `json:"tree_request_id"`
	Timestamp            string `json:"timestamp"`
	Notes                string `json:"notes"`
	OrganizationMemberID int64  `json:"organization_member_id"`
}

type VisitOutcomeInput struct {
	ScheduledVisitID        int64  `json:"scheduled_visit_id"`
	Observations            string `json:"observations"`
	PhotoLibraryLink        string `json:"photo_library_link"`
	AdditionalVisitRequired bool   `json:"additional_visit_required"`
}

type SchedulePlantingInput struct {
	TreeRequestID int64  `json:"tree_request_id"`
	Timestamp     string `json:"timestamp"`
	Notes         string `json:"notes"`
}

type PlantingOutcomeInput struct {
	ScheduledPlantingID     int64  `json:"scheduled_planting_id"`
	Successful              bool   `json:"successful"`
	Observations            string `json:"observations"`
	BeforePhotosLibraryLink string `json:"before_photos_library_link"`
	AfterPhotosLibraryLink  string `json:"after_photos_library_link"`
}

func (s *Service) ScheduleVisit(ctx context.Context, input ScheduleVisitInput) (int64, error) {
	if err := requirePositive("tree_request_id", input.TreeRequestID); err != nil {
		return 0, err
	}
	if err := requirePositive("organization_member_id", input.OrganizationMemberID); err != nil {
		return 0, err
	}
	at, err := parseTimestamp("timestamp", input.Timestamp)
	if err != nil {
		return 0, err
	}
	return s.store.ScheduleVisit(ctx, store.NewVisit{
		TreeRequestID:        input.TreeRequestID,
		Timestamp:            at,
		Notes:                strings.TrimSpace(input.Notes),
		OrganizationMemberID: input.OrganizationMemberID,
	})
}

func (s *Service) CancelVisit(ctx context.Context, eventID int64) error {
	if err := requirePositive("event_id", eventID); err != nil {
		return err
	}
	if err := s.store.CancelVisit(ctx, eventID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("Scheduled visit not found")
		}
		return err
	}
	return nil
}

// RecordVisitOutcome stores what staff saw on site. A visit has at most one
// outcome; a second one is a unique violation.
func (s *Service) RecordVisitOutcome(ctx context.Context, input VisitOutcomeInput) error {
	if err := requirePositive("scheduled_visit_id", input.ScheduledVisitID); err != nil {
		return err
	}
	return s.store.RecordVisitOutcome(ctx, store.VisitOutcome{
		ScheduledVisitID:        input.ScheduledVisitID,
		Observations:            strings.TrimSpace(input.Observations),
		PhotoLibraryLink:        strings.TrimSpace(input.PhotoLibraryLink),
		AdditionalVisitRequired: input.AdditionalVisitRequired,
	})
}

func (s *Service) VisitTreeRequest(ctx context.Context, visitID int64) (int64, error) {
	treeRequestID, err := s.store.VisitTreeRequest(ctx, visitID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, notFound("Scheduled visit not found")
		}
		return 0, err
	}
	return treeRequestID, nil
}

func (s *Service) SchedulePlanting(ctx context.Context, input SchedulePlantingInput) (int64, error) {
	if err := requirePositive("tree_request_id", input.TreeRequestID); err != nil {
		return 0, err
	}
	at, err := parseTimestamp("timestamp", input.Timestamp)
	if err != nil {
		return 0, err
	}
	return s.store.SchedulePlanting(ctx, store.NewPlanting{
		TreeRequestID: input.TreeRequestID,
		Timestamp:     at,
		Notes:         strings.TrimSpace(input.Notes),
	})
}

func (s *Service) CancelPlanting(ctx context.Context, eventID int64) error {
	if err := s.store.CancelPlanting(ctx, eventID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("Scheduled planting not found or already cancelled")
		}
		return err
	}
	return nil
}

func (s *Service) AddOrgMemberToPlanting(ctx context.Context, organizationMemberID, scheduledPlantingID int64) error {
	if err := requirePositive("organization_member_id", organizationMemberID); err != nil {
		return err
	}
	if err := requirePositive("scheduled_planting_id", scheduledPlantingID); err != nil {
		return err
	}
	return s.store.AddOrgMemberToPlanting(ctx, organizationMemberID, scheduledPlantingID)
}

func (s *Service) AddVolunteerToPlanting(ctx context.Context, volunteerID, scheduledPlantingID int64) error {
	if err := requirePositive("volunteer_id", volunteerID); err != nil {
		return err
	}
	if err := requirePositive("planting_event_id", scheduledPlantingID); err != nil {
		return err
	}
	return s.store.AddVolunteerToPlanting(ctx, volunteerID, scheduledPlantingID)
}

// RecordPlantingOutcome stores the outcome and, when the planting succeeded,
// takes one tree out of inventory in the same transaction.
func (s *Service) RecordPlantingOutcome(ctx context.Context, input PlantingOutcomeInput) (store.PlantingOutcomeResult, error) {
	if err := requirePositive("scheduled_planting_id", input.ScheduledPlantingID); err != nil {
		return store.PlantingOutcomeResult{}, err
	}
	result, err := s.store.RecordPlantingOutcome(ctx, store.PlantingOutcome{
		ScheduledPlantingID:     input.ScheduledPlantingID,
		Observations:            strings.TrimSpace(input.Observations),
		BeforePhotosLibraryLink: strings.TrimSpace(input.BeforePhotosLibraryLink),
		AfterPhotosLibraryLink:  strings.TrimSpace(input.AfterPhotosLibraryLink),
		Successful:              input.Successful,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.PlantingOutcomeResult{}, notFound("Scheduled planting not found")
		}
		return store.PlantingOutcomeResult{}, err
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObservePlantingOutcome(input.Successful, result.InventoryDecreased)
	}
	if input.Successful && !result.InventoryDecreased {
		s.logger.Warn("planting recorded with no inventory left",
			zap.Int64("scheduled_planting_id", input.ScheduledPlantingID),
			zap.Int64("tree_id", result.TreeID))
	}
	if result.InventoryDecreased {
		if tree, err := s.store.GetTree(ctx, result.TreeID); err == nil {
			s.reindexTree(tree)
		}
	}
	return result, nil
}

func (s *Service) AddVolunteerToPlantingEvent(ctx context.Context, volunteerID, plantingEventID int64) error {
	if err := requirePositive("volunteer_id", volunteerID); err != nil {
		return err
	}
	if err := requirePositive("planting_event_id", plantingEventID); err != nil {
		return err
	}
	return s.store.AddVolunteerToPlantingEvent(ctx, volunteerID, plantingEventID)
}

func (s *Service) PlantingDetails(ctx context.Context, eventID int64) (store.PlantingDetails, error) {
	details, err := s.store.GetPlantingDetails(ctx, eventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.PlantingDetails{}, notFound("Scheduled planting not found")
		}
		return store.PlantingDetails{}, err
	}
	return details, nil
}

func (s *Service) AvailableVolunteers(ctx context.Context) ([]store.Person, error) {
	return s.store.ListAvailableVolunteers(ctx)
}

func (s *Service) AvailableOrgMembers(ctx context.Context) ([]store.Person, error) {
	return s.store.ListAvailableOrgMembers(ctx)
}

const maxPhotoBytes = 10 << 20

var (
	errPhotosUnavailable = domainError(http.StatusServiceUnavailable, "PHOTOS_UNAVAILABLE", "Photo storage is not configured", nil)
	errPhotoTooLarge     = validationError("photo", "must be at most 10 MiB")
)

// SavePhoto stores an uploaded image under prefix. Uploads over
// maxPhotoBytes are rejected before anything is written.
func (s *Service) SavePhoto(ctx context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	if s.deps.Photos == nil {
		return "", errPhotosUnavailable
	}
	if !photostore.Allowed(mimeType) {
		return "", validationError("photo", "must be a JPEG, PNG, GIF or WebP image")
	}
	switch prefix {
	case "visit", "planting":
	default:
		prefix = "photo"
	}
	data, err := io.ReadAll(io.LimitReader(r, maxPhotoBytes+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", errPhotoTooLarge
		}
		return "", fmt.Errorf("read photo: %w", err)
	}
	if len(data) > maxPhotoBytes {
		return "", errPhotoTooLarge
	}
	return s.deps.Photos.Save(ctx, prefix, mimeType, bytes.NewReader(data))
}

func (s *Service) OpenPhoto(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if s.deps.Photos == nil {
		return nil, "", errPhotosUnavailable
	}
	if !photostore.ValidKey(key) {
		return nil, "", notFound("Photo not found")
	}
	return s.deps.Photos.Get(ctx, key)
}

func (s *Service) DeletePhoto(ctx context.Context, key string) error {
	if s.deps.Photos == nil {
		return errPhotosUnavailable
	}
	if !photostore.ValidKey(key) {
		return notFound("Photo not found")
	}
	return s.deps.Photos.Delete(ctx, key)
}
