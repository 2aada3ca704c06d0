package app

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"treeplant/api/internal/email"
	"treeplant/api/internal/lifecycle"
	"treeplant/api/internal/store"
)

type TreeRequestInput struct {
	ResidentID      int64  `json:"resident_id"`
	TreeID          int64  `json:"tree_id"`
	SiteDescription string `json:"site_description"`
}

type StatusResult struct {
	ID     int64            `json:"id"`
	Status lifecycle.Status `json:"status"`
}

func (s *Service) ListTreeRequests(ctx context.Context, sess Session, residentID int64) ([]store.TreeRequestSummary, error) {
	if err := requirePositive("resident_id", residentID); err != nil {
		return nil, err
	}
	if err := authorizeResident(sess, residentID); err != nil {
		return nil, err
	}
	return s.store.ListTreeRequests(ctx, residentID)
}

// TreeRequestDetails returns one of the resident's requests with its
// derived status. A request owned by someone else reads as not found.
func (s *Service) TreeRequestDetails(ctx context.Context, sess Session, residentID, treeRequestID int64) (store.TreeRequestDetails, error) {
	if err := authorizeResident(sess, residentID); err != nil {
		return store.TreeRequestDetails{}, err
	}
	details, err := s.store.GetTreeRequestDetails(ctx, residentID, treeRequestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.TreeRequestDetails{}, notFound("Tree request not found")
		}
		return store.TreeRequestDetails{}, err
	}
	status, err := s.deriveStatus(ctx, treeRequestID)
	if err != nil {
		return store.TreeRequestDetails{}, err
	}
	details.Status = string(status)
	return details, nil
}

func (s *Service) TreeRequestStatus(ctx context.Context, sess Session, treeRequestID int64) (StatusResult, error) {
	owner, err := s.store.TreeRequestOwner(ctx, treeRequestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return StatusResult{}, notFound("Tree request not found")
		}
		return StatusResult{}, err
	}
	if err := authorizeResident(sess, owner); err != nil {
		return StatusResult{}, err
	}
	status, err := s.deriveStatus(ctx, treeRequestID)
	if err != nil {
		return StatusResult{}, err
	}
	return StatusResult{ID: treeRequestID, Status: status}, nil
}

func (s *Service) deriveStatus(ctx context.Context, treeRequestID int64) (lifecycle.Status, error) {
	facts, err := s.store.StatusFacts(ctx, treeRequestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", notFound("Tree request not found")
		}
		return "", err
	}
	return lifecycle.Derive(facts), nil
}

// CreateTreeRequest stores the request together with its pending permit.
func (s *Service) CreateTreeRequest(ctx context.Context, sess Session, input TreeRequestInput) (int64, error) {
	if err := requirePositive("resident_id", input.ResidentID); err != nil {
		return 0, err
	}
	if err := requirePositive("tree_id", input.TreeID); err != nil {
		return 0, err
	}
	if err := authorizeResident(sess, input.ResidentID); err != nil {
		return 0, err
	}
	site := strings.TrimSpace(input.SiteDescription)
	if site == "" {
		return 0, validationError("site_description", "is required")
	}
	if utf8.RuneCountInString(site) > 500 {
		return 0, validationError("site_description", "must be at most 500 characters")
	}
	return s.store.CreateTreeRequest(ctx, store.NewTreeRequest{
		ResidentID:      input.ResidentID,
		TreeID:          input.TreeID,
		SiteDescription: site,
	})
}

func (s *Service) ListAllTreeRequests(ctx context.Context) ([]store.AdminTreeRequest, error) {
	return s.store.ListAllTreeRequests(ctx)
}

func (s *Service) AdminTreeRequestDetails(ctx context.Context, treeRequestID int64) (store.AdminTreeRequestDetails, error) {
	details, err := s.store.GetAdminTreeRequestDetails(ctx, treeRequestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.AdminTreeRequestDetails{}, notFound("Tree request not found")
		}
		return store.AdminTreeRequestDetails{}, err
	}
	status, err := s.deriveStatus(ctx, treeRequestID)
	if err != nil {
		return store.AdminTreeRequestDetails{}, err
	}
	details.Status = string(status)
	return details, nil
}

func (s *Service) UpdatePermitStatus(ctx context.Context, treeRequestID int64, status string) error {
	if err := requirePositive("tree_request_id", treeRequestID); err != nil {
		return err
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if !lifecycle.ValidPermitStatus(status) {
		return validationError("status", "must be pending, approved or denied")
	}
	if err := s.store.UpdatePermitStatus(ctx, treeRequestID, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("Permit not found")
		}
		return err
	}
	return nil
}

// DecideTreeRequest records staff approval or denial and tells the resident.
// A failed notification never fails the decision.
func (s *Service) DecideTreeRequest(ctx context.Context, treeRequestID int64, accepted bool) error {
	if err := requirePositive("tree_request_id", treeRequestID); err != nil {
		return err
	}
	if err := s.store.SetTreeRequestApproval(ctx, treeRequestID, accepted); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("Tree request not found")
		}
		return err
	}
	if !s.SMTPConfigured() {
		return nil
	}
	contact, err := s.store.RequestContact(ctx, treeRequestID)
	if err != nil {
		s.logger.Warn("load request contact", zap.Int64("tree_request_id", treeRequestID), zap.Error(err))
		return nil
	}
	err = s.deps.Mailer.SendRequestDecision(contact.Email, contact.FirstName, contact.CommonName, accepted)
	s.observeNotification("request_decision", err)
	if err != nil {
		s.logger.Warn("send request decision", zap.Int64("tree_request_id", treeRequestID), zap.Error(err))
	}
	return nil
}

func (s *Service) observeNotification(kind string, err error) {
	if errors.Is(err, email.ErrNotConfigured) {
		return
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveNotification(kind, err)
	}
}

func (s *Service) ApplyToVolunteer(ctx context.Context, sess Session, residentID int64, notes string) error {
	if err := requirePositive("user_id", residentID); err != nil {
		return err
	}
	if err := authorizeResident(sess, residentID); err != nil {
		return err
	}
	if utf8.RuneCountInString(notes) > 1000 {
		return validationError("notes", "must be at most 1000 characters")
	}
	return s.store.CreateVolunteerApplication(ctx, residentID, strings.TrimSpace(notes))
}

func (s *Service) PendingVolunteerApplications(ctx context.Context) ([]store.VolunteerApplication, error) {
	return s.store.ListPendingVolunteerApplications(ctx)
}

// ApproveVolunteer approves the pending application and promotes the
// resident in one transaction, then sends a welcome mail.
func (s *Service) ApproveVolunteer(ctx context.Context, residentID int64) error {
	if err := requirePositive("resident_id", residentID); err != nil {
		return err
	}
	resident, err := s.store.ApproveVolunteer(ctx, residentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("No pending volunteer application")
		}
		return err
	}
	if s.SMTPConfigured() {
		err := s.deps.Mailer.SendVolunteerApproved(resident.Email, resident.FirstName)
		s.observeNotification("volunteer_approved", err)
		if err != nil {
			s.logger.Warn("send volunteer approval", zap.Int64("resident_id", residentID), zap.Error(err))
		}
	}
	return nil
}
