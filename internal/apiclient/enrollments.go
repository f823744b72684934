package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"enrollment-portal/internal/models"
)

// ListEnrollments retrieves enrollments visible to the caller
func (c *Client) ListEnrollments(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	q := url.Values{}
	if filter.ChildID != "" {
		q.Set("child_id", filter.ChildID)
	}
	if filter.ClassID != "" {
		q.Set("class_id", filter.ClassID)
	}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	path := "/enrollments"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []models.Enrollment
	if err := c.do(ctx, http.MethodGet, path, "enrollments", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetEnrollment retrieves one enrollment
func (c *Client) GetEnrollment(ctx context.Context, id string) (models.Enrollment, error) {
	var out models.Enrollment
	err := c.do(ctx, http.MethodGet, "/enrollments/"+url.PathEscape(id), "enrollment", nil, &out)
	return out, err
}

// CreateEnrollment posts a new enrollment
func (c *Client) CreateEnrollment(ctx context.Context, req models.CreateEnrollmentRequest) (models.Enrollment, error) {
	var out models.Enrollment
	err := c.do(ctx, http.MethodPost, "/enrollments", "enrollment_create", req, &out)
	return out, err
}

// CancelEnrollment cancels an enrollment; the server computes any refund
func (c *Client) CancelEnrollment(ctx context.Context, req models.CancelEnrollmentRequest) (models.CancelResult, error) {
	var out models.CancelResult
	err := c.do(ctx, http.MethodPost, enrollmentAction(req.EnrollmentID, "cancel"), "enrollment_cancel", req, &out)
	return out, err
}

// PauseEnrollment pauses an active enrollment
func (c *Client) PauseEnrollment(ctx context.Context, req models.PauseEnrollmentRequest) (models.Enrollment, error) {
	var out models.Enrollment
	err := c.do(ctx, http.MethodPost, enrollmentAction(req.EnrollmentID, "pause"), "enrollment_pause", req, &out)
	return out, err
}

// ResumeEnrollment resumes a paused enrollment
func (c *Client) ResumeEnrollment(ctx context.Context, req models.ResumeEnrollmentRequest) (models.Enrollment, error) {
	var out models.Enrollment
	err := c.do(ctx, http.MethodPost, enrollmentAction(req.EnrollmentID, "resume"), "enrollment_resume", struct{}{}, &out)
	return out, err
}

// TransferEnrollment moves an enrollment to another class
func (c *Client) TransferEnrollment(ctx context.Context, req models.TransferEnrollmentRequest) (models.Enrollment, error) {
	var out models.Enrollment
	err := c.do(ctx, http.MethodPost, enrollmentAction(req.EnrollmentID, "transfer"), "enrollment_transfer", req, &out)
	return out, err
}

func enrollmentAction(id, action string) string {
	return "/enrollments/" + url.PathEscape(id) + "/" + action
}
