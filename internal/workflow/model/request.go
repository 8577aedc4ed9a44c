package model

import "github.com/google/uuid"

// RequestStatus is the lifecycle status of a purchase-order request as seen by the approval engine.
type RequestStatus string

const (
	RequestStatusDraft     RequestStatus = "Draft"
	RequestStatusSubmitted RequestStatus = "Submitted"
	RequestStatusApproved  RequestStatus = "Approved"
	RequestStatusRefused   RequestStatus = "Refused"
)

// ApprovalRequest is the read view of a purchase-order request the engine evaluates.
type ApprovalRequest struct {
	ID            uuid.UUID     `json:"id"`
	Title         string        `json:"title"`
	VendorID      *string       `json:"vendorId,omitempty"`
	ProjectID     *string       `json:"projectId,omitempty"`
	TeamID        *string       `json:"teamId,omitempty"`
	ConsortiumID  *string       `json:"consortiumId,omitempty"`
	TotalAmount   int64         `json:"totalAmount"` // cents
	LineItemCount int           `json:"lineItemCount"`
	DocumentTypes []string      `json:"documentTypes"` // document_type of every attached file
	Status        RequestStatus `json:"status"`
}

// EntityRef returns the request's reference for the given scope, if any.
func (r *ApprovalRequest) EntityRef(t WorkflowType) (string, bool) {
	var ref *string
	switch t {
	case WorkflowTypeProject:
		ref = r.ProjectID
	case WorkflowTypeTeam:
		ref = r.TeamID
	case WorkflowTypeConsortium:
		ref = r.ConsortiumID
	}
	if ref == nil || *ref == "" {
		return "", false
	}
	return *ref, true
}

// Violations lists every reason the request cannot enter approval.
func (r *ApprovalRequest) Violations() []string {
	var violations []string
	if r.Title == "" {
		violations = append(violations, "title is required")
	}
	if r.VendorID == nil || *r.VendorID == "" {
		violations = append(violations, "vendor is required")
	}
	if r.LineItemCount == 0 {
		violations = append(violations, "at least one line item is required")
	}
	if r.TotalAmount <= 0 {
		violations = append(violations, "total amount must be greater than zero")
	}
	return violations
}
