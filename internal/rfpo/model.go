package rfpo

import (
	"github.com/google/uuid"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/model"
)

// RFPO is a request for purchase order.
type RFPO struct {
	model.BaseModel
	RFPONumber   string              `gorm:"type:varchar(50);column:rfpo_number;not null;uniqueIndex" json:"rfpoNumber"`
	Title        string              `gorm:"type:varchar(255);column:title;not null" json:"title"`
	Description  string              `gorm:"type:text;column:description" json:"description,omitempty"`
	VendorID     *string             `gorm:"type:varchar(100);column:vendor_id" json:"vendorId,omitempty"`
	ProjectID    *string             `gorm:"type:varchar(100);column:project_id;index" json:"projectId,omitempty"`
	TeamID       *string             `gorm:"type:varchar(100);column:team_id;index" json:"teamId,omitempty"`
	ConsortiumID *string             `gorm:"type:varchar(100);column:consortium_id;index" json:"consortiumId,omitempty"`
	Status       model.RequestStatus `gorm:"type:varchar(20);column:status;not null" json:"status"`
	CreatedBy    string              `gorm:"type:varchar(100);column:created_by" json:"createdBy"`
	UpdatedBy    string              `gorm:"type:varchar(100);column:updated_by" json:"updatedBy,omitempty"`
	LineItems    []LineItem          `gorm:"foreignKey:RFPOID" json:"lineItems,omitempty"`
	Files        []UploadedFile      `gorm:"foreignKey:RFPOID" json:"files,omitempty"`
}

func (r *RFPO) TableName() string {
	return "rfpos"
}

// TotalAmount sums the line totals in cents.
func (r *RFPO) TotalAmount() int64 {
	var total int64
	for _, item := range r.LineItems {
		total += item.TotalPrice
	}
	return total
}

// IsEditable reports whether line items and attachments may still change.
func (r *RFPO) IsEditable() bool {
	return r.Status == model.RequestStatusDraft || r.Status == model.RequestStatusRefused
}

// ApprovalView projects the request onto what the approval engine evaluates.
func (r *RFPO) ApprovalView() *model.ApprovalRequest {
	docTypes := make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		if f.DocumentType != "" {
			docTypes = append(docTypes, f.DocumentType)
		}
	}
	return &model.ApprovalRequest{
		ID:            r.ID,
		Title:         r.Title,
		VendorID:      r.VendorID,
		ProjectID:     r.ProjectID,
		TeamID:        r.TeamID,
		ConsortiumID:  r.ConsortiumID,
		TotalAmount:   r.TotalAmount(),
		LineItemCount: len(r.LineItems),
		DocumentTypes: docTypes,
		Status:        r.Status,
	}
}

type LineItem struct {
	model.BaseModel
	RFPOID      uuid.UUID `gorm:"type:uuid;column:rfpo_id;not null;index" json:"rfpoId"`
	LineNumber  int       `gorm:"column:line_number;not null" json:"lineNumber"`
	Description string    `gorm:"type:text;column:description;not null" json:"description"`
	Quantity    int       `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice   int64     `gorm:"column:unit_price;not null" json:"unitPrice"`   // cents
	TotalPrice  int64     `gorm:"column:total_price;not null" json:"totalPrice"` // cents
}

func (li *LineItem) TableName() string {
	return "rfpo_line_items"
}

// UploadedFile is an attachment of an RFPO, tagged with a document type.
type UploadedFile struct {
	model.BaseModel
	RFPOID       uuid.UUID `gorm:"type:uuid;column:rfpo_id;not null;index" json:"rfpoId"`
	FileName     string    `gorm:"type:varchar(255);column:file_name;not null" json:"fileName"`
	StorageKey   string    `gorm:"type:varchar(255);column:storage_key;not null;uniqueIndex" json:"storageKey"`
	URL          string    `gorm:"type:text;column:url" json:"url"`
	Size         int64     `gorm:"column:size" json:"size"`
	MimeType     string    `gorm:"type:varchar(100);column:mime_type" json:"mimeType"`
	DocumentType string    `gorm:"type:varchar(100);column:document_type" json:"documentType"` // Catalog key or display value
	UploadedBy   string    `gorm:"type:varchar(100);column:uploaded_by" json:"uploadedBy"`
}

func (uf *UploadedFile) TableName() string {
	return "uploaded_files"
}

// CreateRFPODTO is the payload for creating a draft request.
type CreateRFPODTO struct {
	Title        string  `json:"title" binding:"required"`
	Description  string  `json:"description"`
	VendorID     *string `json:"vendorId"`
	ProjectID    *string `json:"projectId"`
	TeamID       *string `json:"teamId"`
	ConsortiumID *string `json:"consortiumId"`
}

type AddLineItemDTO struct {
	Description string `json:"description" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
	UnitPrice   int64  `json:"unitPrice" binding:"gte=0"` // cents
}
