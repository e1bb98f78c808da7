package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/health-tracker/internal/model"
	"github.com/iliyamo/health-tracker/internal/service"
	"github.com/iliyamo/health-tracker/internal/validation"
)

// HealthRecords is the subset of the service the form endpoints use.
type HealthRecords interface {
	Create(ctx context.Context, ownerID string, fields map[string]any) (*model.HealthRecord, error)
	FindAllForOwner(ctx context.Context, ownerID string) ([]model.HealthRecord, error)
	FindOneForOwner(ctx context.Context, ownerID, recordID string) (*model.HealthRecord, error)
	UpdateForOwner(ctx context.Context, ownerID, recordID string, patch map[string]any) (*model.HealthRecord, error)
	RemoveForOwner(ctx context.Context, ownerID, recordID string) (*model.HealthRecord, error)
}

// FormHandler serves the /form endpoints. Every operation acts on behalf of
// the authenticated caller; identity never comes from the path or body.
type FormHandler struct {
	Records HealthRecords
}

func NewFormHandler(records HealthRecords) *FormHandler { return &FormHandler{Records: records} }

var _ HealthRecords = (*service.HealthRecordService)(nil)

// Create handles POST /form.
func (h *FormHandler) Create(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return writeError(c, err)
	}
	fields, err := validBody(c, validation.HealthRecordCreate)
	if err != nil {
		return writeError(c, err)
	}
	rec, err := h.Records.Create(c.Request().Context(), uid, fields)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, rec)
}

// List handles GET /form: the caller's records, newest first.
func (h *FormHandler) List(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return writeError(c, err)
	}
	recs, err := h.Records.FindAllForOwner(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, recs)
}

// Get handles GET /form/:recordId.
func (h *FormHandler) Get(c echo.Context) error {
	uid, recordID, err := ownedTarget(c)
	if err != nil {
		return writeError(c, err)
	}
	rec, err := h.Records.FindOneForOwner(c.Request().Context(), uid, recordID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// Update handles PUT and PATCH /form/:recordId. Both merge the given fields
// into the stored record.
func (h *FormHandler) Update(c echo.Context) error {
	uid, recordID, err := ownedTarget(c)
	if err != nil {
		return writeError(c, err)
	}
	patch, err := validBody(c, validation.HealthRecordUpdate)
	if err != nil {
		return writeError(c, err)
	}
	rec, err := h.Records.UpdateForOwner(c.Request().Context(), uid, recordID, patch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// Delete handles DELETE /form/:recordId and returns the deleted record.
func (h *FormHandler) Delete(c echo.Context) error {
	uid, recordID, err := ownedTarget(c)
	if err != nil {
		return writeError(c, err)
	}
	rec, err := h.Records.RemoveForOwner(c.Request().Context(), uid, recordID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// ownedTarget resolves the caller and the recordId path parameter. Ids that
// are not UUIDs cannot exist and are reported as not found.
func ownedTarget(c echo.Context) (string, string, error) {
	uid, err := ownerID(c)
	if err != nil {
		return "", "", err
	}
	recordID := c.Param("recordId")
	if _, err := uuid.Parse(recordID); err != nil {
		return "", "", service.ErrNotFound
	}
	return uid, recordID, nil
}

func validBody(c echo.Context, schema validation.Schema) (map[string]any, error) {
	body, err := decodeObject(c)
	if err != nil {
		return nil, err
	}
	return schema.Validate(body)
}
