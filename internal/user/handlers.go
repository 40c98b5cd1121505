package user

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/obs"
)

// Handler exposes profile and address book endpoints. All routes require authentication.
type Handler struct {
	Service   *Service
	Images    ImageStore
	Validate  *validator.Validate
	MaxUpload int64
}

type addressRequest struct {
	Type         string `json:"type" validate:"required,oneof=home work other"`
	AddressLine1 string `json:"addressLine1" validate:"required,max=200"`
	AddressLine2 string `json:"addressLine2" validate:"max=200"`
	City         string `json:"city" validate:"required,max=100"`
	State        string `json:"state" validate:"required,max=100"`
	Pincode      string `json:"pincode" validate:"required,max=12"`
	Landmark     string `json:"landmark" validate:"max=200"`
	IsDefault    bool   `json:"isDefault"`
}

type addressPatchRequest struct {
	Type         *string `json:"type" validate:"omitempty,oneof=home work other"`
	AddressLine1 *string `json:"addressLine1" validate:"omitempty,min=1,max=200"`
	AddressLine2 *string `json:"addressLine2" validate:"omitempty,max=200"`
	City         *string `json:"city" validate:"omitempty,min=1,max=100"`
	State        *string `json:"state" validate:"omitempty,min=1,max=100"`
	Pincode      *string `json:"pincode" validate:"omitempty,min=1,max=12"`
	Landmark     *string `json:"landmark" validate:"omitempty,max=200"`
	IsDefault    *bool   `json:"isDefault"`
}

// Get handles GET /api/users/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id := chi.URLParam(r, "id")
	if !common.IsSelf(r.Context(), id) {
		common.WriteAppError(w, common.ErrForbidden())
		return
	}
	u, err := h.Service.Profile(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": u})
}

// List handles GET /api/addresses/user/{userId}.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	userID := chi.URLParam(r, "userId")
	if !common.IsSelf(r.Context(), userID) {
		common.WriteAppError(w, common.ErrForbidden())
		return
	}
	addresses, err := h.Service.List(r.Context(), userID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": addresses})
}

// Create handles POST /api/addresses.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req addressRequest
	if !h.decode(w, r, &req) {
		return
	}
	address, err := h.Service.Create(r.Context(), userID, AddressInput(req))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": address})
}

// Update handles PATCH /api/addresses/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req addressPatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	address, err := h.Service.Update(r.Context(), userID, chi.URLParam(r, "id"), AddressPatch(req))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": address})
}

// Delete handles DELETE /api/addresses/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadProof handles POST /api/addresses/{id}/proof with a multipart "file" field.
func (h *Handler) UploadProof(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	addressID := chi.URLParam(r, "id")
	if _, err := h.Service.Owned(r.Context(), userID, addressID); err != nil {
		common.WriteError(w, err)
		return
	}

	limit := h.MaxUpload
	if limit <= 0 {
		limit = 5 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "upload too large", nil)
			return
		}
		common.WriteAppError(w, common.ErrValidation("file", "multipart form with a file field is required"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		common.WriteAppError(w, common.ErrValidation("file", "file is required"))
		return
	}
	defer file.Close()

	url, err := h.Images.Save(addressID, file)
	if err != nil {
		if errors.Is(err, ErrInvalidImage) {
			common.WriteAppError(w, common.ErrValidation("file", "file must be a JPEG, PNG or GIF image"))
			return
		}
		common.WriteError(w, err)
		return
	}
	address, err := h.Service.SetProof(r.Context(), userID, addressID, url)
	if err != nil {
		if rmErr := h.Images.Remove(url); rmErr != nil {
			obs.Logger(r.Context()).Warn().Err(rmErr).Str("url", url).Msg("remove orphaned proof image failed")
		}
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": address})
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "user service not configured", nil)
		return false
	}
	return true
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	if !h.ready(w) {
		return "", false
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return "", false
	}
	return userID, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := common.DecodeJSON(r, dst); err != nil {
		common.WriteError(w, err)
		return false
	}
	v := h.Validate
	if v == nil {
		v = validator.New(validator.WithRequiredStructEnabled())
	}
	if err := v.Struct(dst); err != nil {
		common.WriteAppError(w, common.FromValidator(err))
		return false
	}
	return true
}
