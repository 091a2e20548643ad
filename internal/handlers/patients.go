package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mammoscreen-server/internal/models"
	"mammoscreen-server/internal/utils"
)

// PatientHandler handles patient-related requests.
type PatientHandler struct {
	DB *gorm.DB
}

// NewPatientHandler creates a new PatientHandler.
func NewPatientHandler(db *gorm.DB) *PatientHandler {
	return &PatientHandler{DB: db}
}

// CreatePatientRequest represents the request body for creating a patient.
type CreatePatientRequest struct {
	FullName            string  `json:"fullName" binding:"required,min=1,max=255"`
	MedicalRecordNumber *string `json:"medicalRecordNumber" binding:"omitempty,max=100"`
	DateOfBirth         string  `json:"dateOfBirth" binding:"omitempty"`
	Gender              string  `json:"gender" binding:"omitempty,oneof=male female other"`
	Phone               string  `json:"phone" binding:"omitempty,max=50"`
	Email               string  `json:"email" binding:"omitempty,email"`
	Address             string  `json:"address"`
	Notes               string  `json:"notes"`
}

// CreatePatient handles creating a new patient.
func (h *PatientHandler) CreatePatient(c *gin.Context) {
	var req CreatePatientRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	// Medical record numbers must stay unique across patients
	if req.MedicalRecordNumber != nil && *req.MedicalRecordNumber != "" {
		var existing models.Patient
		err := h.DB.Where("medical_record_number = ?", *req.MedicalRecordNumber).First(&existing).Error
		if err == nil {
			utils.Conflict(c, "Patient with this medical record number already exists")
			return
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			utils.InternalServerError(c, "Database error: "+err.Error())
			return
		}
	}

	patient := models.Patient{
		FullName:            req.FullName,
		MedicalRecordNumber: req.MedicalRecordNumber,
		Phone:               req.Phone,
		Email:               req.Email,
		Address:             req.Address,
		Notes:               req.Notes,
		IsActive:            true,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse(time.RFC3339, req.DateOfBirth)
		if err != nil {
			utils.BadRequest(c, "Invalid date format for dateOfBirth. Please use ISO 8601 format (YYYY-MM-DDTHH:MM:SSZ)")
			return
		}
		patient.DateOfBirth = &dob
	}
	if req.Gender != "" {
		g := models.Gender(req.Gender)
		patient.Gender = &g
	}

	if err := h.DB.Create(&patient).Error; err != nil {
		utils.InternalServerError(c, "Failed to create patient: "+err.Error())
		return
	}

	recordAudit(h.DB, c, "patient", patient.ID, "create", models.ChangeData{"fullName": patient.FullName})
	utils.Created(c, "Patient created successfully", patient)
}

// ListPatients handles listing patients with pagination and filters.
func (h *PatientHandler) ListPatients(c *gin.Context) {
	skip, limit := paginationParams(c, 100, 500)

	query := h.DB.Model(&models.Patient{})
	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where(
			"full_name LIKE ? OR medical_record_number LIKE ? OR email LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if isActive := c.Query("is_active"); isActive != "" {
		query = query.Where("is_active = ?", isActive == "true")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.InternalServerError(c, "Failed to count patients: "+err.Error())
		return
	}

	var patients []models.Patient
	if err := query.Order("created_at desc").Offset(skip).Limit(limit).Find(&patients).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch patients: "+err.Error())
		return
	}

	utils.Success(c, "Patients fetched successfully", NewListResponse(patients, total, skip, limit))
}

// GetPatientByID handles fetching a single patient with their analyses.
func (h *PatientHandler) GetPatientByID(c *gin.Context) {
	id := c.Param("id")

	var patient models.Patient
	if err := h.DB.First(&patient, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var analyses []models.Analysis
	if err := h.DB.Where("patient_id = ?", patient.ID).
		Order("created_at desc").Limit(50).Find(&analyses).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch patient analyses: "+err.Error())
		return
	}

	utils.Success(c, "Patient fetched successfully", gin.H{
		"patient":  patient,
		"analyses": analyses,
	})
}

// UpdatePatientRequest represents the request body for updating a patient.
type UpdatePatientRequest struct {
	FullName            *string `json:"fullName" binding:"omitempty,min=1,max=255"`
	MedicalRecordNumber *string `json:"medicalRecordNumber" binding:"omitempty,max=100"`
	DateOfBirth         *string `json:"dateOfBirth"`
	Gender              *string `json:"gender" binding:"omitempty,oneof=male female other"`
	Phone               *string `json:"phone" binding:"omitempty,max=50"`
	Email               *string `json:"email" binding:"omitempty,email"`
	Address             *string `json:"address"`
	Notes               *string `json:"notes"`
	IsActive            *bool   `json:"isActive"`
}

// UpdatePatient handles partially updating a patient.
func (h *PatientHandler) UpdatePatient(c *gin.Context) {
	id := c.Param("id")

	var req UpdatePatientRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var patient models.Patient
	if err := h.DB.First(&patient, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	changes := models.ChangeData{}
	if req.FullName != nil {
		patient.FullName = *req.FullName
		changes["fullName"] = *req.FullName
	}
	if req.MedicalRecordNumber != nil {
		patient.MedicalRecordNumber = req.MedicalRecordNumber
		changes["medicalRecordNumber"] = *req.MedicalRecordNumber
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse(time.RFC3339, *req.DateOfBirth)
		if err != nil {
			utils.BadRequest(c, "Invalid date format for dateOfBirth. Please use ISO 8601 format (YYYY-MM-DDTHH:MM:SSZ)")
			return
		}
		patient.DateOfBirth = &dob
		changes["dateOfBirth"] = *req.DateOfBirth
	}
	if req.Gender != nil {
		g := models.Gender(*req.Gender)
		patient.Gender = &g
		changes["gender"] = *req.Gender
	}
	if req.Phone != nil {
		patient.Phone = *req.Phone
		changes["phone"] = *req.Phone
	}
	if req.Email != nil {
		patient.Email = *req.Email
		changes["email"] = *req.Email
	}
	if req.Address != nil {
		patient.Address = *req.Address
		changes["address"] = *req.Address
	}
	if req.Notes != nil {
		patient.Notes = *req.Notes
		changes["notes"] = *req.Notes
	}
	if req.IsActive != nil {
		patient.IsActive = *req.IsActive
		changes["isActive"] = *req.IsActive
	}

	if err := h.DB.Save(&patient).Error; err != nil {
		utils.InternalServerError(c, "Failed to update patient: "+err.Error())
		return
	}

	recordAudit(h.DB, c, "patient", patient.ID, "update", changes)
	utils.Success(c, "Patient updated successfully", patient)
}

// DeletePatient handles soft-deleting a patient (marks them inactive).
func (h *PatientHandler) DeletePatient(c *gin.Context) {
	id := c.Param("id")

	var patient models.Patient
	if err := h.DB.First(&patient, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	patient.IsActive = false
	if err := h.DB.Save(&patient).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete patient: "+err.Error())
		return
	}

	recordAudit(h.DB, c, "patient", patient.ID, "delete", nil)
	c.Status(204)
}
