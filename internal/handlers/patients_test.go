package handlers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mammoscreen-server/internal/models"
)

func TestCreatePatient(t *testing.T) {
	env := newTestEnv(t, &stubPredictor{})

	w := env.doJSON(t, http.MethodPost, "/patients", gin.H{
		"fullName":            "Jane Roe",
		"medicalRecordNumber": "MRN-001",
		"dateOfBirth":         "1975-04-02T00:00:00Z",
		"gender":              "female",
		"email":               "jane@example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var patient models.Patient
	decodeData(t, w, &patient)
	assert.NotEmpty(t, patient.ID)
	assert.Equal(t, "Jane Roe", patient.FullName)
	require.NotNil(t, patient.MedicalRecordNumber)
	assert.Equal(t, "MRN-001", *patient.MedicalRecordNumber)
	require.NotNil(t, patient.DateOfBirth)
	assert.Equal(t, 1975, patient.DateOfBirth.Year())
	assert.True(t, patient.IsActive)

	// Audit trail records the creation.
	var audit models.AuditLog
	require.NoError(t, env.db.First(&audit, "entity_id = ?", patient.ID).Error)
	assert.Equal(t, "patient", audit.EntityType)
	assert.Equal(t, "create", audit.Action)
}

func TestCreatePatientValidation(t *testing.T) {
	env := newTestEnv(t, &stubPredictor{})

	cases := []struct {
		name    string
		payload gin.H
	}{
		{name: "missing name", payload: gin.H{"email": "a@b.com"}},
		{name: "bad email", payload: gin.H{"fullName": "X", "email": "not-an-email"}},
		{name: "bad gender", payload: gin.H{"fullName": "X", "gender": "unsupported"}},
		{name: "bad date", payload: gin.H{"fullName": "X", "dateOfBirth": "02/04/1975"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.doJSON(t, http.MethodPost, "/patients", tc.payload)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreatePatientDuplicateMRN(t *testing.T) {
	env := newTestEnv(t, &stubPredictor{})

	w := env.doJSON(t, http.MethodPost, "/patients", gin.H{"fullName": "A", "medicalRecordNumber": "MRN-9"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.doJSON(t, http.MethodPost, "/patients", gin.H{"fullName": "B", "medicalRecordNumber": "MRN-9"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListPatients(t *testing.T) {
	env := newTestEnv(t, &stubPredictor{})
	createPatient(t, env, "Alice Adams")
	createPatient(t, env, "Bob Brown")
	createPatient(t, env, "Carol Adams")

	w := env.do(t, http.MethodGet, "/patients", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Items []models.Patient `json:"items"`
		Total int64            `json:"total"`
	}
	decodeData(t, w, &list)
	assert.Equal(t, int64(3), list.Total)
	assert.Len(t, list.Items, 3)

	w = env.do(t, http.MethodGet, "/patients?search=Adams", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &list)
	assert.Equal(t, int64(2), list.Total)

	w = env.do(t, http.MethodGet, "/patients?skip=1&limit=1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var paged struct {
		Items      []models.Patient `json:"items"`
		Total      int64            `json:"total"`
		Page       int              `json:"page"`
		PageSize   int              `json:"page_size"`
		TotalPages int64            `json:"total_pages"`
	}
	decodeData(t, w, &paged)
	assert.Equal(t, int64(3), paged.Total)
	assert.Len(t, paged.Items, 1)
	assert.Equal(t, 2, paged.Page)
	assert.Equal(t, int64(3), paged.TotalPages)
}

func TestGetPatientWithAnalyses(t *testing.T) {
	env := newTestEnv(t, &stubPredictor{})
	patient := createPatient(t, env, "Jane Roe")

	a := models.Analysis{
		PatientID: &patient.ID,
		Mode:      models.ModeMulti,
		Status:    models.AnalysisCompleted,
	}
	require.NoError(t, env.db.Create(&a).Error)

	w := env.do(t, http.MethodGet, "/patients/"+patient.ID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Patient  models.Patient    `json:"patient"`
		Analyses []models.Analysis `json:"analyses"`
	}
	decodeData(t, w, &data)
	assert.Equal(t, patient.ID, data.Patient.ID)
	require.Len(t, data.Analyses, 1)
	assert.Equal(t, a.ID, data.Analyses[0].ID)
}

func TestGetPatientNotFound(t *testing.T) {
	env := newTestEnv(t, &stubPredictor{})
	w := env.do(t, http.MethodGet, "/patients/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdatePatientPartial(t *testing.T) {
	env := newTestEnv(t, &stubPredictor{})
	patient := createPatient(t, env, "Jane Roe")

	w := env.doJSON(t, http.MethodPatch, "/patients/"+patient.ID, gin.H{
		"phone": "555-0100",
		"notes": "follow-up scheduled",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated models.Patient
	decodeData(t, w, &updated)
	assert.Equal(t, "555-0100", updated.Phone)
	assert.Equal(t, "follow-up scheduled", updated.Notes)
	// Untouched fields survive.
	assert.Equal(t, "Jane Roe", updated.FullName)
}

func TestDeletePatientSoftDeletes(t *testing.T) {
	env := newTestEnv(t, &stubPredictor{})
	patient := createPatient(t, env, "Jane Roe")

	w := env.do(t, http.MethodDelete, "/patients/"+patient.ID, nil, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	// The row survives but is inactive.
	var stored models.Patient
	require.NoError(t, env.db.First(&stored, "id = ?", patient.ID).Error)
	assert.False(t, stored.IsActive)
}
