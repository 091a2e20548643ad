package handlers

import (
	"bytes"
	"errors"
	"image"
	"io"
	"log"
	"mime/multipart"

	_ "image/jpeg"
	_ "image/png"

	"github.com/gin-gonic/gin"

	"mammoscreen-server/internal/analysis"
	"mammoscreen-server/internal/inference"
	"mammoscreen-server/internal/models"
	"mammoscreen-server/internal/storage"
	"mammoscreen-server/internal/utils"
)

// InferenceHandler handles the inference endpoints that drive the analysis
// controller.
type InferenceHandler struct {
	Service *analysis.Service
}

// NewInferenceHandler creates a new InferenceHandler.
func NewInferenceHandler(service *analysis.Service) *InferenceHandler {
	return &InferenceHandler{Service: service}
}

// InferMulti runs inference across the four anatomical views.
// Expects multipart fields lcc, rcc, lmlo and rmlo plus an optional patient_id.
func (h *InferenceHandler) InferMulti(c *gin.Context) {
	views := make([]analysis.ViewUpload, 0, len(models.MultiViewNames))
	for _, name := range models.MultiViewNames {
		file, header, err := c.Request.FormFile(string(name))
		if err != nil {
			utils.BadRequest(c, string(name)+" view image is required")
			return
		}
		view, ok := readViewUpload(c, name, file, header)
		if !ok {
			return
		}
		views = append(views, view)
	}

	h.run(c, analysis.RunInput{
		Mode:      models.ModeMulti,
		PatientID: optionalPatientID(c),
		Views:     views,
	})
}

// InferSingle runs inference on a single image under review.
// Expects a multipart field image plus an optional patient_id.
func (h *InferenceHandler) InferSingle(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		utils.BadRequest(c, "image file is required")
		return
	}
	view, ok := readViewUpload(c, models.ViewSingle, file, header)
	if !ok {
		return
	}

	h.run(c, analysis.RunInput{
		Mode:      models.ModeSingle,
		PatientID: optionalPatientID(c),
		Views:     []analysis.ViewUpload{view},
	})
}

func (h *InferenceHandler) run(c *gin.Context, input analysis.RunInput) {
	result, err := h.Service.Run(c.Request.Context(), input)
	if err != nil {
		writeRunError(c, err)
		return
	}
	utils.Success(c, "Inference completed successfully", result)
}

// readViewUpload reads one multipart file and verifies it decodes as an image.
func readViewUpload(c *gin.Context, name models.ImageViewType, file multipart.File, header *multipart.FileHeader) (analysis.ViewUpload, bool) {
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		utils.InternalServerError(c, "Failed to read "+string(name)+" view: "+err.Error())
		return analysis.ViewUpload{}, false
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		utils.BadRequest(c, string(name)+" view must be a valid image file")
		return analysis.ViewUpload{}, false
	}

	return analysis.ViewUpload{
		Name:        name,
		Data:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, true
}

func optionalPatientID(c *gin.Context) *string {
	id := c.Query("patient_id")
	if id == "" {
		id = c.PostForm("patient_id")
	}
	if id == "" {
		return nil
	}
	return &id
}

// writeRunError maps the controller's error taxonomy onto HTTP responses
// without leaking internals.
func writeRunError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, analysis.ErrPatientNotFound):
		utils.NotFound(c, "Patient not found")
	case errors.Is(err, analysis.ErrInvalidViews), errors.Is(err, storage.ErrInvalidUpload):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, inference.ErrInference):
		log.Printf("inference failed: %v", err)
		utils.InternalServerError(c, "Inference failed")
	default:
		log.Printf("analysis failed: %v", err)
		utils.InternalServerError(c, "Analysis failed")
	}
}
