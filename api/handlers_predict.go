package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"summerberry-forecast/models"
	"summerberry-forecast/upload"
)

// requiredFields are the multipart fields every forecast request must carry
var requiredFields = []string{"site", "variety", "sector", "plantType", "plantationDate", "selectedDate"}

// handlePredict accepts an upload plus planting context and returns the 7-day forecast
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			s.respondWithError(w, http.StatusRequestEntityTooLarge, "File too large", err)
			return
		}
		s.respondWithError(w, http.StatusBadRequest, "Invalid multipart form", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil || header.Filename == "" {
		s.respondWithError(w, http.StatusBadRequest, "No file provided", err)
		return
	}
	defer file.Close()

	invalidType := fmt.Sprintf("Invalid file type. Allowed: %s", upload.AllowedExtensionsText())
	if _, err := upload.DetectFormat(header.Filename); err != nil {
		s.respondWithError(w, http.StatusBadRequest, invalidType, err)
		return
	}

	req, err := requestContextFromForm(r)
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Could not read uploaded file", err)
		return
	}

	result, err := s.forecaster.Run(r.Context(), header.Filename, data, req)
	if err != nil {
		var unsupported *upload.UnsupportedFormatError
		var parseErr *upload.ParseError
		switch {
		case errors.As(err, &unsupported):
			s.respondWithError(w, http.StatusBadRequest, invalidType, err)
		case errors.As(err, &parseErr):
			s.respondWithError(w, http.StatusBadRequest, parseErr.Error(), nil)
		default:
			s.respondWithError(w, http.StatusInternalServerError, "Internal server error", err)
		}
		return
	}

	s.log.Debug("Prediction served",
		zap.String("file", header.Filename),
		zap.Int64("size", header.Size),
		zap.String("site", req.Site),
		zap.Int("total", result.Total))

	s.respondJSON(w, http.StatusOK, result)
}

// requestContextFromForm reads and validates the six context fields
func requestContextFromForm(r *http.Request) (models.RequestContext, error) {
	values := make(map[string]string, len(requiredFields))
	for _, field := range requiredFields {
		v := strings.TrimSpace(r.FormValue(field))
		if v == "" {
			return models.RequestContext{}, &FieldError{Field: field}
		}
		values[field] = v
	}

	return models.RequestContext{
		Site:           values["site"],
		Variety:        values["variety"],
		Sector:         values["sector"],
		PlantType:      values["plantType"],
		PlantationDate: values["plantationDate"],
		SelectedDate:   values["selectedDate"],
	}, nil
}
