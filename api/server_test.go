package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"summerberry-forecast/cache"
	"summerberry-forecast/forecast"
	"summerberry-forecast/models"
	"summerberry-forecast/predictor"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubCounter struct{ n int64 }

func (c stubCounter) CountRecords(context.Context) (int64, error) { return c.n, nil }

type errForecaster struct{ err error }

func (f errForecaster) Run(context.Context, string, []byte, models.RequestContext) (*models.PredictionResult, error) {
	return nil, f.err
}

func newTestServer(t *testing.T) (*Server, *forecast.Service) {
	t.Helper()
	adapter := predictor.NewAdapterWithArtifact(nil)
	svc := forecast.NewService(adapter, nil, nil)
	srv := NewServer(svc, adapter, nil, Options{CORSOrigins: []string{"http://localhost:5173"}}, nil)
	return srv, svc
}

func validFields() map[string]string {
	return map[string]string{
		"site":           "alm",
		"variety":        "c",
		"sector":         "S1",
		"plantType":      "rb",
		"plantationDate": "2023-01-01",
		"selectedDate":   "2024-01-01",
	}
}

func multipartRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/predict", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Detail
}

func TestPredict_Success(t *testing.T) {
	srv, svc := newTestServer(t)
	req := multipartRequest(t, "weather.csv", []byte("temperature,humidity\n21,60\n23,70\n"), validFields())
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	svc.Wait()

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var res models.PredictionResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	require.Len(t, res.Predictions, 7)
	assert.Equal(t, "Day 1", res.Predictions[0].Day)
	assert.Equal(t, "Jan 01", res.Predictions[0].Date)
	assert.Len(t, res.Factors, 5)
	assert.Equal(t, "Temperature", res.Factors[0].Name)
}

func TestPredict_ValidationErrors(t *testing.T) {
	missingSite := validFields()
	delete(missingSite, "site")

	tests := []struct {
		name     string
		filename string
		content  string
		fields   map[string]string
		want     int
		detail   string
	}{
		{"no file", "", "", validFields(), http.StatusBadRequest, "No file provided"},
		{"bad extension", "notes.txt", "hello", validFields(), http.StatusBadRequest, "Invalid file type. Allowed: .csv, .xlsx, .xls"},
		{"missing field", "weather.csv", "a\n1\n", missingSite, http.StatusBadRequest, "Missing required field: site"},
		{"unparsable", "weather.xlsx", "not a workbook", validFields(), http.StatusBadRequest, "failed to parse weather.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t)
			rec := httptest.NewRecorder()

			srv.Handler().ServeHTTP(rec, multipartRequest(t, tt.filename, []byte(tt.content), tt.fields))

			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, decodeDetail(t, rec), tt.detail)
		})
	}
}

func TestRequestContextFromForm(t *testing.T) {
	t.Run("all fields", func(t *testing.T) {
		req, err := requestContextFromForm(multipartRequest(t, "weather.csv", []byte("a\n1\n"), validFields()))
		require.NoError(t, err)
		assert.Equal(t, "alm", req.Site)
		assert.Equal(t, "rb", req.PlantType)
		assert.Equal(t, "2024-01-01", req.SelectedDate)
	})

	t.Run("blank field", func(t *testing.T) {
		fields := validFields()
		fields["plantType"] = "   "

		_, err := requestContextFromForm(multipartRequest(t, "weather.csv", []byte("a\n1\n"), fields))

		var fieldErr *FieldError
		require.ErrorAs(t, err, &fieldErr)
		assert.Equal(t, "plantType", fieldErr.Field)
		assert.Equal(t, "Missing required field: plantType", err.Error())
	})
}

func TestPredict_InternalErrorIsOpaque(t *testing.T) {
	srv := NewServer(errForecaster{err: errors.New("pq: password authentication failed")}, nil, nil, Options{}, nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, multipartRequest(t, "weather.csv", []byte("a\n1\n"), validFields()))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	detail := decodeDetail(t, rec)
	assert.Equal(t, "Internal server error", detail)
	assert.NotContains(t, detail, "password")
}

func TestPredict_TooLarge(t *testing.T) {
	adapter := predictor.NewAdapterWithArtifact(nil)
	srv := NewServer(forecast.NewService(adapter, nil, nil), adapter, nil, Options{MaxUploadBytes: 64}, nil)
	rec := httptest.NewRecorder()

	big := bytes.Repeat([]byte("1,2,3\n"), 100)
	srv.Handler().ServeHTTP(rec, multipartRequest(t, "big.csv", big, validFields()))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		health HealthChecker
		want   string
	}{
		{"no store", nil, "disconnected"},
		{"store up", stubPinger{}, "connected"},
		{"store down", stubPinger{err: errors.New("dial tcp: refused")}, "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t)
			if tt.health != nil {
				srv.SetHealthChecker(tt.health)
			}
			rec := httptest.NewRecorder()

			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, http.StatusOK, rec.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, "healthy", body["status"])
			assert.Equal(t, tt.want, body["database"])
			assert.Equal(t, "mock", body["model"])
		})
	}
}

func TestModelEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/model", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		State   string       `json:"state"`
		Kind    string       `json:"kind"`
		Factors []factorInfo `json:"factors"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "mock", body.State)
	require.Len(t, body.Factors, 5)
	assert.Equal(t, factorInfo{Name: "Flower Abortion Rate", Score: 0.72, Correlation: "negative"}, body.Factors[1])
}

func TestStatsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	stats := cache.NewForecastStats(nil, nil)
	stats.ForecastCompleted(context.Background(), models.ForecastEvent{Site: "alm"})
	srv.SetStats(stats)
	srv.SetRecordCounter(stubCounter{n: 12})
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Forecasts      cache.Stats `json:"forecasts"`
		HarvestRecords int64       `json:"harvestRecords"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, int64(1), body.Forecasts.Total)
	assert.Equal(t, int64(12), body.HarvestRecords)
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/predict", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://elsewhere.example")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDPropagation(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
