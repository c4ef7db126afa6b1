package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/config"
	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/ingest"
	"github.com/andresuchdata/restock-advisor/internal/pipeline"
	"github.com/andresuchdata/restock-advisor/internal/repository/memory"
	"github.com/andresuchdata/restock-advisor/internal/service"
	"github.com/andresuchdata/restock-advisor/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	router *gin.Engine
	repo   *memory.Store
}

func newFixture(t *testing.T) apiFixture {
	t.Helper()
	repo := memory.NewStore()
	clock := time.Date(2024, 2, 1, 6, 0, 0, 0, time.UTC)

	svc, err := service.NewRestockService(repo.Repositories(), storage.NewLocal(t.TempDir()), nil,
		config.DefaultForecastConfig(), config.AlertConfig{MinSeverity: "low"},
		service.WithClock(func() time.Time { return clock }))
	require.NoError(t, err)

	cfg := pipeline.RunnerConfig{WorkerCount: 2}
	orch := pipeline.NewOrchestrator(svc, pipeline.NewRunner(svc, repo, cfg), cfg)

	router := NewRouter(&Services{
		Restock:      svc,
		Orchestrator: orch,
		Runs:         repo,
		Importer:     ingest.NewImporter(repo, repo),
	}, []string{"*"})
	return apiFixture{router: router, repo: repo}
}

func (f apiFixture) addProduct(t *testing.T, stock, days int) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := f.repo.UpsertProduct(ctx, &domain.Product{SKU: "WID-1", Name: "Widget", CurrentStock: stock, LeadTimeDays: 3})
	require.NoError(t, err)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]domain.SalesObservation, days)
	for i := range obs {
		obs[i] = domain.SalesObservation{ProductID: id, Date: start.AddDate(0, 0, i), Quantity: 10}
	}
	_, err = f.repo.UpsertObservations(ctx, obs)
	require.NoError(t, err)
	return id
}

func (f apiFixture) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestForecastErrorMapping(t *testing.T) {
	f := newFixture(t)
	id := f.addProduct(t, 25, 30)

	rec := f.do(t, http.MethodGet, "/api/v1/products/"+itoa(id)+"/forecast")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "forecast unavailable", body["error"])

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/products/999/forecast").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/products/abc/forecast").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/products/1/forecast?horizon=-2").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/products/"+itoa(id)+"/forecast?horizon=1099511627776").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/products/"+itoa(id)+"/forecast?horizon=91").Code)
}

func TestTrainTooShortHistoryIsUnprocessable(t *testing.T) {
	f := newFixture(t)
	id := f.addProduct(t, 25, 5)

	rec := f.do(t, http.MethodPost, "/api/v1/products/"+itoa(id)+"/train")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTrainDecideAndAlertFlow(t *testing.T) {
	f := newFixture(t)
	id := f.addProduct(t, 25, 30)
	base := "/api/v1/products/" + itoa(id)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, base+"/train").Code)

	rec := f.do(t, http.MethodGet, base+"/forecast?horizon=3")
	require.Equal(t, http.StatusOK, rec.Code)
	var fc struct {
		Points []domain.ForecastPoint `json:"points"`
	}
	decode(t, rec, &fc)
	assert.Len(t, fc.Points, 3)

	rec = f.do(t, http.MethodGet, base+"/decision")
	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Decision domain.InventoryDecision `json:"decision"`
		Alert    *domain.InventoryAlert   `json:"alert"`
	}
	decode(t, rec, &result)
	assert.Equal(t, 75, result.Decision.ReorderQuantity)
	assert.Equal(t, domain.RiskUnderstock, result.Decision.RiskLevel)
	require.NotNil(t, result.Alert)

	rec = f.do(t, http.MethodGet, base+"/evaluations")
	require.Equal(t, http.StatusOK, rec.Code)
	var evals struct {
		ModelKey    string                   `json:"model_key"`
		Evaluations []domain.ModelEvaluation `json:"evaluations"`
	}
	decode(t, rec, &evals)
	assert.Equal(t, domain.ModelKey(id), evals.ModelKey)
	assert.NotEmpty(t, evals.Evaluations)

	rec = f.do(t, http.MethodGet, "/api/v1/alerts?risk_level=understock")
	require.Equal(t, http.StatusOK, rec.Code)
	var alerts struct {
		Alerts []domain.InventoryAlert `json:"alerts"`
	}
	decode(t, rec, &alerts)
	require.Len(t, alerts.Alerts, 1)

	rec = f.do(t, http.MethodGet, "/api/v1/alerts/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary domain.AlertSummary
	decode(t, rec, &summary)
	assert.Equal(t, 1, summary.Understock)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/alerts/"+alerts.Alerts[0].ID+"/acknowledge").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/v1/alerts/nope/acknowledge").Code)

	rec = f.do(t, http.MethodGet, "/api/v1/alerts/summary")
	decode(t, rec, &summary)
	assert.Zero(t, summary.Total)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/alerts?risk_level=sideways").Code)
}

func TestTrendEndpoint(t *testing.T) {
	f := newFixture(t)
	id := f.addProduct(t, 25, 30)

	rec := f.do(t, http.MethodGet, "/api/v1/products/"+itoa(id)+"/trend")
	require.Equal(t, http.StatusOK, rec.Code)
	var trend domain.TrendAnalysis
	decode(t, rec, &trend)
	assert.Equal(t, domain.TrendStable, trend.Direction)
}

func TestRunEndpoints(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, 25, 30)

	rec := f.do(t, http.MethodPost, "/api/v1/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var run domain.PipelineRun
	decode(t, rec, &run)
	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Equal(t, 1, run.TotalProducts)
	assert.Equal(t, 1, run.Skipped)

	rec = f.do(t, http.MethodGet, "/api/v1/runs/"+itoa(run.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Jobs []domain.ProductJob `json:"jobs"`
	}
	decode(t, rec, &detail)
	require.Len(t, detail.Jobs, 1)
	assert.Equal(t, domain.JobSkipped, detail.Jobs[0].Status)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/runs/42").Code)
}

func upload(t *testing.T, f apiFixture, name, body string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/sales", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestUploadSales(t *testing.T) {
	f := newFixture(t)
	id := f.addProduct(t, 25, 0)

	rec := upload(t, f, "sales.csv", "sku,date,quantity\nWID-1,2024-03-01,4\n")
	require.Equal(t, http.StatusOK, rec.Code)
	var report ingest.Report
	decode(t, rec, &report)
	assert.Equal(t, 1, report.Upserted)

	obs, err := f.repo.ListObservations(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, obs, 1)

	assert.Equal(t, http.StatusBadRequest, upload(t, f, "sales.csv", "foo,bar\n1,2\n").Code)
	assert.Equal(t, http.StatusBadRequest, upload(t, f, "sales.pdf", "x").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/imports/sales").Code)
}

func TestDriveRoutesWithoutCredentials(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/api/v1/imports/drive/files").Code)
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodPost, "/api/v1/imports/drive").Code)
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"https://a.example, https://b.example", " "})
	assert.False(t, all)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, origins)

	_, all = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, all)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
