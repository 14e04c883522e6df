package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	appreporting "github.com/distrib/backend/internal/application/reporting"
	"github.com/distrib/backend/internal/domain/identity"
	"github.com/distrib/backend/internal/infrastructure/cache"
	"github.com/distrib/backend/internal/interfaces/http/dto"
)

func TestReportHandler_CurrentCycle(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.account(t, "dist.one", identity.RoleDistributor)

	rec := env.do(t, http.MethodGet, "/reports/cycle", token, nil)
	requireStatus(t, rec, http.StatusOK)
	var cycle appreporting.CycleResponse
	decode(t, rec, &cycle)
	assert.True(t, cycle.Anchor.Equal(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)))
	assert.True(t, cycle.IntakeStart.Equal(time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)))
	assert.False(t, cycle.ReportingOpen, "reporting opens on Saturday")

	rec = env.do(t, http.MethodGet, "/reports/cycle?at=2024-01-17", token, nil)
	requireStatus(t, rec, http.StatusOK)
	decode(t, rec, &cycle)
	assert.True(t, cycle.Anchor.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))

	rec = env.do(t, http.MethodGet, "/reports/cycle?at=soon", token, nil)
	requireStatus(t, rec, http.StatusBadRequest)
}

func TestReportHandler_SubmitReadsCycleDateInBusinessZone(t *testing.T) {
	ny := time.FixedZone("EST", -5*60*60)
	env := newTestEnvWith(t, envOptions{location: ny})
	_, admin := env.account(t, "admin", identity.RoleAdmin)
	_, distributor := env.account(t, "dist.one", identity.RoleDistributor)
	widget := env.createProduct(t, admin, "Widget", "10", 100)
	env.approvedOrder(t, distributor, admin, widget, 20)

	rec := env.do(t, http.MethodPost, "/reports", distributor, map[string]any{
		"cycle_anchor": "2024-01-10",
		"lines":        []map[string]any{{"product_id": widget, "quantity_sold": 30}},
	})
	requireStatus(t, rec, http.StatusCreated)
	var report appreporting.ReportResponse
	decode(t, rec, &report)
	assert.True(t, time.Date(2024, 1, 8, 0, 0, 0, 0, ny).Equal(report.CycleAnchor), report.CycleAnchor.String())
	require.Len(t, report.Details, 1)
	assert.Equal(t, int64(20), report.Details[0].QuantitySold)

	// the week before holds nothing
	rec = env.do(t, http.MethodPost, "/reports", distributor, map[string]any{
		"cycle_anchor": "2024-01-07",
		"lines":        []map[string]any{{"product_id": widget, "quantity_sold": 5}},
	})
	requireStatus(t, rec, http.StatusCreated)
	decode(t, rec, &report)
	assert.True(t, time.Date(2024, 1, 1, 0, 0, 0, 0, ny).Equal(report.CycleAnchor), report.CycleAnchor.String())
	assert.Equal(t, int64(0), report.Details[0].QuantitySold)

	rec = env.do(t, http.MethodPost, "/reports", distributor, map[string]any{
		"cycle_anchor": "2024-01-08T00:00:00Z",
		"lines":        []map[string]any{{"product_id": widget, "quantity_sold": 1}},
	})
	requireStatus(t, rec, http.StatusBadRequest)
	resp := decode(t, rec, nil)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "cycle_anchor", resp.Error.Details[0].Field)
}

func TestReportHandler_ConcurrentSubmitsShareAvailability(t *testing.T) {
	env := newTestEnvWith(t, envOptions{locker: cache.NewInMemoryCycleLocker(10 * time.Second)})
	_, admin := env.account(t, "admin", identity.RoleAdmin)
	_, distributor := env.account(t, "dist.one", identity.RoleDistributor)
	widget := env.createProduct(t, admin, "Widget", "10", 100)
	env.approvedOrder(t, distributor, admin, widget, 20)

	body, err := json.Marshal(map[string]any{
		"lines": []map[string]any{{"product_id": widget, "quantity_sold": 2, "quantity_damaged": 1}},
	})
	require.NoError(t, err)

	const submits = 20
	recs := make([]*httptest.ResponseRecorder, submits)
	var wg sync.WaitGroup
	for i := range submits {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/reports", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+distributor)
			recs[i] = httptest.NewRecorder()
			env.router.ServeHTTP(recs[i], req)
		}()
	}
	wg.Wait()

	var used int64
	for _, rec := range recs {
		requireStatus(t, rec, http.StatusCreated)
		var report appreporting.ReportResponse
		decode(t, rec, &report)
		used += report.TotalSold + report.TotalDamaged
	}
	// demand is twice the supply, so the cycle is used up exactly
	assert.Equal(t, int64(20), used)

	rec := env.do(t, http.MethodGet, "/reports/availability", distributor, nil)
	requireStatus(t, rec, http.StatusOK)
	var sheet appreporting.AvailabilitySheet
	decode(t, rec, &sheet)
	require.Len(t, sheet.Lines, 1)
	assert.Equal(t, int64(0), sheet.Lines[0].Available)
	assert.Equal(t, int64(20), sheet.Lines[0].AlreadyReported)
}

func TestReportHandler_SubmitClampsToAvailability(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.account(t, "admin", identity.RoleAdmin)
	distID, distributor := env.account(t, "dist.one", identity.RoleDistributor)
	widget := env.createProduct(t, admin, "Widget", "10", 100)
	env.approvedOrder(t, distributor, admin, widget, 20)

	rec := env.do(t, http.MethodGet, "/reports/availability", distributor, nil)
	requireStatus(t, rec, http.StatusOK)
	var sheet appreporting.AvailabilitySheet
	decode(t, rec, &sheet)
	assert.Equal(t, distID, sheet.DistributorID)
	require.Len(t, sheet.Lines, 1)
	assert.Equal(t, int64(20), sheet.Lines[0].Available)

	rec = env.do(t, http.MethodPost, "/reports", distributor, map[string]any{
		"lines": []map[string]any{{"product_id": widget, "quantity_sold": 15, "quantity_damaged": 9}},
		"notes": "busy week",
	})
	requireStatus(t, rec, http.StatusCreated)
	var report appreporting.ReportResponse
	decode(t, rec, &report)
	assert.Equal(t, "PENDING", report.Status)
	assert.Equal(t, 1, report.AdjustedLines)
	require.Len(t, report.Details, 1)
	assert.Equal(t, int64(15), report.Details[0].QuantitySold)
	assert.Equal(t, int64(5), report.Details[0].QuantityDamaged)
	assert.Equal(t, int64(0), report.Details[0].RemainingStock)
	assert.Equal(t, "150", report.TotalRevenue.String())

	// a second report in the same cycle sees what the first one used up
	rec = env.do(t, http.MethodGet, "/reports/availability", distributor, nil)
	decode(t, rec, &sheet)
	assert.Equal(t, int64(0), sheet.Lines[0].Available)

	rec = env.do(t, http.MethodGet, "/reports/availability?excluding_report_id="+report.ID.String(), distributor, nil)
	decode(t, rec, &sheet)
	assert.Equal(t, int64(20), sheet.Lines[0].Available)

	rec = env.do(t, http.MethodPut, "/reports/"+report.ID.String(), distributor, map[string]any{
		"lines": []map[string]any{{"product_id": widget, "quantity_sold": 12, "quantity_damaged": 1}},
	})
	requireStatus(t, rec, http.StatusOK)
	decode(t, rec, &report)
	assert.Equal(t, 0, report.AdjustedLines)
	assert.Equal(t, int64(7), report.Details[0].RemainingStock)
}

func TestReportHandler_AdminAvailabilityNeedsDistributor(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.account(t, "admin", identity.RoleAdmin)
	distID, _ := env.account(t, "dist.one", identity.RoleDistributor)

	rec := env.do(t, http.MethodGet, "/reports/availability", admin, nil)
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Equal(t, dto.ErrCodeInvalidInput, decode(t, rec, nil).Error.Code)

	rec = env.do(t, http.MethodGet, "/reports/availability?distributor_id="+distID.String()+"&cycle=2024-01-01", admin, nil)
	requireStatus(t, rec, http.StatusOK)
	var sheet appreporting.AvailabilitySheet
	decode(t, rec, &sheet)
	assert.True(t, sheet.Cycle.Anchor.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestReportHandler_DecisionAndListing(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.account(t, "admin", identity.RoleAdmin)
	_, distributor := env.account(t, "dist.one", identity.RoleDistributor)
	_, other := env.account(t, "dist.two", identity.RoleDistributor)
	widget := env.createProduct(t, admin, "Widget", "1", 100)
	env.approvedOrder(t, distributor, admin, widget, 10)

	rec := env.do(t, http.MethodPost, "/reports", distributor, map[string]any{
		"lines": []map[string]any{{"product_id": widget, "quantity_sold": 4}},
	})
	requireStatus(t, rec, http.StatusCreated)
	var report appreporting.ReportResponse
	decode(t, rec, &report)
	path := "/reports/" + report.ID.String()

	requireStatus(t, env.do(t, http.MethodGet, path, other, nil), http.StatusForbidden)
	requireStatus(t, env.do(t, http.MethodPost, path+"/approve", distributor, nil), http.StatusForbidden)

	rec = env.do(t, http.MethodPost, path+"/approve", admin, nil)
	requireStatus(t, rec, http.StatusOK)
	decode(t, rec, &report)
	assert.Equal(t, "APPROVED", report.Status)

	rec = env.do(t, http.MethodPut, path, distributor, map[string]any{
		"lines": []map[string]any{{"product_id": widget, "quantity_sold": 1}},
	})
	requireStatus(t, rec, http.StatusConflict)
	assert.Equal(t, dto.ErrCodeInvalidState, decode(t, rec, nil).Error.Code)

	rec = env.do(t, http.MethodGet, "/reports?cycle_anchor=2024-01-08&status=APPROVED", distributor, nil)
	requireStatus(t, rec, http.StatusOK)
	var reports []appreporting.ReportResponse
	decode(t, rec, &reports)
	require.Len(t, reports, 1)
	assert.Equal(t, report.ID, reports[0].ID)

	rec = env.do(t, http.MethodGet, "/reports", other, nil)
	decode(t, rec, &reports)
	assert.Empty(t, reports)

	rec = env.do(t, http.MethodGet, "/reports?cycle_anchor=2024-01-09", distributor, nil)
	requireStatus(t, rec, http.StatusBadRequest)
	resp := decode(t, rec, nil)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "cycle_anchor", resp.Error.Details[0].Field)

	requireStatus(t, env.do(t, http.MethodDelete, path, distributor, nil), http.StatusConflict)
	requireStatus(t, env.do(t, http.MethodDelete, path, admin, nil), http.StatusNoContent)
	requireStatus(t, env.do(t, http.MethodGet, path, admin, nil), http.StatusNotFound)
}

func TestReportHandler_RejectAndExport(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.account(t, "admin", identity.RoleAdmin)
	_, distributor := env.account(t, "dist.one", identity.RoleDistributor)
	widget := env.createProduct(t, admin, "Widget", "2", 100)
	env.approvedOrder(t, distributor, admin, widget, 10)

	rec := env.do(t, http.MethodPost, "/reports", distributor, map[string]any{
		"lines": []map[string]any{{"product_id": widget, "quantity_sold": 3}},
	})
	requireStatus(t, rec, http.StatusCreated)
	var report appreporting.ReportResponse
	decode(t, rec, &report)
	path := "/reports/" + report.ID.String()

	rec = env.do(t, http.MethodPost, path+"/reject", admin, map[string]string{"reason": "numbers off"})
	requireStatus(t, rec, http.StatusOK)
	decode(t, rec, &report)
	assert.Equal(t, "REJECTED", report.Status)
	assert.Equal(t, "numbers off", report.RejectionReason)

	rec = env.do(t, http.MethodGet, path+"/export", distributor, nil)
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "report-20240108-")

	book, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = book.Close() }()
	status, err := book.GetCellValue("Summary", "B4")
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", status)
}

func TestReportHandler_AdminCannotSubmit(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.account(t, "admin", identity.RoleAdmin)
	widget := env.createProduct(t, admin, "Widget", "1", 1)

	rec := env.do(t, http.MethodPost, "/reports", admin, map[string]any{
		"lines": []map[string]any{{"product_id": widget, "quantity_sold": 1}},
	})
	requireStatus(t, rec, http.StatusForbidden)

	rec = env.do(t, http.MethodPost, "/reports", admin, map[string]any{"lines": []any{}})
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Equal(t, dto.ErrCodeValidation, decode(t, rec, nil).Error.Code)
}
