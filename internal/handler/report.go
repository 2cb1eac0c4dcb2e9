package handler

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"barpos-backend/internal/domain"
	"barpos-backend/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"
)

type ReportHandler struct {
	Reports  *service.ReportService
	Sessions *service.SessionService
}

func (h ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/reports/sales-history", h.salesHistory)
	r.Get("/reports/day-summary", h.daySummary)
	r.Get("/reports/day-summary/export", h.exportDaySummary)
	r.Post("/reports/closings", h.recoverClosing)
}

func (h ReportHandler) salesHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	sessions, err := h.Sessions.SalesHistory(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := make([]map[string]any, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, sessionView(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

type badRequestError struct{ msg string }

func (e badRequestError) Error() string { return e.msg }

// resolveSummary accepts either sessionId or date; sessionId wins when both
// are present. With neither, the summary covers today.
func (h ReportHandler) resolveSummary(r *http.Request) (*domain.DaySummary, error) {
	if v := r.URL.Query().Get("sessionId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, badRequestError{fmt.Sprintf("invalid sessionId %q", v)}
		}
		return h.Reports.SummaryForSession(r.Context(), id)
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	sum, err := h.Reports.SummaryForDate(r.Context(), date)
	if err != nil {
		if _, ok := err.(*time.ParseError); ok {
			return nil, badRequestError{fmt.Sprintf("invalid date %q", date)}
		}
		return nil, err
	}
	return sum, nil
}

func writeSummaryError(w http.ResponseWriter, err error) {
	var bad badRequestError
	if errors.As(err, &bad) {
		writeError(w, http.StatusBadRequest, bad.msg)
		return
	}
	writeDomainError(w, err)
}

func (h ReportHandler) daySummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.resolveSummary(r)
	if err != nil {
		writeSummaryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryView(*sum, service.AggregateProductSales(sum.Orders)))
}

func (h ReportHandler) exportDaySummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.resolveSummary(r)
	if err != nil {
		writeSummaryError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	switch format {
	case "csv":
		data, err := exportSummaryCSV(sum)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"day_summary_%s.csv\"", sum.Date))
		_, _ = w.Write(data)
	case "xlsx", "excel":
		data, err := exportSummaryXLSX(sum)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"day_summary_%s.xlsx\"", sum.Date))
		_, _ = w.Write(data)
	default:
		writeError(w, http.StatusBadRequest, "invalid format (use csv or xlsx)")
	}
}

func (h ReportHandler) recoverClosing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	sess, err := h.Sessions.RecoverClosing(r.Context(), req.Date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionView(*sess))
}

func summaryRows(sum *domain.DaySummary) [][]any {
	var rows [][]any
	for _, ow := range sum.Orders {
		for _, it := range ow.Items {
			name := ""
			if it.ProductName != nil {
				name = *it.ProductName
			}
			lineTotal := it.PriceAtSale * domain.Money(it.Quantity)
			rows = append(rows, []any{
				ow.Order.ID,
				ow.Order.TableNumber,
				string(ow.Order.Status),
				name,
				it.Quantity,
				it.PriceAtSale.Decimal(),
				lineTotal.Decimal(),
				ow.Order.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
	}
	return rows
}

var summaryHeader = []string{"Order ID", "Table", "Status", "Product", "Quantity", "Price At Sale", "Line Total", "Created At"}

func exportSummaryCSV(sum *domain.DaySummary) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)
	_ = w.Write(summaryHeader)
	for _, row := range summaryRows(sum) {
		record := make([]string, 0, len(row))
		for _, v := range row {
			record = append(record, fmt.Sprint(v))
		}
		_ = w.Write(record)
	}
	_ = w.Write([]string{})
	_ = w.Write([]string{"Date", sum.Date})
	_ = w.Write([]string{"Total Orders", strconv.Itoa(sum.TotalOrders)})
	_ = w.Write([]string{"Total Revenue", fmt.Sprintf("%.2f", sum.TotalRevenue.Decimal())})
	w.Flush()
	return buf.Bytes(), w.Error()
}

func exportSummaryXLSX(sum *domain.DaySummary) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "Day Summary"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	for c, v := range summaryHeader {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		_ = f.SetCellValue(sheet, cell, v)
	}
	rows := summaryRows(sum)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	footer := len(rows) + 3
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", footer), "Date")
	_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", footer), sum.Date)
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", footer+1), "Total Orders")
	_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", footer+1), sum.TotalOrders)
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", footer+2), "Total Revenue")
	_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", footer+2), sum.TotalRevenue.Decimal())

	_ = f.SetColWidth(sheet, "A", "A", 10)
	_ = f.SetColWidth(sheet, "B", "B", 8)
	_ = f.SetColWidth(sheet, "C", "C", 10)
	_ = f.SetColWidth(sheet, "D", "D", 28)
	_ = f.SetColWidth(sheet, "E", "E", 10)
	_ = f.SetColWidth(sheet, "F", "F", 14)
	_ = f.SetColWidth(sheet, "G", "G", 14)
	_ = f.SetColWidth(sheet, "H", "H", 20)

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1F2937"}, Pattern: 1},
	})
	_ = f.SetCellStyle(sheet, "A1", "H1", style)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
