package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/xuri/excelize/v2"

	"github.com/pkordes/notekeeper/backend/internal/domain"
)

// xlsxSheet names the single worksheet of an xlsx export.
const xlsxSheet = "Sharing"

// csvHeaders defines the column names written as the first row of any CSV or
// xlsx export.
var csvHeaders = []string{"tag_id", "tag_name", "recipient_id", "recipient_email", "granted_at"}

// GetExport implements GET /tags/export: every tag the caller owns with its
// grants, one row per grant. Use ?format=csv or ?format=xlsx for a file;
// default is JSON.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	var format *string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		requestBody(w, fmt.Sprintf("invalid format for parameter format: %s", err))
		return
	}
	kind := "json"
	if format != nil {
		kind = *format
	}
	switch kind {
	case "json", "csv", "xlsx":
	default:
		requestBody(w, `format must be "json", "csv" or "xlsx"`)
		return
	}

	rows, err := s.export.Export(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	switch kind {
	case "csv":
		writeCSV(w, rows)
		return
	case "xlsx":
		if err := writeXLSX(w, rows); err != nil {
			s.fail(w, r, err)
		}
		return
	}
	out := make([]ExportRow, len(rows))
	for i, row := range rows {
		out[i] = exportRowToResponse(row)
	}
	writeJSON(w, http.StatusOK, out)
}

// writeCSV encodes rows as CSV with a header line.
func writeCSV(w http.ResponseWriter, rows []domain.ExportRow) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="tags.csv"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write(csvHeaders)
	for _, row := range rows {
		_ = cw.Write(exportRowToCSVRecord(row))
	}
	cw.Flush()
}

// writeXLSX renders rows into a one-sheet workbook. The workbook is built in
// memory so an encoding failure can still become a 500.
func writeXLSX(w http.ResponseWriter, rows []domain.ExportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("handler.writeXLSX: %w", err)
	}
	if err := setXLSXRow(f, 1, csvHeaders); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setXLSXRow(f, i+2, exportRowToCSVRecord(row)); err != nil {
			return err
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("handler.writeXLSX: %w", err)
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="tags.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
	return nil
}

func setXLSXRow(f *excelize.File, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return fmt.Errorf("handler.writeXLSX: %w", err)
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
		return fmt.Errorf("handler.writeXLSX: %w", err)
	}
	return nil
}

// exportRowToResponse maps a domain row to the JSON shape. Recipient fields
// are omitted for tags that are not shared.
func exportRowToResponse(r domain.ExportRow) ExportRow {
	out := ExportRow{TagId: r.TagID, TagName: r.TagName, GrantedAt: r.GrantedAt}
	if r.Shared() {
		id := openapi_types.UUID(r.RecipientID)
		email := openapi_types.Email(r.RecipientEmail)
		out.RecipientId = &id
		out.RecipientEmail = &email
	}
	return out
}

// exportRowToCSVRecord encodes a row as a flat string slice. Unshared tags
// leave the recipient columns empty.
func exportRowToCSVRecord(r domain.ExportRow) []string {
	rec := []string{r.TagID.String(), r.TagName, "", "", ""}
	if r.Shared() {
		rec[2] = r.RecipientID.String()
		rec[3] = r.RecipientEmail
	}
	if r.GrantedAt != nil {
		rec[4] = r.GrantedAt.UTC().Format(time.RFC3339)
	}
	return rec
}
