// internal/httpcontroller/audit_routes.go audit CSV view and download
package httpcontroller

import (
	"html"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// csvTailRows is how many audit rows the HTML view shows.
const csvTailRows = 200

// CSVView handles GET /csv, a lightweight HTML table of the newest audit
// rows. The markup mirrors what operators have bookmarked for years.
func (s *Server) CSVView(ctx echo.Context) error {
	rows, err := s.Audit.Tail(csvTailRows)
	if err != nil {
		s.Debug("Failed to read audit tail: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read audit log")
	}

	page := []string{
		"<html><head><meta charset='utf-8'><title>detections.csv (tail 200)</title>",
		"<style>table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:4px 8px}</style>",
		"</head><body>",
		"<h2>detections.csv (latest 200 rows)</h2>",
		"<p><a href='/logs/detections.csv' download>CSVをダウンロード</a></p>",
		"<table>",
		"<tr><th>time</th><th>class_id</th><th>confidence</th><th>x1</th><th>y1</th><th>x2</th><th>y2</th></tr>",
	}
	for _, row := range rows {
		var cells strings.Builder
		for _, cell := range row {
			cells.WriteString("<td>" + html.EscapeString(cell) + "</td>")
		}
		page = append(page, "<tr>"+cells.String()+"</tr>")
	}
	page = append(page, "</table>", "</body></html>")

	return ctx.HTML(http.StatusOK, strings.Join(page, "\n"))
}

// CSVDownload handles GET /logs/detections.csv. A store with no file yet
// streams a header-only document so the download is always a valid CSV.
func (s *Server) CSVDownload(ctx echo.Context) error {
	response := ctx.Response()
	response.Header().Set(echo.HeaderContentType, "text/csv")
	response.Header().Set(echo.HeaderContentDisposition, `attachment; filename=detections.csv`)
	response.WriteHeader(http.StatusOK)

	if err := s.Audit.Export(response); err != nil {
		s.Debug("Failed to export audit log: %v", err)
		return err
	}
	return nil
}
