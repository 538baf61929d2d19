package api

import (
	"net/http"
	"strings"

	"github.com/xuri/excelize/v2"

	"voice-negotiator-go/internal/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// exportHistory streams the transcript as a one-sheet workbook.
func (h *Handler) exportHistory(w http.ResponseWriter, r *http.Request) {
	f, err := transcriptWorkbook(h.Session.Snapshot())
	if err != nil {
		h.Log.WithRequest(r).WithError(err).Error("cannot build transcript workbook")
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="conversacion.xlsx"`)
	if err := f.Write(w); err != nil {
		h.Log.WithRequest(r).WithError(err).Error("cannot write transcript workbook")
	}
}

func transcriptWorkbook(turns []types.Turn) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Conversacion"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}
	header := []any{"Turno", "Hablante", "Texto"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, t := range turns {
		speaker := types.UserLabel
		if t.Role == types.RoleAgent {
			speaker = types.AgentLabel
		}
		row := []any{i + 1, speaker, strings.TrimSpace(t.Text)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(sheet, "C", "C", 100); err != nil {
		return nil, err
	}
	return f, nil
}
