package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/usdplan/core/store"
)

// Format selects the encoding of an export.
type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
)

// Write encodes summaries to w in the given format.
func Write(w io.Writer, f Format, sums []store.Summary) error {
	switch f {
	case JSON, "":
		return WriteJSON(w, sums)
	case CSV:
		return WriteCSV(w, sums)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// WriteJSON writes the summaries to w as an indented JSON array.
func WriteJSON(w io.Writer, sums []store.Summary) error {
	if sums == nil {
		sums = []store.Summary{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sums)
}

var csvHeader = []string{
	"period", "run_id", "converged", "iterations", "error_type",
	"demand_mwh", "gross_mwh", "import_mwh", "utility_aux_mwh", "stg_reduction_mwh",
	"export_mwh", "shp_demand_mt", "shp_capacity_mt", "stored_at",
}

// WriteCSV writes one row per month for spreadsheet review.
func WriteCSV(w io.Writer, sums []store.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, s := range sums {
		rec := []string{
			s.Period.String(),
			s.RunID,
			strconv.FormatBool(s.Converged),
			strconv.Itoa(s.Iterations),
			string(s.ErrorType),
			num(s.DemandMWh),
			num(s.GrossMWh),
			num(s.ImportMWh),
			num(s.UtilityAuxMWh),
			num(s.STGReductionMWh),
			num(s.ExportMWh),
			num(s.SHPDemandMT),
			num(s.SHPCapacityMT),
			s.StoredAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
