package loader

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/urbanstock/feature-cli/internal/model"
)

// WriteXLSX writes the feature table to an Excel workbook with a single
// "features" sheet, laid out like WriteCSV.
func WriteXLSX(path string, buildings []model.Building, numericCols, categoricalCols []string) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("features")
	if err != nil {
		return eris.Wrap(err, "loader: add XLSX sheet")
	}

	header := sheet.AddRow()
	header.AddCell().SetString("id")
	for _, c := range categoricalCols {
		header.AddCell().SetString(c)
	}
	for _, c := range numericCols {
		header.AddCell().SetString(c)
	}

	for i := range buildings {
		row := sheet.AddRow()
		row.AddCell().SetString(buildings[i].ID)
		for _, c := range categoricalCols {
			row.AddCell().SetString(buildings[i].Cat(c))
		}
		for _, c := range numericCols {
			v := buildings[i].Num(c)
			if math.IsNaN(v) {
				row.AddCell().SetString("")
			} else {
				row.AddCell().SetFloat(v)
			}
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrap(err, "loader: save XLSX file")
	}
	return nil
}

// CSVToXLSX copies a CSV table into an Excel workbook verbatim. Cells
// that parse as floats become numeric cells.
func CSVToXLSX(r io.Reader, path string) error {
	cr := csv.NewReader(r)
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("features")
	if err != nil {
		return eris.Wrap(err, "loader: add XLSX sheet")
	}

	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return eris.Wrap(err, "loader: read CSV record")
		}
		row := sheet.AddRow()
		for _, cell := range rec {
			if !first {
				if v, err := strconv.ParseFloat(cell, 64); err == nil {
					row.AddCell().SetFloat(v)
					continue
				}
			}
			row.AddCell().SetString(cell)
		}
		first = false
	}

	if err := file.Save(path); err != nil {
		return eris.Wrap(err, "loader: save XLSX file")
	}
	return nil
}
