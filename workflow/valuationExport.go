package workflow

import (
	"context"
	"fmt"
	"io"

	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ExportStockValuation writes an xlsx workbook with one sheet per stage listing
// every item's on-hand quantity and valuation, followed by a total row.
func (e *Engine) ExportStockValuation(ctx context.Context, w io.Writer) error {
	balances, err := e.StageBalances(ctx, 0)
	if err != nil {
		return err
	}
	items, err := models.ListItems(ctx, e.db)
	if err != nil {
		return err
	}
	names := make(map[int]string, len(items))
	for _, item := range items {
		names[item.ID] = item.Name
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, stage := range models.AllStages {
		sheet := stage.String()
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return err
		}

		f.SetCellValue(sheet, "A1", "ItemId")
		f.SetCellValue(sheet, "B1", "Item")
		f.SetCellValue(sheet, "C1", "OnHand")
		f.SetCellValue(sheet, "D1", "Valuation")

		row := 2
		total := decimal.Zero
		for _, b := range balances {
			if b.Stage != stage {
				continue
			}
			f.SetCellValue(sheet, "A"+fmt.Sprint(row), b.ItemId)
			f.SetCellValue(sheet, "B"+fmt.Sprint(row), names[b.ItemId])
			f.SetCellValue(sheet, "C"+fmt.Sprint(row), b.OnHand.InexactFloat64())
			f.SetCellValue(sheet, "D"+fmt.Sprint(row), b.Valuation.InexactFloat64())
			total = total.Add(b.Valuation)
			row++
		}
		f.SetCellValue(sheet, "B"+fmt.Sprint(row), "Total")
		f.SetCellValue(sheet, "D"+fmt.Sprint(row), total.InexactFloat64())
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write valuation workbook: %w", err)
	}
	return nil
}
