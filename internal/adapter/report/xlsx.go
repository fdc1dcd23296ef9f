package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rl1809/supply-ledger/internal/core/domain"
)

const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var inventoryHeader = []interface{}{
	"id",
	"product_name",
	"description",
	"stock_level",
	"price",
	"low_stock",
	"updated_at",
}

// InventoryFileName is the download name for an export taken at now.
func InventoryFileName(now time.Time) string {
	return fmt.Sprintf("inventory_%s.xlsx", now.Format("20060102_150405"))
}

// WriteInventory renders items as a single-sheet workbook, one row per item.
func WriteInventory(w io.Writer, items []domain.InventoryItem) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetRow(sheet, "A1", &inventoryHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, it := range items {
		description := ""
		if it.Description != nil {
			description = *it.Description
		}
		row := []interface{}{
			it.ID,
			it.ProductName,
			description,
			it.StockLevel,
			it.Price.InexactFloat64(),
			it.LowOnStock(),
			it.UpdatedAt.UTC().Format(time.RFC3339),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
