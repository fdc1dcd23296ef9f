package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/rl1809/supply-ledger/internal/core/domain"
)

func TestWriteInventory(t *testing.T) {
	desc := "Blue"
	items := []domain.InventoryItem{
		{ID: 1, ProductName: "Widget", Description: &desc, StockLevel: 50, Price: decimal.RequireFromString("9.99"), UpdatedAt: time.Now()},
		{ID: 2, ProductName: "Gadget", StockLevel: 3, Price: decimal.Zero, UpdatedAt: time.Now()},
	}

	var buf bytes.Buffer
	if err := WriteInventory(&buf, items); err != nil {
		t.Fatalf("WriteInventory failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][1] != "product_name" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][1] != "Widget" || rows[1][2] != "Blue" || rows[1][3] != "50" || rows[1][4] != "9.99" {
		t.Errorf("unexpected first row %v", rows[1])
	}
	if rows[2][5] != "TRUE" {
		t.Errorf("expected low stock flag on second row, got %v", rows[2])
	}
}

func TestInventoryFileName(t *testing.T) {
	got := InventoryFileName(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	if got != "inventory_20240102_030405.xlsx" {
		t.Errorf("unexpected name %q", got)
	}
}
