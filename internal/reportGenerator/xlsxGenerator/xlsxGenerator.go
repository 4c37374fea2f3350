package xlsxGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Sivasankari007/CodeAlpha-trading-platform/internal/model"
	"github.com/Sivasankari007/CodeAlpha-trading-platform/utils"
)

const defaultSheet = "Sheet1"

// characters excelize does not allow in a sheet name
var sheetNameReplacer = strings.NewReplacer(
	":", "_", `\`, "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_",
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

// Generate renders one sheet per statement: a summary block, the open holdings
// and the transaction history.
func (g *XLSXGenerator) Generate(ctx context.Context, statements []model.PortfolioStatement) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	if len(statements) == 0 {
		return nil, "", errors.New("empty statements")
	}

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	for i, statement := range statements {
		err := g.fillSheet(f, statement, i+1)
		if err != nil {
			slog.Error("got error while filling sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", statement.UserID), slog.String("err", err.Error()))
			return nil, "", err
		}
	}

	if err := f.DeleteSheet(defaultSheet); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

// SheetName is the sheet a statement is written to.
func SheetName(ordinal int, userID string) string {
	name := sheetNameReplacer.Replace(fmt.Sprintf("%d. %s", ordinal, userID))
	// excelize rejects sheet names longer than 31 characters
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	// or ending with an apostrophe
	return strings.TrimRight(name, "'")
}

func (g *XLSXGenerator) headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

func (g *XLSXGenerator) title(f *excelize.File, sheet, from, to, text, color string) error {
	if err := f.MergeCell(sheet, from, to); err != nil {
		return err
	}
	if err := f.SetCellStr(sheet, from, text); err != nil {
		return err
	}

	styleID, err := g.headerStyle(f, color)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, from, from, styleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}
	return nil
}

func (g *XLSXGenerator) fillSheet(f *excelize.File, statement model.PortfolioStatement, ordinal int) error {
	sheet := SheetName(ordinal, statement.UserID)
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	// summary
	if err := g.title(f, sheet, "A1", "B1", "Summary", "#cfe2f3"); err != nil {
		return err
	}

	summary := []struct {
		label string
		value any
	}{
		{"User", statement.UserID},
		{"Cash", statement.Cash.InexactFloat64()},
		{"Total value", statement.TotalValue.InexactFloat64()},
		{"Unrealized gain/loss", statement.TotalGainLoss.InexactFloat64()},
		{"Unrealized gain/loss %", statement.TotalGainLossPercent.InexactFloat64()},
		{"Realized gain/loss", statement.RealizedGainLoss.InexactFloat64()},
		{"Generated at", statement.GeneratedAt.Format("2006-01-02 15:04:05")},
	}
	for i, row := range summary {
		_ = f.SetCellStr(sheet, fmt.Sprintf("A%d", i+2), row.label)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", i+2), row.value)
	}

	// holdings
	rowNum := len(summary) + 4
	if err := g.title(f, sheet, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("G%d", rowNum), "Holdings", "#d9ead3"); err != nil {
		return err
	}

	rowNum++
	for col, header := range []string{"symbol", "quantity", "avg cost", "price", "value", "gain", "gain %"} {
		cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
		_ = f.SetCellStr(sheet, cell, header)
	}

	for _, h := range statement.Holdings {
		rowNum++
		_ = f.SetCellStr(sheet, fmt.Sprintf("A%d", rowNum), h.Symbol)
		_ = f.SetCellInt(sheet, fmt.Sprintf("B%d", rowNum), h.Quantity)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", rowNum), h.AvgCost.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", rowNum), h.CurrentPrice.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", rowNum), h.TotalValue.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", rowNum), h.UnrealizedGain.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", rowNum), h.UnrealizedGainPercent.InexactFloat64())
	}

	// transaction history
	rowNum += 3
	if err := g.title(f, sheet, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("G%d", rowNum), "Transactions", "#cccccc"); err != nil {
		return err
	}

	rowNum++
	for col, header := range []string{"id", "type", "symbol", "quantity", "price", "total", "date"} {
		cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
		_ = f.SetCellStr(sheet, cell, header)
	}

	for _, tx := range statement.Transactions {
		rowNum++
		_ = f.SetCellStr(sheet, fmt.Sprintf("A%d", rowNum), tx.ID)
		_ = f.SetCellStr(sheet, fmt.Sprintf("B%d", rowNum), string(tx.Type))
		_ = f.SetCellStr(sheet, fmt.Sprintf("C%d", rowNum), tx.StockSymbol)
		_ = f.SetCellInt(sheet, fmt.Sprintf("D%d", rowNum), tx.Quantity)
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", rowNum), tx.Price.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", rowNum), tx.TotalValue.InexactFloat64())
		_ = f.SetCellStr(sheet, fmt.Sprintf("G%d", rowNum), tx.FormattedTimestamp())
	}

	return nil
}
