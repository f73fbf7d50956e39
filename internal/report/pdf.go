package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"

	"trade-governor/internal/account"
	"trade-governor/internal/trade"
)

var (
	tableHeader = []string{"ID", "Symbol", "Side", "Size", "Entry", "Exit", "PnL", "Time"}
	tableWidths = []float64{10, 25, 15, 20, 25, 25, 25, 45}
)

// RenderPDF 生成交易历史 PDF 报表并写入 w。
func RenderPDF(w io.Writer, acct account.Account, trades []trade.Trade) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Trade History Report - Account #%d", acct.ID), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("Trade History Report - Account #%d", acct.ID), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 10, fmt.Sprintf("Current Balance: $%.2f | Daily Loss: $%.2f", acct.Balance, acct.CurrentDailyLoss), "", 1, "", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Helvetica", "B", 10)
	for i, col := range tableHeader {
		pdf.CellFormat(tableWidths[i], 10, col, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	var (
		totalPnL float64
		wins     int
	)
	for _, t := range trades {
		pnl := 0.0
		if t.PnL != nil {
			pnl = *t.PnL
		}
		totalPnL += pnl
		if pnl > 0 {
			wins++
		}

		exit := "-"
		if t.ExitPrice != nil && *t.ExitPrice != 0 {
			exit = fmt.Sprintf("%.2f", *t.ExitPrice)
		}

		row := []string{
			strconv.FormatInt(t.ID, 10),
			t.Symbol,
			string(t.Side),
			strconv.FormatFloat(t.Quantity, 'f', -1, 64),
			fmt.Sprintf("%.2f", t.EntryPrice),
			exit,
			fmt.Sprintf("%.2f", pnl),
			t.EntryTime.UTC().Format("2006-01-02 15:04"),
		}
		for i, cell := range row {
			pdf.CellFormat(tableWidths[i], 10, cell, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}

	winRate := 0.0
	if len(trades) > 0 {
		winRate = float64(wins) / float64(len(trades)) * 100
	}

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 10, fmt.Sprintf("Total Trades: %d | Win Rate: %.1f%% | Total Realized PnL: $%.2f", len(trades), winRate, totalPnL), "", 1, "", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("report: 生成PDF失败: %w", err)
	}
	return nil
}
