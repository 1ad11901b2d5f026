package main

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jpcaldeira/escolar/core"
	"github.com/jpcaldeira/escolar/core/invoice"
)

// generateInvoices runs one monthly tuition batch and prints its report.
func (cli *commandLine) generateInvoices(month, year int, amount string) error {
	gi := invoice.GenerateInvoices{Month: month, Year: year}
	if amount != "" {
		amt, err := decimal.NewFromString(amount)
		if err != nil {
			return err
		}
		gi.UnitAmount = amt
	}
	if err := gi.Validate(core.Validate); err != nil {
		return err
	}
	rpt, err := cli.invSvc.Generate(context.Background(), gi)
	if err != nil {
		return err
	}
	logger.Printf(
		"invoices %02d/%d: %d active students, %d created, %d skipped, %d failed, total %s",
		rpt.Month, rpt.Year, rpt.ActiveStudents, rpt.Created, rpt.Skipped, rpt.Failed, rpt.TotalAmount.StringFixed(2),
	)
	return nil
}
