package invoice_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jpcaldeira/escolar/core/invoice"
)

func TestAmountInWords(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"0.00", "zero reais"},
		{"0.01", "um centavo"},
		{"0.50", "cinquenta centavos"},
		{"1.00", "um real"},
		{"15.00", "quinze reais"},
		{"100.00", "cem reais"},
		{"123.45", "cento e vinte e três reais e quarenta e cinco centavos"},
		{"450.00", "quatrocentos e cinquenta reais"},
		{"999.99", "novecentos e noventa e nove reais e noventa e nove centavos"},
		{"1000.00", "mil reais"},
		{"1500.00", "mil e quinhentos reais"},
		{"2025.00", "dois mil e vinte e cinco reais"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			got := invoice.AmountInWords(decimal.RequireFromString(tt.amount))
			assert.Equal(t, tt.want, got)
		})
	}
}
