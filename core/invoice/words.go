package invoice

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Brazilian Portuguese currency spelling, used on printed receipts.
var (
	wordUnits = []string{"", "um", "dois", "três", "quatro", "cinco", "seis", "sete", "oito", "nove"}
	wordTens  = []string{"", "", "vinte", "trinta", "quarenta", "cinquenta", "sessenta", "setenta", "oitenta", "noventa"}
	wordTeens = []string{"dez", "onze", "doze", "treze", "quatorze", "quinze", "dezesseis", "dezessete", "dezoito", "dezenove"}
	wordHunds = []string{"", "cento", "duzentos", "trezentos", "quatrocentos", "quinhentos", "seiscentos", "setecentos", "oitocentos", "novecentos"}
)

// AmountInWords spells a monetary amount out in Portuguese,
// e.g. 450.00 -> "quatrocentos e cinquenta reais".
func AmountInWords(amount decimal.Decimal) string {
	cents := amount.Abs().Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	reais := cents / 100
	cent := cents % 100

	if reais == 0 && cent == 0 {
		return "zero reais"
	}

	var parts []string
	if reais > 0 {
		unit := "reais"
		if reais == 1 {
			unit = "real"
		}
		parts = append(parts, spellNumber(reais)+" "+unit)
	}
	if cent > 0 {
		unit := "centavos"
		if cent == 1 {
			unit = "centavo"
		}
		parts = append(parts, spellNumber(cent)+" "+unit)
	}
	return strings.Join(parts, " e ")
}

func spellNumber(n int64) string {
	if n == 0 {
		return "zero"
	}

	var parts []string
	if mi := n / 1_000_000; mi > 0 {
		if mi == 1 {
			parts = append(parts, "um milhão")
		} else {
			parts = append(parts, spellBelowThousand(mi)+" milhões")
		}
		n %= 1_000_000
	}
	if mil := n / 1000; mil > 0 {
		if mil == 1 {
			parts = append(parts, "mil")
		} else {
			parts = append(parts, spellBelowThousand(mil)+" mil")
		}
		n %= 1000
	}
	if n > 0 {
		word := spellBelowThousand(n)
		if len(parts) > 0 && (n < 100 || n%100 == 0) {
			word = "e " + word
		}
		parts = append(parts, word)
	}
	return strings.Join(parts, " ")
}

func spellBelowThousand(n int64) string {
	if n == 100 {
		return "cem"
	}

	var parts []string
	if c := n / 100; c > 0 {
		parts = append(parts, wordHunds[c])
	}

	rest := n % 100
	switch {
	case rest == 0:
	case rest >= 10 && rest < 20:
		parts = append(parts, wordTeens[rest-10])
	default:
		d := rest / 10
		u := rest % 10
		if d > 0 {
			parts = append(parts, wordTens[d])
		}
		if u > 0 {
			if d > 0 {
				parts = append(parts, "e")
			}
			parts = append(parts, wordUnits[u])
		}
	}

	// "e" between hundreds and the rest: "cento e vinte e três"
	if len(parts) > 1 && n/100 > 0 && rest > 0 {
		parts = append(parts[:1], append([]string{"e"}, parts[1:]...)...)
	}
	return strings.Join(parts, " ")
}
