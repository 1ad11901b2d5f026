package invoice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jpcaldeira/escolar/core"
	"github.com/jpcaldeira/escolar/core/student"
)

const defaultPaymentMethod = "Dinheiro"

// Receipt is the printable payment receipt for a single invoice.
type Receipt struct {
	Invoice        Invoice         `json:"invoice"`
	Student        student.Student `json:"student"`
	AmountWords    string          `json:"amount_words"` // amount spelled out in Portuguese
	PaymentMethod  string          `json:"payment_method"`
	ReferenceMonth string          `json:"reference_month"` // MM/YYYY of the due date
	IssuedAt       time.Time       `json:"issued_at"`
}

func (svc *service) Receipt(ctx context.Context, id, paymentMethod string) (Receipt, error) {
	inv, err := svc.repo.GetInvoiceByID(ctx, id)
	if err != nil {
		return Receipt{}, err
	}
	std, err := svc.stdRepo.GetStudentByID(ctx, inv.StudentID)
	if err != nil {
		return Receipt{}, err
	}
	if paymentMethod = core.CleanString(paymentMethod); paymentMethod == "" {
		paymentMethod = defaultPaymentMethod
	}
	return buildReceipt(inv, std, paymentMethod), nil
}

func buildReceipt(inv Invoice, std student.Student, paymentMethod string) Receipt {
	year, month := inv.DueMonth()
	return Receipt{
		Invoice:        inv,
		Student:        std,
		AmountWords:    AmountInWords(inv.Amount),
		PaymentMethod:  paymentMethod,
		ReferenceMonth: fmt.Sprintf("%02d/%d", month, year),
		IssuedAt:       NowFunc().UTC(),
	}
}

// Render produces the text body of the receipt, as printed and emailed.
func (r Receipt) Render() string {
	b := new(strings.Builder)
	fmt.Fprintf(b, "RECIBO DE MENSALIDADE - %s\n\n", r.ReferenceMonth)
	fmt.Fprintf(b, "Aluno: %s\n", r.Student.Name)
	fmt.Fprintf(b, "Documento: %s\n", r.Student.Document)
	fmt.Fprintf(b, "Valor: R$ %s (%s)\n", r.Invoice.Amount.StringFixed(2), r.AmountWords)
	fmt.Fprintf(b, "Vencimento: %s\n", r.Invoice.DueDate.Format("02/01/2006"))
	if r.Invoice.PaymentDate.Valid {
		fmt.Fprintf(b, "Data de pagamento: %s\n", r.Invoice.PaymentDate.Time.Format("02/01/2006"))
	}
	fmt.Fprintf(b, "Forma de pagamento: %s\n", r.PaymentMethod)
	fmt.Fprintf(b, "\nEmitido em %s\n", r.IssuedAt.Format("02/01/2006 15:04"))
	return b.String()
}
