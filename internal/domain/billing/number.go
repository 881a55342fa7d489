package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// invoiceNumberAttempts bounds how many fresh numbers CreateInvoice tries
// when the unique constraint rejects one.
const invoiceNumberAttempts = 5

// NewInvoiceNumber returns FAC-YYYYMMDD-XXXXXX where XXXXXX are the first
// six hex digits of a random UUID, upper-cased.
func NewInvoiceNumber(now time.Time) string {
	token := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return "FAC-" + now.Format("20060102") + "-" + token
}
