package ledger

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
)

// DefaultInvoiceNumberBase is the identifier the first invoice follows when no numeric identifier exists
const DefaultInvoiceNumberBase int64 = 1000

var leadingDigits = regexp.MustCompile(`\d+`)

// LeadingNumber extracts the first run of digits in an identifier.
// Identifiers without digits, or whose digits overflow int64, yield false.
func LeadingNumber(id string) (int64, bool) {
	run := leadingDigits.FindString(id)
	if run == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(run, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// NextInvoiceNumber returns one more than the largest numeric identifier among recent ones.
// When none of them carries a number the sequence continues from base.
// Once the largest number reaches math.MaxInt64 no greater identifier exists and an error is returned.
func NextInvoiceNumber(recent []string, base int64) (string, error) {
	highest, found := int64(0), false
	for _, id := range recent {
		if n, ok := LeadingNumber(id); ok && (!found || n > highest) {
			highest, found = n, true
		}
	}
	if !found {
		highest = base
	}
	if highest == math.MaxInt64 {
		return "", shared.NewDomainError(shared.CodeInvalidState,
			"Invoice identifier sequence is exhausted; supply an identifier explicitly")
	}
	return strconv.FormatInt(highest+1, 10), nil
}

// CompareInvoiceNumbers orders identifiers numerically when both carry a number,
// lexically otherwise.
func CompareInvoiceNumbers(a, b string) int {
	na, okA := LeadingNumber(a)
	nb, okB := LeadingNumber(b)
	if okA && okB && na != nb {
		if na < nb {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
