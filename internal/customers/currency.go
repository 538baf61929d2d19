package customers

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatCurrency renders amount with two decimals and the grouping rules of
// tag, prefixed by symbol. The locale is explicit; no process state is read.
func FormatCurrency(amount float64, tag language.Tag, symbol string) string {
	return symbol + message.NewPrinter(tag).Sprintf("%.2f", amount)
}
