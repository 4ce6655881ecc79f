package helpers

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// kgPrinter groups digits the way the dashboard displays them
var kgPrinter = message.NewPrinter(language.English)

// FormatKg formats a harvest quantity with thousand separators, e.g. "1,610 kg"
func FormatKg(amount int) string {
	return kgPrinter.Sprintf("%d kg", amount)
}
