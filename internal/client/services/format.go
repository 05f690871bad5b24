package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Date layouts used when the server cannot format a date.
const (
	layoutLongEN   = "January 2, 2006"
	layoutShortEN  = "1/2/2006"
	layoutLongIntl = "2 January 2006"
	layoutShortISO = "2006-01-02"
)

// localCurrency renders amount with the currency symbol and the grouping
// and decimal marks of lang, e.g. "$1,234.50" for en and USD.
func localCurrency(lang string, amount float64, code string) string {
	unit, err := currency.ParseISO(strings.ToUpper(code))
	if err != nil {
		return fmt.Sprintf("%.2f %s", amount, code)
	}

	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)

	scale, _ := currency.Standard.Rounding(unit)
	pow := math.Pow10(scale)
	abs := math.Round(math.Abs(amount)*pow) / pow
	sign := ""
	if amount < 0 && abs != 0 {
		sign = "-"
	}
	return sign + p.Sprint(currency.Symbol(unit)) + p.Sprint(number.Decimal(abs, number.Scale(scale)))
}

// localDate renders t as a date only. formatType "long" spells the month
// out; anything else is numeric.
func localDate(lang string, t time.Time, formatType string) string {
	long := formatType == "long"
	base, _ := language.Make(lang).Base()

	switch {
	case base.String() == "en" && long:
		return t.Format(layoutLongEN)
	case base.String() == "en":
		return t.Format(layoutShortEN)
	case long:
		return t.Format(layoutLongIntl)
	default:
		return t.Format(layoutShortISO)
	}
}
