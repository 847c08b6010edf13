package receipt

import (
	"fmt"
	"strings"
)

var (
	ones = []string{"", "One", "Two", "Three", "Four", "Five", "Six", "Seven",
		"Eight", "Nine", "Ten", "Eleven", "Twelve", "Thirteen", "Fourteen",
		"Fifteen", "Sixteen", "Seventeen", "Eighteen", "Nineteen"}
	tens = []string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty",
		"Seventy", "Eighty", "Ninety"}
)

// AmountInWords spells out a paise amount in Indian numbering
// (crore/lakh), e.g. 125000 -> "One Thousand Two Hundred Fifty Rupees Only".
func AmountInWords(paise int64) string {
	if paise < 0 {
		return ""
	}
	rupees := paise / 100
	p := paise % 100

	var parts []string
	if rupees == 0 {
		parts = append(parts, "Zero Rupees")
	} else {
		parts = append(parts, spell(rupees), "Rupees")
	}
	if p > 0 {
		parts = append(parts, "and", belowHundred(p), "Paise")
	}
	parts = append(parts, "Only")
	return strings.Join(parts, " ")
}

func spell(n int64) string {
	var parts []string
	appendUnit := func(value int64, unit string) {
		if n >= value {
			parts = append(parts, spellBelowThousand(n/value), unit)
			n %= value
		}
	}
	appendUnit(1_00_00_000, "Crore")
	appendUnit(1_00_000, "Lakh")
	appendUnit(1_000, "Thousand")
	if n > 0 {
		parts = append(parts, spellBelowThousand(n))
	}
	return strings.Join(parts, " ")
}

func spellBelowThousand(n int64) string {
	if n >= 100 {
		rest := n % 100
		if rest == 0 {
			return fmt.Sprintf("%s Hundred", ones[n/100])
		}
		return fmt.Sprintf("%s Hundred %s", ones[n/100], belowHundred(rest))
	}
	return belowHundred(n)
}

func belowHundred(n int64) string {
	if n < 20 {
		return ones[n]
	}
	if n%10 == 0 {
		return tens[n/10]
	}
	return fmt.Sprintf("%s %s", tens[n/10], ones[n%10])
}
