package models

import (
	"regexp"
	"strconv"
)

// Installment is the "n of total" marker some descriptions carry, e.g. "Aluguel 3/12".
type Installment struct {
	N     int `json:"n"`
	Total int `json:"total"`
}

var installmentPattern = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:/|de|of)\s*(\d{1,3})\b`)

// ParseInstallment is best effort: anything it cannot read yields 1/1.
func ParseInstallment(description string) Installment {
	m := installmentPattern.FindStringSubmatch(description)
	if m == nil {
		return Installment{N: 1, Total: 1}
	}
	n, errN := strconv.Atoi(m[1])
	total, errT := strconv.Atoi(m[2])
	if errN != nil || errT != nil || n < 1 || total < 1 || n > total {
		return Installment{N: 1, Total: 1}
	}
	return Installment{N: n, Total: total}
}
