package cli

import (
	"strconv"
)

func itoa(n int) string {
	return strconv.Itoa(n)
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func boolString(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
