package domain

import "strings"

// Address identifies an account: the administrator, a warehouse manager or a customer.
type Address string

func ParseAddress(s string) (Address, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return Address(s), true
}

func (a Address) String() string { return string(a) }

func (a Address) IsZero() bool { return a == "" }
