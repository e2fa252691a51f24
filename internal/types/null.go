package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// NullFloat is a float that may be absent. The zero value is absent.
type NullFloat struct {
	Value float64
	Valid bool
}

func Float(v float64) NullFloat { return NullFloat{Value: v, Valid: true} }

func (n NullFloat) Get() (float64, bool) { return n.Value, n.Valid }

func (n NullFloat) String() string {
	if !n.Valid {
		return "null"
	}
	return strconv.FormatFloat(n.Value, 'f', 2, 64)
}

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

func (n *NullFloat) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Float(v)
	return nil
}

// ParseNullable parses a numeric cell, treating "", "null", "nan" and "none" as absent.
func ParseNullable(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "nan", "none", "undefined":
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}
