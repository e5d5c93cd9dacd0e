package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a money value that decodes from either a JSON number or a
// numeric string, as storefront forms submit both.
type Amount float64

// Float64 returns the amount as a float64.
func (a Amount) Float64() float64 {
	return float64(a)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*a = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("invalid amount %q", s)
		}
		*a = Amount(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	*a = Amount(f)
	return nil
}

// ProductRef is a product reference in a placement line. The storefront may
// send either the bare id or the expanded product object it rendered the
// cart from, in which case the id is taken from "_id" or "id".
type ProductRef string

// UnmarshalJSON implements json.Unmarshaler.
func (r *ProductRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			UnderscoreID string `json:"_id"`
			ID           string `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if obj.UnderscoreID != "" {
			*r = ProductRef(obj.UnderscoreID)
		} else {
			*r = ProductRef(obj.ID)
		}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid product reference: %w", err)
	}
	*r = ProductRef(s)
	return nil
}
