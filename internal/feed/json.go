package feed

import (
	"encoding/json"
	"fmt"
	"io"
)

// ReadSnapshot decodes a JSON snapshot. Unknown fields are rejected so typos
// in coupon definitions surface instead of silently dropping a constraint.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	var s Snapshot
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return s, nil
}

// ReadCoupons decodes a JSON array of coupons, or an object with a "coupons" field.
func ReadCoupons(r io.Reader) ([]CouponDTO, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read coupons: %w", err)
	}
	var list []CouponDTO
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Coupons []CouponDTO `json:"coupons"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode coupons: %w", err)
	}
	return wrapped.Coupons, nil
}
