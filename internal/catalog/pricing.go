package catalog

import "math"

// HasFixedPrice reports whether the service has a single price rather than
// a min/max range.
func (s *Service) HasFixedPrice() bool {
	return s.MinPrice == s.MaxPrice
}

// ResolvePrice computes the final booking price. Fixed-price services ignore
// any chosen price. Ranged services require an explicit choice equal to one
// of the two bounds. The discount is applied exactly once, here, and the
// result is rounded to the nearest whole currency unit. The returned price
// is stored on the appointment and never recomputed afterwards.
func ResolvePrice(s *Service, chosen *int64) (int64, error) {
	var base int64
	if s.HasFixedPrice() {
		base = s.MinPrice
	} else {
		if chosen == nil {
			return 0, ErrInvalidPriceSelection
		}
		if *chosen != s.MinPrice && *chosen != s.MaxPrice {
			return 0, ErrInvalidPriceSelection
		}
		base = *chosen
	}

	if s.DiscountPercent <= 0 {
		return base, nil
	}

	discounted := float64(base) * (1 - float64(s.DiscountPercent)/100)
	return int64(math.Round(discounted)), nil
}
