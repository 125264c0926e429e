package playlist

import "github.com/streamvault/hlsfetch/internal/core/hlserr"

// Preference narrows variant selection by resolution and/or bandwidth.
// A zero value of either field means "unset".
type Preference struct {
	ResolutionHeight int // 0 means unset
	Bandwidth        int // 0 means unset
}

// SelectVariant applies spec.md §4.3's selection rules, in order:
//  1. preferred resolution: among variants with height <= pref (or no
//     resolution), pick the highest height, tie-break highest bandwidth,
//     then playlist order.
//  2. else preferred bandwidth: among variants with bandwidth <= pref, pick
//     the highest; if none qualify, pick the lowest-bandwidth variant overall.
//  3. else: highest bandwidth, ties broken by playlist order.
func SelectVariant(m *MasterPlaylist, pref Preference) (*Variant, error) {
	if m == nil || len(m.Variants) == 0 {
		return nil, hlserr.NewNoVariantError("")
	}

	if pref.ResolutionHeight > 0 {
		var best *Variant
		for i := range m.Variants {
			v := &m.Variants[i]
			if v.Resolution != nil && v.Resolution.Height > pref.ResolutionHeight {
				continue
			}
			if best == nil {
				best = v
				continue
			}
			bestHeight, vHeight := resolutionHeight(best), resolutionHeight(v)
			if vHeight > bestHeight || (vHeight == bestHeight && v.Bandwidth > best.Bandwidth) {
				best = v
			}
		}
		if best == nil {
			// Nothing qualifies under the cap: fall through to pure
			// highest-bandwidth selection rather than returning nothing.
			best = highestBandwidth(m.Variants)
		}
		return best, nil
	}

	if pref.Bandwidth > 0 {
		var best *Variant
		var lowest *Variant
		for i := range m.Variants {
			v := &m.Variants[i]
			if lowest == nil || v.Bandwidth < lowest.Bandwidth {
				lowest = v
			}
			if v.Bandwidth > pref.Bandwidth {
				continue
			}
			if best == nil || v.Bandwidth > best.Bandwidth {
				best = v
			}
		}
		if best == nil {
			return lowest, nil
		}
		return best, nil
	}

	return highestBandwidth(m.Variants), nil
}

func resolutionHeight(v *Variant) int {
	if v.Resolution == nil {
		return 0
	}
	return v.Resolution.Height
}

func highestBandwidth(variants []Variant) *Variant {
	best := &variants[0]
	for i := 1; i < len(variants); i++ {
		if variants[i].Bandwidth > best.Bandwidth {
			best = &variants[i]
		}
	}
	return best
}
