package domain

import (
	"strings"
	"time"
)

// Region identifies one of the tracked body regions used for fit scoring.
type Region string

const (
	// RegionShoulders covers the shoulder width measurement.
	RegionShoulders Region = "shoulders"
	// RegionBust covers the bust circumference measurement.
	RegionBust Region = "bust"
	// RegionWaist covers the waist circumference measurement.
	RegionWaist Region = "waist"
	// RegionHips covers the hip circumference measurement.
	RegionHips Region = "hips"
	// RegionLength covers the garment/body length measurement.
	RegionLength Region = "length"
)

// TrackedRegions returns the five regions participating in fit scoring, in display order.
func TrackedRegions() []Region {
	return []Region{RegionShoulders, RegionBust, RegionWaist, RegionHips, RegionLength}
}

// MeasurementSet maps body regions to centimetre values. Absent regions are
// skipped during scoring, never defaulted to zero.
type MeasurementSet map[Region]float64

// Clone returns an independent copy of the measurement set.
func (m MeasurementSet) Clone() MeasurementSet {
	if m == nil {
		return nil
	}
	out := make(MeasurementSet, len(m))
	for region, value := range m {
		out[region] = value
	}
	return out
}

// Value returns the measurement for the region. A missing or non-positive
// entry reports ok=false so callers treat it as absent.
func (m MeasurementSet) Value(region Region) (float64, bool) {
	if m == nil {
		return 0, false
	}
	value, ok := m[region]
	if !ok || value <= 0 {
		return 0, false
	}
	return value, true
}

// Merge overlays the override set on top of the receiver, override winning per region.
func (m MeasurementSet) Merge(override MeasurementSet) MeasurementSet {
	merged := m.Clone()
	if merged == nil {
		merged = make(MeasurementSet, len(override))
	}
	for region, value := range override {
		merged[region] = value
	}
	return merged
}

// Size is an ordered garment size token.
type Size string

const (
	SizeXS  Size = "XS"
	SizeS   Size = "S"
	SizeM   Size = "M"
	SizeL   Size = "L"
	SizeXL  Size = "XL"
	SizeXXL Size = "XXL"
)

var sizeOrder = []Size{SizeXS, SizeS, SizeM, SizeL, SizeXL, SizeXXL}

// SizeOrder returns the ordered size enumeration XS..XXL.
func SizeOrder() []Size {
	out := make([]Size, len(sizeOrder))
	copy(out, sizeOrder)
	return out
}

// ParseSize normalises a size token, reporting ok=false for unknown tokens.
func ParseSize(value string) (Size, bool) {
	candidate := Size(strings.ToUpper(strings.TrimSpace(value)))
	for _, size := range sizeOrder {
		if size == candidate {
			return size, true
		}
	}
	return "", false
}

// IsValid reports whether the size belongs to the ordered enumeration.
func (s Size) IsValid() bool {
	_, ok := ParseSize(string(s))
	return ok
}

// Larger returns the next larger size, clamped at XXL.
func (s Size) Larger() Size {
	for idx, size := range sizeOrder {
		if size == s {
			if idx+1 < len(sizeOrder) {
				return sizeOrder[idx+1]
			}
			return size
		}
	}
	return s
}

// Smaller returns the next smaller size, clamped at XS.
func (s Size) Smaller() Size {
	for idx, size := range sizeOrder {
		if size == s {
			if idx > 0 {
				return sizeOrder[idx-1]
			}
			return size
		}
	}
	return s
}

// SizeRecommendationCustom marks made-to-measure results that carry no catalog size.
const SizeRecommendationCustom = "Custom"

// CatalogFit is the categorical verdict vocabulary of the catalog scoring path.
type CatalogFit string

const (
	// CatalogFitPoor is reported for scores below 70.
	CatalogFitPoor CatalogFit = "poor"
	// CatalogFitTight is reported for scores in [70,80).
	CatalogFitTight CatalogFit = "tight"
	// CatalogFitGood is reported for scores in [80,90).
	CatalogFitGood CatalogFit = "good"
	// CatalogFitPerfect is reported for scores of 90 and above.
	CatalogFitPerfect CatalogFit = "perfect"
	// CatalogFitStandard is only used by the default result when inputs are missing.
	CatalogFitStandard CatalogFit = "Standard"
)

// CustomFit is the categorical verdict vocabulary of the made-to-measure path.
// It deliberately differs from CatalogFit; the two are never unified.
type CustomFit string

const (
	// CustomFitTight is reported for scores below 40.
	CustomFitTight CustomFit = "Tight"
	// CustomFitStandard is reported for scores in [40,80].
	CustomFitStandard CustomFit = "Standard"
	// CustomFitLoose is reported for scores above 80.
	CustomFitLoose CustomFit = "Loose"
	// CustomFitPerfect is only used by the default result when inputs are missing.
	CustomFitPerfect CustomFit = "Perfect"
)

// CatalogFittingResult is the immutable outcome of scoring a catalog garment.
type CatalogFittingResult struct {
	Fit                CatalogFit
	SizeRecommendation Size
	FitScore           int
	FitDetails         map[Region]string
}

// CustomFittingResult is the immutable outcome of scoring a made-to-measure design.
type CustomFittingResult struct {
	Fit                CustomFit
	SizeRecommendation string
	FitScore           int
	FitDetails         map[Region]string
}

// FittingSource discriminates the scoring path a try-on record came from.
type FittingSource string

const (
	// FittingSourceCatalog marks records produced by the catalog scoring path.
	FittingSourceCatalog FittingSource = "catalog"
	// FittingSourceCustom marks records produced by the made-to-measure path.
	FittingSourceCustom FittingSource = "custom"
)

// TryOn is a persisted try-on history entry. Records are append-only and are
// never recomputed or edited after creation.
type TryOn struct {
	ID                 string
	UserID             string
	Source             FittingSource
	ProductID          string
	DesignID           string
	SelectedSize       Size
	Fit                string
	SizeRecommendation string
	FitScore           int
	FitDetails         map[Region]string
	CreatedAt          time.Time
}
