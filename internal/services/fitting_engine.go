package services

import (
	"math"

	domain "github.com/stylefit/api/internal/domain"
)

// Region weights for the catalog scoring blend. The waist/bust/hips trio
// dominates; shoulders and length refine. Constants are fixed product
// calibration values, not tunables.
var catalogRegionWeights = map[domain.Region]float64{
	domain.RegionShoulders: 0.15,
	domain.RegionBust:      0.25,
	domain.RegionWaist:     0.25,
	domain.RegionHips:      0.25,
	domain.RegionLength:    0.10,
}

const (
	// catalogRegionFloor is the lowest score a measured region can receive.
	// A total mismatch still counts as "some fit".
	catalogRegionFloor = 50.0
	// catalogPenaltySlope saturates the per-region penalty at a 20% relative difference.
	catalogPenaltySlope = 250.0
	// catalogNoDataScore is the overall score when no region has both sides measured.
	catalogNoDataScore = 85
	// catalogDefaultScore is the overall score of the degraded default result.
	catalogDefaultScore = 75

	customBaseScore    = 90.0
	customBustPenalty  = 0.3
	customWaistPenalty = 0.5
	// customDefaultScore is the score of the degraded default result on the
	// made-to-measure path.
	customDefaultScore = 95
	// customShoulderTolerance is the slack in centimetres before the shoulder
	// descriptor flips to tight or loose.
	customShoulderTolerance = 1.0
)

const (
	descriptorNoData        = "No data available"
	descriptorStandardFit   = "Standard fit"
	descriptorPerfectFit    = "Perfect fit"
	descriptorGoodFit       = "Good fit"
	descriptorAcceptable    = "Acceptable fit"
	descriptorSlightlyTight = "Slightly tight"
	descriptorTightFit      = "Tight fit"
	descriptorPoorFit       = "Poor fit"

	descriptorShouldersTight = "Slightly tight across shoulders"
	descriptorShouldersLoose = "Slightly loose on shoulders"
)

// DefaultCatalogFittingResult is the degraded result returned when the user
// profile or the product measurements are entirely absent. Callers are
// expected to log a warning when they receive it.
func DefaultCatalogFittingResult(selectedSize domain.Size) domain.CatalogFittingResult {
	size := selectedSize
	if !size.IsValid() {
		size = domain.SizeM
	}
	details := make(map[domain.Region]string, len(catalogRegionWeights))
	for _, region := range domain.TrackedRegions() {
		details[region] = descriptorStandardFit
	}
	return domain.CatalogFittingResult{
		Fit:                domain.CatalogFitStandard,
		SizeRecommendation: size,
		FitScore:           catalogDefaultScore,
		FitDetails:         details,
	}
}

// DefaultCustomFittingResult is the degraded result for the made-to-measure
// path when the user profile or the design specifications are absent.
func DefaultCustomFittingResult() domain.CustomFittingResult {
	details := make(map[domain.Region]string, len(catalogRegionWeights))
	for _, region := range domain.TrackedRegions() {
		details[region] = descriptorPerfectFit
	}
	return domain.CustomFittingResult{
		Fit:                domain.CustomFitPerfect,
		SizeRecommendation: domain.SizeRecommendationCustom,
		FitScore:           customDefaultScore,
		FitDetails:         details,
	}
}

// ScoreCatalogFit scores a catalog garment in the selected size against the
// user's body measurements. The boolean reports whether real scoring happened;
// false means one of the inputs was entirely absent and the default result was
// returned instead.
//
// The function is pure: no I/O, no clock, no shared state.
func ScoreCatalogFit(userMeasurements domain.MeasurementSet, product domain.Product, selectedSize domain.Size) (domain.CatalogFittingResult, bool) {
	garment := product.SizeMeasurements(selectedSize)
	if len(userMeasurements) == 0 || len(garment) == 0 {
		return DefaultCatalogFittingResult(selectedSize), false
	}

	details := make(map[domain.Region]string, len(catalogRegionWeights))
	weightedSum := 0.0
	weightUsed := 0.0
	anyDefined := false

	for _, region := range domain.TrackedRegions() {
		userValue, userOK := userMeasurements.Value(region)
		garmentValue, garmentOK := garment.Value(region)
		if !userOK || !garmentOK {
			details[region] = descriptorNoData
			continue
		}

		relativeDifference := math.Abs(userValue-garmentValue) / garmentValue
		regionScore := math.Round(math.Max(catalogRegionFloor, 100-relativeDifference*catalogPenaltySlope))

		details[region] = catalogRegionDescriptor(regionScore)
		weightedSum += regionScore * catalogRegionWeights[region]
		weightUsed += catalogRegionWeights[region]
		anyDefined = true
	}

	score := catalogNoDataScore
	if anyDefined {
		score = int(math.Round(weightedSum / weightUsed))
	}

	return domain.CatalogFittingResult{
		Fit:                catalogVerdict(score),
		SizeRecommendation: recommendSize(selectedSize, score),
		FitScore:           score,
		FitDetails:         details,
	}, true
}

// ScoreCustomDesignFit scores a made-to-measure design against the user's body
// measurements. Designs are assumed well-fitting by construction, so only bust
// and waist deltas adjust the score. The boolean reports whether real scoring
// happened.
func ScoreCustomDesignFit(userMeasurements domain.MeasurementSet, design domain.CustomDesign) (domain.CustomFittingResult, bool) {
	specs := design.DesignSpecifications
	if len(userMeasurements) == 0 || len(specs) == 0 {
		return DefaultCustomFittingResult(), false
	}

	score := customBaseScore
	if userBust, ok := userMeasurements.Value(domain.RegionBust); ok {
		if designBust, ok := specs.Value(domain.RegionBust); ok {
			score -= math.Abs(userBust-designBust) * customBustPenalty
		}
	}
	if userWaist, ok := userMeasurements.Value(domain.RegionWaist); ok {
		if designWaist, ok := specs.Value(domain.RegionWaist); ok {
			score -= math.Abs(userWaist-designWaist) * customWaistPenalty
		}
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	fitScore := int(math.Round(score))

	details := make(map[domain.Region]string, len(catalogRegionWeights))
	for _, region := range domain.TrackedRegions() {
		details[region] = descriptorPerfectFit
	}
	if userShoulders, ok := userMeasurements.Value(domain.RegionShoulders); ok {
		if designShoulders, ok := specs.Value(domain.RegionShoulders); ok {
			switch {
			case userShoulders > designShoulders+customShoulderTolerance:
				details[domain.RegionShoulders] = descriptorShouldersTight
			case userShoulders < designShoulders-customShoulderTolerance:
				details[domain.RegionShoulders] = descriptorShouldersLoose
			}
		}
	}

	return domain.CustomFittingResult{
		Fit:                customVerdict(fitScore),
		SizeRecommendation: domain.SizeRecommendationCustom,
		FitScore:           fitScore,
		FitDetails:         details,
	}, true
}

func catalogVerdict(score int) domain.CatalogFit {
	switch {
	case score < 70:
		return domain.CatalogFitPoor
	case score < 80:
		return domain.CatalogFitTight
	case score < 90:
		return domain.CatalogFitGood
	default:
		return domain.CatalogFitPerfect
	}
}

func customVerdict(score int) domain.CustomFit {
	switch {
	case score < 40:
		return domain.CustomFitTight
	case score > 80:
		return domain.CustomFitLoose
	default:
		return domain.CustomFitStandard
	}
}

// recommendSize nudges the selected size one step when the score signals a
// misfit. An exact 100 keeps the selected size: the garment already matches,
// so there is nothing to correct.
func recommendSize(selectedSize domain.Size, score int) domain.Size {
	size := selectedSize
	if !size.IsValid() {
		size = domain.SizeM
	}
	switch {
	case score < 75:
		return size.Larger()
	case score > 95 && score < 100:
		return size.Smaller()
	default:
		return size
	}
}

func catalogRegionDescriptor(regionScore float64) string {
	switch {
	case regionScore >= 95:
		return descriptorPerfectFit
	case regionScore >= 85:
		return descriptorGoodFit
	case regionScore >= 75:
		return descriptorAcceptable
	case regionScore >= 65:
		return descriptorSlightlyTight
	case regionScore >= 55:
		return descriptorTightFit
	default:
		return descriptorPoorFit
	}
}
