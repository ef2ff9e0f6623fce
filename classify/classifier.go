package classify

import "context"

// Features are the pollutant values a reading is classified from.
type Features struct {
	PM25 float64
	PM10 float64
	CO2  float64
	VOC  float64
}

// Category is the predicted air-quality label.
type Category string

const (
	Good      Category = "good"
	Moderate  Category = "moderate"
	Unhealthy Category = "unhealthy"
	Hazardous Category = "hazardous"
)

// Classifier predicts an air-quality category from reading features. The
// trained model is an external collaborator; BreakpointClassifier is the
// built-in fallback.
type Classifier interface {
	Classify(ctx context.Context, f Features) (Category, error)
}

// breakpoint holds per-pollutant category boundaries: below Moderate is good,
// below Unhealthy is moderate, below Hazardous is unhealthy.
type breakpoint struct {
	moderate  float64
	unhealthy float64
	hazardous float64
}

// BreakpointClassifier buckets each pollutant against fixed breakpoints and
// reports the worst bucket across pollutants.
type BreakpointClassifier struct {
	pm25 breakpoint
	pm10 breakpoint
	co2  breakpoint
	voc  breakpoint
}

// NewBreakpointClassifier returns a classifier with the default breakpoints.
func NewBreakpointClassifier() *BreakpointClassifier {
	return &BreakpointClassifier{
		pm25: breakpoint{moderate: 12, unhealthy: 35, hazardous: 150},
		pm10: breakpoint{moderate: 25, unhealthy: 50, hazardous: 250},
		co2:  breakpoint{moderate: 800, unhealthy: 1000, hazardous: 2500},
		voc:  breakpoint{moderate: 250, unhealthy: 500, hazardous: 2000},
	}
}

func (b breakpoint) bucket(v float64) int {
	switch {
	case v > b.hazardous:
		return 3
	case v > b.unhealthy:
		return 2
	case v > b.moderate:
		return 1
	default:
		return 0
	}
}

var categories = [4]Category{Good, Moderate, Unhealthy, Hazardous}

// Classify returns the worst per-pollutant bucket.
func (c *BreakpointClassifier) Classify(_ context.Context, f Features) (Category, error) {
	worst := c.pm25.bucket(f.PM25)
	if b := c.pm10.bucket(f.PM10); b > worst {
		worst = b
	}
	if b := c.co2.bucket(f.CO2); b > worst {
		worst = b
	}
	if b := c.voc.bucket(f.VOC); b > worst {
		worst = b
	}
	return categories[worst], nil
}
