package compare

import (
	"fmt"

	"github.com/c2h5oh/datasize"

	"github.com/vjranagit/memtrend/pkg/series"
	"github.com/vjranagit/memtrend/pkg/trend"
)

// InsufficientDataError reports a comparison input with no samples.
// Comparison needs a defined baseline on each side, so an empty series
// is rejected.
type InsufficientDataError struct {
	Label string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("series %q has no samples to compare", e.Label)
}

// Report packages the outcome of contrasting two series. Growth
// figures are in bytes: GrowthA and GrowthB are each side's final
// baseline-zero value, GrowthDifference is GrowthA minus GrowthB.
type Report struct {
	SeriesA          *series.Series `json:"series_a"`
	SeriesB          *series.Series `json:"series_b"`
	TrendA           trend.Result   `json:"trend_a"`
	TrendB           trend.Result   `json:"trend_b"`
	GrowthA          float64        `json:"growth_a"`
	GrowthB          float64        `json:"growth_b"`
	GrowthDifference float64        `json:"growth_difference"`
	AnnotationText   string         `json:"annotation_text"`
}

// Curve is one side's renderable data: the baseline-zero points and
// the fitted line evaluated at the same elapsed values. The engine
// hands these to an external charting collaborator; it draws nothing
// itself.
type Curve struct {
	Label  string          `json:"label"`
	Points []series.Sample `json:"points"`
	Fitted []series.Sample `json:"fitted"`
	Slope  float64         `json:"slope"`
}

// Compare contrasts two closed series. Each side is normalized to a
// zero baseline by subtracting its own first value, which isolates
// growth from the absolute starting memory that differs run to run.
// Trends are fit on the normalized series. A side with no samples
// fails with an InsufficientDataError.
func Compare(a, b *series.Series) (*Report, error) {
	if a.Len() == 0 {
		return nil, &InsufficientDataError{Label: a.Label}
	}
	if b.Len() == 0 {
		return nil, &InsufficientDataError{Label: b.Label}
	}

	normA := normalize(a)
	normB := normalize(b)

	trendA := trend.Fit(normA)
	trendB := trend.Fit(normB)

	growthA := normA.Samples[normA.Len()-1].Value
	growthB := normB.Samples[normB.Len()-1].Value

	return &Report{
		SeriesA:          a,
		SeriesB:          b,
		TrendA:           trendA,
		TrendB:           trendB,
		GrowthA:          growthA,
		GrowthB:          growthB,
		GrowthDifference: growthA - growthB,
		AnnotationText:   annotate(a, b, growthA, growthB),
	}, nil
}

// Curves returns both sides' renderable data in report order
func (r *Report) Curves() [2]Curve {
	return [2]Curve{
		buildCurve(r.SeriesA, r.TrendA),
		buildCurve(r.SeriesB, r.TrendB),
	}
}

func buildCurve(s *series.Series, t trend.Result) Curve {
	norm := normalize(s)

	fitted := make([]series.Sample, norm.Len())
	for i, sample := range norm.Samples {
		fitted[i] = series.Sample{
			ElapsedSeconds: sample.ElapsedSeconds,
			Value:          t.At(sample.ElapsedSeconds),
		}
	}

	return Curve{
		Label:  s.Label,
		Points: norm.Samples,
		Fitted: fitted,
		Slope:  t.Slope,
	}
}

// normalize returns a copy of the series shifted so its first value
// is zero
func normalize(s *series.Series) *series.Series {
	base := s.Samples[0].Value

	samples := make([]series.Sample, len(s.Samples))
	for i, sample := range s.Samples {
		samples[i] = series.Sample{
			ElapsedSeconds: sample.ElapsedSeconds,
			Value:          sample.Value - base,
		}
	}
	return series.NewClosed(s.Label, samples)
}

// annotate renders the fixed statistics block handed to external
// renderers. Initial and final are the raw values; growth and the
// difference come from the normalized curves. All figures in MB to
// two decimals.
func annotate(a, b *series.Series, growthA, growthB float64) string {
	return fmt.Sprintf(
		"%s:\n  Initial: %.2f MB\n  Final: %.2f MB\n  Growth: %.2f MB\n\n"+
			"%s:\n  Initial: %.2f MB\n  Final: %.2f MB\n  Growth: %.2f MB\n\n"+
			"Difference: %.2f MB",
		a.Label, toMB(a.Samples[0].Value), toMB(a.Samples[a.Len()-1].Value), toMB(growthA),
		b.Label, toMB(b.Samples[0].Value), toMB(b.Samples[b.Len()-1].Value), toMB(growthB),
		toMB(growthA-growthB),
	)
}

// toMB converts raw bytes to megabytes for presentation. Division
// rather than datasize.ByteSize keeps negative growth representable.
func toMB(bytes float64) float64 {
	return bytes / float64(datasize.MB)
}
