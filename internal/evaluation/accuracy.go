package evaluation

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/KaramelBytes/estatefit-cli/internal/stats"
)

// Rating is a qualitative tier for a metric or the whole model.
type Rating string

const (
	Excellent  Rating = "excellent"
	VeryGood   Rating = "very good"
	Good       Rating = "good"
	Acceptable Rating = "acceptable"
)

// Stars renders a rating the way the console report shows it.
func (r Rating) Stars() string {
	switch r {
	case Excellent:
		return "★★★★★"
	case VeryGood:
		return "★★★★"
	case Good:
		return "★★★"
	default:
		return "★★"
	}
}

// RateR2 maps validation R² to a tier.
func RateR2(r2 float64) Rating {
	switch {
	case r2 >= 0.90:
		return Excellent
	case r2 >= 0.85:
		return VeryGood
	case r2 >= 0.80:
		return Good
	default:
		return Acceptable
	}
}

// RateMAEPercent maps MAE as a percent of the mean price to a tier.
func RateMAEPercent(pct float64) Rating {
	switch {
	case pct < 10:
		return Excellent
	case pct < 15:
		return VeryGood
	default:
		return Good
	}
}

// Grade is the overall verdict combining R² and MAE%.
func Grade(r2, maePct float64) Rating {
	switch {
	case r2 >= 0.85 && maePct < 15:
		return Excellent
	case r2 >= 0.80 && maePct < 20:
		return VeryGood
	default:
		return Good
	}
}

// SamplePrediction is one row of the sample table.
type SamplePrediction struct {
	Actual    float64
	Predicted float64
	Error     float64
	ErrorPct  float64
}

// ErrorStats summarises actual - predicted over the validation split.
type ErrorStats struct {
	Min    float64
	Max    float64
	Mean   float64
	Median float64
}

// Within counts predictions whose relative error is inside a tolerance.
type Within struct {
	Tolerance float64
	Count     int
	Percent   float64
}

// ModelInfo describes the verified model. Zero MaxDepth means unlimited,
// NJobs <= 0 means all CPUs and a negative SizeBytes means unknown.
type ModelInfo struct {
	Trees       int
	MaxDepth    int
	RandomState int64
	NJobs       int
	Numeric     int
	Categorical int
	TestSize    float64
	CVFolds     int
	SizeBytes   int64
}

// AccuracyReport is the model verification summary.
type AccuracyReport struct {
	Train        Metrics
	Validation   Metrics
	MeanPrice    float64
	MAEPercent   float64
	RMSEToMAE    float64
	R2Rating     Rating
	MAERating    Rating
	Consistent   bool
	Samples      []SamplePrediction
	Errors       ErrorStats
	Within       []Within
	OverallGrade Rating
	// Model is rendered when set.
	Model *ModelInfo
}

// Tolerances used for the within-percent counts.
var Tolerances = []float64{0.10, 0.15, 0.20}

// NewAccuracyReport builds the report from training and validation
// predictions. meanPrice is the mean target over the full dataset.
func NewAccuracyReport(trainTrue, trainPred, valTrue, valPred []float64, meanPrice float64) (*AccuracyReport, error) {
	tm, err := Summarize(trainTrue, trainPred)
	if err != nil {
		return nil, fmt.Errorf("training metrics: %w", err)
	}
	vm, err := Summarize(valTrue, valPred)
	if err != nil {
		return nil, fmt.Errorf("validation metrics: %w", err)
	}
	// A zero mean price or zero MAE yields Inf or NaN, which rate as the
	// lowest tier and the outlier branch.
	rep := &AccuracyReport{
		Train:      tm,
		Validation: vm,
		MeanPrice:  meanPrice,
		MAEPercent: vm.MAE / meanPrice * 100,
		RMSEToMAE:  vm.RMSE / vm.MAE,
	}
	rep.R2Rating = RateR2(vm.R2)
	rep.MAERating = RateMAEPercent(rep.MAEPercent)
	rep.Consistent = rep.RMSEToMAE < 1.3
	rep.OverallGrade = Grade(vm.R2, rep.MAEPercent)

	errs := make([]float64, len(valTrue))
	for i := range valTrue {
		errs[i] = valTrue[i] - valPred[i]
	}
	for i := 0; i < len(valTrue) && i < 10; i++ {
		rep.Samples = append(rep.Samples, SamplePrediction{
			Actual:    valTrue[i],
			Predicted: valPred[i],
			Error:     errs[i],
			ErrorPct:  relative(errs[i], valTrue[i]) * 100,
		})
	}
	sorted := stats.Sorted(errs)
	var sum float64
	for _, e := range errs {
		sum += e
	}
	rep.Errors = ErrorStats{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   sum / float64(len(errs)),
		Median: stats.Quantile(sorted, 0.5),
	}
	for _, tol := range Tolerances {
		n := 0
		for i := range errs {
			if math.Abs(relative(errs[i], valTrue[i])) <= tol {
				n++
			}
		}
		rep.Within = append(rep.Within, Within{
			Tolerance: tol,
			Count:     n,
			Percent:   float64(n) / float64(len(errs)) * 100,
		})
	}
	return rep, nil
}

// relative returns err/actual; a zero actual yields ±Inf or NaN and never
// counts as within tolerance.
func relative(err, actual float64) float64 {
	return err / actual
}

// Render writes the human-readable report.
func (r *AccuracyReport) Render(w io.Writer, currency string) {
	line := strings.Repeat("=", 70)
	money := func(v float64) string { return fmt.Sprintf("%s %s", FormatThousands(v, 2), currency) }

	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "MODEL PERFORMANCE METRICS")
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "\nTraining set:")
	fmt.Fprintf(w, "   MAE:  %s\n", money(r.Train.MAE))
	fmt.Fprintf(w, "   RMSE: %s\n", money(r.Train.RMSE))
	fmt.Fprintf(w, "   R²:   %.4f (%.2f%% variance explained)\n", r.Train.R2, r.Train.R2*100)
	fmt.Fprintln(w, "\nValidation set:")
	fmt.Fprintf(w, "   MAE:  %s\n", money(r.Validation.MAE))
	fmt.Fprintf(w, "   RMSE: %s\n", money(r.Validation.RMSE))
	fmt.Fprintf(w, "   R²:   %.4f (%.2f%% variance explained)\n", r.Validation.R2, r.Validation.R2*100)

	fmt.Fprintln(w, "\n"+line)
	fmt.Fprintln(w, "INTERPRETATION")
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "\nR²: %.4f -> %s %s\n", r.Validation.R2, r.R2Rating.Stars(), strings.ToUpper(string(r.R2Rating)))
	fmt.Fprintf(w, "MAE: ±%s (±%.1f%% of average price %s) -> %s %s\n",
		FormatThousands(r.Validation.MAE, 0), r.MAEPercent, FormatThousands(r.MeanPrice, 0),
		r.MAERating.Stars(), strings.ToUpper(string(r.MAERating)))
	if r.Consistent {
		fmt.Fprintf(w, "RMSE/MAE ratio: %.2f -> most errors are consistent\n", r.RMSEToMAE)
	} else {
		fmt.Fprintf(w, "RMSE/MAE ratio: %.2f -> some large outlier errors exist\n", r.RMSEToMAE)
	}

	fmt.Fprintln(w, "\n"+line)
	fmt.Fprintf(w, "SAMPLE PREDICTIONS (first %d from validation set)\n", len(r.Samples))
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "%4s %18s %18s %18s %9s\n", "", "Actual", "Predicted", "Error", "Error %")
	for i, s := range r.Samples {
		fmt.Fprintf(w, "%4d %18.2f %18.2f %18.2f %9.2f\n", i, s.Actual, s.Predicted, s.Error, s.ErrorPct)
	}

	fmt.Fprintln(w, "\n"+line)
	fmt.Fprintln(w, "ERROR STATISTICS")
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "   Min error:    %s (over-prediction)\n", money(r.Errors.Min))
	fmt.Fprintf(w, "   Max error:    %s (under-prediction)\n", money(r.Errors.Max))
	fmt.Fprintf(w, "   Mean error:   %s\n", money(r.Errors.Mean))
	fmt.Fprintf(w, "   Median error: %s\n", money(r.Errors.Median))
	fmt.Fprintln(w)
	for _, wi := range r.Within {
		fmt.Fprintf(w, "   Within ±%.0f%%: %s samples (%.1f%%)\n", wi.Tolerance*100, FormatThousands(float64(wi.Count), 0), wi.Percent)
	}

	if r.Model != nil {
		r.Model.render(w, line)
	}

	fmt.Fprintln(w, "\n"+line)
	fmt.Fprintf(w, "OVERALL GRADE: %s %s\n", r.OverallGrade.Stars(), strings.ToUpper(string(r.OverallGrade)))
	fmt.Fprintf(w, "Model explains %.1f%% of variance with ±%.1f%% average error.\n", r.Validation.R2*100, r.MAEPercent)
	fmt.Fprintln(w, line)
}

func (m *ModelInfo) render(w io.Writer, line string) {
	fmt.Fprintln(w, "\n"+line)
	fmt.Fprintln(w, "MODEL INFORMATION")
	fmt.Fprintln(w, line)
	depth := "unlimited"
	if m.MaxDepth > 0 {
		depth = fmt.Sprint(m.MaxDepth)
	}
	cores := "all available"
	if m.NJobs > 0 {
		cores = fmt.Sprint(m.NJobs)
	}
	fmt.Fprintln(w, "\nAlgorithm: random forest regressor")
	fmt.Fprintf(w, "   Number of trees: %d\n", m.Trees)
	fmt.Fprintf(w, "   Max depth:       %s\n", depth)
	fmt.Fprintf(w, "   Random state:    %d\n", m.RandomState)
	fmt.Fprintf(w, "   CPU cores:       %s\n", cores)
	if m.SizeBytes >= 0 {
		fmt.Fprintf(w, "   Model size:      %s\n", humanize.Bytes(uint64(m.SizeBytes)))
	}
	fmt.Fprintln(w, "\nPreprocessing:")
	fmt.Fprintf(w, "   Numerical features (%d): median imputation\n", m.Numeric)
	fmt.Fprintf(w, "   Categorical features (%d): most-frequent imputation + one-hot encoding\n", m.Categorical)
	fmt.Fprintln(w, "\nTraining approach:")
	fmt.Fprintf(w, "   Data split: %.0f%% train, %.0f%% validation\n", (1-m.TestSize)*100, m.TestSize*100)
	if m.CVFolds > 0 {
		fmt.Fprintf(w, "   Cross-validation: %d-fold\n", m.CVFolds)
	}
}

// FormatThousands formats v with the given decimals (0-9) and comma grouping.
func FormatThousands(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprintf("%v", v)
	}
	decimals = max(0, min(decimals, 9))
	return humanize.FormatFloat("#,###."+strings.Repeat("#", decimals), v)
}
