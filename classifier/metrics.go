package classifier

import (
	"fmt"
	"strings"
)

// ClassMetrics holds the per-class scores of a classification report.
type ClassMetrics struct {
	Name      string  `json:"name"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Averages holds averaged precision, recall and F1.
type Averages struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report is the evaluation of a classifier on held-out samples.
type Report struct {
	Accuracy    float64        `json:"accuracy"`
	Classes     []ClassMetrics `json:"classes"`
	MacroAvg    Averages       `json:"macro_avg"`
	WeightedAvg Averages       `json:"weighted_avg"`
	// Confusion[i][j] counts samples of true class i predicted as class j.
	Confusion [][]int `json:"confusion"`
	Support   int     `json:"support"`
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// Evaluate builds the classification report of predictions against truth.
// Undefined ratios (no predicted or no true samples of a class) are 0.
//
// Arguments:
//   - yTrue: The true labels.
//   - yPred: The predicted labels, same length as yTrue.
//   - classNames: The class names, indexed by label.
//
// Returns:
//   - *Report: The report.
func Evaluate(yTrue, yPred []int, classNames []string) *Report {
	k := len(classNames)
	confusion := make([][]int, k)
	for i := range confusion {
		confusion[i] = make([]int, k)
	}
	correct := 0
	for i, t := range yTrue {
		confusion[t][yPred[i]]++
		if t == yPred[i] {
			correct++
		}
	}

	r := &Report{
		Accuracy:  ratio(float64(correct), float64(len(yTrue))),
		Confusion: confusion,
		Support:   len(yTrue),
	}

	for c := 0; c < k; c++ {
		tp := float64(confusion[c][c])
		predicted, actual := 0, 0
		for o := 0; o < k; o++ {
			predicted += confusion[o][c]
			actual += confusion[c][o]
		}
		precision := ratio(tp, float64(predicted))
		recall := ratio(tp, float64(actual))
		m := ClassMetrics{
			Name:      classNames[c],
			Precision: precision,
			Recall:    recall,
			F1:        ratio(2*precision*recall, precision+recall),
			Support:   actual,
		}
		r.Classes = append(r.Classes, m)

		r.MacroAvg.Precision += m.Precision / float64(k)
		r.MacroAvg.Recall += m.Recall / float64(k)
		r.MacroAvg.F1 += m.F1 / float64(k)

		w := ratio(float64(actual), float64(len(yTrue)))
		r.WeightedAvg.Precision += m.Precision * w
		r.WeightedAvg.Recall += m.Recall * w
		r.WeightedAvg.F1 += m.F1 * w
	}
	r.MacroAvg.Support = len(yTrue)
	r.WeightedAvg.Support = len(yTrue)
	return r
}

// String renders the report as an aligned text table.
func (r *Report) String() string {
	width := len("weighted avg")
	for _, c := range r.Classes {
		width = max(width, len(c.Name))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	for _, c := range r.Classes {
		fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, c.Name, c.Precision, c.Recall, c.F1, c.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.Support)
	fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, "macro avg", r.MacroAvg.Precision, r.MacroAvg.Recall, r.MacroAvg.F1, r.MacroAvg.Support)
	fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, "weighted avg", r.WeightedAvg.Precision, r.WeightedAvg.Recall, r.WeightedAvg.F1, r.WeightedAvg.Support)
	return b.String()
}
