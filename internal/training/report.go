package training

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/mikey/nb-spam-filter/internal/bayes"
	"github.com/mikey/nb-spam-filter/internal/core"
	"github.com/mikey/nb-spam-filter/internal/features"
)

// ClassMetrics holds precision, recall and F1 for one label or an average row
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report summarises a model on held-out data. Confusion rows are the true label
// and columns the prediction, both ordered [ham, spam]: [[TN, FP], [FN, TP]].
type Report struct {
	Accuracy    float64        `json:"accuracy"`
	Confusion   [2][2]int      `json:"confusion_matrix"`
	Classes     []ClassMetrics `json:"classes"`
	MacroAvg    ClassMetrics   `json:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg"`
	Support     int            `json:"support"`
}

// Evaluate scores every vector and compares predictions with the true labels
func Evaluate(model *bayes.Model, vectors []features.Vector, labels []core.Label) (*Report, error) {
	if len(vectors) != len(labels) {
		return nil, fmt.Errorf("got %d vectors but %d labels", len(vectors), len(labels))
	}

	var confusion [2][2]int
	for i, v := range vectors {
		truth := labels[i].Index()
		if truth < 0 {
			return nil, fmt.Errorf("%w: %q at position %d", core.ErrUnknownLabel, labels[i], i)
		}
		predicted, err := model.Predict(v)
		if err != nil {
			return nil, fmt.Errorf("scoring example %d: %w", i, err)
		}
		confusion[truth][predicted.Index()]++
	}

	return newReport(confusion), nil
}

// newReport derives every metric from a confusion matrix
func newReport(confusion [2][2]int) *Report {
	r := &Report{Confusion: confusion}
	for _, row := range confusion {
		r.Support += row[0] + row[1]
	}

	correct := 0
	for c := range core.Labels {
		correct += r.Confusion[c][c]
	}
	r.Accuracy = ratio(correct, r.Support)

	for c, label := range core.Labels {
		tp := r.Confusion[c][c]
		predicted := r.Confusion[0][c] + r.Confusion[1][c]
		actual := r.Confusion[c][0] + r.Confusion[c][1]

		m := ClassMetrics{
			Label:     string(label),
			Precision: ratio(tp, predicted),
			Recall:    ratio(tp, actual),
			Support:   actual,
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.Classes = append(r.Classes, m)
	}

	r.MacroAvg = ClassMetrics{Label: "macro avg", Support: r.Support}
	r.WeightedAvg = ClassMetrics{Label: "weighted avg", Support: r.Support}
	for _, m := range r.Classes {
		n := float64(len(r.Classes))
		r.MacroAvg.Precision += m.Precision / n
		r.MacroAvg.Recall += m.Recall / n
		r.MacroAvg.F1 += m.F1 / n

		if r.Support > 0 {
			w := float64(m.Support) / float64(r.Support)
			r.WeightedAvg.Precision += m.Precision * w
			r.WeightedAvg.Recall += m.Recall * w
			r.WeightedAvg.F1 += m.F1 * w
		}
	}

	return r
}

// ratio returns 0 instead of dividing by zero
func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// String renders the report the way the training CLI prints it
func (r *Report) String() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Accuracy: %.4f\n\n", r.Accuracy)
	fmt.Fprintf(&buf, "Confusion matrix [ham, spam] (rows: true, cols: predicted):\n")
	fmt.Fprintf(&buf, "[[%d %d]\n [%d %d]]\n\n", r.Confusion[0][0], r.Confusion[0][1], r.Confusion[1][0], r.Confusion[1][1])

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"", "precision", "recall", "f1-score", "support"})
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	row := func(m ClassMetrics) []string {
		return []string{
			m.Label,
			strconv.FormatFloat(m.Precision, 'f', 4, 64),
			strconv.FormatFloat(m.Recall, 'f', 4, 64),
			strconv.FormatFloat(m.F1, 'f', 4, 64),
			strconv.Itoa(m.Support),
		}
	}
	for _, m := range r.Classes {
		table.Append(row(m))
	}
	table.Append(row(r.MacroAvg))
	table.Append(row(r.WeightedAvg))
	table.Render()

	return buf.String()
}
