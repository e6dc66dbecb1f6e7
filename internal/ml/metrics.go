package ml

import (
	"fmt"
	"sort"
	"strings"
)

// Accuracy is the fraction of correct hard predictions.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue))
}

// Precision returns tp/(tp+fp) for the positive class, 0 when the
// denominator is zero.
func Precision(yTrue, yPred []int) float64 {
	tp, fp, _, _ := confusion(yTrue, yPred)
	if tp+fp == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fp)
}

// Recall returns tp/(tp+fn) for the positive class, 0 when the denominator
// is zero.
func Recall(yTrue, yPred []int) float64 {
	tp, _, fn, _ := confusion(yTrue, yPred)
	if tp+fn == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fn)
}

// F1 is the harmonic mean of precision and recall, 0 when both are zero.
func F1(yTrue, yPred []int) float64 {
	p := Precision(yTrue, yPred)
	r := Recall(yTrue, yPred)
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

func confusion(yTrue, yPred []int) (tp, fp, fn, tn int) {
	for i := range yTrue {
		switch {
		case yTrue[i] == 1 && yPred[i] == 1:
			tp++
		case yTrue[i] == 0 && yPred[i] == 1:
			fp++
		case yTrue[i] == 1 && yPred[i] == 0:
			fn++
		default:
			tn++
		}
	}
	return
}

// ROCAUC computes the area under the ROC curve using the rank statistic,
// averaging ranks across tied scores. When only one class is present the
// curve is undefined and 0 is returned, matching the zero-division policy of
// the other scores.
func ROCAUC(yTrue []int, scores []float64) float64 {
	n := len(yTrue)
	nPos := 0
	for _, y := range yTrue {
		nPos += y
	}
	nNeg := n - nPos
	if nPos == 0 || nNeg == 0 {
		return 0
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && scores[idx[j]] == scores[idx[i]] {
			j++
		}
		// Average rank for the tie group [i, j). Ranks are 1-based.
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}

	sumPos := 0.0
	for i, y := range yTrue {
		if y == 1 {
			sumPos += ranks[i]
		}
	}
	return (sumPos - float64(nPos)*float64(nPos+1)/2) / (float64(nPos) * float64(nNeg))
}

// AveragePrecision computes the area under the precision-recall curve as the
// weighted mean of precisions at each recall increment. Returns 0 when no
// positive labels exist.
func AveragePrecision(yTrue []int, scores []float64) float64 {
	nPos := 0
	for _, y := range yTrue {
		nPos += y
	}
	if nPos == 0 {
		return 0
	}

	idx := make([]int, len(yTrue))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })

	ap := 0.0
	tp, fp := 0, 0
	prevRecall := 0.0
	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && scores[idx[j]] == scores[idx[i]] {
			if yTrue[idx[j]] == 1 {
				tp++
			} else {
				fp++
			}
			j++
		}
		precision := float64(tp) / float64(tp+fp)
		recall := float64(tp) / float64(nPos)
		ap += (recall - prevRecall) * precision
		prevRecall = recall
		i = j
	}
	return ap
}

// ClassificationReport renders a per-class precision/recall/F1/support table
// in the familiar text layout, with three-digit scores.
func ClassificationReport(yTrue, yPred []int) string {
	tp, fp, fn, tn := confusion(yTrue, yPred)
	total := len(yTrue)
	support0 := tn + fp
	support1 := tp + fn

	p0, r0 := safeRatio(tn, tn+fn), safeRatio(tn, tn+fp)
	f0 := harmonic(p0, r0)
	p1, r1 := safeRatio(tp, tp+fp), safeRatio(tp, tp+fn)
	f1 := harmonic(p1, r1)

	acc := 0.0
	if total > 0 {
		acc = float64(tp+tn) / float64(total)
	}
	macroP, macroR, macroF := (p0+p1)/2, (r0+r1)/2, (f0+f1)/2
	var wP, wR, wF float64
	if total > 0 {
		w0 := float64(support0) / float64(total)
		w1 := float64(support1) / float64(total)
		wP = w0*p0 + w1*p1
		wR = w0*r0 + w1*r1
		wF = w0*f0 + w1*f1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%14s %9s %9s %9s %9s\n\n", "", "precision", "recall", "f1-score", "support")
	fmt.Fprintf(&b, "%14s %9.3f %9.3f %9.3f %9d\n", "0", p0, r0, f0, support0)
	fmt.Fprintf(&b, "%14s %9.3f %9.3f %9.3f %9d\n\n", "1", p1, r1, f1, support1)
	fmt.Fprintf(&b, "%14s %9s %9s %9.3f %9d\n", "accuracy", "", "", acc, total)
	fmt.Fprintf(&b, "%14s %9.3f %9.3f %9.3f %9d\n", "macro avg", macroP, macroR, macroF, total)
	fmt.Fprintf(&b, "%14s %9.3f %9.3f %9.3f %9d\n", "weighted avg", wP, wR, wF, total)
	return b.String()
}

func safeRatio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func harmonic(p, r float64) float64 {
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}
