// Package grading holds the pure scoring rules for option-choice exams.
// It has no storage dependency: callers hand it a minimal view of each
// question plus the selected options, and get back derived numbers.
package grading

// Q is a minimal view of a question needed for grading.
type Q struct {
	ID            string
	CorrectOption int
	Marks         int
}

// Outcome is the result of grading one submission.
type Outcome struct {
	Correct int
	Total   int
	Score   float64 // percentage, 0..100
}

// Grade counts how many selected options match the correct ones and derives
// the percentage score. Questions without a selection count as wrong.
func Grade(qs []Q, selections map[string]int) Outcome {
	out := Outcome{Total: len(qs)}
	for _, q := range qs {
		if sel, ok := selections[q.ID]; ok && sel == q.CorrectOption {
			out.Correct++
		}
	}
	out.Score = Percentage(out.Correct, out.Total)
	return out
}

// Percentage guards the zero-question exam: no questions means score 0,
// never a division fault.
func Percentage(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// TotalMarks is the sum of per-question marks, the exam's achievable total.
func TotalMarks(qs []Q) int {
	sum := 0
	for _, q := range qs {
		sum += q.Marks
	}
	return sum
}

// MarksEarned recomputes earned marks from the per-answer records. It is
// intentionally independent of any stored percentage score.
func MarksEarned(qs []Q, selections map[string]int) int {
	earned := 0
	for _, q := range qs {
		if sel, ok := selections[q.ID]; ok && sel == q.CorrectOption {
			earned += q.Marks
		}
	}
	return earned
}

// ValidOption reports whether a selected option is inside the 1..4 range.
func ValidOption(sel int) bool { return sel >= 1 && sel <= 4 }
