package evaluation

// SubServiceRecall computes the fraction of expected sub-services present in
// the predicted set. Returns 1.0 when nothing was expected: predicting extra
// sub-services is not penalized here.
func SubServiceRecall(expected, predicted []string) float64 {
	if len(expected) == 0 {
		return 1.0
	}

	predictedSet := make(map[string]struct{}, len(predicted))
	for _, p := range predicted {
		predictedSet[p] = struct{}{}
	}

	found := 0
	for _, e := range expected {
		if _, ok := predictedSet[e]; ok {
			found++
		}
	}

	return float64(found) / float64(len(expected))
}

// Accuracy computes the fraction of correct predictions.
func Accuracy(correct, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(correct) / float64(total)
}
