package ingest

import (
	"bytes"
	"math"
)

// delimiterCandidates are the separators MES exports are written with.
var delimiterCandidates = []rune{',', ';', '\t'}

const sniffBytes = 64 * 1024

// DetectDelimiter picks the candidate whose per-line count is most stable
// across the sample (lowest variance relative to its mean). Candidates that
// appear less than once per line are ignored; ties go to the candidate that
// splits lines into more fields. Defaults to ','.
func DetectDelimiter(data []byte) rune {
	sample := data
	if len(sample) > sniffBytes {
		sample = sample[:sniffBytes]
		if i := bytes.LastIndexByte(sample, '\n'); i > 0 {
			sample = sample[:i+1]
		}
	}

	best := ','
	bestScore := math.MaxFloat64
	bestMean := 0.0

	for _, delim := range delimiterCandidates {
		counts := countPerLine(sample, byte(delim))
		if len(counts) == 0 {
			continue
		}

		avg := mean(counts)
		if avg < 1 {
			continue
		}

		score := variance(counts) / avg
		if score < bestScore || (score == bestScore && avg > bestMean) {
			best, bestScore, bestMean = delim, score, avg
		}
	}
	return best
}

// countPerLine counts unquoted occurrences of delim on each non-empty line.
func countPerLine(sample []byte, delim byte) []int {
	var counts []int
	inQuote := false
	count, width := 0, 0

	for _, b := range sample {
		switch {
		case b == '"':
			inQuote = !inQuote
			width++
		case inQuote:
			width++
		case b == delim:
			count++
			width++
		case b == '\n':
			if width > 0 {
				counts = append(counts, count)
			}
			count, width = 0, 0
		case b != '\r':
			width++
		}
	}
	if width > 0 {
		counts = append(counts, count)
	}
	return counts
}

func mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

func variance(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := float64(v) - m
		sum += d * d
	}
	return sum / float64(len(values))
}
