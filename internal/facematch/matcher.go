package facematch

import (
	"math"

	"github.com/campusroll/rollcall/internal/app/models"
	"github.com/campusroll/rollcall/internal/pkg/apperrors"
)

// DefaultThreshold is the minimum cosine similarity for an identity match.
const DefaultThreshold = 0.6

// Match is a successful identity resolution against a roster.
type Match struct {
	Student    *models.Student
	Confidence float64
}

// Matcher compares a face descriptor against enrolled roster descriptors.
// It is stateless per call; the threshold is fixed at construction.
type Matcher struct {
	threshold float64
}

// NewMatcher creates a matcher with the given confidence threshold. A
// non-positive threshold falls back to DefaultThreshold.
func NewMatcher(threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{threshold: threshold}
}

// Threshold returns the configured confidence threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match finds the enrolled student whose descriptor is most similar to the
// sample. Students without descriptors are skipped. Returns ErrNoMatch when
// no candidate clears the threshold.
func (m *Matcher) Match(descriptor []float64, roster []*models.Student) (*Match, error) {
	if len(descriptor) == 0 {
		return nil, apperrors.ErrNoFaceDetected
	}

	var best *models.Student
	bestConfidence := 0.0

	for _, student := range roster {
		if !student.HasFaceDescriptor() {
			continue
		}

		similarity := CosineSimilarity(descriptor, student.FaceDescriptor)
		if similarity >= m.threshold && similarity > bestConfidence {
			bestConfidence = similarity
			best = student
		}
	}

	if best == nil {
		return nil, apperrors.ErrNoMatch
	}

	return &Match{Student: best, Confidence: clamp01(bestConfidence)}, nil
}

// CosineSimilarity computes the cosine similarity of two descriptors.
// Mismatched lengths or zero vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// clamp01 bounds confidence against floating-point drift before persistence.
func clamp01(v float64) float64 {
	return math.Min(1.0, math.Max(0.0, v))
}
