package service

import (
	"errors"
	"testing"

	"peer-jury/internal/config"
)

func testJuryConfig() *config.JuryConfig {
	return &config.JuryConfig{DefaultSize: 5, MaxSize: 20}
}

// Score validation rejects before any repository access, so a zero-value
// service is enough here.
func TestSubmitEvaluationScoreValidation(t *testing.T) {
	svc := &EvaluationService{}

	tests := []struct {
		name  string
		score float64
	}{
		{"below minimum", 0},
		{"above maximum", 11},
		{"negative", -3},
		{"too many decimals", 7.125},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitEvaluation(1, 1, tt.score, "")
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Expected ErrValidation for score %v, got %v", tt.score, err)
			}
		})
	}
}

func TestJurySizeValidation(t *testing.T) {
	svc := &JuryService{
		juryConfig: testJuryConfig(),
	}

	if _, err := svc.SelectJury(1, 1, -1); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for negative jury size, got %v", err)
	}

	if _, err := svc.SelectJury(1, 1, 21); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for jury size above the maximum, got %v", err)
	}
}
