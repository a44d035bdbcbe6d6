package risk

import (
	"testing"

	"compliance-service/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(nil)

	cases := []struct {
		country string
		want    string
	}{
		{"Canada", model.RiskLow},
		{"China", model.RiskHigh},
		{"china", model.RiskHigh},
		{"  CHINA  ", model.RiskHigh},
		{"China (mainland)", model.RiskHigh},
		{"North Korea", model.RiskHigh},
		{"France", model.RiskLow},
		{"", model.RiskLow},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, c.Classify(tc.country), "country %q", tc.country)
	}
}

func TestClassify_InjectedList(t *testing.T) {
	c := NewClassifier([]string{"Atlantis"})

	assert.Equal(t, model.RiskHigh, c.Classify("Atlantis"))
	// The injected list replaces the default entirely
	assert.Equal(t, model.RiskLow, c.Classify("China"))
}
