package testdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixtures(t *testing.T) {
	fixtures := AllFixtures()
	require.NotEmpty(t, fixtures)

	for _, fixture := range fixtures {
		t.Run(fixture.Name, func(t *testing.T) {
			assert.NoError(t, ValidateFixture(fixture))
		})
	}
}

func TestGetFixtureByName(t *testing.T) {
	fixture := GetFixtureByName("capital_question")
	require.NotNil(t, fixture)
	assert.Equal(t, "capital_question", fixture.Name)

	assert.Nil(t, GetFixtureByName("nope"))
}

func TestValidateFixture_Rejects(t *testing.T) {
	base := CapitalQuestion

	tests := []struct {
		name   string
		mutate func(*RetrievalCase)
	}{
		{"no query", func(tc *RetrievalCase) { tc.Query = "" }},
		{"one document", func(tc *RetrievalCase) { tc.Documents = tc.Documents[:1] }},
		{"duplicate id", func(tc *RetrievalCase) { tc.Documents[1].ID = tc.Documents[0].ID }},
		{"short ranking", func(tc *RetrievalCase) { tc.ExpectedRanking = tc.ExpectedRanking[:1] }},
		{"unknown id", func(tc *RetrievalCase) { tc.ExpectedRanking[0] = "missing" }},
		{"similarity above one", func(tc *RetrievalCase) { tc.MinTopSimilarity = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := base()
			tt.mutate(&tc)
			assert.Error(t, ValidateFixture(tc))
		})
	}
}
