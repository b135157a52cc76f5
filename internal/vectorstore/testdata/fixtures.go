// Package testdata provides retrieval fixtures: questions, candidate
// documents and the order a lexical embedder should rank them in.
package testdata

import "fmt"

// RetrievalCase is one question with its candidate documents.
type RetrievalCase struct {
	Name      string
	Query     string
	Documents []Document
	// ExpectedRanking lists document IDs from most to least similar.
	ExpectedRanking []string
	// MinTopSimilarity is the lowest acceptable similarity for the first result.
	MinTopSimilarity float64
}

// Document is a candidate document.
type Document struct {
	ID      string
	Content string
}

// AllFixtures returns every retrieval case.
func AllFixtures() []RetrievalCase {
	return []RetrievalCase{
		CapitalQuestion(),
		APIKeyRotation(),
		UploadFormats(),
	}
}

// CapitalQuestion mirrors the example exchange used in the API docs.
func CapitalQuestion() RetrievalCase {
	return RetrievalCase{
		Name:  "capital_question",
		Query: "What is the capital of France?",
		Documents: []Document{
			{ID: "bread", Content: "Bread needs flour, water, salt and yeast."},
			{ID: "paris", Content: "The capital of France is Paris."},
			{ID: "berlin", Content: "Berlin is the capital city."},
		},
		ExpectedRanking:  []string{"paris", "berlin", "bread"},
		MinTopSimilarity: 0.8,
	}
}

// APIKeyRotation has a repeated term in the best match.
func APIKeyRotation() RetrievalCase {
	return RetrievalCase{
		Name:  "api_key_rotation",
		Query: "How do I rotate the API key?",
		Documents: []Document{
			{ID: "limits", Content: "The API rate limit is one hundred requests."},
			{ID: "garden", Content: "Tomatoes grow best in full sun."},
			{ID: "rotate", Content: "Rotate the API key from the admin console."},
		},
		ExpectedRanking:  []string{"rotate", "limits", "garden"},
		MinTopSimilarity: 0.5,
	}
}

// UploadFormats separates an answer from a document sharing one word.
func UploadFormats() RetrievalCase {
	return RetrievalCase{
		Name:  "upload_formats",
		Query: "Which file types can be uploaded?",
		Documents: []Document{
			{ID: "size", Content: "Uploads are limited to ten megabytes per file."},
			{ID: "formats", Content: "Text, markdown and PDF file types can be uploaded."},
		},
		ExpectedRanking:  []string{"formats", "size"},
		MinTopSimilarity: 0.6,
	}
}

// GetFixtureByName returns the named case, or nil.
func GetFixtureByName(name string) *RetrievalCase {
	for _, tc := range AllFixtures() {
		if tc.Name == name {
			return &tc
		}
	}
	return nil
}

// ValidateFixture checks that a case is internally consistent.
func ValidateFixture(tc RetrievalCase) error {
	if tc.Name == "" || tc.Query == "" {
		return fmt.Errorf("fixture needs a name and a query")
	}
	if len(tc.Documents) < 2 {
		return fmt.Errorf("fixture %s: need at least 2 documents, got %d", tc.Name, len(tc.Documents))
	}
	ids := make(map[string]bool, len(tc.Documents))
	for _, d := range tc.Documents {
		if d.ID == "" || d.Content == "" {
			return fmt.Errorf("fixture %s: documents need an id and content", tc.Name)
		}
		if ids[d.ID] {
			return fmt.Errorf("fixture %s: duplicate document id %q", tc.Name, d.ID)
		}
		ids[d.ID] = true
	}
	if len(tc.ExpectedRanking) != len(tc.Documents) {
		return fmt.Errorf("fixture %s: ranking has %d ids for %d documents", tc.Name, len(tc.ExpectedRanking), len(tc.Documents))
	}
	for _, id := range tc.ExpectedRanking {
		if !ids[id] {
			return fmt.Errorf("fixture %s: ranking references unknown id %q", tc.Name, id)
		}
	}
	if tc.MinTopSimilarity < 0 || tc.MinTopSimilarity > 1 {
		return fmt.Errorf("fixture %s: min top similarity %v outside [0,1]", tc.Name, tc.MinTopSimilarity)
	}
	return nil
}
