package retrieval

import (
	"testing"

	"flowstitch/internal/types"
)

func TestScoreTextWeighting(t *testing.T) {
	query := "order sync"

	phrase := ScoreText(query, "the order sync flow")
	terms := ScoreText(query, "sync every order nightly")
	substring := ScoreText(query, "reorder unsyncable items")
	nothing := ScoreText(query, "customer billing")

	if phrase <= terms {
		t.Errorf("phrase score %v not above term score %v", phrase, terms)
	}
	if terms <= substring {
		t.Errorf("term score %v not above substring score %v", terms, substring)
	}
	if substring <= 0 {
		t.Errorf("substring score = %v, want > 0", substring)
	}
	if nothing != 0 {
		t.Errorf("unrelated score = %v, want 0", nothing)
	}
}

func TestScoreTextEmptyInputs(t *testing.T) {
	if got := ScoreText("", "content"); got != 0 {
		t.Errorf("empty query score = %v, want 0", got)
	}
	if got := ScoreText("query", ""); got != 0 {
		t.Errorf("empty column score = %v, want 0", got)
	}
}

func TestScoreArtifactSumsColumns(t *testing.T) {
	a := types.Artifact{DocumentName: "order sync", Content: "order sync definition"}
	single := types.Artifact{DocumentName: "order sync"}

	if ScoreArtifact("order sync", a) <= ScoreArtifact("order sync", single) {
		t.Error("two matching columns did not outscore one")
	}
}

func TestRankArtifactsOrderAndTruncation(t *testing.T) {
	artifacts := []types.Artifact{
		{ID: "weak", DocumentName: "syncing tools", SimilarityScore: 0.1},
		{ID: "strong", DocumentName: "order sync", SimilarityScore: 0.2},
		{ID: "noise", DocumentName: "billing report", SimilarityScore: 0},
		{ID: "medium", DocumentName: "sync order nightly", SimilarityScore: 0.3},
	}

	ranked := RankArtifacts("order sync", artifacts, 2)

	if len(ranked) != 2 {
		t.Fatalf("len = %d, want truncation to 2", len(ranked))
	}
	if ranked[0].ID != "strong" {
		t.Errorf("top result = %q, want phrase match %q", ranked[0].ID, "strong")
	}
	for _, a := range ranked {
		if a.ID == "noise" {
			t.Error("zero-relevance zero-similarity row survived ranking")
		}
	}
}

func TestRankArtifactsTieBreaksOnSimilarity(t *testing.T) {
	artifacts := []types.Artifact{
		{ID: "low", DocumentName: "order sync", SimilarityScore: 0.2},
		{ID: "high", DocumentName: "order sync", SimilarityScore: 0.9},
	}
	ranked := RankArtifacts("order sync", artifacts, 0)
	if ranked[0].ID != "high" {
		t.Errorf("tie-break winner = %q, want higher-similarity %q", ranked[0].ID, "high")
	}
}
