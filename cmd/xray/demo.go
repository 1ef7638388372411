package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/domain"
	"github.com/agenttrace/xray/internal/registry"
	"github.com/agenttrace/xray/internal/tracer"
)

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Print the built-in demonstration trace",
		Long: `Demo records a competitor selection trace by hand, without a reasoner:
keyword generation followed by a price filter that accepts one candidate
and rejects the other.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := registry.New()
			if _, err := recordDemo(tracer.New(reg, tracer.WithLogger(zap.NewNop()))); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), reg.List())
		},
	}
}

// recordDemo records the demonstration execution and returns its id
func recordDemo(tr *tracer.Tracer) (string, error) {
	executionID := tr.StartExecution("competitor_selection_demo", map[string]any{
		"referenceProduct": "Stainless Steel Water Bottle 32oz",
	})

	keywords, err := tr.StartStep("keyword_generation", "generation", map[string]any{
		"title": "Stainless Steel Water Bottle 32oz",
	})
	if err != nil {
		return "", err
	}
	keywords.SetOutput(map[string]any{
		"keywords": []string{"stainless steel water bottle", "insulated water bottle 32oz"},
	})
	keywords.SetReasoning("Extracted material, product type, and size from title")
	if err := tr.EndStep(keywords); err != nil {
		return "", err
	}

	prices, err := tr.StartStep("price_filter", "apply_filter", map[string]any{"priceRange": "$15 - $50"})
	if err != nil {
		return "", err
	}
	hydro := prices.AddArtifact("HydroFlask 32oz", map[string]any{"price": 44.99, "rating": 4.5})
	if err := prices.EvaluateArtifact(hydro, []domain.CriterionResult{
		{Criterion: "price_range", Passed: true, Detail: "$44.99 is within range"},
	}); err != nil {
		return "", err
	}
	generic := prices.AddArtifact("Generic Bottle", map[string]any{"price": 8.99, "rating": 3.2})
	if err := prices.EvaluateArtifact(generic, []domain.CriterionResult{
		{Criterion: "price_range", Passed: false, Detail: "$8.99 is below minimum $15"},
	}); err != nil {
		return "", err
	}
	prices.SetOutput(map[string]any{"passed": 1, "failed": 1})
	prices.SetReasoning("Applied price threshold to remove low-priced products")
	if err := tr.EndStep(prices); err != nil {
		return "", err
	}

	tr.EndExecution()
	return executionID, nil
}
