package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"medsearch/internal/model"
	"medsearch/internal/repository"
	"medsearch/internal/service"
)

func newIntentCmd() *cobra.Command {
	var rulesOnly bool

	cmd := &cobra.Command{
		Use:   "intent <text>",
		Short: "Print the search intent extracted from free text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")

			if rulesOnly {
				return printJSON(cmd.OutOrStdout(), service.NewRuleClassifier().Understand(text))
			}

			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.OpenAI.Timeout+5)*time.Second)
			defer cancel()

			client := service.NewOpenAIClient(&cfg.OpenAI, log)
			understanding := service.NewQueryUnderstanding(service.NewLLMClassifier(client, log), service.NewRuleClassifier(), log)
			return printJSON(cmd.OutOrStdout(), understanding.Understand(ctx, text, nil))
		},
	}
	cmd.Flags().BoolVar(&rulesOnly, "rules-only", false, "skip the LLM and use the keyword rules")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var (
		limit     int
		threshold float64
		followUp  string
	)

	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Run a conversational search against the configured database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			repo, err := repository.NewPostgresRepository(cfg.GetPostgreSQLDSN(), 2, 1)
			if err != nil {
				return fmt.Errorf("database connection: %w", err)
			}
			defer repo.Close()

			client := service.NewOpenAIClient(&cfg.OpenAI, log)
			svc := service.NewSearchService(
				service.NewQueryUnderstanding(service.NewLLMClassifier(client, log), service.NewRuleClassifier(), log),
				service.NewDispatcher(client, repo, cfg.Search, log),
				service.NewRanker(cfg.Ranking.WeightSimilarity, cfg.Ranking.WeightRating),
				nil,
				log,
			)

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Search.RequestTimeout)
			defer cancel()

			req := &model.ChatRequest{Message: strings.Join(args, " ")}
			if cmd.Flags().Changed("limit") {
				req.Limit = &limit
			}
			if cmd.Flags().Changed("threshold") {
				req.Threshold = &threshold
			}

			resp, err := svc.Chat(ctx, req)
			if err != nil {
				return err
			}
			if followUp != "" {
				next := resp.FollowUp(req.Message, followUp)
				next.Limit, next.Threshold = req.Limit, req.Threshold
				if resp, err = svc.Chat(ctx, next); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results")
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "minimum similarity between 0 and 1")
	cmd.Flags().StringVar(&followUp, "then", "", "follow-up message sent with the first turn as context")
	return cmd
}
