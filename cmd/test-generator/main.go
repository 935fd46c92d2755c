package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"txtforge/internal/config"
	"txtforge/internal/generator"
	"txtforge/internal/openrouter"
	"txtforge/pkg/logger"
)

const defaultPrompt = `Придумай короткий смешной анекдот про Штирлица. Seed: {{currentTimestamp}}.
Ответь JSON-объектом вида {"content": "...", "seo": {"title": "...", "description": "...", "keywords": "...", "tags": ["..."]}}.`

func main() {
	model := flag.String("model", "openai/gpt-4o-mini", "OpenRouter model id")
	prompt := flag.String("prompt", defaultPrompt, "prompt template")
	flag.Parse()

	logger.Init("debug", nil)

	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: OPENROUTER_API_KEY environment variable is required")
		os.Exit(1)
	}

	fmt.Println("=== Testing Generator ===")
	fmt.Println()

	client := openrouter.New(config.OpenRouterConfig{
		BaseURL: "https://openrouter.ai/api/v1",
		Title:   "TxtForge",
		Timeout: 2 * time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	filled := generator.FillPrompt(*prompt, time.Now())
	fmt.Printf("Model: %s\n", *model)
	fmt.Printf("Prompt: %s\n\n", filled)

	text, err := client.Complete(ctx, apiKey, *model, filled)
	if err != nil {
		logger.Error("Completion error", logger.Err(err))
		os.Exit(1)
	}

	gen, err := generator.ParseGenerated(text)
	if err != nil {
		logger.Error("Parse error", logger.Err(err), logger.String("raw", text))
		os.Exit(1)
	}

	fmt.Printf("✓ Content:\n%s\n\n", gen.Content)
	fmt.Printf("  SEO title: %s\n", gen.SEO.Title)
	fmt.Printf("  SEO description: %s\n", gen.SEO.Description)
	fmt.Printf("  SEO keywords: %s\n", gen.SEO.Keywords)
	fmt.Printf("  Tags: %s\n", strings.Join(gen.SEO.Tags, ", "))

	fmt.Println()
	fmt.Println("=== Test Complete ===")
}
