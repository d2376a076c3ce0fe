package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chat-bridge/internal/client"
	"chat-bridge/internal/infrastructure/env"
	"chat-bridge/internal/infrastructure/userinteraction"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

func main() {
	envService := env.NewEnvService()

	console := userinteraction.NewConsole()

	question, err := console.AskQuestion("Enter a question for the chat site:")
	if err != nil {
		console.ShowError("Failed to read input", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), envService.GetDuration("ASK_TIMEOUT", 15*time.Minute))
	defer cancel()

	baseURL := envService.GetWithDefault("BRIDGE_URL", "http://127.0.0.1:5000")
	var asker client.Asker = client.New(baseURL)
	if envService.GetBool("ASK_OPENAI", false) {
		asker = client.NewCompatClient(client.CompatConfig{BaseURL: baseURL})
	}
	model := client.NewLLM(asker)

	console.ShowWaiting("Waiting for " + baseURL)
	start := time.Now()

	var answer string
	if imagePath := envService.Get("ASK_IMAGE"); imagePath != "" {
		answer, err = askWithImage(ctx, model, question, imagePath)
	} else {
		answer, err = llms.GenerateFromSinglePrompt(ctx, model, question)
	}
	if err != nil {
		if client.IsBusy(err) {
			console.ShowError("The bridge is busy with another question, try again shortly", err)
			os.Exit(2)
		}
		console.ShowError("Request failed", err)
		os.Exit(1)
	}

	console.ShowAnswer(answer, time.Since(start))
}

func askWithImage(ctx context.Context, model llms.Model, question, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	resp, err := model.GenerateContent(ctx, []llms.MessageContent{{
		Role: schema.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.TextContent{Text: question},
			llms.ImageURLContent{URL: "data:" + mimeType(path) + ";base64," + base64.StdEncoding.EncodeToString(data)},
		},
	}})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response")
	}
	return resp.Choices[0].Content, nil
}

func mimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
