// Command weatherctl is the interactive client: it discovers the agent,
// then loops reading queries from the operator and rendering answers,
// streamed when the agent supports it.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nimbuslab/weatherbot/internal/a2a"
	"github.com/nimbuslab/weatherbot/internal/client"
	"github.com/nimbuslab/weatherbot/pkg/utils"
)

func main() {
	agentURL := flag.String("agent-url", "http://127.0.0.1:8000", "URL of the weather agent")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level := *logLevel
	if level == "" {
		level = utils.GetEnv("LOG_LEVEL", "warn")
	}
	if logLevelValue, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(logLevelValue)
	}

	ctx := context.Background()
	c := client.NewClient(*agentURL, nil, log)

	fmt.Println("Connecting to weather agent...")
	card, err := c.Discover(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Please make sure the agent server is running.")
		os.Exit(1)
	}

	fmt.Printf("Found: %s - %s\n", card.Name, card.Description)
	fmt.Printf("Streaming: %v\n\n", c.Streaming())
	fmt.Println("Ask about weather anywhere in the world. Type 'exit', 'quit' or 'q' to leave.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nWeather query: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			fmt.Println("Please enter a weather query.")
			continue
		}
		if isExitCommand(input) {
			break
		}

		if c.Streaming() {
			runStreaming(ctx, c, input)
		} else {
			runBlocking(ctx, c, input)
		}
	}

	fmt.Println("\nGoodbye!")
}

func isExitCommand(input string) bool {
	switch input {
	case "exit", "quit", "q":
		return true
	}
	return false
}

// runBlocking issues a single call and renders the complete response.
// Errors are displayed and the session continues.
func runBlocking(ctx context.Context, c *client.Client, query string) {
	result, err := c.SendTask(ctx, query)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	if result.Failed() {
		fmt.Printf("Task failed: %s\n", result.Text)
		return
	}

	fmt.Printf("\n%s\n", result.Text)
}

// runStreaming renders each chunk as it arrives, in arrival order.
func runStreaming(ctx context.Context, c *client.Client, query string) {
	chunks, err := c.StreamTask(ctx, query)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	for chunk := range chunks {
		text := chunkText(chunk)

		switch {
		case chunk.Final && chunk.Status.State == a2a.TaskStateFailed:
			fmt.Printf("Task failed: %s\n", text)
		case chunk.Final:
			fmt.Printf("\n%s\n", text)
		default:
			fmt.Printf("... %s\n", text)
		}
	}
}

func chunkText(chunk a2a.TaskChunk) string {
	var texts []string
	for _, part := range chunk.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n")
}
