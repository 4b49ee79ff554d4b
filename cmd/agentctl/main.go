// Command agentctl is a small terminal client for the agent gateway.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"ai-agent-gateway/internal/client"
)

func main() {
	baseURL := flag.String("gateway", "http://localhost:8080", "Agent gateway base URL")
	numResults := flag.Int("n", 5, "Number of search results")
	session := flag.Bool("session", false, "Use a server-side session for chat")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	c := client.New(*baseURL, 0)
	ctx := context.Background()

	var err error
	switch args[0] {
	case "status":
		err = runStatus(ctx, c)
	case "models":
		err = runModels(ctx, c)
	case "search":
		err = runSearch(ctx, c, strings.Join(args[1:], " "), *numResults)
	case "ask":
		err = runAsk(ctx, c, strings.Join(args[1:], " "))
	case "chat":
		err = runChat(ctx, c, *session)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: agentctl [flags] <command>

commands:
  status           probe the inference endpoint
  models           list available models
  search <query>   run a web search
  ask <query>      search and analyze the results
  chat             interactive chat (blank line to exit)`)
	flag.PrintDefaults()
}

func runStatus(ctx context.Context, c *client.Client) error {
	status, err := c.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("agent: %s\n", status.Status)
	if status.Detail != "" {
		fmt.Printf("detail: %s\n", status.Detail)
	}
	if len(status.AvailableModels) > 0 {
		fmt.Printf("models: %s\n", strings.Join(status.AvailableModels, ", "))
	}
	return nil
}

func runModels(ctx context.Context, c *client.Client) error {
	models, err := c.Models(ctx)
	if err != nil {
		return err
	}
	for _, m := range models {
		fmt.Println(m)
	}
	return nil
}

func runSearch(ctx context.Context, c *client.Client, query string, n int) error {
	resp, err := c.Search(ctx, query, n)
	if err != nil {
		return err
	}
	if resp.Degraded {
		fmt.Fprintln(os.Stderr, "(search provider unavailable, showing fallback results)")
	}
	for i, r := range resp.Results {
		fmt.Printf("%d. %s\n   %s\n   %s\n", i+1, r.Title, r.URL, r.Snippet)
	}
	return nil
}

func runAsk(ctx context.Context, c *client.Client, query string) error {
	resp, err := c.SearchAndAnalyze(ctx, query, "")
	if err != nil {
		return err
	}
	for i, r := range resp.SearchResults {
		fmt.Printf("%d. %s (%s)\n", i+1, r.Title, r.Source)
	}
	fmt.Println()
	fmt.Println(resp.Analysis)
	return nil
}

func runChat(ctx context.Context, c *client.Client, useSession bool) error {
	// Fresh probe per run; a cached health badge lies after restarts.
	if status, err := c.Status(ctx); err == nil && status.Status != "healthy" {
		fmt.Fprintf(os.Stderr, "(agent offline: %s)\n", status.Detail)
	}

	transcript := client.NewTranscript(c, "")
	if useSession {
		session, err := c.CreateSession(ctx)
		if err != nil {
			return err
		}
		transcript.BindSession(session.ID)
		fmt.Printf("(session %s)\n", session.ID)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			return nil
		}

		callCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		_, err := transcript.SendStream(callCtx, line, func(chunk string) {
			fmt.Print(chunk)
		})
		cancel()
		fmt.Println()
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
}
