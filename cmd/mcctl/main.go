package main

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/faradayfan/minecraft-monitor/internal/api"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	baseURL := strings.TrimRight(getenvDefault("MONITOR_URL", "http://127.0.0.1:8000"), "/")
	client := &http.Client{Timeout: 90 * time.Second}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "players":
		var resp api.PlayersResponse
		doGET(client, baseURL+"/api/players", &resp)
		fmt.Printf("%s/%s online\n", resp.PlayerCount, resp.PlayerCountMax)
		for _, p := range resp.Players {
			fmt.Printf("  %s\n", p)
		}

	case "console":
		var resp api.ConsoleResponse
		doGET(client, baseURL+"/api/console", &resp)
		printConsole(resp.Chat)

	case "send":
		if len(args) == 0 {
			fmt.Println("send requires: <command...>")
			os.Exit(2)
		}
		// the endpoint turns underscores back into spaces
		command := strings.Join(args, "_")
		doGET(client, baseURL+"/api/send?"+command, nil)

	case "shutdown", "restart", "accept":
		doGET(client, baseURL+"/api/"+cmd, nil)

	default:
		fmt.Printf("unknown command: %s\n", cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println(strings.TrimSpace(`
Usage:
  mcctl players
  mcctl console
  mcctl send <command...>
  mcctl shutdown
  mcctl restart
  mcctl accept

Environment:
  MONITOR_URL=http://127.0.0.1:8000
`))
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// doGET fetches url and decodes the body into out when out is not nil.
func doGET(client *http.Client, url string, out any) {
	res, err := client.Get(url)
	if err != nil {
		fatal(err)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 400 {
		fmt.Printf("%s: %s\n", res.Status, strings.TrimSpace(string(body)))
		os.Exit(1)
	}
	if out == nil {
		fmt.Println(res.Status)
		return
	}
	if !strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") {
		// starting or eula page
		fmt.Printf("server is not ready (%s)\n", res.Header.Get("Content-Type"))
		os.Exit(1)
	}
	if err := json.Unmarshal(body, out); err != nil {
		fatal(fmt.Errorf("decode response: %w", err))
	}
}

// printConsole prints lines oldest first.
func printConsole(chat map[string]string) {
	type entry struct {
		seq  uint64
		line string
	}
	entries := make([]entry, 0, len(chat))
	for k, v := range chat {
		var seq uint64
		if _, err := fmt.Sscan(k, &seq); err != nil {
			continue
		}
		entries = append(entries, entry{seq, v})
	}
	slices.SortFunc(entries, func(a, b entry) int { return cmp.Compare(a.seq, b.seq) })
	for _, e := range entries {
		fmt.Println(e.line)
	}
}

func fatal(err error) {
	fmt.Printf("error: %v\n", err)
	os.Exit(1)
}
