package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

type answer struct {
	Answer       string `json:"answer"`
	DataSource   string `json:"data_source"`
	QuestionType string `json:"question_type"`
	RequestID    string `json:"request_id"`
	Error        string `json:"error"`
}

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}
	key := os.Getenv("API_KEY")
	client := &http.Client{Timeout: 60 * time.Second}

	// a question on the command line is asked once; otherwise prompt
	if len(os.Args) > 1 {
		ask(client, api, key, strings.Join(os.Args[1:], " "))
		return
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("Ask the clinic assistant (empty line to quit): ")
		raw, err := reader.ReadString('\n')
		q := strings.TrimSpace(raw)
		if q == "" {
			return
		}
		ask(client, api, key, q)
		if err != nil {
			return
		}
	}
}

func ask(client *http.Client, api, key, q string) {
	body, _ := json.Marshal(map[string]string{"question": q})
	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(api, "/")+"/genai", bytes.NewReader(body))
	if err != nil {
		fmt.Println("Invalid API_BASE:", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Println("Error contacting API:", err)
		return
	}
	defer resp.Body.Close()

	var a answer
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		fmt.Println("API returned status:", resp.Status)
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fmt.Printf("API returned %s: %s\n", resp.Status, a.Error)
		return
	}
	fmt.Printf("\n%s\n\n[%s via %s, request %s]\n\n", a.Answer, a.QuestionType, a.DataSource, a.RequestID)
}
