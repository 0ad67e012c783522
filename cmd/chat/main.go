package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"github.com/hackgods/appointment-assistant/internal/api"
	"github.com/hackgods/appointment-assistant/pkg/logging"
)

// chat is a terminal front-end for one assistant session. Replies stream in
// over the session websocket; /history re-renders the server transcript.

type frame struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func main() {
	_ = godotenv.Load()

	defaultAPI := os.Getenv("CHAT_API_BASE_URL")
	if defaultAPI == "" {
		defaultAPI = "http://localhost:8080"
	}
	apiURL := flag.String("api", defaultAPI, "api-server base URL")
	flag.Parse()

	logger := logging.NewWithWriter(os.Stderr, "warn")
	base := strings.TrimRight(*apiURL, "/")
	client := &http.Client{Timeout: 10 * time.Second}

	sessionID, err := createSession(client, base)
	if err != nil {
		logger.Error("create session", "error", err)
		os.Exit(1)
	}
	defer deleteSession(client, base, sessionID)

	conn, err := dial(base, sessionID)
	if err != nil {
		logger.Error("connect websocket", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	fmt.Println("Doctor appointment assistant. Type /history, /doctors or /quit.")
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nyou> ")
		if !in.Scan() {
			return
		}
		line := strings.TrimSpace(in.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return
		case "/history":
			if err := printHistory(client, base, sessionID, os.Stdout); err != nil {
				logger.Error("load history", "error", err)
			}
			continue
		case "/doctors":
			line = "Which doctors are available?"
		}

		if err := conn.WriteJSON(map[string]string{"type": "message", "text": line}); err != nil {
			logger.Error("send message", "error", err)
			return
		}
		fmt.Print("assistant> ")
		if err := streamReply(conn, os.Stdout); err != nil {
			logger.Error("read reply", "error", err)
			return
		}
	}
}

func createSession(client *http.Client, base string) (string, error) {
	resp, err := client.Post(base+"/sessions", "application/json", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create session: status %d", resp.StatusCode)
	}
	var out api.SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func deleteSession(client *http.Client, base, id string) {
	req, err := http.NewRequest(http.MethodDelete, base+"/sessions/"+id, nil)
	if err != nil {
		return
	}
	if resp, err := client.Do(req); err == nil {
		resp.Body.Close()
	}
}

func dial(base, sessionID string) (*websocket.Conn, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/sessions/" + sessionID + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	return conn, err
}

// streamReply prints token frames until the done or error frame.
func streamReply(conn *websocket.Conn, w io.Writer) error {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return err
		}
		switch f.Type {
		case "token":
			fmt.Fprint(w, f.Text)
		case "done":
			fmt.Fprintln(w)
			return nil
		case "error":
			fmt.Fprintf(w, "\n[error] %s\n", f.Message)
			if f.Code == "internal" {
				return errors.New(f.Message)
			}
			return nil
		}
	}
}

func printHistory(client *http.Client, base, sessionID string, w io.Writer) error {
	resp, err := client.Get(base + "/sessions/" + sessionID + "/transcript")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transcript: status %d", resp.StatusCode)
	}

	var tr api.TranscriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return err
	}
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, p := range tr.Pairs {
		fmt.Fprintf(w, "you> %s\nassistant> %s\n\n", p.Input, p.Output)
	}
	fmt.Fprintln(w, strings.Repeat("-", 60))
	return nil
}
