// Command notifywatch logs in, opens the realtime websocket and prints every
// frame it receives. It is a debugging aid for the push channel.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

type options struct {
	baseURL  string
	email    string
	password string
	token    string
	convIDs  []uint
	typing   bool
}

func main() {
	var opts options
	cmd := &cobra.Command{
		Use:          "notifywatch",
		Short:        "Stream realtime notifications for one account",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.baseURL, "url", "http://localhost:8375", "API base URL")
	f.StringVar(&opts.email, "email", "", "login email")
	f.StringVar(&opts.password, "password", os.Getenv("KINSHIP_PASSWORD"), "login password")
	f.StringVar(&opts.token, "token", os.Getenv("KINSHIP_TOKEN"), "access token; skips login")
	f.UintSliceVar(&opts.convIDs, "subscribe", nil, "extra conversation ids to subscribe to")
	f.BoolVar(&opts.typing, "typing", false, "send a typing frame to each subscribed conversation")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	token := opts.token
	if token == "" {
		var err error
		if token, err = login(ctx, opts.baseURL, opts.email, opts.password); err != nil {
			return err
		}
	}

	wsURL, err := websocketURL(opts.baseURL, token)
	if err != nil {
		return err
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			return fmt.Errorf("dial %s: %s: %s", redact(wsURL), resp.Status, strings.TrimSpace(string(body)))
		}
		return fmt.Errorf("dial %s: %w", redact(wsURL), err)
	}
	defer conn.Close()

	for _, id := range opts.convIDs {
		if err := conn.WriteJSON(map[string]any{"type": "subscribe", "conversation_id": id}); err != nil {
			return err
		}
		if opts.typing {
			if err := conn.WriteJSON(map[string]any{"type": "typing", "conversation_id": id, "is_typing": true}); err != nil {
				return err
			}
		}
	}

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		fmt.Fprintf(out, "%s %s\n", time.Now().Format(time.TimeOnly), raw)
	}
}

func login(ctx context.Context, baseURL, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", fmt.Errorf("--email and --password are required without --token")
	}
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var res struct {
		Token string `json:"token"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed: %s", res.Error)
	}
	return res.Token, nil
}

// websocketURL maps http(s)://host to ws(s)://host/api/ws?token=...
func websocketURL(baseURL, token string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	return u.String()
}
