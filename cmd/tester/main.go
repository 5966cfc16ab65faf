// Command tester drives a scenario against a running chat-relay server:
// N clients join one room, watch presence converge, then verify that a
// burst of messages arrives complete and in sequence order everywhere.
package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/olekukonko/tablewriter"

	"chat-relay/identity"
)

type serverEvent struct {
	Type    string   `json:"type"`
	Room    string   `json:"room,omitempty"`
	Online  []string `json:"online,omitempty"`
	Message *struct {
		Sender string `json:"sender"`
		Body   string `json:"body"`
		Seq    uint64 `json:"seq"`
	} `json:"message,omitempty"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

type clientEvent struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
	Name string `json:"name,omitempty"`
	Body string `json:"body,omitempty"`
}

// testClient records everything one connection observes.
type testClient struct {
	name string
	conn *websocket.Conn

	mu           sync.Mutex
	lastPresence []string
	messages     []serverEvent
	errors       []serverEvent
	done         chan struct{}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tester failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	if !cfg.Colours {
		color.Disable()
	}

	clients, err := connectAll(cfg)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range clients {
			_ = c.conn.Close()
		}
	}()

	for _, c := range clients {
		if err := c.write(clientEvent{Type: "join", Room: cfg.Room, Name: c.name}); err != nil {
			return fmt.Errorf("join failed for %s: %w", c.name, err)
		}
	}

	if !waitFor(cfg.Timeout, func() bool {
		for _, c := range clients {
			if len(c.presence()) != len(clients) {
				return false
			}
		}
		return true
	}) {
		color.Red.Println("presence never converged")
	}

	sender := clients[0]
	for i := 1; i <= cfg.Messages; i++ {
		body := "message-" + strconv.Itoa(i)
		if err := sender.write(clientEvent{Type: "send", Room: cfg.Room, Body: body}); err != nil {
			return fmt.Errorf("send failed: %w", err)
		}
	}

	waitFor(cfg.Timeout, func() bool {
		for _, c := range clients {
			if len(c.received()) < cfg.Messages {
				return false
			}
		}
		return true
	})

	return report(cfg, clients)
}

func connectAll(cfg Config) ([]*testClient, error) {
	clients := make([]*testClient, 0, cfg.Clients)
	for i := 1; i <= cfg.Clients; i++ {
		name := fmt.Sprintf("tester-%d", i)

		target := cfg.ServerURL
		if cfg.JWTSecret != "" {
			token, err := identity.GenerateToken(name, cfg.JWTSecret, time.Hour)
			if err != nil {
				return nil, err
			}
			u, err := url.Parse(target)
			if err != nil {
				return nil, err
			}
			q := u.Query()
			q.Set("token", token)
			u.RawQuery = q.Encode()
			target = u.String()
		}

		conn, _, err := websocket.DefaultDialer.Dial(target, nil)
		if err != nil {
			return nil, fmt.Errorf("dialing %s: %w", target, err)
		}

		c := &testClient{name: name, conn: conn, done: make(chan struct{})}
		go c.readLoop()
		clients = append(clients, c)
	}
	return clients, nil
}

func (c *testClient) readLoop() {
	defer close(c.done)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var evt serverEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			continue
		}

		c.mu.Lock()
		switch evt.Type {
		case "presence":
			c.lastPresence = evt.Online
		case "message":
			c.messages = append(c.messages, evt)
		case "error":
			c.errors = append(c.errors, evt)
		}
		c.mu.Unlock()
	}
}

func (c *testClient) write(evt clientEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *testClient) presence() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lastPresence...)
}

func (c *testClient) received() []serverEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]serverEvent(nil), c.messages...)
}

func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return cond()
}

// report prints one row per client and fails when any client missed a
// message, saw them out of order, or never saw full presence.
func report(cfg Config, clients []*testClient) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Client", "Presence", "Received", "Ordered", "Errors"})

	ok := true
	for _, c := range clients {
		received := c.received()
		ordered := isOrdered(received)
		complete := len(received) == cfg.Messages
		presence := len(c.presence()) == len(clients)

		if !ordered || !complete || !presence {
			ok = false
		}

		table.Append([]string{
			c.name,
			fmt.Sprintf("%d/%d", len(c.presence()), len(clients)),
			fmt.Sprintf("%d/%d", len(received), cfg.Messages),
			strconv.FormatBool(ordered),
			strconv.Itoa(len(c.errors)),
		})
	}
	table.Render()

	if !ok {
		color.Red.Println("FAIL: at least one client observed a gap, disorder, or partial presence")
		return fmt.Errorf("scenario failed")
	}
	color.Green.Printf("PASS: %d clients, %d messages, room %q\n", len(clients), cfg.Messages, cfg.Room)
	return nil
}

func isOrdered(events []serverEvent) bool {
	var last uint64
	for _, evt := range events {
		if evt.Message == nil || evt.Message.Seq <= last {
			return false
		}
		last = evt.Message.Seq
	}
	return true
}
