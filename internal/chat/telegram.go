package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// sendLimit is the Bot API hard cap on message length, minus headroom
	sendLimit = 3900

	longPollSeconds = 30
)

// TelegramSession implements Session over the Telegram Bot API using raw
// HTTP, long-polling getUpdates for delivery.
type TelegramSession struct {
	apiBase    string
	httpClient *http.Client
	selfID     int64
}

// BotAPIBase builds the Bot API base URL for a token
func BotAPIBase(token string) string {
	return "https://api.telegram.org/bot" + token
}

// NewTelegramSession creates a session for the given bot API base URL
// (e.g. "https://api.telegram.org/bot<token>")
func NewTelegramSession(apiBase string, requestTimeout time.Duration) *TelegramSession {
	return &TelegramSession{
		apiBase: apiBase,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// apiResponse is the generic Bot API response wrapper
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

type tgChat struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type tgUser struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

type tgMessage struct {
	MessageID int64   `json:"message_id"`
	Text      *string `json:"text,omitempty"`
	Date      int64   `json:"date"`
	Chat      tgChat  `json:"chat"`
	From      *tgUser `json:"from,omitempty"`
}

type tgUpdate struct {
	UpdateID int64      `json:"update_id"`
	Message  *tgMessage `json:"message,omitempty"`
}

// Connect verifies the token via getMe and learns the bot's own identity so
// that echoed events can be tagged as self-authored
func (s *TelegramSession) Connect(ctx context.Context) error {
	var me tgUser
	if err := s.call(ctx, "getMe", nil, &me); err != nil {
		return fmt.Errorf("telegram getMe failed: %w", err)
	}
	s.selfID = me.ID
	log.Info().Str("username", me.Username).Int64("id", me.ID).Msg("connected to telegram")
	return nil
}

// ResolveTarget resolves a numeric chat id or @username into a conversation
func (s *TelegramSession) ResolveTarget(ctx context.Context, selector string) (Conversation, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return Conversation{}, fmt.Errorf("empty chat selector")
	}

	params := url.Values{}
	params.Set("chat_id", selector)

	var chat tgChat
	if err := s.call(ctx, "getChat", params, &chat); err != nil {
		return Conversation{}, fmt.Errorf("resolving chat %q: %w", selector, err)
	}
	return conversationFromChat(chat), nil
}

// RecentMessages satisfies the history-preload capability. The Bot API
// exposes no history fetch for arbitrary chats, so the session starts with
// an empty buffer and fills from live traffic.
func (s *TelegramSession) RecentMessages(ctx context.Context, conv Conversation, limit int) ([]Message, error) {
	log.Debug().Int64("chat", conv.ID).Msg("bot API has no history surface; starting with empty context")
	return nil, nil
}

// Send delivers text to the conversation via sendMessage
func (s *TelegramSession) Send(ctx context.Context, conv Conversation, text string) (Message, error) {
	payload, err := json.Marshal(map[string]any{
		"chat_id": conv.ID,
		"text":    truncate(text, sendLimit),
	})
	if err != nil {
		return Message{}, fmt.Errorf("marshaling sendMessage payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiBase+"/sendMessage", strings.NewReader(string(payload)))
	if err != nil {
		return Message{}, fmt.Errorf("creating sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Message{}, fmt.Errorf("telegram sendMessage request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Message{}, fmt.Errorf("reading sendMessage response: %w", err)
	}

	var wrapper apiResponse
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return Message{}, fmt.Errorf("parsing sendMessage response: %w", err)
	}
	if !wrapper.OK {
		return Message{}, fmt.Errorf("telegram sendMessage rejected: %s", wrapper.Description)
	}

	var sent tgMessage
	if err := json.Unmarshal(wrapper.Result, &sent); err != nil {
		return Message{}, fmt.Errorf("parsing sendMessage result: %w", err)
	}
	return Message{ID: sent.MessageID, Text: text, IsSelf: true}, nil
}

// Updates long-polls getUpdates and yields messages scoped to the
// conversation. The returned channel closes when ctx is cancelled.
func (s *TelegramSession) Updates(ctx context.Context, conv Conversation) (<-chan Message, error) {
	out := make(chan Message, 16)

	go func() {
		defer close(out)
		var offset int64
		for {
			if ctx.Err() != nil {
				return
			}
			updates, err := s.getUpdates(ctx, offset, longPollSeconds)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn().Err(err).Msg("getUpdates failed; retrying")
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
					return
				}
				continue
			}
			for _, u := range updates {
				if u.UpdateID >= offset {
					offset = u.UpdateID + 1
				}
				msg := u.Message
				if msg == nil || msg.Text == nil || msg.Chat.ID != conv.ID {
					continue
				}
				ev := Message{
					ID:     msg.MessageID,
					Text:   *msg.Text,
					IsSelf: msg.From != nil && msg.From.ID == s.selfID,
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// RecentChats lists distinct one-to-one chats visible in the update backlog,
// for target selection
func (s *TelegramSession) RecentChats(ctx context.Context, limit int) ([]Conversation, error) {
	updates, err := s.getUpdates(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("listing recent chats: %w", err)
	}

	seen := map[int64]bool{}
	var chats []Conversation
	for _, u := range updates {
		if u.Message == nil || u.Message.Chat.Type != "private" || seen[u.Message.Chat.ID] {
			continue
		}
		seen[u.Message.Chat.ID] = true
		chats = append(chats, conversationFromChat(u.Message.Chat))
		if limit > 0 && len(chats) >= limit {
			break
		}
	}
	return chats, nil
}

func (s *TelegramSession) getUpdates(ctx context.Context, offset int64, timeoutSec int) ([]tgUpdate, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offset, 10))
	params.Set("timeout", strconv.Itoa(timeoutSec))

	var updates []tgUpdate
	if err := s.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, fmt.Errorf("telegram getUpdates failed: %w", err)
	}
	return updates, nil
}

// call performs one GET against the Bot API and decodes the wrapped result
func (s *TelegramSession) call(ctx context.Context, method string, params url.Values, result any) error {
	endpoint := s.apiBase + "/" + method
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", method, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", method, err)
	}

	var wrapper apiResponse
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return fmt.Errorf("parsing %s response: %w", method, err)
	}
	if !wrapper.OK {
		return fmt.Errorf("%s rejected: %s", method, wrapper.Description)
	}
	if result != nil {
		if err := json.Unmarshal(wrapper.Result, result); err != nil {
			return fmt.Errorf("parsing %s result: %w", method, err)
		}
	}
	return nil
}

func conversationFromChat(chat tgChat) Conversation {
	name := chat.Title
	if name == "" {
		name = strings.TrimSpace(chat.FirstName + " " + chat.LastName)
	}
	if name == "" {
		name = chat.Username
	}
	return Conversation{ID: chat.ID, DisplayName: name, Username: chat.Username}
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
