package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Notification kinds.
const (
	KindTradeExecuted = "trade-executed"
	KindTradeDryRun   = "trade-dry-run"
	KindMintEligible  = "mint-eligible"
)

// Notification 封装通知上下文。Amounts carry display units, not raw integers.
type Notification struct {
	Kind          string
	ModelID       string
	QScore        float64
	PriceUnits    decimal.Decimal
	AmountGAS     decimal.Decimal
	TokensOut     decimal.Decimal
	Status        string
	Reason        string
	At            time.Time
	AdditionalMsg string
}

// Notifier 定义通知输送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 通知器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().Str("kind", note.Kind).
		Str("model", note.ModelID).
		Str("status", note.Status).
		Msg("通知已发送 (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	switch note.Kind {
	case KindMintEligible:
		builder.WriteString("[Chatten Mint Eligible]\n")
	case KindTradeDryRun:
		builder.WriteString("[Chatten Trade - Dry Run]\n")
	default:
		builder.WriteString("[Chatten Trade]\n")
	}
	builder.WriteString(fmt.Sprintf("Model: %s\n", note.ModelID))
	builder.WriteString(fmt.Sprintf("Q-Score: %.2f\n", note.QScore))
	if note.Kind != KindMintEligible {
		builder.WriteString(fmt.Sprintf("Price: %s units/COMPUTE\n", note.PriceUnits.String()))
		builder.WriteString(fmt.Sprintf("Spent: %s GAS\n", note.AmountGAS.String()))
		builder.WriteString(fmt.Sprintf("Tokens: %s COMPUTE\n", note.TokensOut.String()))
		builder.WriteString(fmt.Sprintf("Status: %s\n", note.Status))
	}
	if note.Reason != "" {
		builder.WriteString(fmt.Sprintf("Reason: %s\n", note.Reason))
	}
	builder.WriteString(fmt.Sprintf("Time: %s UTC\n", note.At.UTC().Format(time.RFC3339)))
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
