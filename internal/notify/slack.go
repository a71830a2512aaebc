package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

const defaultMaxItems = 10

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

// SlackSender posts alerts to Slack incoming webhooks.
type SlackSender struct {
	client   *http.Client
	maxItems int
}

func NewSlackSender(timeout time.Duration, maxItems int) *SlackSender {
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	return &SlackSender{
		client:   &http.Client{Timeout: timeout},
		maxItems: maxItems,
	}
}

func (s *SlackSender) Send(ctx context.Context, webhookURL string, alert Alert) error {
	if webhookURL == "" {
		return fmt.Errorf("no slack webhook url for region %s", alert.RegionName)
	}

	body, err := json.Marshal(s.format(alert))
	if err != nil {
		return fmt.Errorf("encode slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}

func (s *SlackSender) format(a Alert) slackMessage {
	var title, intro string
	switch a.Kind {
	case KindDeadstock:
		title = "Deadstock Risk - " + a.RegionName
		intro = fmt.Sprintf("*%d SKU(s)* at risk within 150 days:", len(a.Items))
	default:
		title = "Stockout Risk - " + a.RegionName
		intro = fmt.Sprintf("*%d SKU(s)* below reorder point:", len(a.Items))
	}

	msg := slackMessage{
		Text: title,
		Blocks: []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: title}},
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: intro}},
		},
	}

	items := a.Items
	if len(items) > s.maxItems {
		items = items[:s.maxItems]
	}
	for _, it := range items {
		fields := []slackText{
			{Type: "mrkdwn", Text: "*SKU:* " + it.SKUCode},
			{Type: "mrkdwn", Text: "*Name:* " + it.Name},
		}
		if a.Kind == KindDeadstock {
			fields = append(fields,
				slackText{Type: "mrkdwn", Text: "*Lot:* " + it.LotCode},
				slackText{Type: "mrkdwn", Text: fmt.Sprintf("*Days to Expiry:* %d", it.DaysToExpiry)},
				slackText{Type: "mrkdwn", Text: fmt.Sprintf("*Expected Leftover:* %d", int(math.Round(it.ExpectedLeftover)))},
				slackText{Type: "mrkdwn", Text: "*Action:* " + it.Action},
			)
		} else {
			fields = append(fields,
				slackText{Type: "mrkdwn", Text: fmt.Sprintf("*On Hand:* %d", it.OnHand)},
				slackText{Type: "mrkdwn", Text: fmt.Sprintf("*ROP:* %d", it.ROP)},
			)
		}
		msg.Blocks = append(msg.Blocks, slackBlock{Type: "section", Fields: fields})
	}
	return msg
}

var _ Sender = (*SlackSender)(nil)
