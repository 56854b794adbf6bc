package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Pranavrh53/Geo-Watch/internal/properties"
	"github.com/Pranavrh53/Geo-Watch/internal/report"
)

type DiscordMessage struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

const (
	colorRed    = 16711680
	colorGreen  = 65280
	colorYellow = 16776960
)

var httpClient = &http.Client{Timeout: 15 * time.Second}

// send posts a single embed. An empty webhook URL disables notifications.
func send(url string, embed DiscordEmbed) error {
	if url == "" {
		return nil
	}

	payload, err := json.Marshal(DiscordMessage{Embeds: []DiscordEmbed{embed}})
	if err != nil {
		return err
	}

	resp, err := httpClient.Post(url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send Discord notification, status code: %d", resp.StatusCode)
	}

	return nil
}

func SendDiscordErrorNotification(errorMessage string) error {
	return send(properties.DiscordErrorNotificationUrl(), DiscordEmbed{
		Title:       "🚨 Error Notification",
		Description: fmt.Sprintf("An error occurred: %s", errorMessage),
		Color:       colorRed,
	})
}

func SendDiscordWarnNotification(warnMessage string) error {
	return send(properties.DiscordWarnNotificationUrl(), DiscordEmbed{
		Title:       "⚠️ Warning Notification",
		Description: warnMessage,
		Color:       colorYellow,
	})
}

func SendDiscordSuccessNotification(successMessage string) error {
	return send(properties.DiscordSuccessNotificationUrl(), DiscordEmbed{
		Title:       "✅ Success Notification",
		Description: successMessage,
		Color:       colorGreen,
	})
}

// RunMessage formats the Discord description for a finished run.
func RunMessage(r report.Report, elapsed time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Geo-Watch change detection\n\n")
	if r.Region != "" {
		fmt.Fprintf(&b, " - Region: %s\n", r.Region)
	}
	if r.BeforeLabel != "" || r.AfterLabel != "" {
		fmt.Fprintf(&b, " - Period: %s -> %s\n", r.BeforeLabel, r.AfterLabel)
	}
	for _, c := range r.Changes {
		fmt.Fprintf(&b, " - %s: %.2f ha\n", c.Name, c.AreaHectares)
	}
	fmt.Fprintf(&b, " - Total: %.2f ha\n", r.TotalChangeHectares)
	fmt.Fprintf(&b, " - Tiles: %d processed, %d skipped\n", r.TilesProcessed, r.TilesSkipped)
	if elapsed > 0 {
		fmt.Fprintf(&b, " - Processing time: %s\n", elapsed.Round(time.Millisecond))
	}
	return b.String()
}

// NotifyRun sends a success message, or a warning when tiles were skipped.
func NotifyRun(r report.Report, elapsed time.Duration) error {
	if r.TilesSkipped > 0 {
		return SendDiscordWarnNotification(RunMessage(r, elapsed))
	}
	return SendDiscordSuccessNotification(RunMessage(r, elapsed))
}
