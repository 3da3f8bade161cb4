package workflows

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

type SlackPayload struct {
	Text string `json:"text"`
}

// ReportErrorToSlack posts an error message to the sov-pipeline-alerts channel.
func ReportErrorToSlack(webhookURL string, err error) error {
	if err == nil {
		return nil
	}

	if webhookURL == "" {
		return errors.New("slack webhook URL is not configured")
	}

	message := fmt.Sprintf(
		":rotating_light: *SoV Pipeline Error*\n"+
			"*Time:* %s\n"+
			"*Error:* ```%s```",
		time.Now().UTC().Format(time.RFC3339),
		err.Error(),
	)

	payload := SlackPayload{
		Text: message,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// ReportRunFailureToSlack reports analysis run failures with context.
func ReportRunFailureToSlack(webhookURL, pipeline, brand, reason string, err error) error {
	if err == nil {
		return nil
	}

	if brand == "" {
		brand = "unknown"
	}
	if pipeline == "" {
		pipeline = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}

	reportErr := fmt.Errorf(
		"pipeline failed: pipeline=%s reason=%s brand=%s error=%v",
		pipeline,
		reason,
		brand,
		err,
	)

	return ReportErrorToSlack(webhookURL, reportErr)
}
