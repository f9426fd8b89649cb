package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"dealradar/internal/config"
	"dealradar/internal/model"

	"gopkg.in/gomail.v2"
)

// EmailNotifier sends scan digests over SMTP.
type EmailNotifier struct {
	cfg    *config.EmailConfig
	logger *slog.Logger
}

func NewEmailNotifier(cfg *config.EmailConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
	}
}

// SendScanDigest emails the scan outcome. Missing SMTP config or an empty
// recipient downgrades to a logged skip so scans never depend on mail.
func (n *EmailNotifier) SendScanDigest(ctx context.Context, scan *model.Scan, results []model.ScanResult, toEmail string) error {
	if n.cfg.SMTPHost == "" || n.cfg.SMTPUser == "" || n.cfg.FromEmail == "" {
		n.logger.Warn("email config missing, skip scan digest")
		return nil
	}
	if strings.TrimSpace(toEmail) == "" {
		n.logger.Warn("email recipient empty, skip scan digest")
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("[DealRadar] Scan #%d %s: %d clearance finds", scan.ID, scan.Status, scan.ClearanceCount))
	m.SetBody("text/html", n.buildHTMLBody(scan, results))

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("scan digest sent",
		slog.String("to", toEmail),
		slog.Uint64("scan_id", uint64(scan.ID)))
	return nil
}

func (n *EmailNotifier) buildHTMLBody(scan *model.Scan, results []model.ScanResult) string {
	var rows strings.Builder
	shown := 0
	for _, r := range results {
		if !r.IsOnClearance {
			continue
		}
		if shown >= 10 {
			break
		}
		price := fmt.Sprintf("$%.2f", r.ClearancePrice)
		if r.PriceSuppressed {
			price = "in-store price"
		}
		fmt.Fprintf(&rows, `
      <tr>
        <td style="padding:8px 12px;"><a href="%s" target="_blank">%s</a></td>
        <td style="padding:8px 12px; color:#ef4444; font-weight:bold;">%s</td>
        <td style="padding:8px 12px; color:#6b7280;">was $%.2f (-%d%%)</td>
        <td style="padding:8px 12px;">%s</td>
      </tr>`,
			html.EscapeString(r.ProductURL),
			html.EscapeString(r.ProductName),
			price, r.WasPrice, r.SavePercent,
			html.EscapeString(r.StoreName))
		shown++
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8" /></head>
<body style="font-family: Arial, sans-serif; background: #f6f7fb; color: #1f2937;">
  <div style="max-width: 640px; margin: 24px auto; background: #ffffff; border-radius: 12px; border: 1px solid #e5e7eb; overflow: hidden;">
    <div style="background: #0f172a; color: #ffffff; padding: 16px 20px; font-size: 16px; font-weight: bold;">
      [DealRadar] Scan results for %s near %s
    </div>
    <div style="padding: 20px;">
      <p>%d products checked across %d stores, %d on clearance.</p>
      <table style="width:100%%; border-collapse: collapse;">%s
      </table>
      <div style="margin-top: 20px; font-size: 12px; color: #6b7280;">Scan #%d</div>
    </div>
  </div>
</body>
</html>`,
		html.EscapeString(scan.Retailer), html.EscapeString(scan.Zip),
		scan.ResultCount, scan.StoreCount, scan.ClearanceCount,
		rows.String(), scan.ID)
}
