package email

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"

	"peer-jury/internal/config"
)

// Service handles email operations
type Service struct {
	config *config.EmailConfig
}

// NewService creates a new email service
func NewService(cfg *config.EmailConfig) *Service {
	return &Service{
		config: cfg,
	}
}

// SendWelcomeEmail sends a welcome email after registration
func (s *Service) SendWelcomeEmail(to, name string) error {
	subject := "Welcome to PeerJury!"

	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Welcome to PeerJury</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #4a90e2;">Welcome to PeerJury, %s!</h2>
        <p>Your account has been created. You can now:</p>
        <ul>
            <li>Create projects and deliverables</li>
            <li>Open deliverables for anonymous peer grading</li>
            <li>Grade deliverables you are selected for as a jury member</li>
        </ul>
        <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="color: #999; font-size: 12px;">This is an automated email. Please do not reply.</p>
    </div>
</body>
</html>
`, name)

	return s.sendEmail(to, subject, body)
}

// SendJuryAssignmentEmail notifies a selected juror about a new assignment
func (s *Service) SendJuryAssignmentEmail(to, name, deliverableTitle, projectTitle string, dueDate string) error {
	subject := "You have been selected as a jury member"

	dueDateRow := ""
	if dueDate != "" {
		dueDateRow = fmt.Sprintf(`<p style="margin: 5px 0;"><strong>Due date:</strong> %s</p>`, dueDate)
	}

	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Jury Assignment</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #4a90e2;">New Jury Assignment</h2>
        <p>Hello %s,</p>
        <p>You have been randomly selected to grade a deliverable. Your identity stays anonymous to the project team.</p>
        <div style="background-color: #e3f2fd; border-left: 4px solid #2196f3; padding: 15px; margin: 20px 0;">
            <p style="margin: 5px 0;"><strong>Project:</strong> %s</p>
            <p style="margin: 5px 0;"><strong>Deliverable:</strong> %s</p>
            %s
        </div>
        <div style="text-align: center; margin: 30px 0;">
            <a href="%s/jury" style="background-color: #4a90e2; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Open Jury Dashboard</a>
        </div>
        <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="color: #999; font-size: 12px;">This is an automated email. Please do not reply.</p>
    </div>
</body>
</html>
`, name, projectTitle, deliverableTitle, dueDateRow, s.config.AppBaseURL)

	return s.sendEmail(to, subject, body)
}

// SendGradingClosedEmail notifies the project owner that grading has closed
func (s *Service) SendGradingClosedEmail(to, name, deliverableTitle string, totalEvaluations int) error {
	subject := fmt.Sprintf("Grading closed: %s", deliverableTitle)

	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Grading Closed</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #27ae60;">Grading Closed</h2>
        <p>Hello %s,</p>
        <p>Grading for <strong>%s</strong> has been closed with <strong>%d</strong> submitted evaluations.</p>
        <p>The final grade is now available on your project page.</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="%s/projects" style="background-color: #4a90e2; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">View Results</a>
        </div>
        <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="color: #999; font-size: 12px;">This is an automated email. Please do not reply.</p>
    </div>
</body>
</html>
`, name, deliverableTitle, totalEvaluations, s.config.AppBaseURL)

	return s.sendEmail(to, subject, body)
}

// SendDueDateReminderEmail reminds a juror about an evaluation that is still
// pending shortly before the deliverable's due date
func (s *Service) SendDueDateReminderEmail(to, name, deliverableTitle, projectTitle, dueDate string) error {
	subject := fmt.Sprintf("Reminder: evaluation due for %s", deliverableTitle)

	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Evaluation Reminder</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #ff9800;">Evaluation Reminder</h2>
        <p>Hello %s,</p>
        <p>Your evaluation for the deliverable below has not been submitted yet:</p>
        <div style="background-color: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin: 20px 0;">
            <p style="margin: 5px 0;"><strong>Project:</strong> %s</p>
            <p style="margin: 5px 0;"><strong>Deliverable:</strong> %s</p>
            <p style="margin: 5px 0;"><strong>Due date:</strong> %s</p>
        </div>
        <div style="text-align: center; margin: 30px 0;">
            <a href="%s/jury" style="background-color: #4a90e2; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Submit Evaluation</a>
        </div>
        <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="color: #999; font-size: 12px;">This is an automated email. Please do not reply.</p>
    </div>
</body>
</html>
`, name, projectTitle, deliverableTitle, dueDate, s.config.AppBaseURL)

	return s.sendEmail(to, subject, body)
}

// sendEmail sends an email using SMTP
func (s *Service) sendEmail(to, subject, body string) error {
	// Create the email message
	headers := make(map[string]string)
	headers["From"] = s.config.SMTPFrom
	headers["To"] = to
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"

	// Build the message
	var message bytes.Buffer
	for k, v := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	message.WriteString("\r\n")
	message.WriteString(body)

	// Connect to SMTP server
	addr := net.JoinHostPort(s.config.SMTPHost, s.config.SMTPPort)
	slog.Debug("Attempting to connect to SMTP server",
		"address", addr,
		"host", s.config.SMTPHost,
		"port", s.config.SMTPPort,
	)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		slog.Error("Failed to connect to SMTP server",
			"address", addr,
			"error", err,
		)
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func(conn net.Conn) {
		if err := conn.Close(); err != nil {
			slog.Error("Failed to close SMTP connection", "error", err)
		}
	}(conn)

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		slog.Error("Failed to create SMTP client", "error", err)
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func(client *smtp.Client) {
		if err := client.Close(); err != nil {
			slog.Error("Failed to close SMTP client", "error", err)
		}
	}(client)

	// Authenticate only if credentials are provided and not empty
	// For development (e.g., Mailpit), no authentication is needed
	if s.config.SMTPUsername != "" && s.config.SMTPPassword != "" {
		auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
		// Try to authenticate, but don't fail if it's not supported (e.g., Mailpit)
		_ = client.Auth(auth)
	}

	if err := client.Mail(s.config.SMTPFrom); err != nil {
		slog.Error("Failed to set sender",
			"from", s.config.SMTPFrom,
			"error", err,
		)
		return fmt.Errorf("failed to set sender: %w", err)
	}

	if err := client.Rcpt(to); err != nil {
		slog.Error("Failed to set recipient",
			"to", to,
			"error", err,
		)
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		slog.Error("Failed to initiate data transfer", "error", err)
		return fmt.Errorf("failed to initiate data transfer: %w", err)
	}
	defer func(wc io.WriteCloser) {
		if err := wc.Close(); err != nil {
			slog.Error("Failed to close write closer", "error", err)
		}
	}(wc)

	if _, err := wc.Write(message.Bytes()); err != nil {
		slog.Error("Failed to write message", "error", err)
		return fmt.Errorf("failed to write message: %w", err)
	}

	slog.Info("Email sent successfully", "to", to)

	return nil
}
