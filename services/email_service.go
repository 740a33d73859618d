// File: /services/email_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
	"yonkoma-api/config"
)

var ErrEmailDisabled = errors.New("email delivery is not configured")

type EmailService struct {
	config *config.Config
	dialer *gomail.Dialer
}

func NewEmailService(cfg *config.Config) *EmailService {
	service := &EmailService{config: cfg}
	if cfg.SMTPHost != "" {
		service.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	return service
}

// Enabled reports whether an SMTP host is configured
func (es *EmailService) Enabled() bool {
	return es.dialer != nil
}

// Send welcome email
func (es *EmailService) SendWelcomeEmail(email, name string) error {
	if !es.Enabled() {
		return ErrEmailDisabled
	}

	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", es.config.FromName, es.config.FromEmail))
	m.SetHeader("To", email)
	m.SetHeader("Subject", "ようこそ 4コマへ！")

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>ようこそ</title>
    <style>
        body { font-family: sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { text-align: center; background: #ff8a00; color: white; padding: 30px; border-radius: 10px 10px 0 0; }
        .content { background: #fff8f0; padding: 30px; border-radius: 0 0 10px 10px; }
        .feature { background: white; padding: 20px; margin: 15px 0; border-radius: 8px; border-left: 4px solid #ff8a00; }
        .footer { text-align: center; margin-top: 20px; color: #666; font-size: 14px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>ようこそ %s さん！</h1>
        </div>
        <div class="content">
            <p>アカウントの登録が完了しました。</p>

            <div class="feature">
                <h4>4コマを描く</h4>
                <p>4つのコマとサムネイルを用意して、あなたの作品を投稿しましょう。</p>
            </div>

            <div class="feature">
                <h4>お気に入りを保存</h4>
                <p>気に入った作品にいいねすると、保存済みの一覧からいつでも読み返せます。</p>
            </div>

            <p><strong>%s</strong></p>
        </div>
        <div class="footer">
            <p>このメールは送信専用です。</p>
        </div>
    </div>
</body>
</html>`, name, es.config.FromName)

	textBody := fmt.Sprintf(`
ようこそ %s さん！

アカウントの登録が完了しました。

4コマを描く
4つのコマとサムネイルを用意して、あなたの作品を投稿しましょう。

お気に入りを保存
気に入った作品にいいねすると、保存済みの一覧からいつでも読み返せます。

%s
`, name, es.config.FromName)

	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	if err := es.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}

	log.Info().Str("email", email).Msg("Welcome email sent.")
	return nil
}

// SendWelcomeEmailAsync sends the welcome mail in the background. Failures
// are logged and never reach the caller.
func (es *EmailService) SendWelcomeEmailAsync(email, name string) {
	if !es.Enabled() {
		log.Debug().Str("email", email).Msg("Email delivery disabled, skipping welcome email.")
		return
	}
	go func() {
		if err := es.SendWelcomeEmail(email, name); err != nil {
			log.Warn().Err(err).Str("email", email).Msg("Failed to send welcome email.")
		}
	}()
}
