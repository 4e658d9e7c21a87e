package auth

import (
	"bufio"
	"cantonfair/scraper/internal/client"
	"cantonfair/scraper/internal/config"
	"cantonfair/scraper/internal/store"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/chromedp/chromedp"
	log "github.com/sirupsen/logrus"
)

const (
	accountInput  = `input[placeholder="Please enter your account or email"]`
	passwordInput = `input[placeholder=" Please enter your password "]`
	agreementBox  = `.el-checkbox`

	// Operators solve the slider CAPTCHA by hand.
	captchaTimeout = 15 * time.Minute
)

// interactiveLogin signs in through a visible browser. Credentials are typed
// from config; the operator solves the CAPTCHA and confirms on stdin.
type interactiveLogin struct {
	cfg    config.Config
	layout store.Layout
	prompt io.Writer
	input  *bufio.Reader
}

func NewInteractiveLogin(cfg config.Config, layout store.Layout, prompt io.Writer, input io.Reader) client.Authenticator {
	return &interactiveLogin{
		cfg:    cfg,
		layout: layout,
		prompt: prompt,
		input:  bufio.NewReader(input),
	}
}

func (l *interactiveLogin) Login(ctx context.Context) error {
	if err := l.validate(); err != nil {
		return err
	}

	browserCtx, cancel, err := client.NewBrowserContext(ctx, l.cfg.Browser, false, "")
	if err != nil {
		return err
	}
	defer cancel()

	settle := l.cfg.Browser.Settle()
	err = client.RunWithTimeout(browserCtx, l.cfg.Browser.NavTimeout(),
		chromedp.Navigate(l.cfg.Portal.BaseURL),
		chromedp.WaitReady("body"),
		client.ClickText("Login"),
		chromedp.Sleep(settle),
		client.ClickText(l.cfg.Auth.UserType),
		chromedp.WaitVisible(accountInput, chromedp.ByQuery),
		chromedp.SendKeys(accountInput, l.cfg.Auth.Email, chromedp.ByQuery),
		chromedp.WaitVisible(passwordInput, chromedp.ByQuery),
		chromedp.SendKeys(passwordInput, l.cfg.Auth.Password, chromedp.ByQuery),
		chromedp.Click(agreementBox, chromedp.ByQuery),
		chromedp.Sleep(settle),
		client.ClickButton("Login"),
	)
	if err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}

	log.Info("🧩 Please solve the CAPTCHA puzzle manually. Pausing execution...")
	if err := l.waitForOperator(ctx); err != nil {
		return err
	}
	log.Info("▶️ Resuming execution post login...")

	err = client.RunWithTimeout(browserCtx, l.cfg.Browser.NavTimeout(),
		client.ClickText("Got It"),
		chromedp.Sleep(settle),
		client.SaveSession(l.layout.Session()),
	)
	if err != nil {
		return fmt.Errorf("failed to finish login: %w", err)
	}

	return nil
}

func (l *interactiveLogin) validate() error {
	missing := make([]string, 0)
	if l.cfg.Auth.UserType == "" {
		missing = append(missing, "auth.usertype")
	}
	if l.cfg.Auth.Email == "" {
		missing = append(missing, "auth.email")
	}
	if l.cfg.Auth.Password == "" {
		missing = append(missing, "auth.password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("login credentials not configured: %v", missing)
	}
	return nil
}

// waitForOperator blocks until a line is read from input.
func (l *interactiveLogin) waitForOperator(ctx context.Context) error {
	fmt.Fprint(l.prompt, "After a confirmation of successful login, press Enter to resume execution...")

	done := make(chan error, 1)
	go func() {
		_, err := l.input.ReadString('\n')
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(captchaTimeout):
		return fmt.Errorf("no login confirmation within %s", captchaTimeout)
	}
}
