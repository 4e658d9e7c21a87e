package auth

import (
	"bytes"
	"cantonfair/scraper/internal/config"
	"cantonfair/scraper/internal/store"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLogin(cfg config.Config, input string) (*interactiveLogin, *bytes.Buffer) {
	prompt := &bytes.Buffer{}
	login := NewInteractiveLogin(cfg, store.NewLayout("unused"), prompt, strings.NewReader(input))
	return login.(*interactiveLogin), prompt
}

func TestLogin_RequiresCredentials(t *testing.T) {
	login, _ := newLogin(config.Config{Auth: config.AuthConfig{UserType: "Buyer"}}, "")

	err := login.Login(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.email")
	assert.Contains(t, err.Error(), "auth.password")
	assert.NotContains(t, err.Error(), "auth.usertype")
}

func TestWaitForOperator_ReadsLine(t *testing.T) {
	login, prompt := newLogin(config.Config{}, "\n")

	require.NoError(t, login.waitForOperator(context.Background()))
	assert.Contains(t, prompt.String(), "press Enter")
}

func TestWaitForOperator_EOFResumes(t *testing.T) {
	login, _ := newLogin(config.Config{}, "")

	assert.NoError(t, login.waitForOperator(context.Background()))
}
