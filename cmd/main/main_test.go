package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeApp struct {
	runErr   error
	closeErr error
	runs     int
	closes   int
}

func (a *fakeApp) Run(ctx context.Context) error {
	a.runs++
	return a.runErr
}

func (a *fakeApp) Close() error {
	a.closes++
	return a.closeErr
}

func TestRun_ClosesOnce(t *testing.T) {
	errStage := errors.New("stage failed")

	tests := []struct {
		name    string
		app     *fakeApp
		wantErr error
	}{
		{name: "success", app: &fakeApp{}},
		{name: "failure", app: &fakeApp{runErr: errStage}, wantErr: errStage},
		{name: "close failure keeps run result", app: &fakeApp{closeErr: errors.New("busy")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), tt.app)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, 1, tt.app.runs)
			assert.Equal(t, 1, tt.app.closes)
		})
	}
}
