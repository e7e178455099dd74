package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTwilioSMSSenderRequiresCredentials(t *testing.T) {
	assert.Nil(t, NewTwilioSMSSender(TwilioSMSConfig{}, nil))
	assert.Nil(t, NewTwilioSMSSender(TwilioSMSConfig{AccountSID: "AC123", AuthToken: "tok"}, nil))
}

func TestTwilioSendSMS(t *testing.T) {
	var gotPath, gotFrom, gotTo, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotFrom = r.FormValue("From")
		gotTo = r.FormValue("To")
		gotBody = r.FormValue("Body")
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1"}`))
	}))
	defer srv.Close()

	sender := NewTwilioSMSSender(TwilioSMSConfig{
		AccountSID: "AC123",
		AuthToken:  "token",
		FromNumber: "+15550000000",
		BaseURL:    srv.URL,
	}, nil)
	require.NotNil(t, sender)

	err := sender.SendSMS(context.Background(), "+15551234567", "hello there")
	require.NoError(t, err)
	assert.Equal(t, "/Accounts/AC123/Messages.json", gotPath)
	assert.Equal(t, "+15550000000", gotFrom)
	assert.Equal(t, "+15551234567", gotTo)
	assert.Equal(t, "hello there", gotBody)
}

func TestTwilioSendSMSErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"authentication failed"}`))
	}))
	defer srv.Close()

	sender := NewTwilioSMSSender(TwilioSMSConfig{
		AccountSID: "AC123",
		AuthToken:  "bad",
		FromNumber: "+15550000000",
		BaseURL:    srv.URL,
	}, nil)

	err := sender.SendSMS(context.Background(), "+15551234567", "hello")
	assert.Error(t, err)
}

func TestTwilioSendSMSRequiresRecipient(t *testing.T) {
	sender := NewTwilioSMSSender(TwilioSMSConfig{
		AccountSID: "AC123",
		AuthToken:  "token",
		FromNumber: "+15550000000",
	}, nil)
	assert.Error(t, sender.SendSMS(context.Background(), "  ", "hello"))
}
