// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 Spruce Health

// Package telephony places outbound calls through the Twilio REST API.
package telephony

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// CallCreator is the slice of the Twilio API the dialer uses. The
// twilio-go Api service satisfies it.
type CallCreator interface {
	CreateCall(params *twilioapi.CreateCallParams) (*twilioapi.ApiV2010Call, error)
}

// Dialer starts the outbound call that opens a conversation loop.
type Dialer struct {
	calls CallCreator
	from  string
}

func NewDialer(accountSID, authToken, fromNumber string) *Dialer {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Dialer{calls: client.Api, from: fromNumber}
}

// NewDialerWithClient injects a call creator, for tests.
func NewDialerWithClient(calls CallCreator, fromNumber string) *Dialer {
	return &Dialer{calls: calls, from: fromNumber}
}

// StartConversation places a call to the target number. Twilio fetches the
// call-control markup from webhookURL via POST; nothing about the call is
// persisted here — the SID is returned to the caller and forgotten.
func (d *Dialer) StartConversation(toNumber, webhookURL string) (string, error) {
	params := &twilioapi.CreateCallParams{}
	params.SetTo(toNumber)
	params.SetFrom(d.from)
	params.SetUrl(webhookURL)
	params.SetMethod(http.MethodPost)

	call, err := d.calls.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("create call: %w", err)
	}
	if call.Sid == nil || *call.Sid == "" {
		return "", errors.New("twilio returned a call without a sid")
	}
	return *call.Sid, nil
}
