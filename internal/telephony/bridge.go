// Package telephony places masked calls between a caller and a tag owner.
package telephony

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"contactkar/internal/logger"
)

// Call is the provider's handle on a bridged call.
type Call struct {
	ProviderRef string
	Status      string
}

// Bridger connects a caller to an owner without disclosing either number to
// the other party.
type Bridger interface {
	Bridge(ctx context.Context, callerNumber, ownerNumber string) (*Call, error)
}

type callCreator interface {
	CreateCall(params *twilioApi.CreateCallParams) (*twilioApi.ApiV2010Call, error)
}

// TwilioBridger dials the caller from the ContactKar number and, once
// answered, dials the owner with the same number as caller id.
type TwilioBridger struct {
	calls callCreator
	from  string
	log   *zap.Logger
}

// NewTwilioBridger creates a bridger using the Twilio REST API.
func NewTwilioBridger(accountSID, authToken, from string, log *zap.Logger) (*TwilioBridger, error) {
	if accountSID == "" || authToken == "" || from == "" {
		return nil, errors.New("missing Twilio credentials")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioBridger{calls: client.Api, from: from, log: log}, nil
}

func (b *TwilioBridger) Bridge(ctx context.Context, callerNumber, ownerNumber string) (*Call, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	twiml, err := dialTwiML(b.from, ownerNumber)
	if err != nil {
		return nil, err
	}

	params := &twilioApi.CreateCallParams{}
	params.SetTo(callerNumber)
	params.SetFrom(b.from)
	params.SetTwiml(twiml)

	resp, err := b.calls.CreateCall(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create bridge call: %w", err)
	}
	if resp == nil || resp.Sid == nil {
		return nil, errors.New("bridge call created without a call sid")
	}

	call := &Call{ProviderRef: *resp.Sid}
	if resp.Status != nil {
		call.Status = *resp.Status
	}
	b.log.Info("bridge call created",
		zap.String("call_sid", call.ProviderRef),
		zap.String("caller", logger.MaskPhone(callerNumber)))
	return call, nil
}

type twimlResponse struct {
	XMLName xml.Name  `xml:"Response"`
	Dial    twimlDial `xml:"Dial"`
}

type twimlDial struct {
	CallerID string `xml:"callerId,attr"`
	Number   string `xml:",chardata"`
}

// dialTwiML builds the instructions executed when the caller answers.
func dialTwiML(callerID, ownerNumber string) (string, error) {
	out, err := xml.Marshal(twimlResponse{Dial: twimlDial{CallerID: callerID, Number: ownerNumber}})
	if err != nil {
		return "", fmt.Errorf("failed to build TwiML: %w", err)
	}
	return string(out), nil
}

// LogBridger pretends to bridge calls and only logs them. It is used when no
// telephony provider is configured.
type LogBridger struct {
	log *zap.Logger
}

// NewLogBridger creates a bridger that only logs.
func NewLogBridger(log *zap.Logger) *LogBridger {
	return &LogBridger{log: log}
}

func (b *LogBridger) Bridge(_ context.Context, callerNumber, ownerNumber string) (*Call, error) {
	ref := "log-" + uuid.NewString()
	b.log.Info("bridge call simulated",
		zap.String("call_ref", ref),
		zap.String("caller", logger.MaskPhone(callerNumber)),
		zap.String("owner", logger.MaskPhone(ownerNumber)))
	return &Call{ProviderRef: ref, Status: "simulated"}, nil
}
